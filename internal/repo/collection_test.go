package repo

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbout22/memview/internal/apperror"
	"github.com/cbout22/memview/internal/config"
)

func titles(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Title()
	}
	return out
}

func TestLoadCollection_NotFoundIsEmpty(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, map[string]http.HandlerFunc{})
	c := newTestClient(t, ts)

	records, err := c.LoadCollection(context.Background(), config.Developers)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestLoadCollection_SkipsMalformedRecord(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/repos/alice/school/contents/memories": listingHandler(
			dir("memories", "first"),
			dir("memories", "broken"),
			dir("memories", "third"),
		),
		"/repos/alice/school/contents/memories/first/data.json":  fileHandler(`{"title":"First"}`),
		"/repos/alice/school/contents/memories/broken/data.json": fileHandler(`{"title": `),
		"/repos/alice/school/contents/memories/third/data.json":  fileHandler(`{"title":"Third"}`),
	})
	c := newTestClient(t, ts)

	report, err := c.LoadCollectionReport(context.Background(), config.Memories)
	require.NoError(t, err)
	assert.Equal(t, []string{"First", "Third"}, titles(report.Records))
	assert.Equal(t, config.Memories, report.Collection)

	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "broken", report.Skipped[0].Folder)
	assert.Equal(t, SkipDecode, report.Skipped[0].Reason)
	assert.ErrorIs(t, report.Skipped[0].Err, apperror.ErrDecode)

	records, err := c.LoadCollection(context.Background(), config.Memories)
	require.NoError(t, err)
	assert.Equal(t, []string{"First", "Third"}, titles(records))
}

func TestLoadCollection_FiltersFilesAndMissingDocuments(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/repos/alice/school/contents/rosters": listingHandler(
			FolderEntry{Name: "README.md", Path: "rosters/README.md", Kind: KindFile},
			dir("rosters", "kim"),
			dir("rosters", "empty"),
			dir("rosters", "lee"),
		),
		"/repos/alice/school/contents/rosters/kim/data.json": fileHandler(`{"name":"Kim","type":"teacher"}`),
		"/repos/alice/school/contents/rosters/lee/data.json": fileHandler(`{"name":"Lee","type":"student"}`),
		"/repos/alice/school/contents/rosters/README.md": func(w http.ResponseWriter, r *http.Request) {
			t.Error("file entries must not be fetched as records")
		},
	})
	c := newTestClient(t, ts)

	report, err := c.LoadCollectionReport(context.Background(), config.Rosters)
	require.NoError(t, err)
	assert.Equal(t, []string{"Kim", "Lee"}, titles(report.Records))
	for _, r := range report.Records {
		assert.Equal(t, config.Rosters, r.Collection)
	}

	require.Len(t, report.Skipped, 1)
	assert.Equal(t, SkipMissing, report.Skipped[0].Reason)
	assert.NoError(t, report.Skipped[0].Err)
}

func TestLoadCollection_PerRecordTransportFailureIsSkipped(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/repos/alice/school/contents/memories": listingHandler(dir("memories", "a"), dir("memories", "b")),
		"/repos/alice/school/contents/memories/a/data.json": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"/repos/alice/school/contents/memories/b/data.json": fileHandler(`{"title":"B"}`),
	})
	c := newTestClient(t, ts)

	report, err := c.LoadCollectionReport(context.Background(), config.Memories)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, titles(report.Records))
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, SkipFetch, report.Skipped[0].Reason)
}

func TestLoadCollection_OrderIndependentOfCompletion(t *testing.T) {
	t.Parallel()

	const n = 6
	routes := map[string]http.HandlerFunc{}
	entries := make([]FolderEntry, 0, n)
	want := make([]string, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("m%d", i)
		entries = append(entries, dir("memories", name))
		want = append(want, name)
		// earlier folders answer later
		delay := time.Duration(n-i) * 10 * time.Millisecond
		doc := fmt.Sprintf(`{"title":%q}`, name)
		routes["/repos/alice/school/contents/memories/"+name+"/data.json"] = func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(delay)
			fileHandler(doc)(w, r)
		}
	}
	routes["/repos/alice/school/contents/memories"] = listingHandler(entries...)

	ts := newTestServer(t, routes)
	c := newTestClient(t, ts, WithConcurrency(n))

	records, err := c.LoadCollection(context.Background(), config.Memories)
	require.NoError(t, err)
	assert.Equal(t, want, titles(records))
}

func TestLoadCollection_RespectsConcurrencyLimit(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	routes := map[string]http.HandlerFunc{}
	entries := make([]FolderEntry, 0, 8)
	for i := 0; i < 8; i++ {
		name := fmt.Sprintf("d%d", i)
		entries = append(entries, dir("developers", name))
		routes["/repos/alice/school/contents/developers/"+name+"/data.json"] = func(w http.ResponseWriter, r *http.Request) {
			cur := inFlight.Add(1)
			for {
				old := peak.Load()
				if cur <= old || peak.CompareAndSwap(old, cur) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
			fileHandler(`{"name":"x"}`)(w, r)
		}
	}
	routes["/repos/alice/school/contents/developers"] = listingHandler(entries...)

	ts := newTestServer(t, routes)
	c := newTestClient(t, ts, WithConcurrency(2))

	records, err := c.LoadCollection(context.Background(), config.Developers)
	require.NoError(t, err)
	assert.Len(t, records, 8)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestLoadCollection_ToleratesDuplicates(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/repos/alice/school/contents/developers": listingHandler(dir("developers", "a"), dir("developers", "b")),
		"/repos/alice/school/contents/developers/a/data.json": fileHandler(`{"name":"Same"}`),
		"/repos/alice/school/contents/developers/b/data.json": fileHandler(`{"name":"Same"}`),
	})
	c := newTestClient(t, ts)

	records, err := c.LoadCollection(context.Background(), config.Developers)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].Folder)
	assert.Equal(t, "b", records[1].Folder)
}

func TestLoadCollection_ListingFailureAborts(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/repos/alice/school/contents/memories": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		},
	})
	c := newTestClient(t, ts)

	records, err := c.LoadCollection(context.Background(), config.Memories)
	assert.ErrorIs(t, err, apperror.ErrServiceUnavailable)
	assert.Nil(t, records)
}

func TestLoadCollection_Idempotent(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/repos/alice/school/contents/memories": listingHandler(dir("memories", "x"), dir("memories", "y"), dir("memories", "z")),
		"/repos/alice/school/contents/memories/x/data.json": fileHandler(`{"title":"X","imagePath":"memories/x/p.png"}`),
		"/repos/alice/school/contents/memories/y/data.json": fileHandler(`{"title":"Y","date":"2024-03-01"}`),
		"/repos/alice/school/contents/memories/z/data.json": fileHandler(`{"title":"Z"}`),
	})
	c := newTestClient(t, ts, WithConcurrency(3))

	first, err := c.LoadCollection(context.Background(), config.Memories)
	require.NoError(t, err)
	second, err := c.LoadCollection(context.Background(), config.Memories)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLoadCollection_CancelledContext(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/repos/alice/school/contents/memories": listingHandler(dir("memories", "x")),
		"/repos/alice/school/contents/memories/x/data.json": fileHandler(`{"title":"X"}`),
	})
	c := newTestClient(t, ts)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.LoadCollection(ctx, config.Memories)
	assert.Error(t, err)
}
