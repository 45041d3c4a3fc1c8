package cli

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cbout22/memview/internal/config"
	"github.com/cbout22/memview/internal/repo"
)

// Output formats accepted by --output.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

func validFormat(f string) error {
	switch f {
	case FormatText, FormatJSON, FormatYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want text, json or yaml)", f)
}

// recordView is what a record looks like once prepared for display.
type recordView struct {
	Folder   string         `json:"folder" yaml:"folder"`
	Title    string         `json:"title" yaml:"title"`
	Subtitle string         `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	ImageURL string         `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
	Fields   map[string]any `json:"fields" yaml:"fields"`
}

type skippedView struct {
	Folder string `json:"folder" yaml:"folder"`
	Reason string `json:"reason" yaml:"reason"`
}

type collectionView struct {
	Collection config.Collection `json:"collection" yaml:"collection"`
	Records    []recordView      `json:"records" yaml:"records"`
	Skipped    []skippedView     `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Error      string            `json:"error,omitempty" yaml:"error,omitempty"`
}

// sortRecords orders records the way each screen presents them:
// memories newest first, rosters and developers by explicit order then
// name. Records that cannot be compared keep their listing order.
func sortRecords(col config.Collection, records []repo.Record) []repo.Record {
	out := slices.Clone(records)
	switch col {
	case config.Memories:
		type keyed struct {
			ts  int64
			has bool
		}
		keys := make(map[string]keyed, len(out))
		for _, r := range out {
			var m repo.Memory
			_ = r.Decode(&m)
			t, ok := m.Time()
			keys[r.Path] = keyed{ts: t.Unix(), has: ok}
		}
		slices.SortStableFunc(out, func(a, b repo.Record) int {
			ka, kb := keys[a.Path], keys[b.Path]
			switch {
			case ka.has && !kb.has:
				return -1
			case !ka.has && kb.has:
				return 1
			}
			return cmp.Compare(kb.ts, ka.ts)
		})
	case config.Rosters:
		sortByOrderThenName(out, func(r repo.Record) int {
			var e repo.RosterEntry
			_ = r.Decode(&e)
			return e.Order
		})
	case config.Developers:
		sortByOrderThenName(out, func(r repo.Record) int {
			var d repo.Developer
			_ = r.Decode(&d)
			return d.Order
		})
	}
	return out
}

// sortByOrderThenName sorts in place. Entries without a positive order go
// after ordered ones.
func sortByOrderThenName(records []repo.Record, orderOf func(repo.Record) int) {
	orders := make(map[string]int, len(records))
	for _, r := range records {
		o := orderOf(r)
		if o <= 0 {
			o = math.MaxInt
		}
		orders[r.Path] = o
	}
	slices.SortStableFunc(records, func(a, b repo.Record) int {
		if c := cmp.Compare(orders[a.Path], orders[b.Path]); c != 0 {
			return c
		}
		return strings.Compare(a.Title(), b.Title())
	})
}

// subtitle is the secondary line shown under a record's title.
func subtitle(col config.Collection, r repo.Record) string {
	switch col {
	case config.Memories:
		var m repo.Memory
		_ = r.Decode(&m)
		parts := make([]string, 0, 2)
		if t, ok := m.Time(); ok {
			parts = append(parts, t.Format("2006-01-02"))
		}
		if m.Author != "" {
			parts = append(parts, m.Author)
		}
		return strings.Join(parts, " · ")
	case config.Rosters:
		var e repo.RosterEntry
		_ = r.Decode(&e)
		if e.IsTeacher() {
			return "teacher"
		}
		return e.Type
	case config.Developers:
		var d repo.Developer
		_ = r.Decode(&d)
		return d.Role
	}
	return ""
}

// buildView prepares a report for display, resolving image URLs
// through the data source.
func buildView(src repo.DataSource, report repo.Report, sorted bool) collectionView {
	records := report.Records
	if sorted {
		records = sortRecords(report.Collection, records)
	}

	view := collectionView{
		Collection: report.Collection,
		Records:    make([]recordView, 0, len(records)),
	}
	for _, r := range records {
		rv := recordView{
			Folder:   r.Folder,
			Title:    r.Title(),
			Subtitle: subtitle(report.Collection, r),
			Fields:   r.Fields,
		}
		if rv.Title == "" {
			rv.Title = r.Folder
		}
		if u, ok := src.ResolveAssetURL(r.ImagePath()); ok {
			rv.ImageURL = u
		}
		view.Records = append(view.Records, rv)
	}
	for _, s := range report.Skipped {
		view.Skipped = append(view.Skipped, skippedView{Folder: s.Folder, Reason: string(s.Reason)})
	}
	return view
}

var collectionIcons = map[config.Collection]string{
	config.Memories:   "📸",
	config.Rosters:    "🎓",
	config.Developers: "💻",
}

func writeText(w io.Writer, views []collectionView) {
	for i, v := range views {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if v.Error != "" {
			fmt.Fprintf(w, "❌ %s — %s\n", v.Collection, v.Error)
			continue
		}
		fmt.Fprintf(w, "%s %s (%d)\n", collectionIcons[v.Collection], v.Collection, len(v.Records))
		if len(v.Records) == 0 {
			fmt.Fprintln(w, "  (empty)")
		}
		for _, r := range v.Records {
			if r.Subtitle != "" {
				fmt.Fprintf(w, "  • %s — %s\n", r.Title, r.Subtitle)
			} else {
				fmt.Fprintf(w, "  • %s\n", r.Title)
			}
			if r.ImageURL != "" {
				fmt.Fprintf(w, "    🖼  %s\n", r.ImageURL)
			} else {
				fmt.Fprintln(w, "    🖼  (no image)")
			}
		}
		for _, s := range v.Skipped {
			fmt.Fprintf(w, "  ⚠️  skipped %s (%s)\n", s.Folder, s.Reason)
		}
	}
}

// render writes views in the requested format. A single view is written
// as an object, several as a list.
func render(w io.Writer, format string, views []collectionView) error {
	var payload any = views
	if len(views) == 1 {
		payload = views[0]
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(payload); err != nil {
			return err
		}
		return enc.Close()
	default:
		writeText(w, views)
		return nil
	}
}
