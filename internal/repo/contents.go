package repo

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/cbout22/memview/internal/apperror"
	"github.com/cbout22/memview/internal/config"
)

// RecordDocument is the file every record folder is expected to hold.
const RecordDocument = "data.json"

// MusicFile holds the background music URL, one line of plain text.
const MusicFile = "music/background.txt"

// EntryKind is the contents API "type" of a folder entry.
type EntryKind string

const (
	KindFile EntryKind = "file"
	KindDir  EntryKind = "dir"
)

// FolderEntry is one item of a contents API folder listing.
type FolderEntry struct {
	Name string    `json:"name"`
	Path string    `json:"path"`
	Kind EntryKind `json:"type"`
}

// fileContent is the contents API response for a single file.
type fileContent struct {
	Type     string `json:"type"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

// ListCollectionFolders lists the entries of the collection's folder in
// listing order. A missing folder is an empty collection, not an error.
func (c *Client) ListCollectionFolders(ctx context.Context, col config.Collection) ([]FolderEntry, error) {
	if !col.IsValid() {
		return nil, fmt.Errorf("unknown collection %q", col)
	}
	op := "list " + string(col)

	body, err := c.get(ctx, op, c.contentsURL(c.folderFor(col)))
	if errors.Is(err, apperror.ErrNotFound) {
		c.logger.Debug("collection folder missing", "collection", string(col), "folder", c.folderFor(col))
		return []FolderEntry{}, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []FolderEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, apperror.Unavailable(op, fmt.Errorf("decoding folder listing: %w", err))
	}
	if entries == nil {
		entries = []FolderEntry{}
	}
	return entries, nil
}

// FetchRecord reads and decodes <recordPath>/data.json. It returns nil and
// no error when the document does not exist, and an ErrDecode failure when
// the document is not a JSON object.
func (c *Client) FetchRecord(ctx context.Context, recordPath string) (*Record, error) {
	recordPath = strings.Trim(recordPath, "/")
	docPath := path.Join(recordPath, RecordDocument)

	content, err := c.fetchFile(ctx, docPath)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec, err := decodeRecord(docPath, content)
	if err != nil {
		return nil, err
	}
	rec.Folder = path.Base(recordPath)
	rec.Path = recordPath
	return rec, nil
}

// BackgroundMusicURL returns the URL stored in music/background.txt.
// A missing or blank file reports false without an error.
func (c *Client) BackgroundMusicURL(ctx context.Context) (string, bool, error) {
	content, err := c.fetchFile(ctx, MusicFile)
	if errors.Is(err, apperror.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	u := strings.TrimSpace(string(content))
	return u, u != "", nil
}

// fetchFile downloads a file through the contents API and decodes its
// base64 body.
func (c *Client) fetchFile(ctx context.Context, filePath string) ([]byte, error) {
	body, err := c.get(ctx, "get "+filePath, c.contentsURL(filePath))
	if err != nil {
		return nil, err
	}

	var fc fileContent
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, apperror.Decode(filePath, fmt.Errorf("decoding contents response: %w", err))
	}
	if fc.Type != "" && fc.Type != "file" {
		return nil, apperror.Decode(filePath, fmt.Errorf("expected a file, got %s", fc.Type))
	}
	if fc.Encoding != "" && fc.Encoding != "base64" {
		return nil, apperror.Decode(filePath, fmt.Errorf("unsupported content encoding %q", fc.Encoding))
	}

	// GitHub wraps base64 bodies at 60 columns.
	raw := strings.NewReplacer("\n", "", "\r", "").Replace(fc.Content)
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, apperror.Decode(filePath, fmt.Errorf("decoding base64 body: %w", err))
	}
	return data, nil
}
