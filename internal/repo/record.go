package repo

import (
	"bytes"
	"encoding/json"
	"errors"
	"path"
	"strings"
	"time"

	"github.com/cbout22/memview/internal/apperror"
	"github.com/cbout22/memview/internal/config"
)

// Record is one folder of a collection. Its identity is the folder name;
// two folders may carry identical documents and both are kept.
type Record struct {
	Collection config.Collection `json:"collection" yaml:"collection"`
	Folder     string            `json:"folder" yaml:"folder"`
	Path       string            `json:"path" yaml:"path"`
	Fields     map[string]any    `json:"fields" yaml:"fields"`
	Raw        json.RawMessage   `json:"-" yaml:"-"`
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeRecord parses a data.json document. Anything other than a JSON
// object (arrays, scalars, null) is an ErrDecode failure.
func decodeRecord(docPath string, content []byte) (*Record, error) {
	content = bytes.TrimSpace(bytes.TrimPrefix(content, utf8BOM))

	var fields map[string]any
	if err := json.Unmarshal(content, &fields); err != nil {
		return nil, apperror.Decode(docPath, err)
	}
	if fields == nil {
		return nil, apperror.Decode(docPath, errors.New("document is null, want a JSON object"))
	}
	return &Record{
		Fields: fields,
		Raw:    json.RawMessage(content),
	}, nil
}

// Field returns a top-level string field, or "" when absent or not a string.
func (r Record) Field(key string) string {
	if v, ok := r.Fields[key].(string); ok {
		return v
	}
	return ""
}

// Title is the record's display name: "title" for memories, "name" for
// people.
func (r Record) Title() string {
	if t := r.Field("title"); t != "" {
		return t
	}
	return r.Field("name")
}

// ImagePath returns the repository-relative image path. Documents written
// for the folder layout carry "imagePath"; older ones carry an "image"
// file name relative to their own folder.
func (r Record) ImagePath() string {
	if p := strings.TrimSpace(r.Field("imagePath")); p != "" {
		return p
	}
	if img := strings.TrimSpace(r.Field("image")); img != "" {
		if strings.Contains(img, "/") || r.Path == "" {
			return img
		}
		return path.Join(r.Path, img)
	}
	return ""
}

// Decode unmarshals the original document into v.
func (r Record) Decode(v any) error {
	if len(r.Raw) == 0 {
		raw, err := json.Marshal(r.Fields)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, v)
	}
	return json.Unmarshal(r.Raw, v)
}

// Memory is the document shape of the memories collection.
type Memory struct {
	Title     string `json:"title"`
	Date      string `json:"date"`
	Author    string `json:"author"`
	Year      int    `json:"year,omitempty"`
	Month     int    `json:"month,omitempty"`
	Day       int    `json:"day,omitempty"`
	ImagePath string `json:"imagePath,omitempty"`
}

var memoryDateLayouts = []string{time.RFC3339, "2006-01-02", "2006.01.02", "2006/01/02"}

// Time returns when the memory happened, from "date" or year/month/day.
func (m Memory) Time() (time.Time, bool) {
	for _, layout := range memoryDateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(m.Date)); err == nil {
			return t, true
		}
	}
	if m.Year > 0 {
		month, day := max(m.Month, 1), max(m.Day, 1)
		return time.Date(m.Year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// RosterEntry is the document shape of the rosters collection.
type RosterEntry struct {
	Name      string `json:"name"`
	Type      string `json:"type"` // "student" or "teacher"
	Order     int    `json:"order,omitempty"`
	ImagePath string `json:"imagePath,omitempty"`
}

func (e RosterEntry) IsTeacher() bool {
	return e.Type == "teacher"
}

// Developer is the document shape of the developers collection.
type Developer struct {
	Name        string `json:"name"`
	Role        string `json:"role,omitempty"`
	Description string `json:"description,omitempty"`
	Github      string `json:"github,omitempty"`
	Order       int    `json:"order,omitempty"`
	ImagePath   string `json:"imagePath,omitempty"`
}
