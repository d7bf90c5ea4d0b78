// Package grub implements a lossless model of the GRUB2 default configuration
// file and a parser for the generated boot menu and environment block.
package grub

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/opensuse/bootkitd/pkg/fs"
)

// ParseError reports malformed input with a 1-based line number.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error on line %d: %s", e.Line, e.Msg)
}

// Entry is one key/value line of the configuration file. The original line
// text is retained so unmodified entries serialize byte-identical to input.
type Entry struct {
	Key   string
	Value string

	pos      int    // zero-based line position in the file
	original string // verbatim source line
	dirty    bool   // value changed since parse
}

// Dirty reports whether the entry was modified since parse.
func (e *Entry) Dirty() bool { return e.dirty }

// Line returns the zero-based position of the entry in the source file.
func (e *Entry) Line() int { return e.pos }

func (e *Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key      string `json:"key"`
		Value    string `json:"value"`
		Line     int    `json:"line"`
		Original string `json:"original"`
		Changed  bool   `json:"changed"`
	}{e.Key, e.Value, e.pos, e.original, e.dirty})
}

// render reconstructs the output form of the entry.
func (e *Entry) render() string {
	if e.dirty {
		return e.Key + `="` + e.Value + `"`
	}
	return e.original
}

// line is one slot of the file's line sequence. Blank lines and comments
// carry only the verbatim text; key/value lines carry an entry.
type line struct {
	text  string
	entry *Entry
}

// File is an ordered sequence of configuration lines plus a key index into
// that sequence. The sequence is the single source of truth for output; the
// index only holds positions, so there is exactly one writable copy per key.
type File struct {
	lines []line
	index map[string]int
}

// Parse builds a File from configuration text. The split keeps a trailing
// empty segment, so Serialize of an unmodified File reproduces the input
// exactly, final newline included.
func Parse(text string) (*File, error) {
	f := &File{index: make(map[string]int)}

	for i, raw := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			f.lines = append(f.lines, line{text: raw})
			continue
		}

		key, value, ok := strings.Cut(trimmed, "=")
		if !ok {
			return nil, &ParseError{Line: i + 1, Msg: "missing '=' separator"}
		}
		value = strings.ReplaceAll(value, `'`, "")
		value = strings.ReplaceAll(value, `"`, "")

		entry := &Entry{Key: key, Value: value, pos: i, original: raw}
		// last occurrence wins, matching how the shell sources the file
		f.index[key] = len(f.lines)
		f.lines = append(f.lines, line{text: raw, entry: entry})
	}

	return f, nil
}

// Load parses the configuration file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read grub config: %w", err)
	}

	f, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return f, nil
}

// SetValue updates key to value, marking the entry dirty so it serializes in
// the normalized key="value" form. Setting a key to its current value is a
// no-op. An absent key is appended as a new dirty entry at the end.
func (f *File) SetValue(key, value string) {
	if pos, ok := f.index[key]; ok {
		entry := f.lines[pos].entry
		if entry.Value == value {
			return
		}
		entry.Value = value
		entry.dirty = true
		return
	}

	entry := &Entry{Key: key, Value: value, pos: len(f.lines), dirty: true}
	f.index[key] = len(f.lines)
	f.lines = append(f.lines, line{entry: entry})
}

// Get returns the current value of key.
func (f *File) Get(key string) (string, bool) {
	pos, ok := f.index[key]
	if !ok {
		return "", false
	}
	return f.lines[pos].entry.Value, true
}

// Serialize renders the file. Untouched lines come back verbatim; only dirty
// entries are rewritten.
func (f *File) Serialize() string {
	out := make([]string, len(f.lines))
	for i, l := range f.lines {
		if l.entry != nil {
			out[i] = l.entry.render()
		} else {
			out[i] = l.text
		}
	}
	return strings.Join(out, "\n")
}

// Save writes the serialized file to path atomically.
func (f *File) Save(path string) error {
	if err := fs.WriteFileAtomic(path, []byte(f.Serialize()), 0o644); err != nil {
		return fmt.Errorf("failed to write grub config: %w", err)
	}
	return nil
}

// Values returns all entries in file order.
func (f *File) Values() []*Entry {
	var entries []*Entry
	for _, l := range f.lines {
		if l.entry != nil {
			entries = append(entries, l.entry)
		}
	}
	return entries
}

// KeyValues returns the key index as a map of entries, last occurrence wins.
func (f *File) KeyValues() map[string]*Entry {
	kv := make(map[string]*Entry, len(f.index))
	for key, pos := range f.index {
		kv[key] = f.lines[pos].entry
	}
	return kv
}
