package grub

import (
	"strconv"
	"strings"
)

// savedEntryVar is the grubenv variable naming the default boot entry.
const savedEntryVar = "saved_entry"

// ResolveSelection finds the saved_entry assignment in grubenv text and
// resolves it against the discovered entries. The value is either a 0-based
// index in discovery order or a literal entry name.
//
// A missing assignment and an out-of-range index mean the system simply has
// no saved entry and resolve to the empty string. A saved_entry line without
// '=' or with an empty value indicates a corrupted environment block and is
// a parse error.
func ResolveSelection(text string, entries []BootEntry) (string, error) {
	for i, raw := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(raw)
		if !strings.HasPrefix(trimmed, savedEntryVar) {
			continue
		}

		key, value, ok := strings.Cut(trimmed, "=")
		if key != savedEntryVar {
			continue
		}
		if !ok {
			return "", &ParseError{Line: i + 1, Msg: savedEntryVar + " assignment is missing '='"}
		}
		if value == "" {
			return "", &ParseError{Line: i + 1, Msg: savedEntryVar + " has an empty value"}
		}

		if idx, err := strconv.Atoi(value); err == nil && idx >= 0 {
			if idx >= len(entries) {
				return "", nil
			}
			return entries[idx].Name, nil
		}

		for _, entry := range entries {
			if entry.Name == value {
				return entry.Name, nil
			}
		}
		return "", nil
	}

	return "", nil
}
