package grub

import (
	"fmt"
	"os"
	"strings"
)

const (
	menuentryKeyword = "menuentry"
	submenuKeyword   = "submenu"
)

// BootEntry is one selectable item of the generated boot menu.
type BootEntry struct {
	Name    string   `json:"name"`
	Submenu []string `json:"submenu_path"` // enclosing submenus, outermost first
}

// FullPath renders the entry as submenu names joined by '>' followed by the
// entry name. A top-level entry is just its name.
func (b BootEntry) FullPath() string {
	if len(b.Submenu) == 0 {
		return b.Name
	}
	return strings.Join(b.Submenu, ">") + ">" + b.Name
}

// Catalog is the ordered list of boot entries plus the entry grubenv marks
// as saved. Selected is empty when grubenv resolves to no entry.
type Catalog struct {
	Entries  []BootEntry `json:"entries"`
	Selected string      `json:"selected,omitempty"`
}

// ParseMenu scans grub.cfg text for menuentry and submenu declarations and
// reconstructs the nested menu structure.
//
// Both constructs are closed by a bare brace, so the brace alone does not say
// what it closes. Entries never nest, which means a single open-entry flag
// next to the submenu stack is enough: a brace closes the open entry if there
// is one and pops a submenu otherwise.
func ParseMenu(text string) []BootEntry {
	var (
		entries   []BootEntry
		submenus  []string
		entryOpen bool
	)

	for _, raw := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(raw)

		switch {
		case strings.HasPrefix(trimmed, submenuKeyword+" "):
			name, ok := quotedName(trimmed[len(submenuKeyword):])
			if !ok {
				continue
			}
			submenus = append(submenus, name)

		case strings.HasPrefix(trimmed, menuentryKeyword+" "):
			name, ok := quotedName(trimmed[len(menuentryKeyword):])
			if !ok {
				continue
			}
			entries = append(entries, BootEntry{
				Name:    name,
				Submenu: append([]string(nil), submenus...),
			})
			entryOpen = true

		case trimmed == "}":
			if entryOpen {
				entryOpen = false
			} else if len(submenus) > 0 {
				submenus = submenus[:len(submenus)-1]
			}
		}
	}

	return entries
}

// quotedName extracts the quoted title that follows a menu keyword. Lines
// that do not match the quoted-name grammar are skipped by the caller; a
// missing entry is less harmful here than refusing to build the menu.
func quotedName(rest string) (string, bool) {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return "", false
	}

	quote := rest[0]
	if quote != '\'' && quote != '"' {
		return "", false
	}

	end := strings.IndexByte(rest[1:], quote)
	if end < 0 {
		return "", false
	}
	return rest[1 : 1+end], true
}

// BuildCatalog reads the generated menu and the environment block and
// returns the discovered entries together with the resolved saved entry.
// The catalog is rebuilt from scratch on every call.
func BuildCatalog(menuPath, envPath string) (*Catalog, error) {
	menu, err := os.ReadFile(menuPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read boot menu: %w", err)
	}
	entries := ParseMenu(string(menu))

	env, err := os.ReadFile(envPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read grub environment: %w", err)
	}
	selected, err := ResolveSelection(string(env), entries)
	if err != nil {
		return nil, err
	}

	return &Catalog{Entries: entries, Selected: selected}, nil
}
