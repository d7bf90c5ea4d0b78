package dbusapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/opensuse/bootkitd/internal/db"
	"github.com/opensuse/bootkitd/internal/grub"
)

var (
	errBadEditPayload = errors.New("invalid edit payload")
	errSnapshot       = errors.New("snapshot store failure")
)

// configPayload is the JSON shape returned by GetConfig and SetConfig.
type configPayload struct {
	ValueMap  map[string]*grub.Entry `json:"value_map"`
	ValueList []*grub.Entry          `json:"value_list"`
}

type entryPayload struct {
	Name        string   `json:"name"`
	SubmenuPath []string `json:"submenu_path"`
	FullPath    string   `json:"full_path"`
}

// entriesPayload is the JSON shape returned by GetEntries.
type entriesPayload struct {
	Entries  []entryPayload `json:"entries"`
	Selected string         `json:"selected,omitempty"`
}

func marshalConfig(file *grub.File) (string, error) {
	data, err := json.Marshal(configPayload{
		ValueMap:  file.KeyValues(),
		ValueList: file.Values(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode config payload: %w", err)
	}
	return string(data), nil
}

func marshalEntries(catalog *grub.Catalog) (string, error) {
	payload := entriesPayload{
		Entries:  make([]entryPayload, 0, len(catalog.Entries)),
		Selected: catalog.Selected,
	}
	for _, entry := range catalog.Entries {
		payload.Entries = append(payload.Entries, entryPayload{
			Name:        entry.Name,
			SubmenuPath: entry.Submenu,
			FullPath:    entry.FullPath(),
		})
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode entries payload: %w", err)
	}
	return string(data), nil
}

// applyEdits decodes a JSON object of key/value pairs, applies them to the
// on-disk configuration, snapshots the result and returns the new state.
// A snapshot failure is reported but does not undo the already-written edit.
func (s *Service) applyEdits(edits string) (string, error) {
	var values map[string]string
	if err := json.Unmarshal([]byte(edits), &values); err != nil {
		return "", fmt.Errorf("%w: %v", errBadEditPayload, err)
	}

	file, err := grub.Load(s.paths.GrubConfig)
	if err != nil {
		return "", err
	}

	// apply in a stable order so the appended-key layout is deterministic
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		file.SetValue(key, values[key])
	}

	if err := file.Save(s.paths.GrubConfig); err != nil {
		return "", err
	}

	if _, err := db.InsertSnapshot(context.Background(), s.sdb, file.Serialize()); err != nil {
		return "", fmt.Errorf("%w: %v", errSnapshot, err)
	}

	return marshalConfig(file)
}
