package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/uwillc/backroom/internal/directory"
)

// LoadDir reads every *.json file in dir as a profile File, in file name
// order. Files that cannot be read or parsed are logged and skipped.
func LoadDir(dir string) ([]directory.Profile, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	sort.Strings(paths)

	var profiles []directory.Profile
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("skipping unreadable profile file", "path", path, "error", err)
			continue
		}
		var f File
		if err := json.Unmarshal(data, &f); err != nil {
			slog.Warn("skipping malformed profile file", "path", path, "error", err)
			continue
		}
		profiles = append(profiles, f.Profile())
	}
	return profiles, nil
}

// ImportResult counts the outcome of an Import.
type ImportResult struct {
	Imported   []string `json:"imported"`
	Duplicates []string `json:"duplicates"`
	Skipped    int      `json:"skipped"`
}

// Import stores profiles one by one. A profile keeps its own id when it has
// one, otherwise the id is derived from its name. Existing ids are reported as
// duplicates; profiles with neither id nor name are skipped. Store failures
// abort the import.
func (m *Manager) Import(ctx context.Context, profiles []directory.Profile) (ImportResult, error) {
	var res ImportResult
	for _, p := range profiles {
		if p.ID == "" {
			id, err := directory.ProfileID(p.Name)
			if err != nil {
				slog.Warn("skipping profile without name", "error", err)
				res.Skipped++
				continue
			}
			p.ID = id
		}
		if p.Name == "" {
			p.Name = p.ID
		}

		stored, err := m.insert(ctx, p)
		switch {
		case errors.Is(err, directory.ErrConflict):
			res.Duplicates = append(res.Duplicates, p.ID)
		case err != nil:
			return res, err
		default:
			res.Imported = append(res.Imported, stored.ID)
		}
	}
	return res, nil
}
