package directory

import (
	"fmt"
	"strings"
)

// ProfileID derives the directory id from a display name: trimmed,
// lowercased, with spaces and hyphens replaced by underscores.
// "Jo Doe", "jo-doe" and "jo_doe" all map to "jo_doe".
func ProfileID(name string) (string, error) {
	id := strings.ToLower(strings.TrimSpace(name))
	if id == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	id = strings.NewReplacer(" ", "_", "-", "_").Replace(id)
	return id, nil
}
