// Package artifact stores raw collection snapshots so every run can be
// replayed against the exact data that was fetched.
package artifact

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Store persists a named snapshot and returns where it was written.
type Store interface {
	Save(ctx context.Context, name string, v any) (string, error)
}

// SnapshotName builds "{sourceType}_{sourceID}_{timestamp}.json" with the
// RFC 3339 UTC timestamp's colons replaced by dashes.
func SnapshotName(sourceType, sourceID string, ts time.Time) string {
	stamp := strings.ReplaceAll(ts.UTC().Format("2006-01-02T15:04:05.000Z07:00"), ":", "-")
	return sanitize(sourceType) + "_" + sanitize(sourceID) + "_" + stamp + ".json"
}

// sanitize keeps path separators out of name components.
func sanitize(s string) string {
	return strings.NewReplacer("/", "-", `\`, "-", " ", "-").Replace(s)
}

// LocalStore writes snapshots as indented JSON files under Dir.
type LocalStore struct {
	Dir string
}

// NewLocalStore creates a LocalStore rooted at dir.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{Dir: dir}
}

// Save implements Store. The file is written to a temp name and renamed so
// readers never see a partial snapshot.
func (s *LocalStore) Save(ctx context.Context, name string, v any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", eris.Wrap(err, "artifact: save")
	}
	if name == "" || filepath.Base(name) != name {
		return "", eris.Errorf("artifact: invalid snapshot name %q", name)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", eris.Wrap(err, "artifact: create snapshot dir")
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "artifact: marshal snapshot")
	}

	path := filepath.Join(s.Dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", eris.Wrap(err, "artifact: write snapshot")
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", eris.Wrap(err, "artifact: rename snapshot")
	}
	return path, nil
}
