// Package partition stages raw commits as one JSON document per (year, month)
package partition

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	perr "commitpipe/internal/platform/errors"
	"commitpipe/internal/platform/logger"
	"commitpipe/internal/services/commits/domain"
)

// FileName is the document written in every partition directory
const FileName = "commits.json"

// Store implements domain.PartitionWriter on the local filesystem
type Store struct {
	root string
	log  logger.Logger
}

// New returns a Store rooted at root
func New(root string) *Store {
	return &Store{root: root, log: *logger.Named("partition")}
}

// PartitionPath returns <root>/<year>/<MM>/commits.json for key
func PartitionPath(root string, k domain.WindowKey) string {
	return filepath.Join(root, fmt.Sprintf("%d", k.Year), fmt.Sprintf("%02d", int(k.Month)), FileName)
}

// Persist writes every window's rows, replacing any earlier file for the same
// key, and returns handles newest window first. Empty windows still get a file
func (s *Store) Persist(data map[domain.WindowKey][]domain.RawCommit) ([]domain.Handle, error) {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return nil, perr.IOf(err, "create partition root %s", s.root)
	}

	keys := make([]domain.WindowKey, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b domain.WindowKey) int {
		switch {
		case b.Before(a):
			return -1
		case a.Before(b):
			return 1
		}
		return 0
	})

	handles := make([]domain.Handle, 0, len(keys))
	for _, k := range keys {
		rows := data[k]
		p := PartitionPath(s.root, k)
		if err := writeJSON(p, rows); err != nil {
			return handles, err
		}
		s.log.Info().Str("partition", k.String()).Int("rows", len(rows)).Str("path", p).Msg("saved commits")
		handles = append(handles, domain.Handle{Key: k, Path: p, Rows: len(rows)})
	}
	return handles, nil
}

// writeJSON writes rows pretty printed through a temp file and rename, so a
// crash never leaves a half written partition behind
func writeJSON(path string, rows []domain.RawCommit) error {
	if rows == nil {
		rows = []domain.RawCommit{}
	}
	b, err := json.MarshalIndent(rows, "", "    ")
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeJSON, "encode partition %s", path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return perr.IOf(err, "create partition dir %s", dir)
	}
	tmp, err := os.CreateTemp(dir, ".commits-*.json")
	if err != nil {
		return perr.IOf(err, "create temp file in %s", dir)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(append(b, '\n')); err != nil {
		_ = tmp.Close()
		return perr.IOf(err, "write %s", tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		return perr.IOf(err, "close %s", tmp.Name())
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return perr.IOf(err, "chmod %s", tmp.Name())
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return perr.IOf(err, "rename into %s", path)
	}
	return nil
}
