// Package artifact handles the columnar cache files that stages read and
// write. An artifact is a parquet file named by a deterministic key, with a
// JSON metadata sidecar next to it.
package artifact

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/rotisserie/eris"
)

// Key derives the artifact key from an unordered set of parameters: the
// parts are trimmed, lowercased, sorted and pipe-joined, and the key is the
// first 12 hex characters of the MD5 of that string. The same parameter set
// always yields the same key regardless of order.
func Key(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		clean = append(clean, strings.ToLower(strings.TrimSpace(p)))
	}
	sort.Strings(clean)

	sum := md5.Sum([]byte(strings.Join(clean, "|")))
	return hex.EncodeToString(sum[:])[:12]
}

// CompositeKey derives a key for a derived artifact: the base key joined
// with a second parameter set. Used by stages that cache per upstream
// artifact plus their own parameters.
func CompositeKey(baseKey string, parts ...string) string {
	if len(parts) == 0 {
		return Key(baseKey)
	}
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		clean = append(clean, strings.ToLower(strings.TrimSpace(p)))
	}
	sort.Strings(clean)

	sum := md5.Sum([]byte(baseKey + "|" + strings.Join(clean, "|")))
	return hex.EncodeToString(sum[:])[:12]
}

// Meta is the artifact sidecar. Params carries the stage-specific inputs
// that produced the artifact, so a cache hit can be audited.
type Meta struct {
	Key       string            `json:"key"`
	Stage     string            `json:"stage"`
	CreatedAt time.Time         `json:"created_at"`
	RowCount  int               `json:"row_count"`
	Source    string            `json:"source,omitempty"`
	Params    map[string]string `json:"params,omitempty"`
	Stats     map[string]int    `json:"stats,omitempty"`
}

// Path returns the parquet path for a key inside dir.
func Path(dir, key string) string {
	return filepath.Join(dir, key+".parquet")
}

// MetaPath returns the sidecar path for a key inside dir.
func MetaPath(dir, key string) string {
	return filepath.Join(dir, key+"_meta.json")
}

// Exists reports whether both the artifact and its sidecar are present.
func Exists(dir, key string) bool {
	if _, err := os.Stat(Path(dir, key)); err != nil {
		return false
	}
	_, err := os.Stat(MetaPath(dir, key))
	return err == nil
}

// WriteRows writes rows as a zstd-compressed parquet artifact plus sidecar.
// The directory is created if needed. Meta's Key, CreatedAt and RowCount are
// filled in here.
func WriteRows[T any](dir, key string, rows []T, meta Meta) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "artifact: create dir")
	}

	if err := parquet.WriteFile(Path(dir, key), rows, parquet.Compression(&parquet.Zstd)); err != nil {
		return eris.Wrap(err, "artifact: write parquet")
	}

	meta.Key = key
	meta.CreatedAt = time.Now().UTC()
	meta.RowCount = len(rows)
	return WriteMeta(dir, key, meta)
}

// ReadRows reads every row of an artifact.
func ReadRows[T any](dir, key string) ([]T, error) {
	rows, err := parquet.ReadFile[T](Path(dir, key))
	if err != nil {
		return nil, eris.Wrap(err, "artifact: read parquet")
	}
	return rows, nil
}

// ReadRowsPath reads every row of a parquet file at an explicit path.
func ReadRowsPath[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, eris.Wrap(err, "artifact: read parquet")
	}
	return rows, nil
}

// WriteRowsPath writes rows to an explicit parquet path with no sidecar.
// Used for checkpoints and persistent caches that live outside the keyed
// artifact scheme.
func WriteRowsPath[T any](path string, rows []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "artifact: create dir")
	}
	if err := parquet.WriteFile(path, rows, parquet.Compression(&parquet.Zstd)); err != nil {
		return eris.Wrap(err, "artifact: write parquet")
	}
	return nil
}

// WriteMeta writes the sidecar for a key.
func WriteMeta(dir, key string, meta Meta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return eris.Wrap(err, "artifact: marshal meta")
	}
	if err := os.WriteFile(MetaPath(dir, key), data, 0o644); err != nil {
		return eris.Wrap(err, "artifact: write meta")
	}
	return nil
}

// ReadMeta reads the sidecar for a key.
func ReadMeta(dir, key string) (Meta, error) {
	data, err := os.ReadFile(MetaPath(dir, key))
	if err != nil {
		return Meta{}, eris.Wrap(err, "artifact: read meta")
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return Meta{}, eris.Wrap(err, "artifact: parse meta")
	}
	return meta, nil
}

// List returns the metadata of every artifact in dir, newest first. A
// missing directory yields an empty list.
func List(dir string) ([]Meta, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "artifact: list dir")
	}

	var metas []Meta
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, "_meta.json") {
			continue
		}
		key := strings.TrimSuffix(name, "_meta.json")
		meta, err := ReadMeta(dir, key)
		if err != nil {
			continue
		}
		metas = append(metas, meta)
	}

	sort.Slice(metas, func(i, j int) bool { return metas[i].CreatedAt.After(metas[j].CreatedAt) })
	return metas, nil
}

// Remove deletes an artifact and its sidecar. Missing files are not errors.
func Remove(dir, key string) error {
	if err := os.Remove(Path(dir, key)); err != nil && !os.IsNotExist(err) {
		return eris.Wrap(err, "artifact: remove parquet")
	}
	if err := os.Remove(MetaPath(dir, key)); err != nil && !os.IsNotExist(err) {
		return eris.Wrap(err, "artifact: remove meta")
	}
	return nil
}
