package artifact

import (
	"os"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/rotisserie/eris"
)

// Writer streams rows into a keyed artifact without holding the full row set
// in memory. Close finalizes the parquet file and writes the sidecar.
type Writer[T any] struct {
	dir  string
	key  string
	meta Meta

	file *os.File
	pw   *parquet.GenericWriter[T]
	rows int
}

// NewWriter opens a streaming writer for the artifact at dir/key.
func NewWriter[T any](dir, key string, meta Meta) (*Writer[T], error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "artifact: create dir")
	}

	f, err := os.Create(Path(dir, key))
	if err != nil {
		return nil, eris.Wrap(err, "artifact: create parquet")
	}

	return &Writer[T]{
		dir:  dir,
		key:  key,
		meta: meta,
		file: f,
		pw:   parquet.NewGenericWriter[T](f, parquet.Compression(&parquet.Zstd)),
	}, nil
}

// Write appends rows to the artifact.
func (w *Writer[T]) Write(rows []T) error {
	n, err := w.pw.Write(rows)
	w.rows += n
	if err != nil {
		return eris.Wrap(err, "artifact: write rows")
	}
	return nil
}

// Count returns the number of rows written so far.
func (w *Writer[T]) Count() int { return w.rows }

// SetStats attaches run statistics to the sidecar. Effective before Close.
func (w *Writer[T]) SetStats(stats map[string]int) { w.meta.Stats = stats }

// Close finalizes the parquet file and writes the metadata sidecar.
func (w *Writer[T]) Close() error {
	if err := w.pw.Close(); err != nil {
		w.file.Close()
		return eris.Wrap(err, "artifact: close parquet writer")
	}
	if err := w.file.Close(); err != nil {
		return eris.Wrap(err, "artifact: close parquet file")
	}

	w.meta.RowCount = w.rows
	w.meta.Key = w.key
	if w.meta.CreatedAt.IsZero() {
		w.meta.CreatedAt = time.Now().UTC()
	}
	return WriteMeta(w.dir, w.key, w.meta)
}

// Abort closes and removes a partially written artifact.
func (w *Writer[T]) Abort() {
	w.pw.Close()
	w.file.Close()
	os.Remove(Path(w.dir, w.key))
}
