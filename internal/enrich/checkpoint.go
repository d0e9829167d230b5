package enrich

import (
	"os"

	"go.uber.org/zap"

	"github.com/RedWaffle007/sic-data-software/internal/artifact"
)

// loadCheckpoint reads an interim result file. A missing file means a fresh
// run; an unreadable one is discarded so the run restarts cleanly rather
// than failing forever.
func loadCheckpoint[T any](path string) []T {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	rows, err := artifact.ReadRowsPath[T](path)
	if err != nil {
		zap.L().Warn("discarding corrupt checkpoint",
			zap.String("path", path),
			zap.Error(err),
		)
		os.Remove(path)
		return nil
	}
	return rows
}

// saveCheckpoint rewrites the interim result file with the full row set.
// Rows are few enough per run that whole-file rewrite beats an append
// format needing recovery logic.
func saveCheckpoint[T any](path string, rows []T) error {
	return artifact.WriteRowsPath(path, rows)
}

func removeCheckpoint(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		zap.L().Warn("failed to remove checkpoint", zap.String("path", path), zap.Error(err))
	}
}
