package storageserver

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/dfs/internal/logger"
)

// Scan walks the storage root, skipping .meta sidecars, checkpoint
// directories, and non-regular entries, and registers each discovered file
// in the lock table so that locks and undo tracking are ready immediately —
// survival of on-disk content across restarts (§4.2 File ops).
func (e *Engine) Scan() error {
	checkpointRoot, err := filepath.Abs(e.cfg.CheckpointRoot)
	if err != nil {
		checkpointRoot = e.cfg.CheckpointRoot
	}

	count := 0
	err = filepath.Walk(e.cfg.StorageRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			abs, _ := filepath.Abs(path)
			if abs == checkpointRoot {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if strings.HasSuffix(path, ".meta") || strings.HasSuffix(path, ".tmp") {
			return nil
		}

		rel, err := filepath.Rel(e.cfg.StorageRoot, path)
		if err != nil {
			return nil
		}
		filename := filepath.ToSlash(rel)
		e.locks.EnsureFile(filename)
		count++
		return nil
	})
	if err != nil {
		return err
	}
	logger.Info("storage server scan complete", "files_discovered", count)
	return nil
}
