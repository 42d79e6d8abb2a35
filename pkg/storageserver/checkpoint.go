package storageserver

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/marmos91/dfs/pkg/ferrors"
	"github.com/marmos91/dfs/pkg/wire"
)

// Checkpoint writes filename's current content to a named snapshot under
// <checkpoint_root>/<filename>/<tag>.
func (e *Engine) Checkpoint(filename, tag string) error {
	if err := sanitizeTag(tag); err != nil {
		return err
	}

	mu := e.fileLock(filename)
	mu.Lock()
	path, err := sanitize(e.cfg.StorageRoot, filename)
	if err != nil {
		mu.Unlock()
		return err
	}
	content, err := os.ReadFile(path)
	mu.Unlock()
	if os.IsNotExist(err) {
		return ferrors.NotFoundf(filename)
	}
	if err != nil {
		return ferrors.ServerErrorf(filename, err)
	}

	dir := e.checkpointDir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ferrors.ServerErrorf(filename, err)
	}
	if err := os.WriteFile(filepath.Join(dir, tag), content, 0o644); err != nil {
		return ferrors.ServerErrorf(filename, err)
	}
	return nil
}

// ViewCheckpoint returns the content stored under tag for filename.
func (e *Engine) ViewCheckpoint(filename, tag string) (string, error) {
	if err := sanitizeTag(tag); err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(e.checkpointDir(filename), tag))
	if os.IsNotExist(err) {
		return "", ferrors.NotFoundf(filename)
	}
	if err != nil {
		return "", ferrors.ServerErrorf(filename, err)
	}
	return string(data), nil
}

// Revert overwrites filename's current content from the checkpoint tag and
// replicates the result.
func (e *Engine) Revert(filename, tag string) error {
	content, err := e.ViewCheckpoint(filename, tag)
	if err != nil {
		return err
	}

	mu := e.fileLock(filename)
	path, sanErr := sanitize(e.cfg.StorageRoot, filename)
	if sanErr != nil {
		return sanErr
	}
	mu.Lock()
	if err := atomicWriteFile(path, content); err != nil {
		mu.Unlock()
		return ferrors.ServerErrorf(filename, err)
	}
	mu.Unlock()

	e.replicate(wire.OpReplWrite, filename, content)
	return nil
}

// ListCheckpoints enumerates the tags stored for filename, sorted.
func (e *Engine) ListCheckpoints(filename string) ([]string, error) {
	entries, err := os.ReadDir(e.checkpointDir(filename))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, ferrors.ServerErrorf(filename, err)
	}
	tags := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			tags = append(tags, entry.Name())
		}
	}
	sort.Strings(tags)
	return tags, nil
}
