package storageserver

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/dfs/pkg/ferrors"
	"github.com/marmos91/dfs/pkg/wire"
)

// Create creates an empty file and its .meta sidecar. Fails if the file
// exists. replicated is true when this call arrived as a REPL_CREATE, in
// which case it is applied but never re-fanned-out.
func (e *Engine) Create(filename string, replicated bool) error {
	path, err := sanitize(e.cfg.StorageRoot, filename)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ferrors.ServerErrorf(filename, err)
	}

	mu := e.fileLock(filename)
	mu.Lock()
	defer mu.Unlock()

	if _, err := os.Stat(path); err == nil {
		return ferrors.Existsf(filename)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return ferrors.Existsf(filename)
		}
		return ferrors.ServerErrorf(filename, err)
	}
	f.Close()

	meta := time.Now().Format(time.RFC3339Nano) + "\n"
	if err := os.WriteFile(metaPath(path), []byte(meta), 0o644); err != nil {
		return ferrors.ServerErrorf(filename, err)
	}
	e.locks.EnsureFile(filename)

	if !replicated {
		e.replicate(wire.OpReplCreate, filename, "")
	}
	return nil
}

// Delete removes the file and its .meta sidecar.
func (e *Engine) Delete(filename string, replicated bool) error {
	path, err := sanitize(e.cfg.StorageRoot, filename)
	if err != nil {
		return err
	}

	mu := e.fileLock(filename)
	mu.Lock()
	defer mu.Unlock()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return ferrors.NotFoundf(filename)
	}
	if err := os.Remove(path); err != nil {
		return ferrors.ServerErrorf(filename, err)
	}
	_ = os.Remove(metaPath(path))
	e.locks.Remove(filename)

	e.undoMu.Lock()
	delete(e.undo, filename)
	e.undoMu.Unlock()

	if !replicated {
		e.replicate(wire.OpReplDelete, filename, "")
	}
	return nil
}

// Read returns the file's content, or ferrors.NotFound. Used both by clients
// and by the Name Server's existence-probe liveness check.
func (e *Engine) Read(filename string) (string, error) {
	path, err := sanitize(e.cfg.StorageRoot, filename)
	if err != nil {
		return "", err
	}

	mu := e.fileLock(filename)
	mu.Lock()
	defer mu.Unlock()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", ferrors.NotFoundf(filename)
	}
	if err != nil {
		return "", ferrors.ServerErrorf(filename, err)
	}
	return string(data), nil
}

// Move renames the file (and its .meta sidecar), creating intermediate
// directories on the destination side on demand (mkdir-p, §4.2).
func (e *Engine) Move(oldName, newName string, replicated bool) error {
	oldPath, err := sanitize(e.cfg.StorageRoot, oldName)
	if err != nil {
		return err
	}
	newPath, err := sanitize(e.cfg.StorageRoot, newName)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
		return ferrors.ServerErrorf(newName, err)
	}

	oldMu := e.fileLock(oldName)
	oldMu.Lock()
	defer oldMu.Unlock()

	if _, err := os.Stat(oldPath); os.IsNotExist(err) {
		return ferrors.NotFoundf(oldName)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return ferrors.ServerErrorf(oldName, err)
	}
	_ = os.Rename(metaPath(oldPath), metaPath(newPath))

	e.locks.Rename(oldName, newName)

	e.undoMu.Lock()
	if snap, ok := e.undo[oldName]; ok {
		e.undo[newName] = snap
		delete(e.undo, oldName)
	}
	e.undoMu.Unlock()

	if !replicated {
		e.replicate(wire.OpReplMove, oldName, newName)
	}
	return nil
}

// CreateFolder creates the folder path under the storage root (mkdir-p).
func (e *Engine) CreateFolder(path string, replicated bool) error {
	if path == "" {
		return ferrors.InvalidCommandf("empty folder path")
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." {
			return ferrors.InvalidCommandf("path traversal is not allowed")
		}
	}
	full := filepath.Join(e.cfg.StorageRoot, filepath.FromSlash(path))
	if err := os.MkdirAll(full, 0o755); err != nil {
		return ferrors.ServerErrorf(path, err)
	}
	if !replicated {
		e.replicate(wire.OpReplCreateFolder, path, "")
	}
	return nil
}
