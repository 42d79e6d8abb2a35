package storageserver

import (
	"github.com/marmos91/dfs/pkg/ferrors"
	"github.com/marmos91/dfs/pkg/wire"
)

// Undo restores filename's single undo snapshot if present and clears it.
// Replicated as a regular write. A second consecutive Undo with no
// intervening Write returns ferrors.NoUndo (§4.2, §8 invariant 5).
func (e *Engine) Undo(filename string) error {
	mu := e.fileLock(filename)
	mu.Lock()
	defer mu.Unlock()

	e.undoMu.Lock()
	snapshot, ok := e.undo[filename]
	if ok {
		delete(e.undo, filename)
	}
	e.undoMu.Unlock()

	if !ok {
		return ferrors.NoUndof(filename)
	}

	path, err := sanitize(e.cfg.StorageRoot, filename)
	if err != nil {
		return err
	}
	if err := atomicWriteFile(path, snapshot); err != nil {
		return ferrors.ServerErrorf(filename, err)
	}

	e.replicate(wire.OpReplWrite, filename, snapshot)
	return nil
}
