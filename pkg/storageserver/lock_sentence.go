package storageserver

import (
	"fmt"
	"os"

	"github.com/marmos91/dfs/pkg/ferrors"
)

// LockSentence grants user a reservation on sentence idx of filename. idx
// must be in [0, N] where N is the current sentence count; idx == N (a
// new-sentence lock) is allowed only when the existing content ends with a
// sentence delimiter, ignoring trailing whitespace, or the file is empty
// (§4.2 LOCK_SENTENCE).
func (e *Engine) LockSentence(filename string, idx int32, user string) error {
	mu := e.fileLock(filename)
	mu.Lock()
	defer mu.Unlock()

	path, err := sanitize(e.cfg.StorageRoot, filename)
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ferrors.NotFoundf(filename)
	}
	if err != nil {
		return ferrors.ServerErrorf(filename, err)
	}
	content := string(raw)
	n := int32(len(parseSentences(content)))

	if idx < 0 || idx > n {
		return ferrors.InvalidIndexf(filename, fmt.Sprintf("0-%d allowed", n))
	}
	if idx == n && !endsWithTerminator(content) {
		return ferrors.InvalidIndexf(filename, fmt.Sprintf("0-%d allowed", n-1))
	}

	return e.locks.Lock(filename, idx, user)
}

// UnlockSentence releases user's lock on idx, or ACCESS_DENIED if user does
// not hold it.
func (e *Engine) UnlockSentence(filename string, idx int32, user string) error {
	return e.locks.Unlock(filename, idx, user)
}

// ReleaseSession drops every lock held by user, used when a client
// connection closes (§5 Cancellation).
func (e *Engine) ReleaseSession(user string) {
	e.locks.ReleaseAllByOwner(user)
}

// LockCount returns the total number of held locks across all files.
func (e *Engine) LockCount() int { return e.locks.Count() }
