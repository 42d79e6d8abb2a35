package storageserver

import (
	"sync"

	"github.com/marmos91/dfs/pkg/ferrors"
)

// sentenceLock is one held reservation on a sentence index.
type sentenceLock struct {
	Index int32
	Owner string
}

// lockTable is the per-SS sentence-lock table (§3): filename -> ordered
// list of locks, bounded at maxLocksPerFile.
type lockTable struct {
	mu       sync.Mutex
	byFile   map[string][]sentenceLock
	maxLocks int
}

func newLockTable(maxLocks int) *lockTable {
	return &lockTable{byFile: make(map[string][]sentenceLock), maxLocks: maxLocks}
}

// Lock attempts to grant idx to owner. Idempotent if owner already holds it;
// SENTENCE_LOCKED if another user holds it; a capacity error if the file's
// lock table is full.
func (t *lockTable) Lock(filename string, idx int32, owner string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	locks := t.byFile[filename]
	for _, l := range locks {
		if l.Index == idx {
			if l.Owner == owner {
				return nil
			}
			return ferrors.SentenceLockedf(filename, int(idx))
		}
	}
	if len(locks) >= t.maxLocks {
		return ferrors.InvalidCommandf("lock table full for file")
	}
	t.byFile[filename] = append(locks, sentenceLock{Index: idx, Owner: owner})
	return nil
}

// Unlock releases idx iff owner holds it.
func (t *lockTable) Unlock(filename string, idx int32, owner string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	locks := t.byFile[filename]
	for i, l := range locks {
		if l.Index == idx {
			if l.Owner != owner {
				return ferrors.AccessDeniedf(filename, "lock is held by another user")
			}
			t.byFile[filename] = append(locks[:i], locks[i+1:]...)
			return nil
		}
	}
	return ferrors.AccessDeniedf(filename, "no such lock")
}

// HeldBy reports whether owner currently holds idx on filename.
func (t *lockTable) HeldBy(filename string, idx int32, owner string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, l := range t.byFile[filename] {
		if l.Index == idx {
			return l.Owner == owner
		}
	}
	return false
}

// ReleaseAllByOwner drops every lock owner holds across all files, used on
// connection close (§5 Cancellation).
func (t *lockTable) ReleaseAllByOwner(owner string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for filename, locks := range t.byFile {
		kept := locks[:0]
		for _, l := range locks {
			if l.Owner != owner {
				kept = append(kept, l)
			}
		}
		t.byFile[filename] = kept
	}
}

// EnsureFile registers filename in the lock table with no locks held, used
// by CREATE and the startup directory scan so the table has an entry for
// every known file even before any lock is taken.
func (t *lockTable) EnsureFile(filename string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.byFile[filename]; !ok {
		t.byFile[filename] = nil
	}
}

// Remove drops filename's lock table entry entirely, used by DELETE.
func (t *lockTable) Remove(filename string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byFile, filename)
}

// Rename moves filename's lock table entry to newName, used by MOVE.
func (t *lockTable) Rename(oldName, newName string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if locks, ok := t.byFile[oldName]; ok {
		t.byFile[newName] = locks
		delete(t.byFile, oldName)
	}
}

// Count returns the total number of locks held across all files.
func (t *lockTable) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, locks := range t.byFile {
		n += len(locks)
	}
	return n
}
