package metadata

import (
	"sort"
	"sync"
	"time"

	"github.com/marmos91/dfs/pkg/ferrors"
)

// Store is the Name Server's single coarse-mutex-guarded metadata table: the
// file-record arena with its trie index, the SS and client rosters, and the
// search cache. Per §5, handlers acquire Store's mutex only around in-memory
// edits; SS RPCs are made outside it by the caller (pkg/nameserver), not here.
type Store struct {
	mu    sync.Mutex
	files []*FileRecord
	names *trie // filename -> index into files

	servers     []*SSRecord
	serverIndex map[string]int // ss_id -> index into servers

	clients map[string]*ClientRecord

	cache *searchCache

	maxACLEntries int
}

// Config controls capacity limits enforced by the store.
type Config struct {
	MaxACLEntries int
	CacheCapacity int
	CacheTTL      time.Duration
}

// New creates an empty metadata store.
func New(cfg Config) *Store {
	return &Store{
		names:         newTrie(),
		serverIndex:   make(map[string]int),
		clients:       make(map[string]*ClientRecord),
		cache:         newSearchCache(cfg.CacheCapacity, cfg.CacheTTL),
		maxACLEntries: cfg.MaxACLEntries,
	}
}

// CreateFile inserts a new file record. Returns ferrors.Exists if the
// filename is already present (I1).
func (s *Store) CreateFile(rec *FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.names.Lookup(rec.Filename); ok {
		return ferrors.Existsf(rec.Filename)
	}
	stored := rec.clone()
	s.files = append(s.files, stored)
	s.names.Insert(rec.Filename, len(s.files)-1)
	s.cache.Invalidate(rec.Filename)
	return nil
}

// GetFile returns a copy of the file record for filename, refreshing its
// AccessedAt/LastAccessedBy as a side effect when accessor is non-empty
// (read-path bookkeeping; pass "" to peek without touching access metadata).
func (s *Store) GetFile(filename, accessor string) (*FileRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.names.Lookup(filename)
	if !ok {
		return nil, false
	}
	rec := s.files[idx]
	if accessor != "" {
		rec.AccessedAt = time.Now()
		rec.LastAccessedBy = accessor
	}
	return rec.clone(), true
}

// UpdateFile applies mutate to the live record for filename under the store
// mutex, so callers can perform read-modify-write ACL/counter edits
// atomically without a separate compare-and-swap.
func (s *Store) UpdateFile(filename string, mutate func(*FileRecord) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.names.Lookup(filename)
	if !ok {
		return ferrors.NotFoundf(filename)
	}
	if err := mutate(s.files[idx]); err != nil {
		return err
	}
	s.cache.Invalidate(filename)
	return nil
}

// DeleteFile removes filename from the arena using swap-with-last, reindexing
// the trie entry for the record that took its place (§9). Reports whether the
// filename was present.
func (s *Store) DeleteFile(filename string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteFileLocked(filename)
}

func (s *Store) deleteFileLocked(filename string) bool {
	idx, ok := s.names.Lookup(filename)
	if !ok {
		return false
	}
	last := len(s.files) - 1
	s.names.Remove(filename)
	if idx != last {
		s.files[idx] = s.files[last]
		s.names.Insert(s.files[idx].Filename, idx)
	}
	s.files[last] = nil
	s.files = s.files[:last]
	s.cache.Invalidate(filename)
	return true
}

// RenameFile updates a file record's filename in place, reindexing the trie.
// Fails with ferrors.Exists if newName is already taken, ferrors.NotFound if
// oldName is absent.
func (s *Store) RenameFile(oldName, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.names.Lookup(newName); exists {
		return ferrors.Existsf(newName)
	}
	idx, ok := s.names.Lookup(oldName)
	if !ok {
		return ferrors.NotFoundf(oldName)
	}
	s.names.Remove(oldName)
	s.files[idx].Filename = newName
	s.files[idx].ModifiedAt = time.Now()
	s.names.Insert(newName, idx)
	s.cache.Invalidate(oldName)
	s.cache.Invalidate(newName)
	return nil
}

// ListFiles returns a snapshot copy of every file record.
func (s *Store) ListFiles() []*FileRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*FileRecord, len(s.files))
	for i, f := range s.files {
		out[i] = f.clone()
	}
	return out
}

// Recents returns up to n file records readable by username, most-recently
// accessed first.
func (s *Store) Recents(username string, n int) []*FileRecord {
	all := s.ListFiles()
	readable := all[:0]
	for _, f := range all {
		if f.Owner == username || f.AccessOf(username) >= ReadAccess {
			readable = append(readable, f)
		}
	}
	sort.Slice(readable, func(i, j int) bool {
		return readable[i].AccessedAt.After(readable[j].AccessedAt)
	})
	if len(readable) > n {
		readable = readable[:n]
	}
	return readable
}

// Cache exposes the store's search cache to the NS's locate/view handlers.
func (s *Store) Cache() *searchCacheHandle { return &searchCacheHandle{c: s.cache} }

// searchCacheHandle is a thin, package-external-safe wrapper so callers in
// pkg/nameserver can use the cache without reaching into unexported fields.
type searchCacheHandle struct{ c *searchCache }

func (h *searchCacheHandle) Get(filename string) (*FileRecord, bool) { return h.c.Get(filename) }
func (h *searchCacheHandle) Put(filename string, rec *FileRecord)    { h.c.Put(filename, rec) }
func (h *searchCacheHandle) InvalidateAll()                          { h.c.InvalidateAll() }
func (h *searchCacheHandle) Len() int                                { return h.c.Len() }
