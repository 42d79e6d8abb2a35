package metadata

// Purge removes every trace of filename: the arena/trie entry (via
// swap-with-last) and every SS's claimed-file list, then flushes the whole
// search cache (§4.1 Purge). Reports whether the filename was present.
func (s *Store) Purge(filename string) bool {
	s.mu.Lock()
	removed := s.deleteFileLocked(filename)
	for _, ss := range s.servers {
		delete(ss.ClaimedFiles, filename)
	}
	s.mu.Unlock()

	s.cache.InvalidateAll()
	return removed
}
