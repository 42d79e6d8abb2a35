package metadata

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/marmos91/dfs/internal/logger"
)

// snapshot is the on-disk shape of the NS's persisted state (§6): the file
// arena and the SS roster. The client roster is session state, not
// persisted, since client sessions don't survive an NS restart regardless.
type snapshot struct {
	Files   []*FileRecord
	Servers []*SSRecord
}

// Save writes the store's current state to path, using gob encoding and an
// atomic temp-file-then-rename so a crash mid-write cannot corrupt the
// previous snapshot (§5's atomicity recommendation).
func (s *Store) Save(path string) error {
	s.mu.Lock()
	snap := snapshot{
		Files:   append([]*FileRecord(nil), s.files...),
		Servers: append([]*SSRecord(nil), s.servers...),
	}
	s.mu.Unlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&snap); err != nil {
		return fmt.Errorf("metadata: encode snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("metadata: create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("metadata: write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("metadata: close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("metadata: rename temp snapshot: %w", err)
	}
	return nil
}

// Load populates the store from path. A missing file is not an error (first
// run); a corrupt file resets to empty state and logs a warning rather than
// failing startup, matching §6's "corrupt header resets to empty" contract.
func Load(path string, cfg Config) (*Store, error) {
	s := New(cfg)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("metadata: read snapshot: %w", err)
	}

	var snap snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		logger.Warn("metadata snapshot corrupt, resetting to empty", "path", path, "error", err)
		return s, nil
	}

	seen := make(map[string]bool, len(snap.Files))
	for _, f := range snap.Files {
		if f == nil || f.Filename == "" || f.Owner == "" {
			continue // per-record sanity check
		}
		if seen[f.Filename] {
			continue // duplicate filenames collapsed on load
		}
		seen[f.Filename] = true
		if f.CreatedAt.IsZero() {
			f.CreatedAt = time.Now()
		}
		s.files = append(s.files, f)
		s.names.Insert(f.Filename, len(s.files)-1)
	}

	for _, ss := range snap.Servers {
		if ss == nil || ss.ID == "" {
			continue
		}
		if ss.ClaimedFiles == nil {
			ss.ClaimedFiles = make(map[string]struct{})
		}
		ss.Active = false // liveness is re-established by the heartbeat loop, not trusted from disk
		s.servers = append(s.servers, ss)
		s.serverIndex[ss.ID] = len(s.servers) - 1
	}

	return s, nil
}
