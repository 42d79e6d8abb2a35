// Package storageserver implements the Storage Server engine (§4.2): file
// bytes under a root directory, the sentence-lock table, per-file undo, named
// checkpoints, and best-effort replication fan-out to a partner SS.
package storageserver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/marmos91/dfs/internal/logger"
	"github.com/marmos91/dfs/pkg/ferrors"
)

// Config controls one Engine instance.
type Config struct {
	StorageRoot        string
	CheckpointRoot     string
	MaxLocksPerFile    int
	ReplicationTimeout time.Duration
	StreamWordDelay    time.Duration
}

// Engine is the Storage Server's file and lock-table backend. One Engine
// serves both the control and client listeners.
type Engine struct {
	cfg Config

	locks *lockTable

	fileMu   sync.Mutex // guards fileMus
	fileMus  map[string]*sync.Mutex

	undoMu sync.Mutex
	undo   map[string]string // filename -> pre-write snapshot; absent means no undo available

	partnerMu sync.RWMutex
	partner   string // host:control_port of the replication partner, "" if none
}

// New creates an Engine rooted at cfg.StorageRoot/cfg.CheckpointRoot. Callers
// should follow with Scan to populate the lock table from existing files.
func New(cfg Config) (*Engine, error) {
	if err := os.MkdirAll(cfg.StorageRoot, 0o755); err != nil {
		return nil, fmt.Errorf("storageserver: create storage root: %w", err)
	}
	if err := os.MkdirAll(cfg.CheckpointRoot, 0o755); err != nil {
		return nil, fmt.Errorf("storageserver: create checkpoint root: %w", err)
	}
	return &Engine{
		cfg:     cfg,
		locks:   newLockTable(cfg.MaxLocksPerFile),
		fileMus: make(map[string]*sync.Mutex),
		undo:    make(map[string]string),
	}, nil
}

// SetPartner records the replication partner endpoint learned from SS_ACK.
// An empty address clears it (no known partner).
func (e *Engine) SetPartner(addr string) {
	e.partnerMu.Lock()
	defer e.partnerMu.Unlock()
	e.partner = addr
}

func (e *Engine) Partner() string {
	e.partnerMu.RLock()
	defer e.partnerMu.RUnlock()
	return e.partner
}

// fileLock returns the per-file mutex for filename, creating it if absent.
func (e *Engine) fileLock(filename string) *sync.Mutex {
	e.fileMu.Lock()
	defer e.fileMu.Unlock()
	m, ok := e.fileMus[filename]
	if !ok {
		m = &sync.Mutex{}
		e.fileMus[filename] = m
	}
	return m
}

// sanitize rejects path traversal and absolute paths (§9 redesign cue) and
// returns the joined on-disk path.
func sanitize(root, filename string) (string, error) {
	if filename == "" {
		return "", ferrors.InvalidCommandf("empty filename")
	}
	if filepath.IsAbs(filename) {
		return "", ferrors.InvalidCommandf("absolute paths are not allowed")
	}
	for _, seg := range strings.Split(filename, "/") {
		if seg == ".." {
			return "", ferrors.InvalidCommandf("path traversal is not allowed")
		}
	}
	return filepath.Join(root, filepath.FromSlash(filename)), nil
}

// sanitizeTag rejects checkpoint tags that could escape the per-file
// checkpoint directory — tags name a single file within that directory, not
// a path.
func sanitizeTag(tag string) error {
	if tag == "" {
		return ferrors.InvalidCommandf("checkpoint tag must not be empty")
	}
	if tag == "." || tag == ".." {
		return ferrors.InvalidCommandf("invalid checkpoint tag")
	}
	if strings.ContainsAny(tag, "/\\") {
		return ferrors.InvalidCommandf("checkpoint tag must not contain path separators")
	}
	if filepath.IsAbs(tag) {
		return ferrors.InvalidCommandf("checkpoint tag must not be an absolute path")
	}
	return nil
}

func metaPath(p string) string { return p + ".meta" }

func (e *Engine) checkpointDir(filename string) string {
	return filepath.Join(e.cfg.CheckpointRoot, filename)
}

func (e *Engine) logOp(op, filename, username string, err error, start time.Time) {
	if err != nil {
		logger.Warn("storage server op failed", "op", op, "filename", filename, "username", username,
			"error", err, "duration_ms", time.Since(start).Milliseconds())
		return
	}
	logger.Debug("storage server op", "op", op, "filename", filename, "username", username,
		"duration_ms", time.Since(start).Milliseconds())
}
