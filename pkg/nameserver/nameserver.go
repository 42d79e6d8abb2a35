// Package nameserver implements the Name Server's operations (§4.1): SS and
// client registration, namespace mutation, ACL/request workflow, locate-for-op
// routing, the failure-aware existence probe, the heartbeat loop, and
// primary-resync.
package nameserver

import (
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dfs/internal/logger"
	"github.com/marmos91/dfs/pkg/metadata"
)

// Config controls one NameServer instance.
type Config struct {
	SnapshotPath      string
	HeartbeatInterval time.Duration
	ProbeTimeout      time.Duration
	MaxACLEntries     int
	CacheCapacity     int
	CacheTTL          time.Duration
}

// OpMetrics is the subset of internal/metrics.OpMetrics the NS reports
// through; an interface so the package stays independent of Prometheus.
type OpMetrics interface {
	Observe(op, code string, seconds float64)
}

// NameServer holds the metadata store and the background loops that keep it
// consistent with the Storage Server fleet.
type NameServer struct {
	cfg     Config
	store   *metadata.Store
	metrics OpMetrics

	dialTimeout time.Duration
}

// New creates a NameServer backed by store (already loaded from the snapshot
// path by the caller via metadata.Load).
func New(cfg Config, store *metadata.Store, metrics OpMetrics) *NameServer {
	return &NameServer{cfg: cfg, store: store, metrics: metrics, dialTimeout: cfg.ProbeTimeout}
}

// Store exposes the underlying metadata store.
func (n *NameServer) Store() *metadata.Store { return n.store }

func (n *NameServer) observe(op string, errCode string, start time.Time) {
	if n.metrics == nil {
		return
	}
	n.metrics.Observe(op, errCode, time.Since(start).Seconds())
}

// persist saves the store snapshot, logging (not failing the caller's
// operation) if the write fails — metadata is already correct in memory.
func (n *NameServer) persist() {
	if n.cfg.SnapshotPath == "" {
		return
	}
	if err := n.store.Save(n.cfg.SnapshotPath); err != nil {
		logger.Warn("name server snapshot save failed", "path", n.cfg.SnapshotPath, "error", err)
	}
}

// newSSID assigns a stable identifier at first registration (§3).
func newSSID() string { return uuid.NewString() }

// dialControl opens a short-timeout connection to an SS's control endpoint.
func dialControl(ip string, port int, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("tcp", joinHostPort(ip, port), timeout)
}

func joinHostPort(ip string, port int) string {
	return net.JoinHostPort(ip, strconv.Itoa(port))
}
