package nameserver

import (
	"context"
	"time"

	"github.com/marmos91/dfs/internal/logger"
	"github.com/marmos91/dfs/pkg/wire"
)

// RunHeartbeat probes every registered SS's control endpoint on
// cfg.HeartbeatInterval, flipping `active` on transition edges and logging
// them. A 0→1 transition does not itself trigger resync — only the explicit
// re-registration path in RegisterSS does that (§4.1).
func (n *NameServer) RunHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(n.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.heartbeatOnce()
		}
	}
}

func (n *NameServer) heartbeatOnce() {
	for _, ss := range n.store.AllSS() {
		alive := n.pingControl(ss.IP, ss.NMPort)
		changed, err := n.store.SetSSActive(ss.ID, alive)
		if err != nil {
			continue
		}
		if changed {
			logger.Info("storage server liveness transition", "ss_id", ss.ID, "active", alive)
		}
	}
}

func (n *NameServer) pingControl(ip string, port int) bool {
	conn, err := dialControl(ip, port, n.cfg.ProbeTimeout)
	if err != nil {
		return false
	}
	defer conn.Close()

	req := &wire.Record{Op: wire.OpRead, Username: "NM", Filename: ""}
	if err := wire.WriteFrame(conn, req); err != nil {
		return false
	}
	_, err = wire.ReadFrame(conn)
	return err == nil
}
