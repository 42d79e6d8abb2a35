package nameserver

import (
	"github.com/marmos91/dfs/internal/logger"
	"github.com/marmos91/dfs/pkg/metadata"
	"github.com/marmos91/dfs/pkg/wire"
)

// RegisterSS registers or reactivates a Storage Server at (ip, nmPort,
// clientPort). Re-registration from a known triple reuses the existing id
// and, if the SS had been inactive, schedules a primary-resync task (§4.1).
// After registration, every active SS is sent an SS_ACK naming its
// replication partner.
func (n *NameServer) RegisterSS(ip string, nmPort, clientPort int) (id string, err error) {
	existing, found := n.store.FindSSByTriple(ip, nmPort, clientPort)
	ssID := ""
	if found {
		ssID = existing.ID
	} else {
		ssID = newSSID()
	}

	rec, wasInactive := n.store.RegisterSS(ssID, ip, nmPort, clientPort)
	n.persist()

	if wasInactive {
		go n.resyncAfterReturn(rec.ID)
	}

	n.broadcastPartners()
	return rec.ID, nil
}

// RegisterClient registers or refreshes a client session, idempotent by
// username (§3).
func (n *NameServer) RegisterClient(username, ip string, port int) *metadata.ClientRecord {
	return n.store.RegisterClient(username, ip, port)
}

// DisconnectClient marks username's session inactive, e.g. on connection
// close (§5 Cancellation).
func (n *NameServer) DisconnectClient(username string) {
	n.store.SetClientActive(username, false)
}

// broadcastPartners tells every active SS who its replication partner is:
// the next active SS in registration order, wrapping around, so that each
// SS always has exactly one partner when at least two are active.
func (n *NameServer) broadcastPartners() {
	active := n.store.ActiveSS()
	if len(active) == 0 {
		return
	}
	for i, ss := range active {
		partner := ""
		if len(active) > 1 {
			next := active[(i+1)%len(active)]
			partner = joinHostPort(next.IP, next.NMPort)
		}
		n.sendSSAck(ss, partner)
	}
}

func (n *NameServer) sendSSAck(ss *metadata.SSRecord, partnerAddr string) {
	conn, err := dialControl(ss.IP, ss.NMPort, n.cfg.ProbeTimeout)
	if err != nil {
		logger.Warn("SS_ACK dial failed", "ss_id", ss.ID, "error", err)
		return
	}
	defer conn.Close()

	req := &wire.Record{Op: wire.OpSSAck, Username: "NM", Data: partnerAddr}
	if err := wire.WriteFrame(conn, req); err != nil {
		logger.Warn("SS_ACK write failed", "ss_id", ss.ID, "error", err)
		return
	}
	_, _ = wire.ReadFrame(conn)
}
