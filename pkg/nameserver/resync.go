package nameserver

import (
	"github.com/marmos91/dfs/internal/logger"
	"github.com/marmos91/dfs/pkg/metadata"
	"github.com/marmos91/dfs/pkg/wire"
)

// resyncAfterReturn is the primary-resync task (§4.1, §9): for each file
// whose primary is ssID and which has a replica, read the replica's content
// and push it into the returning primary via REPL_WRITE. Best-effort and
// per-file independent — one file's failure does not block the others. This
// only catches up a primary that dropped writes while down; a replica that
// was down during writes stays stale until the file is next written on its
// primary (§9 accepted weakness, no reverse resync).
func (n *NameServer) resyncAfterReturn(ssID string) {
	for _, f := range n.store.ListFiles() {
		if f.Primary.SSID != ssID || f.Replica == nil {
			continue
		}
		n.resyncOneFile(f.Filename, *f.Replica, f.Primary)
	}
}

func (n *NameServer) resyncOneFile(filename string, from, to metadata.Endpoint) {
	content, ok := n.readFrom(from, filename)
	if !ok {
		return
	}
	n.pushReplicatedWrite(to, filename, content)
}

func (n *NameServer) readFrom(ep metadata.Endpoint, filename string) (string, bool) {
	ss, ok := n.store.SSByID(ep.SSID)
	if !ok {
		return "", false
	}
	conn, err := dialControl(ss.IP, ss.NMPort, n.cfg.ProbeTimeout)
	if err != nil {
		logger.Warn("resync read dial failed", "ss_id", ep.SSID, "filename", filename, "error", err)
		return "", false
	}
	defer conn.Close()

	req := &wire.Record{Op: wire.OpRead, Username: "NM", Filename: filename}
	if err := wire.WriteFrame(conn, req); err != nil {
		return "", false
	}
	resp, err := wire.ReadFrame(conn)
	if err != nil || resp.Err() != nil {
		return "", false
	}
	return resp.Data, true
}

func (n *NameServer) pushReplicatedWrite(ep metadata.Endpoint, filename, content string) {
	ss, ok := n.store.SSByID(ep.SSID)
	if !ok {
		return
	}
	conn, err := dialControl(ss.IP, ss.NMPort, n.cfg.ProbeTimeout)
	if err != nil {
		logger.Warn("resync write dial failed", "ss_id", ep.SSID, "filename", filename, "error", err)
		return
	}
	defer conn.Close()

	req := &wire.Record{Op: wire.OpReplWrite, Username: "NM", Filename: filename, Data: content, Flags: wire.FlagReplication}
	if err := wire.WriteFrame(conn, req); err != nil {
		logger.Warn("resync write failed", "ss_id", ep.SSID, "filename", filename, "error", err)
		return
	}
	if _, err := wire.ReadFrame(conn); err != nil {
		logger.Warn("resync write response failed", "ss_id", ep.SSID, "filename", filename, "error", err)
	}
}
