package storageserver

import (
	"net"
	"time"

	"github.com/marmos91/dfs/internal/logger"
	"github.com/marmos91/dfs/pkg/wire"
)

// replicate fans out op to the partner SS as a best-effort, single
// connect-send-receive with no retry queue (§4.2 Replication hygiene). It is
// a no-op if there is no known partner, and failures are swallowed — the
// primary-resync path on the Name Server reconciles drift later.
func (e *Engine) replicate(op wire.OpCode, filename, data string) {
	partner := e.Partner()
	if partner == "" {
		return
	}

	rec := &wire.Record{
		Op:       op,
		Username: "NM",
		Filename: filename,
		Data:     data,
		Flags:    wire.FlagReplication,
	}

	conn, err := net.DialTimeout("tcp", partner, e.cfg.ReplicationTimeout)
	if err != nil {
		logger.Warn("replication dial failed", "partner", partner, "op", op, "filename", filename, "error", err)
		return
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(e.cfg.ReplicationTimeout))

	if err := wire.WriteFrame(conn, rec); err != nil {
		logger.Warn("replication write failed", "partner", partner, "op", op, "filename", filename, "error", err)
		return
	}
	resp, err := wire.ReadFrame(conn)
	if err != nil {
		logger.Warn("replication response failed", "partner", partner, "op", op, "filename", filename, "error", err)
		return
	}
	if resp.ErrCode != 0 {
		logger.Warn("replication rejected by partner", "partner", partner, "op", op, "filename", filename, "code", resp.ErrCode)
		return
	}
	logger.Debug("replication applied", "partner", partner, "op", op, "filename", filename)
}
