package nameserver

import (
	"github.com/marmos91/dfs/pkg/ferrors"
	"github.com/marmos91/dfs/pkg/metadata"
)

// Locate resolves filename to the (ip, client_port) a client should connect
// to for READ/STREAM/WRITE/UNDO/CHECKPOINT/REVERT/VIEWCHECKPOINT/
// LISTCHECKPOINTS: an ACL check followed by a probe of the primary's client
// endpoint, falling back to the replica if the probe fails (§4.1, invariant
// 7). write reports whether the operation requires WriteAccess rather than
// ReadAccess.
func (n *NameServer) Locate(filename, username string, write bool) (ip string, port int, err error) {
	f, ok := n.store.GetFile(filename, username)
	if !ok {
		return "", 0, ferrors.NotFoundf(filename)
	}

	need := metadata.ReadAccess
	if write {
		need = metadata.WriteAccess
	}
	if f.Owner != username && f.AccessOf(username) < need {
		return "", 0, ferrors.AccessDeniedf(filename, "insufficient access")
	}

	if n.probeClientEndpoint(f.Primary) {
		return f.Primary.IP, f.Primary.ClientPort, nil
	}
	if f.Replica != nil && n.probeClientEndpoint(*f.Replica) {
		return f.Replica.IP, f.Replica.ClientPort, nil
	}
	return "", 0, ferrors.ConnectionFailedf(filename, nil)
}

// probeClientEndpoint reports whether ep's client port accepts a connection
// within the probe timeout. It only tests reachability (a locate, not a
// READ), so it doesn't consume the SS's file-existence semantics.
func (n *NameServer) probeClientEndpoint(ep metadata.Endpoint) bool {
	conn, err := dialControl(ep.IP, ep.ClientPort, n.cfg.ProbeTimeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
