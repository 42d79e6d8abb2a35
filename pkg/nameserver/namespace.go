package nameserver

import (
	"time"

	"github.com/marmos91/dfs/pkg/ferrors"
	"github.com/marmos91/dfs/pkg/metadata"
	"github.com/marmos91/dfs/pkg/wire"
)

// Create places a new file on the first active SS that accepts a local
// CREATE, probed round-robin starting at file_count mod ss_count (§4.1). NS
// metadata is only mutated after the SS confirms.
func (n *NameServer) Create(filename, owner string) error {
	active := n.store.ActiveSS()
	if len(active) == 0 {
		return ferrors.ServerErrorf(filename, nil)
	}

	start := len(n.store.ListFiles()) % len(active)
	var primary *metadata.SSRecord
	for i := 0; i < len(active); i++ {
		candidate := active[(start+i)%len(active)]
		if err := n.createOnSS(candidate, filename); err == nil {
			primary = candidate
			break
		}
	}
	if primary == nil {
		return ferrors.ServerErrorf(filename, nil)
	}

	rec := &metadata.FileRecord{
		Filename:  filename,
		Owner:     owner,
		Primary:   metadata.Endpoint{SSID: primary.ID, IP: primary.IP, ClientPort: primary.ClientPort},
		CreatedAt: time.Now(),
	}
	if replica := pickReplica(active, primary.ID); replica != nil {
		rec.Replica = &metadata.Endpoint{SSID: replica.ID, IP: replica.IP, ClientPort: replica.ClientPort}
	}

	if err := n.store.CreateFile(rec); err != nil {
		return err
	}
	n.store.ClaimFile(primary.ID, filename)
	n.persist()
	return nil
}

func pickReplica(active []*metadata.SSRecord, primaryID string) *metadata.SSRecord {
	if len(active) < 2 {
		return nil
	}
	for i, ss := range active {
		if ss.ID == primaryID {
			return active[(i+1)%len(active)]
		}
	}
	return nil
}

func (n *NameServer) createOnSS(ss *metadata.SSRecord, filename string) error {
	conn, err := dialControl(ss.IP, ss.NMPort, n.cfg.ProbeTimeout)
	if err != nil {
		return ferrors.ConnectionFailedf(filename, err)
	}
	defer conn.Close()

	req := &wire.Record{Op: wire.OpCreate, Username: "NM", Filename: filename}
	if err := wire.WriteFrame(conn, req); err != nil {
		return ferrors.ConnectionFailedf(filename, err)
	}
	resp, err := wire.ReadFrame(conn)
	if err != nil {
		return ferrors.ConnectionFailedf(filename, err)
	}
	return resp.Err()
}

// Delete forwards to the file's primary; metadata is purged only after the
// SS confirms (§4.1, §7). Only the owner may delete.
func (n *NameServer) Delete(filename, username string) error {
	f, ok := n.store.GetFile(filename, "")
	if !ok {
		return ferrors.NotFoundf(filename)
	}
	if f.Owner != username {
		return ferrors.NotOwnerf(filename)
	}

	ss, ok := n.store.SSByID(f.Primary.SSID)
	if !ok {
		return ferrors.ConnectionFailedf(filename, nil)
	}
	conn, err := dialControl(ss.IP, ss.NMPort, n.cfg.ProbeTimeout)
	if err != nil {
		return ferrors.ConnectionFailedf(filename, err)
	}
	defer conn.Close()

	req := &wire.Record{Op: wire.OpDelete, Username: username, Filename: filename}
	if err := wire.WriteFrame(conn, req); err != nil {
		return ferrors.ConnectionFailedf(filename, err)
	}
	resp, err := wire.ReadFrame(conn)
	if err != nil {
		return ferrors.ConnectionFailedf(filename, err)
	}
	if resp.Err() != nil {
		return resp.Err()
	}

	n.store.Purge(filename)
	n.persist()
	return nil
}

// Info returns the metadata record for filename if username may read it.
// Counters may be stale when the SS is unreachable — INFO never blocks on a
// probe (§9).
func (n *NameServer) Info(filename, username string) (*metadata.FileRecord, error) {
	f, ok := n.store.GetFile(filename, username)
	if !ok {
		return nil, ferrors.NotFoundf(filename)
	}
	if f.Owner != username && f.AccessOf(username) < metadata.ReadAccess {
		return nil, ferrors.AccessDeniedf(filename, "no read access")
	}
	return f, nil
}

// ListUsers returns the owner of filename followed by one "user (ACCESS)"
// entry per ACL grant.
func (n *NameServer) ListUsers(filename, username string) ([]string, error) {
	f, err := n.Info(filename, username)
	if err != nil {
		return nil, err
	}
	out := []string{f.Owner}
	for _, e := range f.ACL {
		out = append(out, e.Username+" ("+e.Access.String()+")")
	}
	return out, nil
}

// Recents returns up to 5 of the files username can read, most recently
// accessed (by any user) first (§4.1).
func (n *NameServer) Recents(username string) []*metadata.FileRecord {
	return n.store.Recents(username, 5)
}
