package nameserver

import (
	"strings"
	"sync/atomic"

	"github.com/marmos91/dfs/pkg/ferrors"
	"github.com/marmos91/dfs/pkg/metadata"
	"github.com/marmos91/dfs/pkg/wire"
	"golang.org/x/sync/errgroup"
)

// View returns the listing of files visible to username, honoring flags
// (FlagAll bypasses the ACL filter). Files whose primary and replica are
// both inactive are hidden; stale metadata (primary reports FILE_NOT_FOUND)
// is purged as a side effect of the touch (§4.1 View, Purge).
func (n *NameServer) View(username string, flags uint16) []*metadata.FileRecord {
	all := n.store.ListFiles()
	seen := make(map[string]bool, len(all))
	out := make([]*metadata.FileRecord, 0, len(all))

	for _, f := range all {
		if seen[f.Filename] {
			continue
		}
		seen[f.Filename] = true

		if !n.anyEndpointActive(f) {
			continue
		}
		if _, hit := n.store.Cache().Get(f.Filename); !hit {
			n.refreshAndPurgeIfStale(f)
			fresh, ok := n.store.GetFile(f.Filename, "")
			if !ok {
				continue // purged as stale
			}
			n.store.Cache().Put(f.Filename, fresh)
			f = fresh
		}

		if flags&wire.FlagAll == 0 {
			if f.Owner != username && f.AccessOf(username) < metadata.ReadAccess {
				continue
			}
		}
		out = append(out, f)
	}
	return out
}

func (n *NameServer) anyEndpointActive(f *metadata.FileRecord) bool {
	if ss, ok := n.store.SSByID(f.Primary.SSID); ok && ss.Active {
		return true
	}
	if f.Replica != nil {
		if ss, ok := n.store.SSByID(f.Replica.SSID); ok && ss.Active {
			return true
		}
	}
	return false
}

// ViewFolder filters the file listing to entries under folder+"/" that
// username may read (§4.1, NS-local, no SS round trip).
func (n *NameServer) ViewFolder(folder, username string) []*metadata.FileRecord {
	prefix := folder + "/"
	out := make([]*metadata.FileRecord, 0)
	for _, f := range n.store.ListFiles() {
		if !strings.HasPrefix(f.Filename, prefix) {
			continue
		}
		if f.Owner != username && f.AccessOf(username) < metadata.ReadAccess {
			continue
		}
		out = append(out, f)
	}
	return out
}

// CreateFolder broadcasts CREATEFOLDER to every active SS concurrently,
// succeeding if at least one accepts (§4.1).
func (n *NameServer) CreateFolder(path string) error {
	active := n.store.ActiveSS()
	var accepted atomic.Bool
	var g errgroup.Group
	for _, ss := range active {
		ss := ss
		g.Go(func() error {
			if err := n.createFolderOnSS(ss, path); err == nil {
				accepted.Store(true)
			}
			return nil
		})
	}
	_ = g.Wait()
	if !accepted.Load() {
		return ferrors.ServerErrorf(path, nil)
	}
	return nil
}

func (n *NameServer) createFolderOnSS(ss *metadata.SSRecord, path string) error {
	conn, err := dialControl(ss.IP, ss.NMPort, n.cfg.ProbeTimeout)
	if err != nil {
		return ferrors.ConnectionFailedf(path, err)
	}
	defer conn.Close()

	req := &wire.Record{Op: wire.OpCreateFolder, Username: "NM", Filename: path}
	if err := wire.WriteFrame(conn, req); err != nil {
		return ferrors.ConnectionFailedf(path, err)
	}
	resp, err := wire.ReadFrame(conn)
	if err != nil {
		return ferrors.ConnectionFailedf(path, err)
	}
	return resp.Err()
}

// Move asks the primary to rename, then the replica if present, then
// updates NS metadata. Aborts without touching NS state if the primary
// fails (§4.1).
func (n *NameServer) Move(filename, folder, username string) error {
	f, ok := n.store.GetFile(filename, "")
	if !ok {
		return ferrors.NotFoundf(filename)
	}
	if f.Owner != username {
		return ferrors.NotOwnerf(filename)
	}

	newName := folder + "/" + lastSegment(filename)

	ss, ok := n.store.SSByID(f.Primary.SSID)
	if !ok {
		return ferrors.ConnectionFailedf(filename, nil)
	}
	if err := n.renameOnSS(ss, filename, newName); err != nil {
		return err
	}

	if f.Replica != nil {
		if rss, ok := n.store.SSByID(f.Replica.SSID); ok {
			_ = n.renameOnSS(rss, filename, newName)
		}
	}

	if err := n.store.RenameFile(filename, newName); err != nil {
		return err
	}
	n.store.UnclaimFile(filename)
	n.store.ClaimFile(f.Primary.SSID, newName)
	n.persist()
	return nil
}

func lastSegment(filename string) string {
	if i := strings.LastIndexByte(filename, '/'); i >= 0 {
		return filename[i+1:]
	}
	return filename
}

func (n *NameServer) renameOnSS(ss *metadata.SSRecord, oldName, newName string) error {
	conn, err := dialControl(ss.IP, ss.NMPort, n.cfg.ProbeTimeout)
	if err != nil {
		return ferrors.ConnectionFailedf(oldName, err)
	}
	defer conn.Close()

	req := &wire.Record{Op: wire.OpMove, Username: "NM", Filename: oldName, Data: newName}
	if err := wire.WriteFrame(conn, req); err != nil {
		return ferrors.ConnectionFailedf(oldName, err)
	}
	resp, err := wire.ReadFrame(conn)
	if err != nil {
		return ferrors.ConnectionFailedf(oldName, err)
	}
	return resp.Err()
}
