package nameserver

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/marmos91/dfs/pkg/ferrors"
	"github.com/marmos91/dfs/pkg/metadata"
	"github.com/marmos91/dfs/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSS is a minimal control-endpoint stand-in used to drive NS-side tests
// without a real pkg/storageserver instance: it answers READ with canned
// content, CREATE/DELETE/MOVE with success, and can be shut down to simulate
// an unreachable SS.
type fakeSS struct {
	listener net.Listener
	content  string
	closed   bool
}

func newFakeSS(t *testing.T, content string) *fakeSS {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	f := &fakeSS{listener: ln, content: content}
	go f.serve()
	return f
}

func (f *fakeSS) serve() {
	for {
		conn, err := f.listener.Accept()
		if err != nil {
			return
		}
		go func() {
			defer conn.Close()
			req, err := wire.ReadFrame(conn)
			if err != nil {
				return
			}
			resp := &wire.Record{Op: req.Op}
			switch req.Op {
			case wire.OpRead:
				if f.content == "" && req.Filename == "missing.txt" {
					resp.SetErr(ferrors.NotFoundf(req.Filename))
				} else {
					resp.Data = f.content
				}
			case wire.OpMove:
				resp.Filename = req.Data
			}
			_ = wire.WriteFrame(conn, resp)
		}()
	}
}

func (f *fakeSS) addr() (string, int) {
	host, portStr, _ := net.SplitHostPort(f.listener.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return host, port
}

func (f *fakeSS) shutdown() {
	if !f.closed {
		f.closed = true
		f.listener.Close()
	}
}

func newTestNS(t *testing.T) *NameServer {
	t.Helper()
	store := metadata.New(metadata.Config{MaxACLEntries: 16, CacheCapacity: 16, CacheTTL: time.Minute})
	return New(Config{ProbeTimeout: 300 * time.Millisecond}, store, nil)
}

func registerFakeSS(t *testing.T, ns *NameServer, ss *fakeSS) *metadata.SSRecord {
	t.Helper()
	ip, port := ss.addr()
	rec, _ := ns.Store().RegisterSS("ss-"+strconv.Itoa(port), ip, port, port)
	return rec
}

// Invariant 7 / S6: primary unreachable, replica active -> locate returns
// the replica's endpoint.
func TestLocate_FailsOverToReplicaWhenPrimaryUnreachable(t *testing.T) {
	ns := newTestNS(t)

	primary := newFakeSS(t, "hello")
	replica := newFakeSS(t, "hello")
	primaryRec := registerFakeSS(t, ns, primary)
	replicaRec := registerFakeSS(t, ns, replica)

	require.NoError(t, ns.Store().CreateFile(&metadata.FileRecord{
		Filename: "doc.txt",
		Owner:    "alice",
		Primary:  metadata.Endpoint{SSID: primaryRec.ID, IP: primaryRec.IP, ClientPort: primaryRec.ClientPort},
		Replica:  &metadata.Endpoint{SSID: replicaRec.ID, IP: replicaRec.IP, ClientPort: replicaRec.ClientPort},
	}))

	primary.shutdown()

	ip, port, err := ns.Locate("doc.txt", "alice", false)
	require.NoError(t, err)
	assert.Equal(t, replicaRec.IP, ip)
	assert.Equal(t, replicaRec.ClientPort, port)
}

func TestLocate_RejectsUserWithoutReadAccess(t *testing.T) {
	ns := newTestNS(t)
	ss := newFakeSS(t, "hi")
	rec := registerFakeSS(t, ns, ss)

	require.NoError(t, ns.Store().CreateFile(&metadata.FileRecord{
		Filename: "secret.txt",
		Owner:    "alice",
		Primary:  metadata.Endpoint{SSID: rec.ID, IP: rec.IP, ClientPort: rec.ClientPort},
	}))

	_, _, err := ns.Locate("secret.txt", "mallory", false)
	require.Error(t, err)
	assert.True(t, ferrors.Is(err, ferrors.AccessDenied))
}

// S5: delete with primary down returns CONNECTION_FAILED and leaves
// metadata untouched; INFO still works afterward.
func TestDelete_PrimaryDownLeavesMetadataIntact(t *testing.T) {
	ns := newTestNS(t)
	ss := newFakeSS(t, "hi")
	rec := registerFakeSS(t, ns, ss)

	require.NoError(t, ns.Store().CreateFile(&metadata.FileRecord{
		Filename: "doc.txt",
		Owner:    "alice",
		Primary:  metadata.Endpoint{SSID: rec.ID, IP: rec.IP, ClientPort: rec.ClientPort},
	}))
	ss.shutdown()

	err := ns.Delete("doc.txt", "alice")
	require.Error(t, err)
	assert.True(t, ferrors.Is(err, ferrors.ConnectionFailed))

	f, err := ns.Info("doc.txt", "alice")
	require.NoError(t, err)
	assert.Equal(t, "doc.txt", f.Filename)
}

func TestDelete_RejectsNonOwner(t *testing.T) {
	ns := newTestNS(t)
	ss := newFakeSS(t, "hi")
	rec := registerFakeSS(t, ns, ss)

	require.NoError(t, ns.Store().CreateFile(&metadata.FileRecord{
		Filename: "doc.txt",
		Owner:    "alice",
		Primary:  metadata.Endpoint{SSID: rec.ID, IP: rec.IP, ClientPort: rec.ClientPort},
	}))

	err := ns.Delete("doc.txt", "mallory")
	require.Error(t, err)
	assert.True(t, ferrors.Is(err, ferrors.NotOwner))
}

func TestView_HidesFilesWithBothEndpointsInactive(t *testing.T) {
	ns := newTestNS(t)
	ss := newFakeSS(t, "hi")
	rec := registerFakeSS(t, ns, ss)

	require.NoError(t, ns.Store().CreateFile(&metadata.FileRecord{
		Filename: "doc.txt",
		Owner:    "alice",
		Primary:  metadata.Endpoint{SSID: rec.ID, IP: rec.IP, ClientPort: rec.ClientPort},
	}))

	_, serr := ns.Store().SetSSActive(rec.ID, false)
	require.NoError(t, serr)

	files := ns.View("alice", 0)
	assert.Empty(t, files)
}

func TestView_WithoutAllFlagRestrictsToOwnerOrACL(t *testing.T) {
	ns := newTestNS(t)
	ss := newFakeSS(t, "hi")
	rec := registerFakeSS(t, ns, ss)

	require.NoError(t, ns.Store().CreateFile(&metadata.FileRecord{
		Filename: "doc.txt",
		Owner:    "alice",
		Primary:  metadata.Endpoint{SSID: rec.ID, IP: rec.IP, ClientPort: rec.ClientPort},
	}))

	files := ns.View("mallory", 0)
	assert.Empty(t, files)

	files = ns.View("mallory", wire.FlagAll)
	assert.Len(t, files, 1)
}

func TestCreate_RoundRobinsAcrossActiveServers(t *testing.T) {
	ns := newTestNS(t)
	ss1 := newFakeSS(t, "")
	ss2 := newFakeSS(t, "")
	registerFakeSS(t, ns, ss1)
	registerFakeSS(t, ns, ss2)

	require.NoError(t, ns.Create("a.txt", "alice"))
	f, ok := ns.Store().GetFile("a.txt", "")
	require.True(t, ok)
	assert.NotEmpty(t, f.Primary.SSID)
	assert.NotNil(t, f.Replica)
	assert.NotEqual(t, f.Primary.SSID, f.Replica.SSID)
}

func TestACLWorkflow_RequestApproveGrantsAccess(t *testing.T) {
	ns := newTestNS(t)
	ss := newFakeSS(t, "hi")
	rec := registerFakeSS(t, ns, ss)

	require.NoError(t, ns.Store().CreateFile(&metadata.FileRecord{
		Filename: "doc.txt",
		Owner:    "alice",
		Primary:  metadata.Endpoint{SSID: rec.ID, IP: rec.IP, ClientPort: rec.ClientPort},
	}))

	require.NoError(t, ns.RequestAccess("doc.txt", "bob", metadata.ReadAccess))
	reqs, err := ns.ViewRequests("doc.txt", "alice")
	require.NoError(t, err)
	require.Len(t, reqs, 1)

	require.NoError(t, ns.Approve("doc.txt", "alice", "bob"))
	f, err := ns.Info("doc.txt", "bob")
	require.NoError(t, err)
	assert.Equal(t, metadata.ReadAccess, f.AccessOf("bob"))
}
