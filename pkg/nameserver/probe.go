package nameserver

import (
	"strings"
	"time"

	"github.com/marmos91/dfs/pkg/ferrors"
	"github.com/marmos91/dfs/pkg/metadata"
	"github.com/marmos91/dfs/pkg/wire"
)

// probeResult is the three-valued outcome of ss_file_exists (§4.1).
type probeResult int

const (
	probeExists probeResult = iota
	probeStale
	probeUnknown
)

// ssFileExists opens a short-timeout connection to ep's control endpoint and
// issues a READ. It returns probeExists with the response content when the
// file is present (so callers can opportunistically refresh size/word/char
// counts), probeStale on FILE_NOT_FOUND, and probeUnknown on any transport
// failure — unknown never triggers a purge.
func (n *NameServer) ssFileExists(ep metadata.Endpoint, filename string) (probeResult, string) {
	ss, ok := n.store.SSByID(ep.SSID)
	if !ok {
		return probeUnknown, ""
	}
	conn, err := dialControl(ss.IP, ss.NMPort, n.cfg.ProbeTimeout)
	if err != nil {
		return probeUnknown, ""
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(n.cfg.ProbeTimeout))

	req := &wire.Record{Op: wire.OpRead, Username: "NM", Filename: filename}
	if err := wire.WriteFrame(conn, req); err != nil {
		return probeUnknown, ""
	}
	resp, err := wire.ReadFrame(conn)
	if err != nil {
		return probeUnknown, ""
	}
	if ferrors.Is(resp.Err(), ferrors.NotFound) {
		return probeStale, ""
	}
	if resp.Err() != nil {
		return probeUnknown, ""
	}
	return probeExists, resp.Data
}

// refreshAndPurgeIfStale probes the primary for filename; on FILE_NOT_FOUND
// it purges the NS's metadata for that file (§4.1 Purge). If the primary is
// unknown and a replica exists, it retries once against the replica before
// giving up. On a live hit, it opportunistically refreshes size/word/char
// counts from the returned content.
func (n *NameServer) refreshAndPurgeIfStale(f *metadata.FileRecord) {
	result, content := n.ssFileExists(f.Primary, f.Filename)
	if result == probeUnknown && f.Replica != nil {
		result, content = n.ssFileExists(*f.Replica, f.Filename)
	}

	switch result {
	case probeStale:
		n.store.Purge(f.Filename)
		n.persist()
	case probeExists:
		n.refreshCounts(f.Filename, content)
	}
}

func (n *NameServer) refreshCounts(filename, content string) {
	_ = n.store.UpdateFile(filename, func(f *metadata.FileRecord) error {
		f.Size = len(content)
		f.CharCount = len(content)
		f.WordCount = len(strings.Fields(content))
		return nil
	})
}
