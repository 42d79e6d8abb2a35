package nameserver

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/marmos91/dfs/internal/bytesize"
	"github.com/marmos91/dfs/pkg/metadata"
)

// parseSSEndpoint decodes a REGISTER_SS Data payload of the form
// "ip:nm_port:client_port".
func parseSSEndpoint(data string) (ip string, nmPort, clientPort int, err error) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 {
		return "", 0, 0, fmt.Errorf("expected ip:nm_port:client_port, got %q", data)
	}
	nmPort, err = strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid nm_port: %w", err)
	}
	clientPort, err = strconv.Atoi(parts[2])
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid client_port: %w", err)
	}
	return parts[0], nmPort, clientPort, nil
}

// parseClientEndpoint decodes a REGISTER_CLIENT Data payload of the form
// "ip:port".
func parseClientEndpoint(data string) (ip string, port int, err error) {
	host, portStr, err := net.SplitHostPort(data)
	if err != nil {
		return "", 0, fmt.Errorf("expected ip:port, got %q", data)
	}
	port, err = strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port: %w", err)
	}
	return host, port, nil
}

func itoaPort(port int) string { return strconv.Itoa(port) }

// formatListing renders VIEW/RECENTS/VIEWFOLDER results as newline-separated
// rows. long selects the -l long-listing form (word/char counts and modified
// time alongside owner and size); the short form is just filename/owner/size.
func formatListing(files []*metadata.FileRecord, long bool) string {
	lines := make([]string, 0, len(files))
	for _, f := range files {
		if long {
			lines = append(lines, fmt.Sprintf(
				"%s\t%s\t%s\t%d words\t%d chars\t%s",
				f.Filename, f.Owner, bytesize.ByteSize(f.Size), f.WordCount, f.CharCount,
				f.ModifiedAt.Format("2006-01-02T15:04:05Z07:00"),
			))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s\t%s\t%s", f.Filename, f.Owner, bytesize.ByteSize(f.Size)))
	}
	return strings.Join(lines, "\n")
}

func formatInfo(f *metadata.FileRecord) string {
	return fmt.Sprintf(
		"filename=%s\nowner=%s\nsize=%s\nwords=%d\nchars=%d\ncreated=%s\nmodified=%s\naccessed=%s\nlast_accessed_by=%s",
		f.Filename, f.Owner, bytesize.ByteSize(f.Size), f.WordCount, f.CharCount,
		f.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		f.ModifiedAt.Format("2006-01-02T15:04:05Z07:00"),
		f.AccessedAt.Format("2006-01-02T15:04:05Z07:00"),
		f.LastAccessedBy,
	)
}

func formatRequests(reqs []metadata.PendingRequest) string {
	lines := make([]string, 0, len(reqs))
	for _, r := range reqs {
		lines = append(lines, fmt.Sprintf("%s\t%s", r.Username, r.Requested.String()))
	}
	return strings.Join(lines, "\n")
}
