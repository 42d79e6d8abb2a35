// Package client implements the client driver (§4.3): one long-lived
// connection to the Name Server, and short-lived per-phase connections to
// whichever Storage Server the NS locates for data-path operations.
package client

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/marmos91/dfs/pkg/wire"
)

// Client is one user session's driver. Username is sent on every framed
// request; the NS and SS derive ACL/lock ownership from it.
type Client struct {
	nsAddr   string
	username string
	nsConn   net.Conn
	dialTTL  time.Duration
}

// Dial opens the long-lived NS connection and registers username at
// (ip, port) — the endpoint other clients/SS's might never need, since only
// the NS tracks it for disconnect bookkeeping.
func Dial(nsAddr, username, advertiseIP string, advertisePort int) (*Client, error) {
	conn, err := net.Dial("tcp", nsAddr)
	if err != nil {
		return nil, fmt.Errorf("client: dial name server: %w", err)
	}
	c := &Client{nsAddr: nsAddr, username: username, nsConn: conn, dialTTL: 5 * time.Second}

	req := &wire.Record{
		Op:       wire.OpRegisterClient,
		Username: username,
		Data:     net.JoinHostPort(advertiseIP, strconv.Itoa(advertisePort)),
	}
	resp, err := c.roundTrip(conn, req)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := resp.Err(); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the NS connection (the NS marks the client inactive on the
// next accept-loop IO failure, per §5 Cancellation).
func (c *Client) Close() error { return c.nsConn.Close() }

func (c *Client) roundTrip(conn net.Conn, req *wire.Record) (*wire.Record, error) {
	if err := wire.WriteFrame(conn, req); err != nil {
		return nil, fmt.Errorf("client: send %s: %w", req.Op, err)
	}
	resp, err := wire.ReadFrame(conn)
	if err != nil {
		return nil, fmt.Errorf("client: receive %s response: %w", req.Op, err)
	}
	return resp, nil
}

// ns sends req over the long-lived NS connection.
func (c *Client) ns(req *wire.Record) (*wire.Record, error) {
	req.Username = c.username
	return c.roundTrip(c.nsConn, req)
}

// dialSS opens a short-lived connection to a Storage Server's client
// endpoint for one phase of an operation (§4.3: each phase re-opens a
// connection).
func (c *Client) dialSS(ip string, port int) (net.Conn, error) {
	return net.DialTimeout("tcp", net.JoinHostPort(ip, strconv.Itoa(port)), c.dialTTL)
}

// locate asks the NS for the (ip, port) to use for a data-path op on
// filename, parsing its "ip:port" reply.
func (c *Client) locate(op wire.OpCode, filename string) (ip string, port int, err error) {
	resp, err := c.ns(&wire.Record{Op: op, Filename: filename})
	if err != nil {
		return "", 0, err
	}
	if err := resp.Err(); err != nil {
		return "", 0, err
	}
	host, portStr, err := net.SplitHostPort(resp.Data)
	if err != nil {
		return "", 0, fmt.Errorf("client: malformed locate response %q: %w", resp.Data, err)
	}
	port, err = strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("client: malformed locate port %q: %w", portStr, err)
	}
	return host, port, nil
}
