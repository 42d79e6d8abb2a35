package nameserver

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/marmos91/dfs/pkg/ferrors"
	"github.com/marmos91/dfs/pkg/metadata"
	"github.com/marmos91/dfs/pkg/server"
	"github.com/marmos91/dfs/pkg/wire"
)

// Factory builds connection handlers for the NS's single listener, serving
// both SS registration/control traffic and client driver traffic (§4.3: one
// long-lived client connection carries every op except the SS data path).
type Factory struct{ NS *NameServer }

func (f Factory) NewConnection(conn net.Conn) server.ConnectionHandler {
	return nsConn{conn: conn, ns: f.NS}
}

type nsConn struct {
	conn net.Conn
	ns   *NameServer
}

func (c nsConn) Serve(ctx context.Context) {
	var username string
	defer func() {
		c.conn.Close()
		if username != "" {
			c.ns.DisconnectClient(username)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		req, err := wire.ReadFrame(c.conn)
		if err != nil {
			return
		}
		if req.Username != "" && req.Username != "NM" {
			username = req.Username
		}

		start := time.Now()
		resp := c.dispatch(req)
		errCode := ""
		if resp.Err() != nil {
			errCode = resp.ErrCode.String()
		}
		c.ns.observe(req.Op.String(), errCode, start)
		if err := wire.WriteFrame(c.conn, resp); err != nil {
			return
		}
	}
}

func (c nsConn) dispatch(req *wire.Record) *wire.Record {
	resp := &wire.Record{Op: req.Op, Filename: req.Filename}
	ns := c.ns

	var err error
	switch req.Op {
	case wire.OpRegisterSS:
		ip, nmPort, clientPort, perr := parseSSEndpoint(req.Data)
		if perr != nil {
			err = ferrors.InvalidCommandf(perr.Error())
			break
		}
		var id string
		id, err = ns.RegisterSS(ip, nmPort, clientPort)
		resp.Data = id

	case wire.OpRegisterClient:
		ip, port, perr := parseClientEndpoint(req.Data)
		if perr != nil {
			err = ferrors.InvalidCommandf(perr.Error())
			break
		}
		ns.RegisterClient(req.Username, ip, port)

	case wire.OpView:
		files := ns.View(req.Username, req.Flags)
		resp.Data = formatListing(files, req.Flags&wire.FlagLong != 0)

	case wire.OpInfo:
		var f *metadata.FileRecord
		f, err = ns.Info(req.Filename, req.Username)
		if err == nil {
			resp.Data = formatInfo(f)
		}

	case wire.OpList:
		var users []string
		users, err = ns.ListUsers(req.Filename, req.Username)
		if err == nil {
			resp.Data = strings.Join(users, "\n")
		}

	case wire.OpRecents:
		resp.Data = formatListing(ns.Recents(req.Username), req.Flags&wire.FlagLong != 0)

	case wire.OpCreate:
		err = ns.Create(req.Filename, req.Username)

	case wire.OpDelete:
		err = ns.Delete(req.Filename, req.Username)

	case wire.OpCreateFolder:
		err = ns.CreateFolder(req.Filename)

	case wire.OpViewFolder:
		resp.Data = formatListing(ns.ViewFolder(req.Filename, req.Username), req.Flags&wire.FlagLong != 0)

	case wire.OpMove:
		err = ns.Move(req.Filename, req.Data, req.Username)

	case wire.OpAddAccess:
		access := metadata.ReadAccess
		if req.Flags&wire.FlagAll != 0 {
			access = metadata.WriteAccess
		}
		err = ns.AddAccess(req.Filename, req.Username, req.Data, access)

	case wire.OpRemAccess:
		err = ns.RemoveAccess(req.Filename, req.Username, req.Data)

	case wire.OpReqAccess:
		access := metadata.ReadAccess
		if req.Flags&wire.FlagAll != 0 {
			access = metadata.WriteAccess
		}
		err = ns.RequestAccess(req.Filename, req.Username, access)

	case wire.OpViewRequests:
		var reqs []metadata.PendingRequest
		reqs, err = ns.ViewRequests(req.Filename, req.Username)
		if err == nil {
			resp.Data = formatRequests(reqs)
		}

	case wire.OpApprove:
		err = ns.Approve(req.Filename, req.Username, req.Data)

	case wire.OpDeny:
		err = ns.Deny(req.Filename, req.Username, req.Data)

	case wire.OpRead, wire.OpStream, wire.OpWrite, wire.OpUndo,
		wire.OpCheckpoint, wire.OpViewCheckpoint, wire.OpRevert, wire.OpListCheckpoints:
		write := req.Op == wire.OpWrite
		var ip string
		var port int
		ip, port, err = ns.Locate(req.Filename, req.Username, write)
		if err == nil {
			resp.Data = net.JoinHostPort(ip, itoaPort(port))
		}

	default:
		err = ferrors.InvalidCommandf("unsupported name server operation: " + req.Op.String())
	}

	resp.SetErr(err)
	return resp
}
