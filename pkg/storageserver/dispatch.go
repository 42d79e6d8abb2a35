package storageserver

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/marmos91/dfs/pkg/ferrors"
	"github.com/marmos91/dfs/pkg/server"
	"github.com/marmos91/dfs/pkg/wire"
)

// ControlFactory builds connection handlers for the SS's control listener
// (NS and peer SS traffic): CREATE, DELETE, READ, CREATEFOLDER, MOVE,
// SS_ACK, and the REPL_* mutation opcodes.
type ControlFactory struct{ Engine *Engine }

func (f ControlFactory) NewConnection(conn net.Conn) server.ConnectionHandler {
	return controlConn{conn: conn, engine: f.Engine}
}

type controlConn struct {
	conn   net.Conn
	engine *Engine
}

func (c controlConn) Serve(ctx context.Context) {
	defer c.conn.Close()
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
		start := time.Now()
		resp := c.dispatch(req)
		c.engine.logOp(req.Op.String(), req.Filename, req.Username, resp.Err(), start)
		if err := wire.WriteFrame(c.conn, resp); err != nil {
			return
		}
	}
}

func (c controlConn) dispatch(req *wire.Record) *wire.Record {
	resp := &wire.Record{Op: req.Op, Filename: req.Filename}
	replicated := req.Replicated()

	var err error
	switch req.Op {
	case wire.OpCreate, wire.OpReplCreate:
		err = c.engine.Create(req.Filename, replicated)
	case wire.OpDelete, wire.OpReplDelete:
		err = c.engine.Delete(req.Filename, replicated)
	case wire.OpRead:
		var content string
		content, err = c.engine.Read(req.Filename)
		resp.Data = content
	case wire.OpMove:
		err = c.engine.Move(req.Filename, req.Data, replicated)
		resp.Filename = req.Data
	case wire.OpReplMove:
		err = c.engine.Move(req.Filename, req.Data, true)
		resp.Filename = req.Data
	case wire.OpCreateFolder, wire.OpReplCreateFolder:
		err = c.engine.CreateFolder(req.Filename, replicated)
	case wire.OpReplWrite:
		err = c.engine.ApplyReplicatedWrite(req.Filename, req.Data)
	case wire.OpSSAck:
		c.engine.SetPartner(req.Data)
	default:
		err = ferrors.InvalidCommandf("unsupported control operation: " + req.Op.String())
	}

	resp.SetErr(err)
	return resp
}

// ClientFactory builds connection handlers for the SS's client listener:
// READ, WRITE, STREAM, UNDO, LOCK_SENTENCE, UNLOCK_SENTENCE, and the
// checkpoint verbs. On connection close, any locks the session holds are
// released (§5 Cancellation).
type ClientFactory struct{ Engine *Engine }

func (f ClientFactory) NewConnection(conn net.Conn) server.ConnectionHandler {
	return clientConn{conn: conn, engine: f.Engine}
}

type clientConn struct {
	conn   net.Conn
	engine *Engine
}

func (c clientConn) Serve(ctx context.Context) {
	var username string
	defer func() {
		c.conn.Close()
		if username != "" {
			c.engine.ReleaseSession(username)
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
		if req.Username != "" {
			username = req.Username
		}

		start := time.Now()
		if req.Op == wire.OpStream {
			c.serveStream(req)
			c.engine.logOp(req.Op.String(), req.Filename, req.Username, nil, start)
			continue
		}

		resp := c.dispatch(req)
		c.engine.logOp(req.Op.String(), req.Filename, req.Username, resp.Err(), start)
		if err := wire.WriteFrame(c.conn, resp); err != nil {
			return
		}
	}
}

func (c clientConn) dispatch(req *wire.Record) *wire.Record {
	resp := &wire.Record{Op: req.Op, Filename: req.Filename}

	var err error
	switch req.Op {
	case wire.OpRead:
		var content string
		content, err = c.engine.Read(req.Filename)
		resp.Data = content
	case wire.OpWrite:
		err = c.engine.Write(req.Filename, req.Sentence, req.Username, req.Data)
	case wire.OpUndo:
		err = c.engine.Undo(req.Filename)
	case wire.OpLockSentence:
		err = c.engine.LockSentence(req.Filename, req.Sentence, req.Username)
	case wire.OpUnlockSentence:
		err = c.engine.UnlockSentence(req.Filename, req.Sentence, req.Username)
	case wire.OpCheckpoint:
		err = c.engine.Checkpoint(req.Filename, req.Data)
	case wire.OpViewCheckpoint:
		var content string
		content, err = c.engine.ViewCheckpoint(req.Filename, req.Data)
		resp.Data = content
	case wire.OpRevert:
		err = c.engine.Revert(req.Filename, req.Data)
	case wire.OpListCheckpoints:
		var tags []string
		tags, err = c.engine.ListCheckpoints(req.Filename)
		resp.Data = strings.Join(tags, "\n")
	default:
		err = ferrors.InvalidCommandf("unsupported client operation: " + req.Op.String())
	}

	resp.SetErr(err)
	return resp
}

func (c clientConn) serveStream(req *wire.Record) {
	_ = c.engine.Stream(req.Filename, func(word string) error {
		return wire.WriteFrame(c.conn, &wire.Record{Op: wire.OpStream, Filename: req.Filename, Data: word})
	})
}
