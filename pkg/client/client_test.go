package client

import (
	"net"
	"testing"
	"time"

	"github.com/marmos91/dfs/pkg/ferrors"
	"github.com/marmos91/dfs/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNS answers REGISTER_CLIENT with OK and WRITE-locate with the given SS
// address, recording every op it receives for assertions.
type fakeNS struct {
	listener  net.Listener
	ssAddr    string
	received  []wire.OpCode
}

func newFakeNS(t *testing.T, ssAddr string) *fakeNS {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	f := &fakeNS{listener: ln, ssAddr: ssAddr}
	go f.serve()
	return f
}

func (f *fakeNS) serve() {
	conn, err := f.listener.Accept()
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		req, err := wire.ReadFrame(conn)
		if err != nil {
			return
		}
		f.received = append(f.received, req.Op)
		resp := &wire.Record{Op: req.Op}
		switch req.Op {
		case wire.OpRegisterClient:
		case wire.OpView:
			resp.Data = "doc.txt\talice\t0"
		case wire.OpWrite, wire.OpRead, wire.OpUndo:
			resp.Data = f.ssAddr
		default:
		}
		_ = wire.WriteFrame(conn, resp)
	}
}

// fakeSS answers LOCK_SENTENCE/WRITE/UNLOCK_SENTENCE/READ with OK, recording
// every op and its Data for assertions.
type fakeSS struct {
	listener net.Listener
	ops      []wire.OpCode
	content  string
}

func newFakeSS(t *testing.T) *fakeSS {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	f := &fakeSS{listener: ln, content: "Hello world."}
	go f.serve()
	return f
}

func (f *fakeSS) serve() {
	for {
		conn, err := f.listener.Accept()
		if err != nil {
			return
		}
		req, err := wire.ReadFrame(conn)
		if err == nil {
			f.ops = append(f.ops, req.Op)
			resp := &wire.Record{Op: req.Op}
			if req.Op == wire.OpRead {
				resp.Data = f.content
			}
			_ = wire.WriteFrame(conn, resp)
		}
		conn.Close()
	}
}

func TestWrite_PerformsFourDistinctPhases(t *testing.T) {
	ss := newFakeSS(t)
	ns := newFakeNS(t, ss.listener.Addr().String())

	c, err := Dial(ns.listener.Addr().String(), "alice", "127.0.0.1", 9999)
	require.NoError(t, err)
	defer c.Close()

	err = c.Write("doc.txt", 0, []WriteLine{{WordIndex: 1, Phrase: "Hello world."}})
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []wire.OpCode{wire.OpLockSentence, wire.OpWrite, wire.OpUnlockSentence}, ss.ops)
	assert.Contains(t, ns.received, wire.OpWrite)
}

func TestRead_LocatesThenReads(t *testing.T) {
	ss := newFakeSS(t)
	ns := newFakeNS(t, ss.listener.Addr().String())

	c, err := Dial(ns.listener.Addr().String(), "alice", "127.0.0.1", 9999)
	require.NoError(t, err)
	defer c.Close()

	content, err := c.Read("doc.txt")
	require.NoError(t, err)
	assert.Equal(t, "Hello world.", content)
}

func TestDial_PropagatesRegistrationFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		req, _ := wire.ReadFrame(conn)
		resp := &wire.Record{Op: req.Op}
		resp.SetErr(ferrors.InvalidCommandf("rejected"))
		_ = wire.WriteFrame(conn, resp)
	}()

	_, err = Dial(ln.Addr().String(), "alice", "127.0.0.1", 1)
	require.Error(t, err)
}
