// Package wire implements the control-record framing shared by the Name
// Server, Storage Server, and client driver: a 4-byte big-endian length
// prefix followed by one fixed-shape Record. Every peer in the system reads
// and writes frames through ReadFrame/WriteFrame; no component parses the
// wire format any other way.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/marmos91/dfs/pkg/ferrors"
)

// OpCode identifies the operation a Record carries, per the stable
// identifiers of the protocol.
type OpCode uint16

const (
	OpView             OpCode = 1
	OpRead             OpCode = 2
	OpCreate           OpCode = 3
	OpWrite            OpCode = 4
	OpDelete           OpCode = 5
	OpInfo             OpCode = 6
	OpStream           OpCode = 7
	OpList             OpCode = 8
	OpAddAccess        OpCode = 9
	OpRemAccess        OpCode = 10
	OpExec             OpCode = 11
	OpUndo             OpCode = 12
	OpLockSentence     OpCode = 13
	OpUnlockSentence   OpCode = 14
	OpRegisterSS       OpCode = 20
	OpRegisterClient   OpCode = 21
	OpSSAck            OpCode = 22
	OpCreateFolder     OpCode = 23
	OpMove             OpCode = 24
	OpViewFolder       OpCode = 25
	OpCheckpoint       OpCode = 26
	OpViewCheckpoint   OpCode = 27
	OpRevert           OpCode = 28
	OpListCheckpoints  OpCode = 29
	OpReqAccess        OpCode = 30
	OpViewRequests     OpCode = 31
	OpApprove          OpCode = 32
	OpDeny             OpCode = 33
	OpReplCreate       OpCode = 34
	OpReplDelete       OpCode = 35
	OpReplWrite        OpCode = 36
	OpReplMove         OpCode = 37
	OpRecents          OpCode = 38
	OpReplCreateFolder OpCode = 39
)

var opNames = map[OpCode]string{
	OpView: "VIEW", OpRead: "READ", OpCreate: "CREATE", OpWrite: "WRITE",
	OpDelete: "DELETE", OpInfo: "INFO", OpStream: "STREAM", OpList: "LIST",
	OpAddAccess: "ADDACCESS", OpRemAccess: "REMACCESS", OpExec: "EXEC",
	OpUndo: "UNDO", OpLockSentence: "LOCK_SENTENCE", OpUnlockSentence: "UNLOCK_SENTENCE",
	OpRegisterSS: "REGISTER_SS", OpRegisterClient: "REGISTER_CLIENT", OpSSAck: "SS_ACK",
	OpCreateFolder: "CREATEFOLDER", OpMove: "MOVE", OpViewFolder: "VIEWFOLDER",
	OpCheckpoint: "CHECKPOINT", OpViewCheckpoint: "VIEWCHECKPOINT", OpRevert: "REVERT",
	OpListCheckpoints: "LISTCHECKPOINTS", OpReqAccess: "REQACCESS", OpViewRequests: "VIEWREQUESTS",
	OpApprove: "APPROVE", OpDeny: "DENY", OpReplCreate: "REPL_CREATE",
	OpReplDelete: "REPL_DELETE", OpReplWrite: "REPL_WRITE", OpReplMove: "REPL_MOVE",
	OpRecents: "RECENTS", OpReplCreateFolder: "REPL_CREATEFOLDER",
}

func (op OpCode) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("OP(%d)", uint16(op))
}

// Flag bits carried in Record.Flags.
const (
	FlagAll         uint16 = 1 << 0 // -a: include files the user has no access to
	FlagLong        uint16 = 1 << 1 // -l: long listing
	FlagReplication uint16 = 1 << 8 // set on REPL_* hops: do not re-replicate
)

// maxFieldLen bounds any single string field to protect against a corrupt or
// hostile length prefix causing an unbounded allocation.
const maxFieldLen = 16 * 1024 * 1024

// maxFrameLen bounds the whole frame, inline file content included.
const maxFrameLen = 64 * 1024 * 1024

// Record is the fixed-shape control record carried by every frame. Field
// names are semantic; the wire representation is a flat, versionless binary
// layout (no reflection, no schema negotiation).
type Record struct {
	Op        OpCode
	Username  string // requesting user, or "NM" for NS-internal probes
	Filename  string // target filename or folder path
	Data      string // inline payload: content, endpoints, tags, messages
	Sentence  int32  // 0-based sentence index, where applicable
	WordIndex int32  // 1-based word index (reserved)
	Flags     uint16
	ErrCode   ferrors.Code
	ErrMsg    string
}

// Err reconstructs the *ferrors.Error carried by a response record, or nil on
// success.
func (r *Record) Err() error {
	if r.ErrCode == ferrors.Success {
		return nil
	}
	return ferrors.New(r.ErrCode, r.Filename, r.ErrMsg)
}

// SetErr populates ErrCode/ErrMsg from err. A nil err clears both.
func (r *Record) SetErr(err error) {
	if err == nil {
		r.ErrCode = ferrors.Success
		r.ErrMsg = ""
		return
	}
	r.ErrCode = ferrors.CodeOf(err)
	r.ErrMsg = err.Error()
}

// Replicated reports whether this record arrived as a replication fan-out
// (the do-not-refan bit).
func (r *Record) Replicated() bool { return r.Flags&FlagReplication != 0 }

func writeString(buf *[]byte, s string) error {
	if len(s) > maxFieldLen {
		return fmt.Errorf("wire: field too long (%d bytes)", len(s))
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s)))
	*buf = append(*buf, lenBuf[:]...)
	*buf = append(*buf, s...)
	return nil
}

// Encode serializes the record body (without the outer length prefix).
func (r *Record) Encode() ([]byte, error) {
	buf := make([]byte, 0, 128+len(r.Data))
	var hdr [2 + 2 + 4 + 4 + 4]byte
	binary.BigEndian.PutUint16(hdr[0:2], uint16(r.Op))
	binary.BigEndian.PutUint16(hdr[2:4], r.Flags)
	binary.BigEndian.PutUint32(hdr[4:8], uint32(r.Sentence))
	binary.BigEndian.PutUint32(hdr[8:12], uint32(r.WordIndex))
	binary.BigEndian.PutUint32(hdr[12:16], uint32(r.ErrCode))
	buf = append(buf, hdr[:]...)

	for _, s := range []string{r.Username, r.Filename, r.Data, r.ErrMsg} {
		if err := writeString(&buf, s); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func readString(r io.Reader) (string, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxFieldLen {
		return "", fmt.Errorf("wire: field length %d exceeds maximum", n)
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return "", err
	}
	return string(data), nil
}

// Decode deserializes a record body previously produced by Encode.
func Decode(body []byte) (*Record, error) {
	if len(body) < 16 {
		return nil, fmt.Errorf("wire: short record header (%d bytes)", len(body))
	}
	r := &Record{
		Op:       OpCode(binary.BigEndian.Uint16(body[0:2])),
		Flags:    binary.BigEndian.Uint16(body[2:4]),
		Sentence: int32(binary.BigEndian.Uint32(body[4:8])),
		WordIndex: int32(binary.BigEndian.Uint32(body[8:12])),
		ErrCode:  ferrors.Code(binary.BigEndian.Uint32(body[12:16])),
	}
	rest := body[16:]
	reader := &byteReader{b: rest}
	var err error
	if r.Username, err = readString(reader); err != nil {
		return nil, err
	}
	if r.Filename, err = readString(reader); err != nil {
		return nil, err
	}
	if r.Data, err = readString(reader); err != nil {
		return nil, err
	}
	if r.ErrMsg, err = readString(reader); err != nil {
		return nil, err
	}
	return r, nil
}

// byteReader is a tiny io.Reader over an in-memory slice, avoiding a bytes
// import just for sequential Read calls.
type byteReader struct {
	b   []byte
	pos int
}

func (br *byteReader) Read(p []byte) (int, error) {
	if br.pos >= len(br.b) {
		return 0, io.EOF
	}
	n := copy(p, br.b[br.pos:])
	br.pos += n
	return n, nil
}
