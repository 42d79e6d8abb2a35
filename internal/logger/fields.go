package logger

import (
	"log/slog"
)

// Standard field keys for structured logging. Use these consistently across
// NS and SS log statements so log aggregation queries stay stable.
const (
	KeyOp        = "op"         // operation name: CREATE, WRITE, LOCK_SENTENCE, ...
	KeyUsername  = "username"   // requesting user, or "NM" for internal probes
	KeyFilename  = "filename"   // target filename/path
	KeyOldPath   = "old_path"   // source path for MOVE
	KeyNewPath   = "new_path"   // destination path for MOVE
	KeySentence  = "sentence"   // 0-based sentence index
	KeySSID      = "ss_id"      // storage server identifier
	KeyClientIP  = "client_ip"  // client IP address
	KeyErrorCode = "error_code" // numeric error code from the wire protocol
	KeyError     = "error"      // Go error message
	KeyDuration  = "duration_ms"
	KeyReplica   = "replica" // true when this is a fan-out/replication hop
	KeyBytes     = "bytes"
	KeyTag       = "tag" // checkpoint tag
)

func Op(name string) slog.Attr       { return slog.String(KeyOp, name) }
func Username(name string) slog.Attr { return slog.String(KeyUsername, name) }
func Filename(name string) slog.Attr { return slog.String(KeyFilename, name) }
func OldPath(p string) slog.Attr     { return slog.String(KeyOldPath, p) }
func NewPath(p string) slog.Attr     { return slog.String(KeyNewPath, p) }
func Sentence(idx int) slog.Attr     { return slog.Int(KeySentence, idx) }
func SSID(id string) slog.Attr       { return slog.String(KeySSID, id) }
func ClientIP(addr string) slog.Attr { return slog.String(KeyClientIP, addr) }
func ErrorCode(code int) slog.Attr   { return slog.Int(KeyErrorCode, code) }
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDuration, ms)
}
func Replica(r bool) slog.Attr { return slog.Bool(KeyReplica, r) }
func Bytes(n int) slog.Attr    { return slog.Int(KeyBytes, n) }
func Tag(tag string) slog.Attr { return slog.String(KeyTag, tag) }

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
