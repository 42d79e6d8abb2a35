package storageserver

import (
	"strings"
	"time"

	"github.com/marmos91/dfs/pkg/ferrors"
)

// Stream sends each whitespace-delimited word of filename's content to send,
// spaced by the configured word delay, followed by a final "STOP" sentinel
// (§4.2 STREAM). The STREAM word-by-word drip itself is a trivial interface
// per scope (§1); the content source and pacing are the only parts owned
// here.
func (e *Engine) Stream(filename string, send func(word string) error) error {
	content, err := e.Read(filename)
	if err != nil {
		return err
	}

	for _, word := range strings.Fields(content) {
		if err := send(word); err != nil {
			return ferrors.ServerErrorf(filename, err)
		}
		time.Sleep(e.cfg.StreamWordDelay)
	}
	return send("STOP")
}
