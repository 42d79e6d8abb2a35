package client

import (
	"fmt"

	"github.com/marmos91/dfs/pkg/wire"
)

// WriteLine is one `<word_index> <phrase>` insertion line of a WRITE.
type WriteLine struct {
	WordIndex int32
	Phrase    string
}

// Read locates filename's SS and reads its content.
func (c *Client) Read(filename string) (string, error) {
	ip, port, err := c.locate(wire.OpRead, filename)
	if err != nil {
		return "", err
	}
	conn, err := c.dialSS(ip, port)
	if err != nil {
		return "", fmt.Errorf("client: dial storage server: %w", err)
	}
	defer conn.Close()

	resp, err := c.roundTrip(conn, &wire.Record{Op: wire.OpRead, Username: c.username, Filename: filename})
	if err != nil {
		return "", err
	}
	return resp.Data, resp.Err()
}

// Stream locates filename's SS and delivers each streamed word to onWord
// until the "STOP" sentinel arrives or onWord returns false.
func (c *Client) Stream(filename string, onWord func(word string) bool) error {
	ip, port, err := c.locate(wire.OpStream, filename)
	if err != nil {
		return err
	}
	conn, err := c.dialSS(ip, port)
	if err != nil {
		return fmt.Errorf("client: dial storage server: %w", err)
	}
	defer conn.Close()

	if err := wire.WriteFrame(conn, &wire.Record{Op: wire.OpStream, Username: c.username, Filename: filename}); err != nil {
		return fmt.Errorf("client: send STREAM: %w", err)
	}
	for {
		frame, err := wire.ReadFrame(conn)
		if err != nil {
			return fmt.Errorf("client: receive stream frame: %w", err)
		}
		if frame.Data == "STOP" {
			return nil
		}
		if !onWord(frame.Data) {
			return nil
		}
	}
}

// Write performs the explicit four-phase WRITE of §4.3: NS locate, then
// three independent short-lived SS connections for LOCK_SENTENCE, WRITE,
// and UNLOCK_SENTENCE.
func (c *Client) Write(filename string, sentence int32, lines []WriteLine) error {
	ip, port, err := c.locate(wire.OpWrite, filename)
	if err != nil {
		return err
	}

	if err := c.lockSentence(ip, port, filename, sentence); err != nil {
		return err
	}

	data := ""
	for i, l := range lines {
		if i > 0 {
			data += "\n"
		}
		data += fmt.Sprintf("%d %s", l.WordIndex, l.Phrase)
	}
	writeErr := c.sendToSS(ip, port, &wire.Record{
		Op: wire.OpWrite, Username: c.username, Filename: filename, Sentence: sentence, Data: data,
	})

	if err := c.unlockSentence(ip, port, filename, sentence); err != nil && writeErr == nil {
		return err
	}
	return writeErr
}

func (c *Client) lockSentence(ip string, port int, filename string, sentence int32) error {
	return c.sendToSS(ip, port, &wire.Record{Op: wire.OpLockSentence, Username: c.username, Filename: filename, Sentence: sentence})
}

func (c *Client) unlockSentence(ip string, port int, filename string, sentence int32) error {
	return c.sendToSS(ip, port, &wire.Record{Op: wire.OpUnlockSentence, Username: c.username, Filename: filename, Sentence: sentence})
}

// sendToSS opens one connection, sends req, and returns the response error
// (if any) — the per-phase connection pattern of §4.3.
func (c *Client) sendToSS(ip string, port int, req *wire.Record) error {
	conn, err := c.dialSS(ip, port)
	if err != nil {
		return fmt.Errorf("client: dial storage server: %w", err)
	}
	defer conn.Close()

	resp, err := c.roundTrip(conn, req)
	if err != nil {
		return err
	}
	return resp.Err()
}

// Undo reverts filename's single undo slot.
func (c *Client) Undo(filename string) error {
	ip, port, err := c.locate(wire.OpUndo, filename)
	if err != nil {
		return err
	}
	return c.sendToSS(ip, port, &wire.Record{Op: wire.OpUndo, Username: c.username, Filename: filename})
}

// Checkpoint snapshots filename's current content under tag.
func (c *Client) Checkpoint(filename, tag string) error {
	ip, port, err := c.locate(wire.OpCheckpoint, filename)
	if err != nil {
		return err
	}
	return c.sendToSS(ip, port, &wire.Record{Op: wire.OpCheckpoint, Username: c.username, Filename: filename, Data: tag})
}

// ViewCheckpoint returns the content of a named checkpoint.
func (c *Client) ViewCheckpoint(filename, tag string) (string, error) {
	ip, port, err := c.locate(wire.OpViewCheckpoint, filename)
	if err != nil {
		return "", err
	}
	conn, err := c.dialSS(ip, port)
	if err != nil {
		return "", fmt.Errorf("client: dial storage server: %w", err)
	}
	defer conn.Close()
	resp, err := c.roundTrip(conn, &wire.Record{Op: wire.OpViewCheckpoint, Username: c.username, Filename: filename, Data: tag})
	if err != nil {
		return "", err
	}
	return resp.Data, resp.Err()
}

// Revert overwrites filename's current content from a named checkpoint.
func (c *Client) Revert(filename, tag string) error {
	ip, port, err := c.locate(wire.OpRevert, filename)
	if err != nil {
		return err
	}
	return c.sendToSS(ip, port, &wire.Record{Op: wire.OpRevert, Username: c.username, Filename: filename, Data: tag})
}

// ListCheckpoints returns the checkpoint tags recorded for filename.
func (c *Client) ListCheckpoints(filename string) (string, error) {
	ip, port, err := c.locate(wire.OpListCheckpoints, filename)
	if err != nil {
		return "", err
	}
	conn, err := c.dialSS(ip, port)
	if err != nil {
		return "", fmt.Errorf("client: dial storage server: %w", err)
	}
	defer conn.Close()
	resp, err := c.roundTrip(conn, &wire.Record{Op: wire.OpListCheckpoints, Username: c.username, Filename: filename})
	if err != nil {
		return "", err
	}
	return resp.Data, resp.Err()
}
