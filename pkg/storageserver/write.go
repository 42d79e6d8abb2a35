package storageserver

import (
	"os"
	"strconv"
	"strings"

	"github.com/marmos91/dfs/pkg/ferrors"
	"github.com/marmos91/dfs/pkg/wire"
)

// Write applies a token-insertion edit to one sentence of filename (§4.2
// WRITE). Requires a lock on idx held by user. data is one or more lines of
// "<word_index> <phrase>"; each phrase is inserted as a single token at
// word_index-1 in the target sentence's current token list, observing the
// growing token count across lines within the same call.
//
// The pre-write content is always snapshotted into the undo slot before any
// line is applied, including when a later line fails validation — this
// mirrors an intentionally preserved quirk of the source rather than an
// oversight (see design notes).
func (e *Engine) Write(filename string, idx int32, user, data string) error {
	mu := e.fileLock(filename)
	mu.Lock()
	defer mu.Unlock()

	if !e.locks.HeldBy(filename, idx, user) {
		return ferrors.SentenceLockedf(filename, int(idx))
	}

	path, err := sanitize(e.cfg.StorageRoot, filename)
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ferrors.NotFoundf(filename)
	}
	if err != nil {
		return ferrors.ServerErrorf(filename, err)
	}
	content := string(raw)

	e.undoMu.Lock()
	e.undo[filename] = content
	e.undoMu.Unlock()

	sentences := parseSentences(content)
	n := int32(len(sentences))
	if idx < 0 || idx > n {
		return ferrors.InvalidIndexf(filename, "index out of range")
	}
	if idx == n {
		sentences = append(sentences, "")
	}

	toks := tokens(strings.TrimRight(sentences[idx], " \t\r\n"))

	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		wordIdx, phrase, err := parseWriteLine(line)
		if err != nil {
			return err
		}
		if wordIdx < 1 || wordIdx > len(toks)+1 {
			return ferrors.InvalidIndexf(filename, "word index out of range")
		}
		pos := wordIdx - 1
		toks = append(toks, "")
		copy(toks[pos+1:], toks[pos:])
		toks[pos] = phrase
	}

	sentences[idx] = joinTokens(toks)

	newContent := rebuildContent(sentences)
	if err := atomicWriteFile(path, newContent); err != nil {
		return ferrors.ServerErrorf(filename, err)
	}

	e.replicate(wire.OpReplWrite, filename, newContent)
	return nil
}

// parseWriteLine splits "<word_index> <phrase>" into its parts.
func parseWriteLine(line string) (int, string, error) {
	sp := strings.IndexByte(line, ' ')
	if sp < 0 {
		return 0, "", ferrors.InvalidCommandf("write line missing phrase: " + line)
	}
	idxPart := line[:sp]
	phrase := strings.TrimSpace(line[sp+1:])
	n, err := strconv.Atoi(idxPart)
	if err != nil {
		return 0, "", ferrors.InvalidCommandf("write line has non-numeric word index: " + idxPart)
	}
	return n, phrase, nil
}

// rebuildContent joins sentences with single spaces, trimming each
// sentence's own trailing whitespace first (§4.2's rebuild rule).
func rebuildContent(sentences []string) string {
	trimmed := make([]string, len(sentences))
	for i, s := range sentences {
		trimmed[i] = strings.TrimRight(s, " \t\r\n")
	}
	return joinSentences(trimmed)
}

// ApplyReplicatedWrite overwrites filename's content verbatim, used when
// receiving a REPL_WRITE from the primary (or a primary-resync push). It
// never fans out further — the incoming record already carries the
// do-not-refan bit.
func (e *Engine) ApplyReplicatedWrite(filename, content string) error {
	mu := e.fileLock(filename)
	mu.Lock()
	defer mu.Unlock()

	path, err := sanitize(e.cfg.StorageRoot, filename)
	if err != nil {
		return err
	}
	if err := atomicWriteFile(path, content); err != nil {
		return ferrors.ServerErrorf(filename, err)
	}
	return nil
}

func atomicWriteFile(path, content string) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
