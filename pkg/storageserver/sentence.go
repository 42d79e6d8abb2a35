package storageserver

import "strings"

// isTerminator reports whether b ends a sentence (§3 Sentence model).
func isTerminator(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

// parseSentences splits content into sentences terminated by '.', '!', or
// '?'. The terminator is part of the sentence, and any trailing whitespace up
// to the next non-space character is absorbed into it so that rejoining with
// single spaces is faithful to the original spacing. A trailing fragment with
// no terminator is the final sentence.
func parseSentences(content string) []string {
	if content == "" {
		return nil
	}

	var sentences []string
	start := 0
	i := 0
	for i < len(content) {
		if isTerminator(content[i]) {
			end := i + 1
			for end < len(content) && strings.IndexByte(" \t\r\n", content[end]) >= 0 {
				end++
			}
			sentences = append(sentences, content[start:end])
			start = end
			i = end
			continue
		}
		i++
	}
	if start < len(content) {
		sentences = append(sentences, content[start:])
	}
	return sentences
}

// endsWithTerminator reports whether content, ignoring trailing whitespace,
// ends with a sentence delimiter. Used to decide whether a new-sentence lock
// (idx == N) may be granted.
func endsWithTerminator(content string) bool {
	trimmed := strings.TrimRight(content, " \t\r\n")
	if trimmed == "" {
		return true // empty file: a new sentence may always be started
	}
	return isTerminator(trimmed[len(trimmed)-1])
}

// joinSentences rejoins a sentence list with single spaces, matching the
// file-level rebuild rule in WRITE (§4.2).
func joinSentences(sentences []string) string {
	return strings.Join(sentences, " ")
}

// tokens splits a sentence into whitespace-delimited word tokens.
func tokens(sentence string) []string {
	return strings.Fields(sentence)
}

// joinTokens rejoins a sentence's tokens with single spaces.
func joinTokens(toks []string) string {
	return strings.Join(toks, " ")
}
