package storageserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSentences_TerminatorsAndTrailingFragment(t *testing.T) {
	sentences := parseSentences("Hello world. How are you? Fine!ok")
	assert.Equal(t, []string{"Hello world. ", "How are you? ", "Fine!", "ok"}, sentences)
}

func TestParseSentences_Empty(t *testing.T) {
	assert.Nil(t, parseSentences(""))
}

func TestEndsWithTerminator(t *testing.T) {
	assert.True(t, endsWithTerminator(""))
	assert.True(t, endsWithTerminator("Hi.  "))
	assert.False(t, endsWithTerminator("Hi"))
	assert.True(t, endsWithTerminator("Wait!"))
}

func TestRebuildContent_TrimsAndJoinsWithSingleSpace(t *testing.T) {
	got := rebuildContent([]string{"Hello world. ", "How are you? "})
	assert.Equal(t, "Hello world. How are you?", got)
}
