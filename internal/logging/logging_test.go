package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	jww "github.com/spf13/jwalterweatherman"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTail_Lines(t *testing.T) {
	tail, err := NewTail(jww.LevelInfo, 1024)
	require.NoError(t, err)
	assert.Nil(t, tail.Lines(10))

	for i := 0; i < 5; i++ {
		fmt.Fprintf(tail, "line %d\n", i)
	}

	assert.Equal(t, []string{"line 0", "line 1", "line 2", "line 3", "line 4"}, tail.Lines(0))
	assert.Equal(t, []string{"line 3", "line 4"}, tail.Lines(2))
}

// Tests that once the buffer wraps, the possibly cut first line is dropped
// and only the newest output is kept.
func TestTail_Wraps(t *testing.T) {
	tail, err := NewTail(jww.LevelInfo, 32)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		fmt.Fprintf(tail, "entry %02d\n", i)
	}

	lines := tail.Lines(0)
	require.NotEmpty(t, lines)
	assert.Equal(t, "entry 19", lines[len(lines)-1])
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "entry "), "cut line kept: %q", line)
	}
}

func TestTail_Listen(t *testing.T) {
	tail, err := NewTail(jww.LevelWarn, 64)
	require.NoError(t, err)

	if w := tail.Listen(jww.LevelInfo); w != nil {
		t.Errorf("Expected no writer below threshold, received %v", w)
	}
	if w := tail.Listen(jww.LevelError); w == nil {
		t.Error("Expected a writer at or above threshold")
	}
}

func TestParseThreshold(t *testing.T) {
	for level := 0; level <= 6; level++ {
		threshold, err := ParseThreshold(level)
		require.NoError(t, err)
		assert.Equal(t, jww.Threshold(level), threshold)
	}
	for _, level := range []int{-1, 7, 100} {
		_, err := ParseThreshold(level)
		assert.Error(t, err, "level %d", level)
	}
}

func TestInit_LogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "parley.log")
	tail, closer, err := Init(2, path, 4096)
	require.NoError(t, err)
	defer closer.Close()

	jww.WARN.Printf("something to find")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "something to find")

	found := false
	for _, line := range tail.Lines(0) {
		if strings.Contains(line, "something to find") {
			found = true
		}
	}
	assert.True(t, found, "log line missing from tail")
}

func TestInit_InvalidLevel(t *testing.T) {
	_, _, err := Init(12, "", 1024)
	assert.Error(t, err)
}
