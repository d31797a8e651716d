package avatar

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1x1 透明 PNG
var tinyPNG, _ = base64.StdEncoding.DecodeString("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")

func TestEncode_PNG(t *testing.T) {
	uri, err := Encode(bytes.NewReader(tinyPNG))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/png;base64,"))
	require.NoError(t, err)
	assert.Equal(t, tinyPNG, raw)
}

func TestEncode_RejectsNonImage(t *testing.T) {
	_, err := Encode(strings.NewReader("just some text, not a picture"))
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestEncode_RejectsOversize(t *testing.T) {
	big := append(append([]byte{}, tinyPNG...), make([]byte, MaxSize)...)
	_, err := Encode(bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	// 扩展名不影响识别
	p := filepath.Join(dir, "me.txt")
	require.NoError(t, os.WriteFile(p, tinyPNG, 0o644))
	uri, err := FromFile(p)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))

	big := filepath.Join(dir, "big.png")
	require.NoError(t, os.WriteFile(big, make([]byte, MaxSize+1), 0o644))
	_, err = FromFile(big)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = FromFile(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}
