package subtitle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSRTBytes(t *testing.T) {
	data := []byte("1\n00:00:01,000 --> 00:00:02,000\nHello\n\n2\n00:00:03,000 --> 00:00:04,000\nWorld\n")

	file, err := ReadSRTBytes(data, "embedded://sample")
	require.NoError(t, err)
	require.Len(t, file.Captions, 2)
	assert.Equal(t, "Hello", file.Captions[0].Text)
	assert.Equal(t, "World", file.Captions[1].Text)
	assert.Equal(t, "SRT", file.Format)
	assert.Equal(t, "embedded://sample", file.Path)
}

func TestDecode_UTF8WithBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("1\n00:00:01,000 --> 00:00:02,000\nCañón\n")...)

	text, enc, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, EncodingUTF8, enc)
	assert.Equal(t, "1\n00:00:01,000 --> 00:00:02,000\nCañón\n", text)
}

func TestDecode_FallsBackToLatin1(t *testing.T) {
	// "Ca\xf1\xf3n" is "Cañón" in ISO-8859-1 and invalid UTF-8
	data := []byte("1\r\n00:00:01,000 --> 00:00:02,000\r\nCa\xf1\xf3n\r\n")

	text, enc, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, EncodingLatin1, enc)
	assert.Equal(t, "1\n00:00:01,000 --> 00:00:02,000\nCañón\n", text)
}

func TestDecode_NeverFailsOnArbitraryBytes(t *testing.T) {
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}

	text, enc, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, EncodingLatin1, enc)
	assert.NotEmpty(t, text)
}
