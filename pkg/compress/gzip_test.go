package compress_test

import (
	"bytes"
	"crypto/rand"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"yukifiles/pkg/compress"
)

func TestRoundTrip(t *testing.T) {
	cases := [][]byte{
		[]byte(""),
		[]byte("hello"),
		bytes.Repeat([]byte("yukifiles "), 10_000),
	}

	for _, in := range cases {
		enc, err := compress.Encode(in)
		assert.NoError(t, err)

		dec, err := compress.Decode(enc)
		assert.NoError(t, err)
		assert.Equal(t, in, dec)
	}
}

func TestRoundTripRandom(t *testing.T) {
	in := make([]byte, 1<<16)
	_, err := rand.Read(in)
	assert.NoError(t, err)

	enc, err := compress.Encode(in)
	assert.NoError(t, err)

	dec, err := compress.Decode(enc)
	assert.NoError(t, err)
	assert.Equal(t, in, dec)
}

func TestCompressesRepetitiveInput(t *testing.T) {
	in := bytes.Repeat([]byte("a"), 1<<20)
	enc, err := compress.Encode(in)
	assert.NoError(t, err)
	assert.Less(t, len(enc), len(in))
}

func TestDecodeGarbage(t *testing.T) {
	_, err := compress.Decode([]byte("definitely not gzip"))
	assert.Error(t, err)
}

func TestNewReader(t *testing.T) {
	enc, err := compress.Encode([]byte("streamed content"))
	assert.NoError(t, err)

	r, err := compress.NewReader(bytes.NewReader(enc))
	assert.NoError(t, err)
	defer r.Close()

	out, err := io.ReadAll(r)
	assert.NoError(t, err)
	assert.Equal(t, []byte("streamed content"), out)
}
