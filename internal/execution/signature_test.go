package execution

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractSignatureFromSignedTransaction(t *testing.T) {
	sig := bytes.Repeat([]byte{0xab}, 64)
	message := []byte("compiled message bytes")
	tx := append([]byte{1}, sig...)
	tx = append(tx, message...)

	got := extractSignature(base64.StdEncoding.EncodeToString(tx))

	assert.Equal(t, base64.StdEncoding.EncodeToString(sig), got)
}

func TestExtractSignatureTakesFirstOfMany(t *testing.T) {
	first := bytes.Repeat([]byte{0x01}, 64)
	second := bytes.Repeat([]byte{0x02}, 64)
	tx := append([]byte{2}, first...)
	tx = append(tx, second...)
	tx = append(tx, []byte("msg")...)

	got := extractSignature(base64.StdEncoding.EncodeToString(tx))

	assert.Equal(t, base64.StdEncoding.EncodeToString(first), got)
}

func TestExtractSignaturePassesThroughNonTransactions(t *testing.T) {
	// Paper fills carry a synthetic marker that is not valid base64.
	assert.Equal(t, "papersig:abc123", extractSignature("papersig:abc123"))

	// Valid base64 that is too short to hold a signature.
	short := base64.StdEncoding.EncodeToString([]byte{1, 2, 3})
	assert.Equal(t, short, extractSignature(short))

	// Zero signature count.
	empty := base64.StdEncoding.EncodeToString(append([]byte{0}, bytes.Repeat([]byte{0}, 64)...))
	assert.Equal(t, empty, extractSignature(empty))
}
