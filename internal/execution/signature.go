package execution

import "encoding/base64"

// extractSignature pulls the first signature out of a base64-encoded signed
// Solana transaction. The wire format is a compact-u16 signature count
// followed by 64-byte signatures, then the message. Inputs that do not decode
// as a signed transaction (paper fills, relay echoes) pass through unchanged.
func extractSignature(signedTxB64 string) string {
	raw, err := base64.StdEncoding.DecodeString(signedTxB64)
	if err != nil {
		return signedTxB64
	}
	n, off := shortvecLen(raw)
	if n == 0 || len(raw) < off+64 {
		return signedTxB64
	}
	return base64.StdEncoding.EncodeToString(raw[off : off+64])
}

// shortvecLen decodes the compact-u16 length prefix, returning the value and
// the number of bytes consumed. Returns (0, 0) on malformed input.
func shortvecLen(raw []byte) (int, int) {
	var n, shift int
	for i := 0; i < 3 && i < len(raw); i++ {
		c := raw[i]
		n |= int(c&0x7f) << shift
		if c&0x80 == 0 {
			return n, i + 1
		}
		shift += 7
	}
	return 0, 0
}
