package crypto

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// CodeAlphabet omits characters that are easy to misread (0/O, 1/I/L).
const CodeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// GenerateCode returns a random code of length characters drawn from CodeAlphabet.
func GenerateCode(length int) (string, error) {
	max := big.NewInt(int64(len(CodeAlphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random index: %w", err)
		}
		out[i] = CodeAlphabet[n.Int64()]
	}
	return string(out), nil
}
