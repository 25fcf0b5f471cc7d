package registry

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var codePattern = regexp.MustCompile(`^[A-Za-z0-9]{1,20}$`)

var alphabetLen = big.NewInt(int64(len(codeAlphabet)))

// randomCode draws n characters uniformly over the 62-character alphabet.
func randomCode(n int) (string, error) {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[idx.Int64()])
	}
	return b.String(), nil
}
