package cooperado

import (
	"crypto/rand"
	"math/big"
)

const (
	tempPasswordLen     = 8
	tempPasswordCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateTempPassword returns a random 8-character temporary password drawn
// from A-Z0-9. Each character is sampled without modulo bias.
func GenerateTempPassword() (string, error) {
	max := big.NewInt(int64(len(tempPasswordCharset)))
	pwd := make([]byte, tempPasswordLen)
	for i := range pwd {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		pwd[i] = tempPasswordCharset[n.Int64()]
	}
	return string(pwd), nil
}
