package platform

import (
	"crypto/rand"
	"math/big"
)

const sessionIDDigits = "123456789"

// RandomSessionID returns a short digit string used to pin a proxy session
// to a single upstream edge node across the several calls one credential
// acquisition or search attempt makes.
func RandomSessionID() string {
	out := make([]byte, 5)
	for i := range out {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(sessionIDDigits))))
		if err != nil {
			out[i] = sessionIDDigits[0]
			continue
		}
		out[i] = sessionIDDigits[n.Int64()]
	}
	return string(out)
}
