// Package digest computes the request signatures sent to the checkout service.
package digest

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// Digester turns a signing input (payload followed by the shared secret) into
// the digest placed in the Authorization header.
type Digester interface {
	CreateDigest(input string) string
}

// SHA256 is the default checkout digest: base64(sha256(input)).
type SHA256 struct{}

// CreateDigest implements Digester.
func (SHA256) CreateDigest(input string) string {
	sum := sha256.Sum256([]byte(input))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// HMACSHA256 keys the digest with Key instead of relying on the secret being
// appended to the input.
type HMACSHA256 struct {
	Key []byte
}

// CreateDigest implements Digester.
func (h HMACSHA256) CreateDigest(input string) string {
	mac := hmac.New(sha256.New, h.Key)
	mac.Write([]byte(input))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the digest of input and compares it with presented in
// constant time.
func Verify(d Digester, input, presented string) bool {
	if d == nil {
		return false
	}
	expected := d.CreateDigest(input)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) == 1
}
