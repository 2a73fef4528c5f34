// Package code issues and verifies the single-use verification codes that
// gate link approval. Only a salted hash is ever stored; the plaintext
// exists once, in the return value of Generate.
package code

import (
	"crypto/rand"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Alphabet excludes the lookalike characters 0/O, 1/I/L so a guardian can
// read the code out loud without ambiguity.
const Alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// Length is the number of characters in a verification code.
const Length = 6

// uniformLimit rejects the tail of the byte range that would bias the draw,
// since 256 is not a multiple of len(Alphabet).
const uniformLimit = 256 - 256%len(Alphabet)

// Generate returns a fresh plaintext code and its bcrypt hash. The caller
// stores the hash and relays the plaintext out-of-band; it is never
// persisted or logged.
func Generate() (plaintext string, hash []byte, err error) {
	chars := make([]byte, Length)
	for i := 0; i < Length; {
		var b [1]byte
		if _, err := rand.Read(b[:]); err != nil {
			return "", nil, err
		}
		if int(b[0]) >= uniformLimit {
			continue
		}
		chars[i] = Alphabet[int(b[0])%len(Alphabet)]
		i++
	}
	plaintext = string(chars)

	hash, err = bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}
	return plaintext, hash, nil
}

// Verify compares a candidate against the stored hash. bcrypt's comparison
// is constant-time. A nil hash (already consumed) never matches; callers
// cannot tell a consumed code from a wrong one.
func Verify(hash []byte, candidate string) bool {
	if len(hash) == 0 {
		return false
	}
	candidate = strings.ToUpper(strings.TrimSpace(candidate))
	return bcrypt.CompareHashAndPassword(hash, []byte(candidate)) == nil
}
