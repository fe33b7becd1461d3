// Package cryptox holds the password hashing used by registration and login.
// The password never leaves the client: it is stretched with argon2id against
// a per-user salt and only the sha256 of the result (the verifier) is sent.
package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	KeyLength    = 32
)

// DeriveMasterKey stretches the password with argon2id.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, KeyLength)
}

// MakeVerifier returns the value stored by the server for a master key.
func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}

// VerifierFor is DeriveMasterKey followed by MakeVerifier; the
// intermediate key is wiped before returning.
func VerifierFor(password []byte, salt []byte) []byte {
	key := DeriveMasterKey(password, salt)
	defer wipe(key)
	return MakeVerifier(key)
}

// EqualVerifiers compares two verifiers in constant time.
func EqualVerifiers(a, b []byte) bool {
	return len(a) > 0 && subtle.ConstantTimeCompare(a, b) == 1
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
