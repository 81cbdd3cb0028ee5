package auth

import (
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

func derive(password, salt string, rounds int) []byte {
	return pbkdf2.Key([]byte(password), []byte(salt), rounds, keyLength, sha256.New)
}
