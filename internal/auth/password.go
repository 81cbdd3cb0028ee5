package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Scheme = "pbkdf2-sha256"
	pbkdf2Rounds = 29000
	saltLength   = 16
	keyLength    = 32
)

// ab64 is the passlib variant of base64: '.' instead of '+', no padding.
var ab64 = base64.NewEncoding("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789./").WithPadding(base64.NoPadding)

var errMalformedHash = errors.New("malformed password hash")

// HashPassword hashes with the current default scheme:
// $pbkdf2-sha256$<rounds>$<salt>$<checksum>.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	sum := pbkdf2.Key([]byte(password), salt, pbkdf2Rounds, keyLength, sha256.New)
	return fmt.Sprintf("$%s$%d$%s$%s", pbkdf2Scheme, pbkdf2Rounds, ab64.EncodeToString(salt), ab64.EncodeToString(sum)), nil
}

// VerifyPassword accepts pbkdf2-sha256 and legacy bcrypt hashes.
func VerifyPassword(password, hash string) bool {
	switch {
	case isBcrypt(hash):
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	case strings.HasPrefix(hash, "$"+pbkdf2Scheme+"$"):
		rounds, salt, sum, err := parsePBKDF2(hash)
		if err != nil {
			burnPBKDF2(password)
			return false
		}
		got := pbkdf2.Key([]byte(password), salt, rounds, len(sum), sha256.New)
		return subtle.ConstantTimeCompare(got, sum) == 1
	default:
		// Same work as a wrong password so unknown schemes are not observable.
		burnPBKDF2(password)
		return false
	}
}

// NeedsRehash reports whether hash should be replaced with a fresh
// HashPassword result after a successful verification.
func NeedsRehash(hash string) bool {
	if isBcrypt(hash) {
		return true
	}
	rounds, _, sum, err := parsePBKDF2(hash)
	if err != nil {
		return true
	}
	return rounds < pbkdf2Rounds || len(sum) < keyLength
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}

func parsePBKDF2(hash string) (int, []byte, []byte, error) {
	parts := strings.Split(hash, "$")
	if len(parts) != 5 || parts[0] != "" || parts[1] != pbkdf2Scheme {
		return 0, nil, nil, errMalformedHash
	}
	rounds, err := strconv.Atoi(parts[2])
	if err != nil || rounds <= 0 {
		return 0, nil, nil, errMalformedHash
	}
	salt, err := ab64.DecodeString(parts[3])
	if err != nil {
		return 0, nil, nil, errMalformedHash
	}
	sum, err := ab64.DecodeString(parts[4])
	if err != nil || len(sum) == 0 {
		return 0, nil, nil, errMalformedHash
	}
	return rounds, salt, sum, nil
}

var burnSalt = make([]byte, saltLength)

func burnPBKDF2(password string) {
	_ = pbkdf2.Key([]byte(password), burnSalt, pbkdf2Rounds, keyLength, sha256.New)
}
