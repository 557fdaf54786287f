package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/audiokeeper/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

// Digests use the modular crypt layout
//
//	$pbkdf2-sha256$<rounds>$<salt>$<checksum>
//
// with salt and checksum in "adapted base64" (unpadded, '.' instead of '+').
const (
	pbkdf2Ident  = "pbkdf2-sha256"
	pbkdf2Rounds = 29000
	saltSize     = 16
	keySize      = 32
)

// ErrCorruptDigest is returned for digests that claim the pbkdf2-sha256
// scheme but cannot be decoded.
var ErrCorruptDigest = errors.New("corrupt password digest")

var ab64 = base64.RawStdEncoding

func ab64Encode(b []byte) string {
	return strings.ReplaceAll(ab64.EncodeToString(b), "+", ".")
}

func ab64Decode(s string) ([]byte, error) {
	return ab64.DecodeString(strings.ReplaceAll(s, ".", "+"))
}

// HashPassword returns a salted digest of password.
func HashPassword(password string) (string, error) {
	salt := common.GenerateRandByteArray(saltSize)
	return encodeDigest(password, salt, pbkdf2Rounds), nil
}

func encodeDigest(password string, salt []byte, rounds int) string {
	key := pbkdf2.Key([]byte(password), salt, rounds, keySize, sha256.New)
	return fmt.Sprintf("$%s$%d$%s$%s", pbkdf2Ident, rounds, ab64Encode(salt), ab64Encode(key))
}

// VerifyPassword checks password against digest in constant time.
// Digests of another scheme never match.
func VerifyPassword(password, digest string) (bool, error) {
	parts := strings.Split(digest, "$")
	if len(parts) != 5 || parts[0] != "" || parts[1] != pbkdf2Ident {
		return false, nil
	}

	rounds, err := strconv.Atoi(parts[2])
	if err != nil || rounds <= 0 {
		return false, fmt.Errorf("%w: rounds %q", ErrCorruptDigest, parts[2])
	}

	salt, err := ab64Decode(parts[3])
	if err != nil {
		return false, fmt.Errorf("%w: salt: %v", ErrCorruptDigest, err)
	}

	want, err := ab64Decode(parts[4])
	if err != nil || len(want) == 0 {
		return false, fmt.Errorf("%w: checksum", ErrCorruptDigest)
	}

	got := pbkdf2.Key([]byte(password), salt, rounds, len(want), sha256.New)
	defer common.WipeByteArray(got)

	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
