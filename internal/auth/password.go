package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ArgonParams defines the cost of the Argon2id hashing algorithm.
// Higher values make every hash (and every brute-force guess) more expensive.
// - Memory:      The amount of memory used by the algorithm (in KiB).
// - Iterations:  The number of passes over the memory.
// - Parallelism: The number of threads used by the algorithm.
// - SaltLength:  The length of the random salt in bytes.
// - KeyLength:   The length of the derived key in bytes.
type ArgonParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams is used by HashPassword for new hashes.
// Every stored hash records the parameters it was made with, so these values can be
// raised later without invalidating credentials that are already in the database.
// Tests lower them to keep the suite fast.
var DefaultParams = ArgonParams{
	Memory:      64 * 1024, // 64 MB
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

var errInvalidHash = errors.New("invalid stored hash format")

// HashPassword takes a plain-text password and returns an encoded Argon2id hash
// made with DefaultParams. The result holds the algorithm version, the parameters,
// the salt and the derived key in one string that fits a single database column.
func HashPassword(password string) (string, error) {
	return HashPasswordWithParams(password, DefaultParams)
}

// HashPasswordWithParams is HashPassword with explicit cost parameters.
func HashPasswordWithParams(password string, p ArgonParams) (string, error) {
	// 1. Generate a cryptographically secure random salt.
	// A fresh salt per hash means two users with the same password get different hashes.
	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	// 2. Derive the key with Argon2id.
	key := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)

	// 3. Encode salt and key as unpadded Base64 and format the final string.
	// Format: $argon2id$v=19$m=<memory>,t=<iterations>,p=<parallelism>$<salt>$<hash>
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Iterations, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// CheckPassword reports whether password matches encodedHash.
// The parameters and salt are read back out of the stored hash, so a hash made
// with older DefaultParams still verifies after the defaults are raised.
func CheckPassword(password, encodedHash string) bool {
	// 1. Parse the stored hash into its parameters, salt and key.
	p, salt, want, err := decodeHash(encodedHash)
	if err != nil {
		// A malformed hash can never match.
		return false
	}

	// 2. Re-derive the key from the candidate password using the exact same parameters and salt.
	got := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
	// 3. Compare in constant time so the comparison does not leak how many
	// leading bytes matched.
	return subtle.ConstantTimeCompare(want, got) == 1
}

// decodeHash parses the string produced by HashPasswordWithParams.
// Any deviation from the expected layout yields errInvalidHash.
func decodeHash(encoded string) (ArgonParams, []byte, []byte, error) {
	var p ArgonParams

	// The leading "$" produces an empty first field, so a well formed hash has six parts:
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key.
	vals := strings.Split(encoded, "$")
	if len(vals) != 6 || vals[1] != "argon2id" {
		return p, nil, nil, errInvalidHash
	}

	// Only the Argon2 version this binary implements is accepted.
	var version int
	if _, err := fmt.Sscanf(vals[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, errInvalidHash
	}
	if _, err := fmt.Sscanf(vals[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return p, nil, nil, errInvalidHash
	}

	// Salt and key lengths are taken from the stored values rather than DefaultParams.
	salt, err := base64.RawStdEncoding.DecodeString(vals[4])
	if err != nil {
		return p, nil, nil, errInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(vals[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, errInvalidHash
	}
	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(key))

	return p, salt, key, nil
}
