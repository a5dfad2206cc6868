package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// argon2Params are the cost settings for new digests.
var argon2Params = argonCost{time: 3, memoryKiB: 64 * 1024, threads: 1}

const (
	saltLen = 16
	keyLen  = 32
)

// errMalformedDigest is returned for stored digests that are neither
// bcrypt nor $argon2id$ strings.
var errMalformedDigest = errors.New("malformed password digest")

type argonCost struct {
	time      uint32
	memoryKiB uint32
	threads   uint8
}

// argon2Digest is a decoded $argon2id$v=19$m=..,t=..,p=..$salt$key string.
type argon2Digest struct {
	cost argonCost
	salt []byte
	key  []byte
}

func (d argon2Digest) String() string {
	b64 := base64.RawStdEncoding.EncodeToString
	return "$argon2id$v=" + strconv.Itoa(argon2.Version) +
		"$m=" + strconv.FormatUint(uint64(d.cost.memoryKiB), 10) +
		",t=" + strconv.FormatUint(uint64(d.cost.time), 10) +
		",p=" + strconv.FormatUint(uint64(d.cost.threads), 10) +
		"$" + b64(d.salt) + "$" + b64(d.key)
}

func (d argon2Digest) matches(password string) bool {
	key := argon2.IDKey([]byte(password), d.salt, d.cost.time, d.cost.memoryKiB, d.cost.threads,
		uint32(len(d.key))) //nolint:gosec // G115: key length is small
	return subtle.ConstantTimeCompare(d.key, key) == 1
}

func parseArgon2Digest(s string) (argon2Digest, error) {
	var d argon2Digest
	fields := strings.Split(s, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return d, errMalformedDigest
	}
	if fields[2] != "v="+strconv.Itoa(argon2.Version) {
		return d, fmt.Errorf("%w: unsupported version %q", errMalformedDigest, fields[2])
	}

	for _, kv := range strings.Split(fields[3], ",") {
		k, v, _ := strings.Cut(kv, "=")
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return d, fmt.Errorf("%w: %s", errMalformedDigest, kv)
		}
		switch k {
		case "m":
			d.cost.memoryKiB = uint32(n)
		case "t":
			d.cost.time = uint32(n)
		case "p":
			if n == 0 || n > 255 {
				return d, fmt.Errorf("%w: %s", errMalformedDigest, kv)
			}
			d.cost.threads = uint8(n)
		default:
			return d, fmt.Errorf("%w: unknown parameter %q", errMalformedDigest, k)
		}
	}
	if d.cost.time == 0 || d.cost.memoryKiB == 0 || d.cost.threads == 0 {
		return d, fmt.Errorf("%w: incomplete parameters", errMalformedDigest)
	}

	var err error
	if d.salt, err = base64.RawStdEncoding.DecodeString(fields[4]); err != nil {
		return d, fmt.Errorf("%w: salt: %w", errMalformedDigest, err)
	}
	if d.key, err = base64.RawStdEncoding.DecodeString(fields[5]); err != nil || len(d.key) == 0 {
		return d, fmt.Errorf("%w: key", errMalformedDigest)
	}
	return d, nil
}

func isBcrypt(digest string) bool { return strings.HasPrefix(digest, "$2") }

// HashPassword returns a fresh Argon2id digest of password.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	d := argon2Digest{cost: argon2Params, salt: salt}
	d.key = argon2.IDKey([]byte(password), salt, d.cost.time, d.cost.memoryKiB, d.cost.threads, keyLen)
	return d.String(), nil
}

// VerifyPassword reports whether password matches digest. Accounts
// imported from the earlier backend carry bcrypt digests ($2a$, $2b$,
// $2y$), which are checked with bcrypt.
func VerifyPassword(password, digest string) (bool, error) {
	if isBcrypt(digest) {
		err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("verifying bcrypt digest: %w", err)
		}
		return true, nil
	}

	d, err := parseArgon2Digest(digest)
	if err != nil {
		return false, err
	}
	return d.matches(password), nil
}

// NeedsRehash reports whether digest is bcrypt, unreadable or weaker than
// the current Argon2id cost, so a successful login should replace it.
func NeedsRehash(digest string) bool {
	if isBcrypt(digest) {
		return true
	}
	d, err := parseArgon2Digest(digest)
	if err != nil {
		return true
	}
	return d.cost.time < argon2Params.time || d.cost.memoryKiB < argon2Params.memoryKiB
}
