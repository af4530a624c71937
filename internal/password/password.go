// Package password implements Argon2id hashing and constant-time,
// timing-safe credential validation, dispatched off the calling goroutine.
package password

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	apperrors "github.com/strv-go/newsletter-publisher/internal/errors"
)

const (
	argonMemory      = 15000
	argonIterations  = 2
	argonParallelism = 1
	argonKeyLength   = 32
	saltLength       = 16
)

// dummyPHC is verified against when the username is unknown, so that
// unknown-username lookups take the same wall-clock time as a real verify.
// It is a valid PHC string for a password nobody will ever supply.
const dummyPHC = "$argon2id$v=19$m=15000,t=2,p=1$Z2liYmVyaXNoc2FsdA$uGcLCMhhS9bYQEhX3vb0QQBcf9Kc94kZN9qwXFwoNFA"

// NewSalt returns a fresh random, base64-encoded salt.
func NewSalt() (string, error) {
	raw := make([]byte, saltLength)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("password: NewSalt: %w", err)
	}
	return base64.RawStdEncoding.EncodeToString(raw), nil
}

// Hash computes the Argon2id PHC string for password using the given
// base64-encoded salt. m=15000, t=2, p=1, per the stored User.PasswordHashed
// contract.
func Hash(password, salt string) (string, error) {
	saltBytes, err := base64.RawStdEncoding.DecodeString(salt)
	if err != nil {
		return "", fmt.Errorf("password: Hash: decode salt: %w", err)
	}
	hash := argon2.IDKey([]byte(password), saltBytes, argonIterations, argonMemory, argonParallelism, argonKeyLength)
	phc := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory, argonIterations, argonParallelism,
		base64.RawStdEncoding.EncodeToString(saltBytes),
		base64.RawStdEncoding.EncodeToString(hash),
	)
	return phc, nil
}

// Verify reports whether password matches the given PHC string, comparing
// the derived hash in constant time.
func Verify(phc, password string) (bool, error) {
	version, memory, iterations, parallelism, salt, hash, err := parsePHC(phc)
	if err != nil {
		return false, fmt.Errorf("password: Verify: %w", err)
	}
	if version != argon2.Version {
		return false, fmt.Errorf("password: Verify: unsupported argon2 version %d", version)
	}
	candidate := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(hash)))
	return subtle.ConstantTimeCompare(candidate, hash) == 1, nil
}

func parsePHC(phc string) (version int, memory, iterations uint32, parallelism uint8, salt, hash []byte, err error) {
	parts := strings.Split(phc, "$")
	// parts[0] is empty (leading $), [1]=argon2id, [2]=v=.., [3]=m=..,t=..,p=.., [4]=salt, [5]=hash
	if len(parts) != 6 || parts[1] != "argon2id" {
		return 0, 0, 0, 0, nil, nil, errors.New("malformed PHC string")
	}
	if _, err = fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return 0, 0, 0, 0, nil, nil, fmt.Errorf("malformed version segment: %w", err)
	}
	var p uint32
	if _, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &p); err != nil {
		return 0, 0, 0, 0, nil, nil, fmt.Errorf("malformed params segment: %w", err)
	}
	parallelism = uint8(p)
	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return 0, 0, 0, 0, nil, nil, fmt.Errorf("malformed salt segment: %w", err)
	}
	if hash, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return 0, 0, 0, 0, nil, nil, fmt.Errorf("malformed hash segment: %w", err)
	}
	return version, memory, iterations, parallelism, salt, hash, nil
}

// UserLookup resolves a username to its stored credential record. It must
// return apperrors.ErrUserNotFound (or a wrap of it) when the username is
// unknown.
type UserLookup func(ctx context.Context, username string) (userID, passwordHashed string, err error)

// ValidateCredentials looks up username via lookup and verifies password
// against the stored PHC. If the username is unknown it still runs a verify
// against a fixed dummy PHC so unknown-username requests take the same CPU
// time as a real lookup, preventing username enumeration via timing. The
// comparison always runs on its own goroutine via a buffered channel so the
// caller's goroutine is never the one blocked on the Argon2 computation.
func ValidateCredentials(ctx context.Context, username, password string, lookup UserLookup) (userID string, err error) {
	type result struct {
		userID string
		err    error
	}
	done := make(chan result, 1)

	go func() {
		id, phc, lookupErr := lookup(ctx, username)
		userFound := lookupErr == nil
		if !userFound {
			phc = dummyPHC
		}

		ok, verifyErr := Verify(phc, password)
		if verifyErr != nil {
			done <- result{err: fmt.Errorf("password: ValidateCredentials: %w", verifyErr)}
			return
		}
		if !userFound || !ok {
			done <- result{err: apperrors.ErrInvalidCredentials}
			return
		}
		done <- result{userID: id}
	}()

	select {
	case r := <-done:
		return r.userID, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
