package verify

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/regkit/regkit/internal/token"
)

// DefaultCodeLength matches the four-letter codes sent in verification mails.
const DefaultCodeLength = 4

// Codes are drawn from uppercase letters only, which are unambiguous when
// read back from an email.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

var ErrCodeMismatch = errors.New("verification code mismatch")

// GenerateCode returns a random code of the given length drawn uniformly from
// the uppercase alphabet. Lengths below 1 fall back to DefaultCodeLength.
// Codes are not globally unique; collisions across registrations are accepted
// because each code is scoped to a single email.
func GenerateCode(length int) (string, error) {
	if length < 1 {
		length = DefaultCodeLength
	}

	buf := make([]byte, length)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}

	return string(buf), nil
}

// Workflow issues email-verification tokens and adjudicates verification
// attempts. It is stateless: the code travels inside the signed token, so
// checking an attempt needs no store. A replayed token alone is not enough to
// verify — the submitted code, delivered out-of-band, must match as well.
type Workflow struct {
	codec      *token.Codec
	lifetime   time.Duration
	codeLength int
}

// New builds a Workflow on top of a token codec. The lifetime applies to all
// tokens it issues and should be short (the verification mail's useful life).
func New(codec *token.Codec, lifetime time.Duration, codeLength int) *Workflow {
	if codeLength < 1 {
		codeLength = DefaultCodeLength
	}
	return &Workflow{
		codec:      codec,
		lifetime:   lifetime,
		codeLength: codeLength,
	}
}

// Lifetime returns the configured verification-token lifetime.
func (w *Workflow) Lifetime() time.Duration {
	return w.lifetime
}

// NewCode generates a code with the workflow's configured length.
func (w *Workflow) NewCode() (string, error) {
	return GenerateCode(w.codeLength)
}

// Start binds email and code into a signed email-verify token. The token is
// delivered to the user out-of-band; delivery is the caller's concern.
func (w *Workflow) Start(email, code string) (string, error) {
	return w.codec.Issue(email, token.PurposeEmailVerify, code, w.lifetime)
}

// Check decodes a verification token and compares the submitted code against
// the one bound at issuance. Decode failures pass through unchanged
// (token.ErrExpired, token.ErrInvalidSignature, token.ErrMalformed). A token
// with the wrong purpose is rejected as malformed. On success the verified
// email is returned.
func (w *Workflow) Check(tokenString, submittedCode string) (string, error) {
	claims, err := w.codec.Decode(tokenString)
	if err != nil {
		return "", err
	}

	if claims.Purpose != token.PurposeEmailVerify {
		return "", token.ErrMalformed
	}

	if subtle.ConstantTimeCompare([]byte(claims.Code), []byte(submittedCode)) != 1 {
		return "", ErrCodeMismatch
	}

	return claims.Subject, nil
}
