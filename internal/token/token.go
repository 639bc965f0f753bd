package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token purposes. Consumers must check the purpose before trusting a token,
// so a login token can never be replayed as a verification token or vice versa.
const (
	PurposeLogin       = "login"
	PurposeEmailVerify = "email-verify"
)

var (
	ErrMalformed        = errors.New("malformed token")
	ErrExpired          = errors.New("token expired")
	ErrInvalidSignature = errors.New("invalid token signature")
)

// Claims is the payload signed into a token: who the token is for (Subject),
// what it may be used for (Purpose), and for email verification the one-time
// code bound at issuance.
type Claims struct {
	Purpose string `json:"purpose"`
	Code    string `json:"code,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs claims into compact JWTs and verifies them back. It is stateless
// and safe for concurrent use; the secret is fixed for the codec's lifetime.
type Codec struct {
	secret []byte
	method jwt.SigningMethod
	now    func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithTimeFunc overrides the clock used for issuance and expiry checks.
func WithTimeFunc(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

// New builds a Codec for the given signing secret and HMAC algorithm
// ("HS256", "HS384" or "HS512"). An empty secret or unknown algorithm is a
// configuration error and must abort startup.
func New(secret, algorithm string, opts ...Option) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("signing secret is required")
	}

	method := jwt.GetSigningMethod(algorithm)
	if method == nil {
		return nil, errors.New("unknown signing algorithm: " + algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.New("unsupported signing algorithm: " + algorithm)
	}

	c := &Codec{
		secret: []byte(secret),
		method: method,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue signs subject, purpose and an optional code into a token valid for
// the given lifetime. IssuedAt is the current time, ExpiresAt is always
// IssuedAt plus lifetime.
func (c *Codec) Issue(subject, purpose, code string, lifetime time.Duration) (string, error) {
	now := c.now()

	claims := Claims{
		Purpose: purpose,
		Code:    code,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
	}

	return jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
}

// Decode verifies the signature and expiry of a token and returns its claims.
// Failures are distinguishable: ErrMalformed for input that does not parse,
// ErrExpired when the token is past its expiry, ErrInvalidSignature when the
// signature does not verify against the codec's secret.
func (c *Codec) Decode(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)

	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrMalformed
		}
	}
	if !parsed.Valid {
		return nil, ErrMalformed
	}

	return claims, nil
}
