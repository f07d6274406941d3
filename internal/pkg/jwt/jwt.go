// Package jwt issues and verifies the HS512 bearer tokens that identify the
// caller of operator endpoints, and carries verified claims through a context.
package jwt

import (
	"context"
	"errors"
	"strconv"
	"time"

	libJWT "github.com/golang-jwt/jwt/v5"
)

// MinSecretBytes is the smallest HS512 key accepted.
const MinSecretBytes = 64

var (
	// ErrSecretTooShort is returned by NewHS512 for keys under MinSecretBytes.
	ErrSecretTooShort = errors.New("jwt: HS512 secret must be at least 64 bytes")
	// ErrTokenExpired is returned by Verify for an expired token.
	ErrTokenExpired = errors.New("jwt: token has expired")
	// ErrInvalidToken is returned by Verify for any other rejected token.
	ErrInvalidToken = errors.New("jwt: invalid token")
)

// JWT issues and verifies tokens.
type JWT interface {
	Generate(actorID int64, email string) (string, error)
	Verify(token string) (Claims, error)
}

// Claims are the registered claims plus the actor the token was issued to.
// Subject carries the actor id in decimal and is what authorization checks.
type Claims struct {
	libJWT.RegisteredClaims
	ActorID int64  `json:"actor_id,string"`
	Email   string `json:"email"`
}

type clocker interface {
	Now() time.Time
}

type generator interface {
	Generate() string
}

// Config configures NewHS512.
type Config struct {
	Secret    []byte
	Issuer    string
	Audiences []string
	TTL       time.Duration
	Clock     clocker
	// UUID generates the token id (jti).
	UUID generator
}

// HS512 signs and verifies tokens with a shared secret.
type HS512 struct {
	cfg    Config
	parser *libJWT.Parser
}

// NewHS512 constructs an HS512 signer.
func NewHS512(cfg Config) (*HS512, error) {
	if len(cfg.Secret) < MinSecretBytes {
		return nil, ErrSecretTooShort
	}

	return &HS512{
		cfg: cfg,
		parser: libJWT.NewParser(
			libJWT.WithValidMethods([]string{libJWT.SigningMethodHS512.Alg()}),
			libJWT.WithIssuer(cfg.Issuer),
			libJWT.WithAudience(cfg.Audiences...),
			libJWT.WithIssuedAt(),
			libJWT.WithExpirationRequired(),
			libJWT.WithTimeFunc(cfg.Clock.Now),
		),
	}, nil
}

func (s *HS512) Generate(actorID int64, email string) (string, error) {
	now := s.cfg.Clock.Now()

	return libJWT.NewWithClaims(libJWT.SigningMethodHS512, Claims{
		RegisteredClaims: libJWT.RegisteredClaims{
			ID:        s.cfg.UUID.Generate(),
			Subject:   strconv.FormatInt(actorID, 10),
			Issuer:    s.cfg.Issuer,
			Audience:  s.cfg.Audiences,
			IssuedAt:  libJWT.NewNumericDate(now),
			NotBefore: libJWT.NewNumericDate(now),
			ExpiresAt: libJWT.NewNumericDate(now.Add(s.cfg.TTL)),
		},
		ActorID: actorID,
		Email:   email,
	}).SignedString(s.cfg.Secret)
}

func (s *HS512) Verify(token string) (Claims, error) {
	var claims Claims
	_, err := s.parser.ParseWithClaims(token, &claims, func(*libJWT.Token) (any, error) {
		return s.cfg.Secret, nil
	})
	switch {
	case errors.Is(err, libJWT.ErrTokenExpired):
		return Claims{}, ErrTokenExpired
	case err != nil:
		return Claims{}, errors.Join(ErrInvalidToken, err)
	case claims.Subject != strconv.FormatInt(claims.ActorID, 10):
		return Claims{}, ErrInvalidToken
	}

	return claims, nil
}

type claimsKey struct{}

// SetAuth stores verified claims in ctx.
func SetAuth(ctx context.Context, clm Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, clm)
}

// GetAuth returns the claims stored by SetAuth, or nil.
func GetAuth(ctx context.Context) *Claims {
	clm, ok := ctx.Value(claimsKey{}).(Claims)
	if !ok {
		return nil
	}
	return &clm
}

// ActorID returns the authenticated actor id, or 0 for anonymous callers.
func ActorID(ctx context.Context) int64 {
	if clm := GetAuth(ctx); clm != nil {
		return clm.ActorID
	}
	return 0
}
