// internal/pkg/jwt/generator.go
package jwt

import (
	"crypto/rsa"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

type Generator struct {
	priv     *rsa.PrivateKey
	issuer   string
	audience string
	kid      string
	ttl      time.Duration
	now      func() time.Time
}

func NewGenerator(priv *rsa.PrivateKey, issuer, audience, kid string, ttl time.Duration) *Generator {
	return &Generator{
		priv:     priv,
		issuer:   issuer,
		audience: audience,
		kid:      kid,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Subject is what a token is issued for.
type Subject struct {
	UserID   int64
	Username string
	Name     string
	Device   string
}

// Issued is a signed token and the facts the session needs about it.
type Issued struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

func (g *Generator) TTL() time.Duration {
	return g.ttl
}

// Generate signs an RS256 access token for sub with a fresh ULID token id.
func (g *Generator) Generate(sub Subject) (Issued, error) {
	if g.priv == nil {
		return Issued{}, fmt.Errorf("jwt generator has nil private key")
	}

	now := g.now()
	expiresAt := now.Add(g.ttl)
	jti := ulid.Make().String()

	claims := &Claims{
		UserID:   sub.UserID,
		Username: sub.Username,
		Name:     sub.Name,
		Device:   sub.Device,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.issuer,
			Subject:   strconv.FormatInt(sub.UserID, 10),
			Audience:  []string{g.audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        jti,
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if g.kid != "" {
		tok.Header["kid"] = g.kid
	}

	signed, err := tok.SignedString(g.priv)
	if err != nil {
		return Issued{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return Issued{Token: signed, JTI: jti, ExpiresAt: expiresAt}, nil
}
