// internal/pkg/jwt/loader.go
package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"time"
)

type Config struct {
	PrivPath string
	PubPath  string
	Issuer   string
	Audience string
	TTL      time.Duration
	KID      string
}

type Manager struct {
	Generator *Generator
	Verifier  *Verifier
}

// LoadAndBuild reads the key pair from disk. With no private key path set it
// generates a throwaway key, so tokens do not survive a restart.
func LoadAndBuild(cfg Config) (*Manager, error) {
	if cfg.PrivPath == "" {
		priv, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
		return NewManager(priv, cfg), nil
	}

	priv, err := LoadRSAPrivateKeyFromPEM(cfg.PrivPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load private key from %s: %w", cfg.PrivPath, err)
	}

	m := NewManager(priv, cfg)
	if cfg.PubPath != "" {
		pub, err := LoadRSAPublicKeyFromPEM(cfg.PubPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load public key from %s: %w", cfg.PubPath, err)
		}
		m.Verifier = NewVerifier(pub, cfg.Issuer, cfg.Audience)
	}

	return m, nil
}

// NewManager builds a generator and a verifier around one key pair.
func NewManager(priv *rsa.PrivateKey, cfg Config) *Manager {
	return &Manager{
		Generator: NewGenerator(priv, cfg.Issuer, cfg.Audience, cfg.KID, cfg.TTL),
		Verifier:  NewVerifier(&priv.PublicKey, cfg.Issuer, cfg.Audience),
	}
}
