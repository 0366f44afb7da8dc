package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrBadPassword = errors.New("password mismatch")

// CredentialStore abstracts where the admin gate credential lives so the
// backing can be swapped (memory, database, secret manager) without touching
// call sites.
type CredentialStore interface {
	PasswordHash(ctx context.Context) ([]byte, error)
	SetPasswordHash(ctx context.Context, hash []byte) error
}

// MemoryStore keeps the credential in process memory, seeded from config.
type MemoryStore struct {
	mu   sync.RWMutex
	hash []byte
}

// NewMemoryStore seeds a memory-backed store with the given password.
func NewMemoryStore(password string) (*MemoryStore, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return &MemoryStore{hash: hash}, nil
}

func (s *MemoryStore) PasswordHash(ctx context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hash, nil
}

func (s *MemoryStore) SetPasswordHash(ctx context.Context, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hash = hash
	return nil
}

// Gate guards the admin UI. It only hides the panel, since node agents
// enforce their own auth keys, but the credential is still hashed and
// sessions are issued as signed tokens instead of a client-side compare.
type Gate struct {
	store  CredentialStore
	secret []byte
	ttl    time.Duration
}

// NewGate creates an admin gate.
func NewGate(store CredentialStore, secret string, ttl time.Duration) *Gate {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Gate{store: store, secret: []byte(secret), ttl: ttl}
}

// TTL returns the session token lifetime.
func (g *Gate) TTL() time.Duration {
	return g.ttl
}

// Login checks the password and issues a session token.
func (g *Gate) Login(ctx context.Context, password string) (string, error) {
	hash, err := g.store.PasswordHash(ctx)
	if err != nil {
		return "", fmt.Errorf("read credential: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return "", ErrBadPassword
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "admin",
		"iat":  now.Unix(),
		"exp":  now.Add(g.ttl).Unix(),
	})
	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ChangePassword rotates the credential after verifying the current one.
func (g *Gate) ChangePassword(ctx context.Context, current, next string) error {
	hash, err := g.store.PasswordHash(ctx)
	if err != nil {
		return fmt.Errorf("read credential: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(current)); err != nil {
		return ErrBadPassword
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return g.store.SetPasswordHash(ctx, newHash)
}
