package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no credentials are saved for a platform.
var ErrNotFound = errors.New("no credentials found for platform")

// Credential is a decrypt-capable lookup result. The secret stays encrypted
// until Secret() is called.
type Credential struct {
	Platform        string
	ClientID        string
	encryptedSecret string
	encryptor       *Encryptor
}

// Secret decrypts and returns the client secret.
func (c *Credential) Secret() (string, error) {
	return c.encryptor.Decrypt(c.encryptedSecret)
}

// Service stores and retrieves platform credentials.
type Service struct {
	repo      Repository
	encryptor *Encryptor
}

func NewService(repo Repository, encryptionKey string) (*Service, error) {
	enc, err := NewEncryptor(encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}
	return &Service{repo: repo, encryptor: enc}, nil
}

// Save encrypts the secret and upserts the platform credentials.
// Returns true when credentials were newly created rather than updated.
func (s *Service) Save(ctx context.Context, req *SaveKeysRequest) (bool, error) {
	platform := strings.ToLower(req.Platform)

	encrypted, err := s.encryptor.Encrypt(req.ClientSecret)
	if err != nil {
		return false, fmt.Errorf("encrypting secret: %w", err)
	}

	row := &Row{
		ID:              uuid.New(),
		Platform:        platform,
		ClientID:        req.ClientID,
		EncryptedSecret: encrypted,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	created, err := s.repo.Upsert(ctx, row)
	if err != nil {
		return false, err
	}
	return created, nil
}

// Lookup returns a decrypt-capable credential for the platform.
func (s *Service) Lookup(ctx context.Context, platform string) (*Credential, error) {
	row, err := s.repo.GetByPlatform(ctx, strings.ToLower(platform))
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, platform)
	}

	return &Credential{
		Platform:        row.Platform,
		ClientID:        row.ClientID,
		encryptedSecret: row.EncryptedSecret,
		encryptor:       s.encryptor,
	}, nil
}
