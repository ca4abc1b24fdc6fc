package credentials

import (
	"time"

	"github.com/google/uuid"
)

// Row matches the social_credentials table schema. The secret column is
// always ciphertext.
type Row struct {
	ID              uuid.UUID `json:"id"`
	Platform        string    `json:"platform"`
	ClientID        string    `json:"client_id"`
	EncryptedSecret string    `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SaveKeysRequest is the API payload for saving platform credentials.
type SaveKeysRequest struct {
	Platform     string `json:"platform" validate:"required,min=1"`
	ClientID     string `json:"client_id" validate:"required,min=1"`
	ClientSecret string `json:"client_secret" validate:"required,min=1"`
}
