package publisher

import (
	"context"
	"errors"
	"fmt"

	"github.com/voicepost-platform/voicepost/internal/credentials"
)

// ServiceCredentials adapts the credentials service to CredentialSource.
// The secret is decrypted per Resolve call and never cached.
type ServiceCredentials struct {
	svc *credentials.Service
}

func NewServiceCredentials(svc *credentials.Service) *ServiceCredentials {
	return &ServiceCredentials{svc: svc}
}

func (s *ServiceCredentials) Resolve(ctx context.Context, platform string) (Auth, error) {
	cred, err := s.svc.Lookup(ctx, platform)
	if err != nil {
		if errors.Is(err, credentials.ErrNotFound) {
			return Auth{}, fmt.Errorf("%w: %s", ErrMissingCredentials, platform)
		}
		return Auth{}, fmt.Errorf("looking up %s credentials: %w", platform, err)
	}

	secret, err := cred.Secret()
	if err != nil {
		return Auth{}, fmt.Errorf("decrypting %s credentials: %w", platform, err)
	}
	return Auth{ClientID: cred.ClientID, ClientSecret: secret}, nil
}
