package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/voicepost-platform/voicepost/internal/metrics"
)

// ErrUnsupportedPlatform is returned for platforms with no registered adapter.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// ErrMissingCredentials is returned when the platform has no saved keys.
var ErrMissingCredentials = errors.New("no credentials saved for platform")

// Auth carries decrypted platform credentials for a single publish call.
// It is built per call and discarded; nothing retains the plaintext secret.
type Auth struct {
	ClientID     string
	ClientSecret string
}

// CredentialSource resolves decrypted credentials for a platform.
type CredentialSource interface {
	Resolve(ctx context.Context, platform string) (Auth, error)
}

// Adapter publishes one post to a single platform.
type Adapter interface {
	// Publish sends text to the platform and returns a human-readable
	// confirmation message.
	Publish(ctx context.Context, auth Auth, text string) (string, error)
}

// Result reports the outcome of a publish attempt.
type Result struct {
	Platform string `json:"platform"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

// Registry routes publish calls to the adapter for the requested platform.
type Registry struct {
	adapters map[string]Adapter
	creds    CredentialSource
	logger   *slog.Logger
}

// NewRegistry builds a Registry with the standard platform adapters.
func NewRegistry(creds CredentialSource, logger *slog.Logger) *Registry {
	return &Registry{
		adapters: map[string]Adapter{
			"twitter":  &TwitterAdapter{logger: logger},
			"linkedin": &LinkedInAdapter{logger: logger},
		},
		creds:  creds,
		logger: logger,
	}
}

// Register adds or replaces the adapter for a platform. Used by tests and
// future platform integrations.
func (r *Registry) Register(platform string, a Adapter) {
	r.adapters[strings.ToLower(platform)] = a
}

// Supported reports whether an adapter exists for the platform.
func (r *Registry) Supported(platform string) bool {
	_, ok := r.adapters[strings.ToLower(platform)]
	return ok
}

// Publish resolves credentials and hands the text to the platform adapter.
func (r *Registry) Publish(ctx context.Context, platform, text string) (*Result, error) {
	platform = strings.ToLower(platform)

	adapter, ok := r.adapters[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platform)
	}

	auth, err := r.creds.Resolve(ctx, platform)
	if err != nil {
		metrics.PublishAttemptsTotal.WithLabelValues(platform, "error").Inc()
		return nil, err
	}

	message, err := adapter.Publish(ctx, auth, text)
	if err != nil {
		metrics.PublishAttemptsTotal.WithLabelValues(platform, "error").Inc()
		r.logger.Error("publish failed", "platform", platform, "error", err)
		return nil, fmt.Errorf("publishing to %s: %w", platform, err)
	}

	metrics.PublishAttemptsTotal.WithLabelValues(platform, "success").Inc()
	r.logger.Info("published post", "platform", platform, "chars", len(text))
	return &Result{Platform: platform, Status: "success", Message: message}, nil
}
