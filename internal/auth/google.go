package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/idtoken"
)

// ErrExternalTokenInvalid indicates the identity provider token failed verification.
var ErrExternalTokenInvalid = errors.New("external identity token invalid")

// ExternalIdentity is the verified subset of an identity provider token.
type ExternalIdentity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// ExternalVerifier verifies identity provider tokens.
type ExternalVerifier interface {
	Verify(ctx context.Context, credential string) (ExternalIdentity, error)
}

type payloadValidator func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// GoogleVerifier validates Google ID tokens against the configured client id.
type GoogleVerifier struct {
	clientID string
	validate payloadValidator
}

// NewGoogleVerifier returns a verifier for the given OAuth client id.
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID, validate: idtoken.Validate}
}

// Verify checks signature, expiry and audience. An email that Google reports as
// unverified is dropped so callers treat it as missing.
func (v *GoogleVerifier) Verify(ctx context.Context, credential string) (ExternalIdentity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return ExternalIdentity{}, ErrExternalTokenInvalid
	}

	payload, err := v.validate(ctx, credential, v.clientID)
	if err != nil {
		return ExternalIdentity{}, fmt.Errorf("%w: %v", ErrExternalTokenInvalid, err)
	}
	if payload == nil || payload.Subject == "" {
		return ExternalIdentity{}, ErrExternalTokenInvalid
	}

	identity := ExternalIdentity{
		Subject: payload.Subject,
		Name:    claimString(payload.Claims, "name"),
		Picture: claimString(payload.Claims, "picture"),
	}
	if claimBool(payload.Claims, "email_verified") {
		identity.Email = strings.ToLower(claimString(payload.Claims, "email"))
	}
	return identity, nil
}

func claimString(claims map[string]interface{}, key string) string {
	if value, ok := claims[key].(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

func claimBool(claims map[string]interface{}, key string) bool {
	switch v := claims[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	default:
		return false
	}
}
