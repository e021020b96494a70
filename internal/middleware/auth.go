// Package middleware holds fiber middleware shared by the API routes.
package middleware

import (
	"context"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// reviewerKey is the fiber Locals key holding the verified reviewer name.
const reviewerKey = "reviewer"

// ReviewerAuth verifies bearer ID tokens issued to reviewers.
type ReviewerAuth struct {
	verifier *oidc.IDTokenVerifier
	logger   *zap.Logger
}

// NewReviewerAuth discovers the issuer and builds a verifier for clientID.
func NewReviewerAuth(ctx context.Context, issuer, clientID string, logger *zap.Logger) (*ReviewerAuth, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, err
	}
	return NewReviewerAuthWithVerifier(provider.Verifier(&oidc.Config{ClientID: clientID}), logger), nil
}

// NewReviewerAuthWithVerifier wraps an existing verifier.
func NewReviewerAuthWithVerifier(verifier *oidc.IDTokenVerifier, logger *zap.Logger) *ReviewerAuth {
	return &ReviewerAuth{verifier: verifier, logger: logger}
}

// RequireReviewer rejects requests without a valid bearer ID token and
// stores the reviewer identity for the handler.
func (m *ReviewerAuth) RequireReviewer(c fiber.Ctx) error {
	raw, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return unauthorized(c, "missing bearer token")
	}

	idToken, err := m.verifier.Verify(c.Context(), raw)
	if err != nil {
		m.logger.Info("rejected reviewer token", zap.Error(err))
		return unauthorized(c, "invalid bearer token")
	}

	var claims struct {
		Sub               string `json:"sub"`
		Email             string `json:"email"`
		Name              string `json:"name"`
		PreferredUsername string `json:"preferred_username"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return unauthorized(c, "invalid bearer token")
	}

	reviewer := firstNonEmpty(claims.PreferredUsername, claims.Email, claims.Name, claims.Sub)
	if reviewer == "" {
		return unauthorized(c, "token carries no reviewer identity")
	}

	c.Locals(reviewerKey, reviewer)
	return c.Next()
}

// Reviewer returns the verified reviewer, if the request passed RequireReviewer.
func Reviewer(c fiber.Ctx) (string, bool) {
	r, ok := c.Locals(reviewerKey).(string)
	return r, ok && r != ""
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func unauthorized(c fiber.Ctx, message string) error {
	c.Set(fiber.HeaderWWWAuthenticate, `Bearer realm="reviewers"`)
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"status": "error",
		"error":  message,
	})
}
