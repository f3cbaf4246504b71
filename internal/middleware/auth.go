// Package middleware provides logging, identity, rate limiting, tracing and
// metrics middleware for the HTTP server.
package middleware

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"

	"catalog/internal/config"
	"catalog/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie is the cookie the hosted identity provider sets for browser sessions.
const SessionCookie = "__session"

var (
	ErrMissingToken   = errors.New("missing session token")
	ErrInvalidToken   = errors.New("invalid or expired session token")
	ErrMissingSubject = errors.New("session token has no subject")
)

// Authenticator verifies session tokens issued by the identity provider and
// exposes the opaque user identifier they carry.
type Authenticator struct {
	secret    []byte
	publicKey *rsa.PublicKey
	parser    *jwt.Parser
}

// NewAuthenticator builds an Authenticator from the AUTH_* settings. A PEM
// public key takes precedence over a shared secret.
func NewAuthenticator(cfg *config.Config) (*Authenticator, error) {
	a := &Authenticator{}
	var methods []string

	switch {
	case cfg.AuthJWTPublicKey != "":
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.AuthJWTPublicKey))
		if err != nil {
			return nil, fmt.Errorf("parse AUTH_JWT_PUBLIC_KEY: %w", err)
		}
		a.publicKey = key
		methods = []string{jwt.SigningMethodRS256.Alg()}
	case cfg.AuthJWTSecret != "":
		a.secret = []byte(cfg.AuthJWTSecret)
		methods = []string{jwt.SigningMethodHS256.Alg()}
	default:
		return nil, errors.New("no session token verification key configured")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods(methods)}
	if cfg.AuthIssuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.AuthIssuer))
	}
	if cfg.AuthAudience != "" {
		opts = append(opts, jwt.WithAudience(cfg.AuthAudience))
	}
	a.parser = jwt.NewParser(opts...)
	return a, nil
}

func (a *Authenticator) keyFunc(_ *jwt.Token) (interface{}, error) {
	if a.publicKey != nil {
		return a.publicKey, nil
	}
	return a.secret, nil
}

// VerifyToken validates the token and returns its subject.
func (a *Authenticator) VerifyToken(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrMissingToken
	}

	claims := &jwt.RegisteredClaims{}
	token, err := a.parser.ParseWithClaims(tokenString, claims, a.keyFunc)
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", ErrMissingSubject
	}
	return claims.Subject, nil
}

// TokenFromRequest reads a bearer token, falling back to the session cookie.
func TokenFromRequest(c *fiber.Ctx) string {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return c.Cookies(SessionCookie)
}

// Required rejects requests without a valid session and stores the user
// identifier in c.Locals("userID").
func (a *Authenticator) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := a.VerifyToken(TokenFromRequest(c))
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Unauthorized! Please login to perform this action."))
		}

		c.Locals("userID", userID)
		c.SetUserContext(WithUserID(c.UserContext(), userID))
		return c.Next()
	}
}

// UserID returns the authenticated user identifier, or "" when absent.
func UserID(c *fiber.Ctx) string {
	uid, _ := c.Locals("userID").(string)
	return uid
}
