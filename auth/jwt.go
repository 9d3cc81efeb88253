package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSubject is returned for a valid token that names no user.
var ErrNoSubject = errors.New("token has no subject")

// Validator checks Neon Auth JWTs against the issuer's JWKS.
type Validator struct {
	issuer  string
	keyfunc jwt.Keyfunc
	methods []string
}

// NewValidator fetches the JWKS under baseURL (e.g. NEON_AUTH_BASE_URL) and
// keeps it refreshed in the background until ctx is cancelled.
func NewValidator(ctx context.Context, baseURL string) (*Validator, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("NEON_AUTH_BASE_URL is not set")
	}
	issuer, err := issuerFromBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{strings.TrimSuffix(baseURL, "/") + "/.well-known/jwks.json"})
	if err != nil {
		return nil, fmt.Errorf("loading JWKS: %w", err)
	}
	return &Validator{issuer: issuer, keyfunc: jwks.Keyfunc, methods: []string{"EdDSA"}}, nil
}

// NewStaticValidator validates tokens with a fixed key lookup.
func NewStaticValidator(issuer string, kf jwt.Keyfunc, methods ...string) *Validator {
	if len(methods) == 0 {
		methods = []string{"EdDSA"}
	}
	return &Validator{issuer: issuer, keyfunc: kf, methods: methods}
}

func issuerFromBaseURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid base URL %q", baseURL)
	}
	return u.Scheme + "://" + u.Host, nil
}

// Claims parses tokenString and returns its claims.
func (v *Validator) Claims(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, v.keyfunc,
		jwt.WithIssuer(v.issuer),
		jwt.WithValidMethods(v.methods))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// Validate returns the user id and display name carried by tokenString.
func (v *Validator) Validate(tokenString string) (userID, name string, err error) {
	claims, err := v.Claims(tokenString)
	if err != nil {
		return "", "", err
	}
	userID = UserIDFromClaims(claims)
	if userID == "" {
		return "", "", ErrNoSubject
	}
	return userID, FirstNameFromClaims(claims), nil
}

// FirstNameFromClaims returns the first word of the "name" claim, or a fallback.
func FirstNameFromClaims(claims jwt.MapClaims) string {
	name, _ := claims["name"].(string)
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "Player"
	}
	return parts[0]
}

// UserIDFromClaims returns the user id from claims ("sub" or "id").
func UserIDFromClaims(claims jwt.MapClaims) string {
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub
	}
	if id, ok := claims["id"].(string); ok && id != "" {
		return id
	}
	return ""
}
