// Package middleware provides HTTP middleware for bearer-token authentication,
// request ids, access logging and rate limiting.
package middleware

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"

	"principal-registry/internal/domain"
)

// JWTClaims holds the parsed claims from a validated JWT.
type JWTClaims struct {
	Subject       string
	Issuer        string
	Audience      []string
	Email         *string
	EmailVerified *bool
	Raw           map[string]interface{}
}

// Caller converts the claims into the identity carried through request
// context. An email the issuer explicitly marks unverified is dropped.
func (c *JWTClaims) Caller() domain.CallerIdentity {
	id := domain.CallerIdentity{Subject: c.Subject, Issuer: c.Issuer}
	if c.Email != nil && (c.EmailVerified == nil || *c.EmailVerified) {
		id.Email = *c.Email
	}
	return id
}

// JWTValidator validates a JWT token and returns the parsed claims.
type JWTValidator interface {
	Validate(ctx context.Context, tokenString string) (*JWTClaims, error)
}

// OIDCValidator validates JWTs using OIDC discovery or a JWKS endpoint.
type OIDCValidator struct {
	verifier       *oidc.IDTokenVerifier
	allowedIssuers map[string]bool
}

// SharedSecretValidator validates HS256 JWTs signed with a shared secret.
// Intended for local development.
type SharedSecretValidator struct {
	secret   []byte
	audience string
}

func issuerSet(allowed []string, fallback string) map[string]bool {
	issuers := make(map[string]bool, len(allowed))
	for _, iss := range allowed {
		issuers[iss] = true
	}
	if len(issuers) == 0 && fallback != "" {
		issuers[fallback] = true
	}
	return issuers
}

// NewOIDCValidator creates a validator from an OIDC issuer URL.
func NewOIDCValidator(ctx context.Context, issuerURL, audience string, allowedIssuers []string) (*OIDCValidator, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc provider discovery: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: audience})
	return &OIDCValidator{verifier: verifier, allowedIssuers: issuerSet(allowedIssuers, issuerURL)}, nil
}

// NewOIDCValidatorFromJWKS creates a validator from a JWKS URL (no OIDC discovery).
func NewOIDCValidatorFromJWKS(ctx context.Context, jwksURL, issuerURL, audience string, allowedIssuers []string) (*OIDCValidator, error) {
	if jwksURL == "" {
		return nil, fmt.Errorf("JWKS URL is required")
	}
	keySet := oidc.NewRemoteKeySet(ctx, jwksURL)
	verifier := oidc.NewVerifier(issuerURL, keySet, &oidc.Config{
		ClientID:        audience,
		SkipIssuerCheck: issuerURL == "",
	})
	return &OIDCValidator{verifier: verifier, allowedIssuers: issuerSet(allowedIssuers, issuerURL)}, nil
}

// NewSharedSecretValidator creates a validator for HS256 tokens. A non-empty
// audience is required to appear in the aud claim.
func NewSharedSecretValidator(secret, audience string) (*SharedSecretValidator, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	return &SharedSecretValidator{secret: []byte(secret), audience: audience}, nil
}

// Validate verifies the JWT using the OIDC provider's keys.
func (v *OIDCValidator) Validate(ctx context.Context, tokenString string) (*JWTClaims, error) {
	idToken, err := v.verifier.Verify(ctx, tokenString)
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}

	if len(v.allowedIssuers) > 0 && !v.allowedIssuers[idToken.Issuer] {
		return nil, fmt.Errorf("issuer %q not in allowed list", idToken.Issuer)
	}

	var raw map[string]interface{}
	if err := idToken.Claims(&raw); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}

	claims := claimsFromMap(raw)
	claims.Subject = idToken.Subject
	claims.Issuer = idToken.Issuer
	claims.Audience = idToken.Audience
	return claims, nil
}

// Validate verifies a JWT signed with HS256 and extracts claims.
func (v *SharedSecretValidator) Validate(_ context.Context, tokenString string) (*JWTClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	tok, err := jwt.Parse(tokenString, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}

	raw, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("parse claims: unsupported claim type %T", tok.Claims)
	}
	claims := claimsFromMap(raw)
	if sub, err := raw.GetSubject(); err == nil {
		claims.Subject = sub
	}
	if iss, err := raw.GetIssuer(); err == nil {
		claims.Issuer = iss
	}
	if aud, err := raw.GetAudience(); err == nil {
		claims.Audience = aud
	}
	return claims, nil
}

func claimsFromMap(raw map[string]interface{}) *JWTClaims {
	claims := &JWTClaims{Raw: raw}
	if email, ok := raw["email"].(string); ok && email != "" {
		claims.Email = &email
	}
	if verified, ok := raw["email_verified"].(bool); ok {
		claims.EmailVerified = &verified
	}
	return claims
}
