// Package auth issues and verifies the HS256 tokens the account actions
// hand out, and hashes the passwords they store.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const jwtLogPrefix = "auth:jwt"

// Issuer signs and verifies tokens for one service identity.
type Issuer struct {
	Secret   string
	Issuer   string
	Audience string
}

// Issue signs a token for subject. notBefore and expiresAt are unix
// seconds; either may be nil to omit the claim. Every token carries a
// fresh jti so it can be revoked individually.
func (i *Issuer) Issue(subject string, notBefore, expiresAt *int64) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": i.Issuer,
		"aud": i.Audience,
		"sub": subject,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
	}
	if notBefore != nil {
		claims["nbf"] = *notBefore
	}
	if expiresAt != nil {
		claims["exp"] = *expiresAt
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(i.Secret))
	if err != nil {
		return "", fmt.Errorf("%s - sign token: %w", jwtLogPrefix, err)
	}
	return signed, nil
}

// Verify parses and validates a signed token, checking the signature,
// signing method, issuer, audience, and the time claims it carries.
func (i *Issuer) Verify(signed string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(signed, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return []byte(i.Secret), nil
	},
		jwt.WithIssuer(i.Issuer),
		jwt.WithAudience(i.Audience),
	)
	if err != nil {
		return nil, fmt.Errorf("%s - verify token: %w", jwtLogPrefix, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%s - unexpected claims type %T", jwtLogPrefix, token.Claims)
	}
	return claims, nil
}

// JTI extracts the token id claim from a verified claim set.
func JTI(claims jwt.MapClaims) (uuid.UUID, error) {
	raw, ok := claims["jti"].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("%s - token has no jti claim", jwtLogPrefix)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s - parse jti: %w", jwtLogPrefix, err)
	}
	return id, nil
}
