package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// HMACVerifier accepts HS256 tokens signed with secret. It stands in for
// Clerk when running locally against the memory store.
func HMACVerifier(secret []byte) Verifier {
	return func(ctx context.Context, tokenString string) (string, error) {
		token, err := gojwt.Parse(tokenString, func(token *gojwt.Token) (any, error) {
			if _, ok := token.Method.(*gojwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		}, gojwt.WithExpirationRequired())
		if err != nil {
			return "", err
		}

		subject, err := token.Claims.GetSubject()
		if err != nil {
			return "", err
		}
		if subject == "" {
			return "", errors.New("token has no subject")
		}
		return subject, nil
	}
}

// SignDevToken issues a token HMACVerifier accepts.
func SignDevToken(secret []byte, userID string, ttl time.Duration) (string, error) {
	claims := gojwt.MapClaims{
		"sub": userID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	}
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
