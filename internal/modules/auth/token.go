package auth

import (
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
)

const issuer = "prepick"

// issueToken signs an access token naming the session and its user.
func issueToken(secret []byte, userID, sessionID string, issued, expires time.Time) (string, error) {
	claims := &jwt.StandardClaims{
		Subject:   userID,
		Id:        sessionID,
		Issuer:    issuer,
		IssuedAt:  issued.Unix(),
		ExpiresAt: expires.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// parseToken validates signature and expiry and returns the claims.
func parseToken(secret []byte, raw string) (*jwt.StandardClaims, error) {
	claims := &jwt.StandardClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims.Id == "" || claims.Subject == "" {
		return nil, fmt.Errorf("token carries no session")
	}
	return claims, nil
}
