package jwt

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the fields this service reads from an access token. Token
// issuance happens elsewhere; we only verify.
type Claims struct {
	UserID string
	Role   string
}

// ParseClaims verifies the HMAC signature and extracts the user id ("sub")
// and role ("role") claims.
func ParseClaims(tokenString, secret string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("failed to parse token: %w", err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Claims{}, errors.New("invalid token claims")
	}

	userID, ok := mapClaims["sub"].(string)
	if !ok || userID == "" {
		return Claims{}, errors.New("token missing subject claim")
	}

	role, _ := mapClaims["role"].(string)

	return Claims{UserID: userID, Role: role}, nil
}
