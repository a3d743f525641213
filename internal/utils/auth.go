package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the lifetime of device tokens.
const DefaultTokenTTL = 90 * 24 * time.Hour

// GenerateToken signs a token for the account uid used as the remote
// store namespace.
func GenerateToken(uid, deviceID, secret string, ttl time.Duration) (string, error) {
	if uid == "" {
		return "", errors.New("uid is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	claims := jwt.MapClaims{
		"uid":    uid,
		"device": deviceID,
		"iat":    time.Now().Unix(),
		"exp":    time.Now().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken parses and validates a token
func ValidateToken(tokenString string, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// UIDFromClaims returns the uid claim or "" when absent.
func UIDFromClaims(claims jwt.MapClaims) string {
	uid, _ := claims["uid"].(string)
	return uid
}
