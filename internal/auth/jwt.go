package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims identifies a portal user. The subject is the user entity ref, for
// example user:default/alice.
type Claims struct {
	UserEntityRef string `json:"sub"`
	Name          string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

type JWTService struct {
	secretKey      []byte
	accessDuration time.Duration
}

func NewJWTService(secretKey string) *JWTService {
	return &JWTService{
		secretKey:      []byte(secretKey),
		accessDuration: 12 * time.Hour,
	}
}

func (j *JWTService) GenerateToken(userEntityRef, name string) (string, error) {
	return j.GenerateTokenWithTTL(userEntityRef, name, j.accessDuration)
}

func (j *JWTService) GenerateTokenWithTTL(userEntityRef, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserEntityRef: userEntityRef,
		Name:          name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userEntityRef,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secretKey)
}

func (j *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.UserEntityRef == "" {
		return nil, fmt.Errorf("invalid token claims: missing subject")
	}
	return claims, nil
}
