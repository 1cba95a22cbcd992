package jwt

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
)

const DefaultTokenTTL = 24 * time.Hour

var idClaims = map[UserType][]string{
	Agent:    {"id", "agentId"},
	Admin:    {"id", "adminId"},
	Customer: {"id", "customerId"},
}

// CreateToken signs user with secret. validUntil of zero means DefaultTokenTTL from now.
func CreateToken(secret string, user User, validUntil int64) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("signing secret is empty")
	}

	if validUntil == 0 {
		validUntil = time.Now().Add(DefaultTokenTTL).Unix()
	}

	claims := jwt.MapClaims{
		"type": string(user.Type),
		"exp":  validUntil,
	}
	if user.ID != "" {
		claims["id"] = user.ID
	}
	if user.Name != "" {
		claims["name"] = user.Name
	}
	if user.Email != "" {
		claims["email"] = user.Email
	}
	if user.DepartmentID != "" {
		claims["departmentId"] = user.DepartmentID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken verifies signature and expiry and returns the raw claims.
func ParseToken(secret, tokenString string) (jwt.MapClaims, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tokenString), "Bearer "))
	if len(tokenString) == 0 {
		return nil, fmt.Errorf("token string is empty")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("unauthorized: %v", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid - unauthorized")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("claims of unauthorized type")
	}

	return claims, nil
}

// UserFromClaims reads the relay claim shape. The returned Type is empty when
// the token names no known type; ID is empty when no id claim is present.
func UserFromClaims(claims jwt.MapClaims) User {
	user := User{
		Type:         UserType(stringClaim(claims, "type")),
		Name:         stringClaim(claims, "name"),
		Email:        stringClaim(claims, "email"),
		DepartmentID: stringClaim(claims, "departmentId"),
	}

	keys, known := idClaims[user.Type]
	if !known {
		user.Type = ""
		keys = []string{"id", "customerId"}
	}
	for _, key := range keys {
		if id := stringClaim(claims, key); id != "" {
			user.ID = id
			break
		}
	}
	return user
}

func stringClaim(claims jwt.MapClaims, key string) string {
	switch v := claims[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}
