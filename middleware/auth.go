package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/phillip/group-contributions-go/apperr"
	"github.com/phillip/group-contributions-go/config"
	"github.com/phillip/group-contributions-go/response"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"

	claimsKey = "claims"
)

// Claims is the payload of an API access token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for subject with the given role.
func IssueToken(secret, subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func ParseToken(secret, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// AuthMiddleware requires a valid bearer token. It lets everything through
// when no JWT secret is configured.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.AuthEnabled() {
			c.Next()
			return
		}
		tokenString := bearerToken(c)
		if tokenString == "" {
			response.Error(c, apperr.New(apperr.Unauthorized, "missing or invalid token"), false)
			return
		}
		claims, err := ParseToken(cfg.JWTSecret, tokenString)
		if err != nil {
			response.Error(c, apperr.New(apperr.Unauthorized, "invalid access token"), false)
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole rejects authenticated callers without role. Must run after
// AuthMiddleware.
func RequireRole(cfg *config.Config, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.AuthEnabled() {
			c.Next()
			return
		}
		claims := ClaimsFrom(c)
		if claims == nil || claims.Role != role {
			response.Error(c, apperr.New(apperr.Forbidden, "forbidden"), false)
			return
		}
		c.Next()
	}
}

func ClaimsFrom(c *gin.Context) *Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
