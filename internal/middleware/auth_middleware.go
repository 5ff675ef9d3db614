package middleware

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"cryptoacademy-backend/internal/authorization"
	"cryptoacademy-backend/pkg/logger"
)

const (
	AuthTokenCookieName = "auth_token"

	actorKey        = "actor"
	adminContextKey = "admin_context"
	claimsKey       = "claims"
)

var (
	errNoCredentials = errors.New("authorization credentials required")
	errBadHeader     = errors.New("invalid authorization header format")
)

// Claims are the identity claims issued by the auth provider.
type Claims struct {
	UserID    uint
	Email     string
	Name      string
	AvatarURL string
	Role      authorization.UserRole
}

func tokenFromRequest(c *gin.Context) (string, error) {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader != "" {
		bearerToken := strings.SplitN(authHeader, " ", 2)
		if len(bearerToken) == 2 && strings.EqualFold(bearerToken[0], "Bearer") {
			if token := strings.TrimSpace(bearerToken[1]); token != "" {
				return token, nil
			}
		}
		if cookieToken, err := c.Cookie(AuthTokenCookieName); err == nil && strings.TrimSpace(cookieToken) != "" {
			return cookieToken, nil
		}
		return "", errBadHeader
	}

	if cookieToken, err := c.Cookie(AuthTokenCookieName); err == nil && strings.TrimSpace(cookieToken) != "" {
		return cookieToken, nil
	}
	return "", errNoCredentials
}

// ParseToken verifies an HMAC-signed token and extracts its claims.
func ParseToken(tokenString, jwtSecret string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	if exp, ok := mapClaims["exp"].(float64); ok && time.Now().Unix() > int64(exp) {
		return nil, errors.New("token expired")
	}

	userID, ok := claimUint(mapClaims["user_id"])
	if !ok || userID == 0 {
		return nil, errors.New("token is missing a user id")
	}

	claims := &Claims{
		UserID:    userID,
		Email:     claimString(mapClaims["email"]),
		Name:      claimString(mapClaims["name"]),
		AvatarURL: claimString(mapClaims["avatar_url"]),
		Role:      authorization.RoleLearner,
	}
	if role, ok := authorization.ParseUserRole(mapClaims["role"]); ok {
		claims.Role = role
	}
	return claims, nil
}

func claimUint(value interface{}) (uint, bool) {
	switch v := value.(type) {
	case float64:
		if v < 0 || v > math.MaxUint32 || v != math.Trunc(v) {
			return 0, false
		}
		return uint(v), true
	case string:
		parsed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 32)
		if err != nil {
			return 0, false
		}
		return uint(parsed), true
	default:
		return 0, false
	}
}

func claimString(value interface{}) string {
	s, _ := value.(string)
	return strings.TrimSpace(s)
}

func setIdentity(c *gin.Context, claims *Claims) {
	actor := authorization.Actor{UserID: claims.UserID, Role: claims.Role}
	c.Set(claimsKey, claims)
	c.Set(actorKey, actor)
	c.Set("user_id", claims.UserID)
	c.Set("email", claims.Email)
	c.Set("name", claims.Name)
	c.Set("role", string(claims.Role))

	ctx := logger.ContextWithFields(c.Request.Context(), map[string]interface{}{"user_id": claims.UserID})
	c.Request = c.Request.WithContext(ctx)
}

// AuthMiddleware rejects requests without a valid token.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := tokenFromRequest(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		claims, err := ParseToken(tokenString, jwtSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		setIdentity(c, claims)
		c.Next()
	}
}

// OptionalAuthMiddleware identifies the caller when credentials are present
// and lets anonymous requests through. Invalid credentials are still rejected.
func OptionalAuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := tokenFromRequest(c)
		if errors.Is(err, errNoCredentials) {
			c.Set(actorKey, authorization.Anonymous())
			c.Next()
			return
		}
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		claims, err := ParseToken(tokenString, jwtSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		setIdentity(c, claims)
		c.Next()
	}
}

// AdminMiddleware issues the AdminContext for the request or rejects it.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		adminCtx, err := authorization.NewAdminContext(ActorFromContext(c))
		if err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			c.Abort()
			return
		}
		c.Set(adminContextKey, adminCtx)
		c.Next()
	}
}

// ActorFromContext returns the caller identity, or an anonymous actor.
func ActorFromContext(c *gin.Context) authorization.Actor {
	if value, ok := c.Get(actorKey); ok {
		if actor, ok := value.(authorization.Actor); ok {
			return actor
		}
	}
	return authorization.Anonymous()
}

// AdminContextFromContext returns the capability set by AdminMiddleware.
func AdminContextFromContext(c *gin.Context) (authorization.AdminContext, bool) {
	if value, ok := c.Get(adminContextKey); ok {
		if adminCtx, ok := value.(authorization.AdminContext); ok && adminCtx.Valid() {
			return adminCtx, true
		}
	}
	return authorization.AdminContext{}, false
}

func ClaimsFromContext(c *gin.Context) (*Claims, bool) {
	if value, ok := c.Get(claimsKey); ok {
		if claims, ok := value.(*Claims); ok {
			return claims, true
		}
	}
	return nil, false
}
