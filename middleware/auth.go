package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/expertqa/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// ContextClaimsKey stores the parsed *utils.Claims for logout.
	ContextClaimsKey = "claims"
)

type authFailure struct {
	code    int
	message string
}

// AuthRequired ensures the request is authenticated via JWT.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims, fail := authenticate(ctx)
		if fail != nil {
			utils.Error(ctx, http.StatusUnauthorized, fail.code, fail.message)
			ctx.Abort()
			return
		}
		setIdentity(ctx, claims)
		ctx.Next()
	}
}

// OptionalAuth attaches the identity when a valid token is present and
// otherwise lets the request through as a guest.
func OptionalAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.GetHeader("Authorization") != "" {
			if claims, fail := authenticate(ctx); fail == nil {
				setIdentity(ctx, claims)
			}
		}
		ctx.Next()
	}
}

func authenticate(ctx *gin.Context) (*utils.Claims, *authFailure) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return nil, &authFailure{40101, "authorization header missing"}
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, &authFailure{40102, "invalid authorization header format"}
	}

	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return nil, &authFailure{40103, "empty bearer token"}
	}

	claims, err := utils.ParseToken(tokenString)
	if err != nil {
		return nil, &authFailure{40105, "invalid token"}
	}

	if utils.IsTokenBlacklisted(claims.ID) {
		return nil, &authFailure{40104, "token revoked"}
	}
	return claims, nil
}

func setIdentity(ctx *gin.Context, claims *utils.Claims) {
	ctx.Set(ContextUserIDKey, claims.UserID)
	ctx.Set(ContextUsernameKey, claims.Username)
	ctx.Set(ContextClaimsKey, claims)
}
