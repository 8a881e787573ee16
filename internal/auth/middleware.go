package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const CtxClaimsKey = "auth_claims"

// Verifier checks raw tokens. When Repo is set the token version must match
// the player's current one, so logout and password changes revoke old tokens.
type Verifier struct {
	Tokens TokenService
	Repo   *Repo
}

func (v Verifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	claims, err := v.Tokens.Parse(raw)
	if err != nil {
		return nil, err
	}
	if v.Repo != nil {
		currentVersion, err := v.Repo.GetTokenVersion(ctx, claims.PlayerID)
		if err != nil {
			return nil, err
		}
		if currentVersion != claims.TokenVersion {
			return nil, errors.New("token revoked")
		}
	}
	return claims, nil
}

// PlayerID satisfies the sync server's authenticator.
func (v Verifier) PlayerID(ctx context.Context, raw string) (string, error) {
	claims, err := v.Verify(ctx, raw)
	if err != nil {
		return "", err
	}
	return claims.PlayerID, nil
}

// AuthMiddleware accepts a bearer token, or a "token" query parameter for
// WebSocket upgrades where browsers cannot set headers.
func AuthMiddleware(tokens TokenService, repo *Repo) gin.HandlerFunc {
	v := Verifier{Tokens: tokens, Repo: repo}
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			c.Abort()
			return
		}

		claims, err := v.Verify(c.Request.Context(), raw)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if h != "" && strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	return strings.TrimSpace(c.Query("token"))
}

func MustGetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}

// PlayerID returns the authenticated player's id, or "" when the request
// did not pass AuthMiddleware.
func PlayerID(c *gin.Context) string {
	if claims := MustGetClaims(c); claims != nil {
		return claims.PlayerID
	}
	return ""
}
