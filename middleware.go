package main

import (
	"net/http"
	"strings"

	"banksampah/pkg/ledger"

	"github.com/gin-gonic/gin"
)

const actorKey = "actor"

// jwtAuth verifies the bearer token on every request and stores the caller
// as a ledger.Actor. With allowQuery, ?token= is accepted as well so that
// file downloads opened in a new browser tab can authenticate.
func jwtAuth(secret []byte, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := ""
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			raw = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		}
		if raw == "" && allowQuery {
			raw = c.Query("token")
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			return
		}
		actor, err := parseAccessToken(secret, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// requireRoles must run after jwtAuth.
func requireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := actorFrom(c)
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

func actorFrom(c *gin.Context) ledger.Actor {
	v, _ := c.Get(actorKey)
	a, _ := v.(ledger.Actor)
	return a
}
