package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"grievance/backend/internal/complaint"
	"grievance/backend/internal/models"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer = "grievance-service"
	actorKey    = "actor"
)

// Claims carries the authenticated actor.
type Claims struct {
	ActorID string      `json:"actor_id"`
	Role    models.Role `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs a token for actor that expires after ttl.
func IssueToken(secret []byte, actor complaint.Actor, ttl time.Duration) (string, error) {
	if actor.ID == "" || !actor.Role.Valid() {
		return "", fmt.Errorf("invalid actor %q with role %q", actor.ID, actor.Role)
	}
	now := time.Now()
	claims := Claims{
		ActorID: actor.ID,
		Role:    actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseToken verifies a token and returns the actor it was issued for.
func ParseToken(secret []byte, tokenString string) (complaint.Actor, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return complaint.Actor{}, err
	}
	if claims.ActorID == "" || !claims.Role.Valid() {
		return complaint.Actor{}, errors.New("token has no valid actor")
	}
	return complaint.Actor{ID: claims.ActorID, Role: claims.Role}, nil
}

// Authenticate rejects requests without a valid bearer token and stores the
// actor in the gin context.
func (h *Handler) Authenticate(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		h.abort(c, http.StatusUnauthorized, "token", "authorization token missing")
		return
	}

	actor, err := ParseToken(h.secret, strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		h.abort(c, http.StatusUnauthorized, "token", "invalid token or expired")
		return
	}

	c.Set(actorKey, actor)
	c.Next()
}

func actorFrom(c *gin.Context) complaint.Actor {
	actor, _ := c.MustGet(actorKey).(complaint.Actor)
	return actor
}
