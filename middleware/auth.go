package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"socialfeed/errs"
	"socialfeed/models"
)

const callerKey = "caller"

var ErrInvalidToken = errors.New("invalid token")

// Claims is the token payload issued by the account service.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// UserFinder loads the authenticated user's document.
type UserFinder interface {
	FindUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// ParseToken validates an HMAC-signed token and returns its user id.
func ParseToken(secret, tokenString string) (primitive.ObjectID, error) {
	if tokenString == "" {
		return primitive.NilObjectID, ErrInvalidToken
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return primitive.NilObjectID, ErrInvalidToken
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidToken
	}
	return id, nil
}

// TokenParser binds secret to ParseToken.
func TokenParser(secret string) func(string) (primitive.ObjectID, error) {
	return func(token string) (primitive.ObjectID, error) {
		return ParseToken(secret, token)
	}
}

// JWTAuth validates the bearer token and stores the caller's user document
// in the context.
func JWTAuth(secret string, users UserFinder, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip CORS preflight
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		tokenString, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abort(c, http.StatusUnauthorized, errs.Unauthorized, "Invalid Authentication.")
			return
		}

		userID, err := ParseToken(secret, tokenString)
		if err != nil {
			abort(c, http.StatusUnauthorized, errs.Unauthorized, "Invalid Authentication.")
			return
		}

		user, err := users.FindUser(c.Request.Context(), userID)
		if err != nil {
			if errs.KindOf(err) == errs.NotFound {
				abort(c, http.StatusUnauthorized, errs.Unauthorized, "Invalid Authentication.")
				return
			}
			log.Error("load caller failed", zap.String("user", userID.Hex()), zap.Error(err))
			err = errs.FromStorage(err)
			status := http.StatusInternalServerError
			if errs.KindOf(err) == errs.ServiceUnavailable {
				status = http.StatusServiceUnavailable
			}
			abort(c, status, errs.KindOf(err), errs.Message(err))
			return
		}

		c.Set(callerKey, user)
		c.Next()
	}
}

// Caller returns the user stored by JWTAuth.
func Caller(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

// SetCaller stores user as the authenticated caller.
func SetCaller(c *gin.Context, user *models.User) {
	c.Set(callerKey, user)
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1], true
	}
	// Bare tokens are still accepted from older clients.
	if len(parts) == 1 {
		return parts[0], true
	}
	return "", false
}

func abort(c *gin.Context, status int, kind errs.Kind, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"msg": msg, "kind": kind})
}
