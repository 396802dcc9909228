package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"socialfeed/errs"
	"socialfeed/models"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type userMap map[primitive.ObjectID]*models.User

func (m userMap) FindUser(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if u, ok := m[id]; ok {
		return u, nil
	}
	return nil, errs.Errorf(errs.NotFound, "User not found.")
}

type failingUsers struct{ err error }

func (f failingUsers) FindUser(context.Context, primitive.ObjectID) (*models.User, error) {
	return nil, f.err
}

func signToken(t *testing.T, userID string, method jwt.SigningMethod, exp time.Time) string {
	t.Helper()
	claims := Claims{
		UserID:           userID,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)},
	}
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestParseToken(t *testing.T) {
	id := primitive.NewObjectID()
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"valid", signToken(t, id.Hex(), jwt.SigningMethodHS256, future), false},
		{"expired", signToken(t, id.Hex(), jwt.SigningMethodHS256, time.Now().Add(-time.Hour)), true},
		{"bad user id", signToken(t, "nope", jwt.SigningMethodHS256, future), true},
		{"empty", "", true},
		{"garbage", "a.b.c", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseToken(testSecret, tt.token)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != id {
				t.Fatalf("id = %s, want %s", got.Hex(), id.Hex())
			}
		})
	}

	if _, err := ParseToken("other-secret", signToken(t, id.Hex(), jwt.SigningMethodHS256, future)); err == nil {
		t.Fatal("token signed with another secret accepted")
	}
}

func authRouter(users UserFinder) *gin.Engine {
	r := gin.New()
	r.Use(JWTAuth(testSecret, users, zap.NewNop()))
	r.GET("/me", func(c *gin.Context) {
		u, ok := Caller(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"username": u.Username})
	})
	return r
}

func TestJWTAuth(t *testing.T) {
	alice := &models.User{ID: primitive.NewObjectID(), Username: "alice"}
	users := userMap{alice.ID: alice}
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name   string
		users  UserFinder
		header string
		status int
		kind   errs.Kind
	}{
		{"bearer", users, "Bearer " + signToken(t, alice.ID.Hex(), jwt.SigningMethodHS256, future), http.StatusOK, ""},
		{"bare token", users, signToken(t, alice.ID.Hex(), jwt.SigningMethodHS256, future), http.StatusOK, ""},
		{"missing", users, "", http.StatusUnauthorized, errs.Unauthorized},
		{"unknown user", users, "Bearer " + signToken(t, primitive.NewObjectID().Hex(), jwt.SigningMethodHS256, future), http.StatusUnauthorized, errs.Unauthorized},
		{"storage down", failingUsers{context.DeadlineExceeded}, "Bearer " + signToken(t, alice.ID.Hex(), jwt.SigningMethodHS256, future), http.StatusServiceUnavailable, errs.ServiceUnavailable},
		{"storage error", failingUsers{errors.New("boom")}, "Bearer " + signToken(t, alice.ID.Hex(), jwt.SigningMethodHS256, future), http.StatusInternalServerError, errs.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			authRouter(tt.users).ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.status, w.Body.String())
			}
			if tt.kind == "" {
				return
			}
			var body struct {
				Msg  string    `json:"msg"`
				Kind errs.Kind `json:"kind"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Kind != tt.kind || body.Msg == "" {
				t.Fatalf("body = %+v", body)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(NewIPRateLimiter(2)))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}

	// Another client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("second client status = %d", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), AccessLog(zap.NewNop()))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(RequestIDHeader)
	if generated == "" || w.Body.String() != generated {
		t.Fatalf("generated id %q, body %q", generated, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Fatalf("incoming id not reused: %q", got)
	}
}
