package httpkit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type jwtCfg struct{ secret string }

func (c jwtCfg) GetJWTAccessSecret() string { return c.secret }

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func newAuthEngine(secret string, gotUser *uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/protected", AuthRequired(jwtCfg{secret: secret}), func(c *gin.Context) {
		id := MustGetIdentity(c)
		if id == nil {
			return
		}
		*gotUser = id.UserID()
		c.Status(http.StatusNoContent)
	})
	return engine
}

func TestAuthRequiredValidToken(t *testing.T) {
	uid := uuid.New()
	var gotUser uuid.UUID
	engine := newAuthEngine("secret", &gotUser)

	token := signToken(t, "secret", jwt.MapClaims{"sub": uid.String(), "type": "access"})
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if gotUser != uid {
		t.Fatalf("user id = %s, want %s", gotUser, uid)
	}
}

func TestAuthRequiredRejectsBadTokens(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{name: "missing header", token: ""},
		{name: "wrong secret", token: "sign-elsewhere"},
		{name: "refresh token", token: "refresh-type"},
		{name: "garbled subject", token: "bad-sub"},
	}

	uid := uuid.New()
	var gotUser uuid.UUID
	engine := newAuthEngine("secret", &gotUser)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			switch tt.token {
			case "":
			case "sign-elsewhere":
				req.Header.Set("Authorization", "Bearer "+signToken(t, "other-secret", jwt.MapClaims{"sub": uid.String(), "type": "access"}))
			case "refresh-type":
				req.Header.Set("Authorization", "Bearer "+signToken(t, "secret", jwt.MapClaims{"sub": uid.String(), "type": "refresh"}))
			case "bad-sub":
				req.Header.Set("Authorization", "Bearer "+signToken(t, "secret", jwt.MapClaims{"sub": "not-a-uuid", "type": "access"}))
			}

			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", w.Code)
			}
		})
	}
}
