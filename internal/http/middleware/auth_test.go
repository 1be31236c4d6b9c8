package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"telegram_tapper/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":  "abc",
		"bearer abc ": "abc",
		"Basic abc":   "",
		"Bearer ":     "",
		"":            "",
	}
	for in, want := range tests {
		if got := BearerToken(in); got != want {
			t.Fatalf("BearerToken(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestJWTMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service.InitJWT("middleware-secret", time.Hour)
	id := uuid.New()
	token, err := service.GenerateJWT(id)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	r := gin.New()
	r.GET("/me", JWT(), func(c *gin.Context) {
		got, ok := PlayerID(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, got.String())
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status = %d; want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusOK && w.Body.String() != id.String() {
				t.Fatalf("player id = %s", w.Body.String())
			}
		})
	}
}
