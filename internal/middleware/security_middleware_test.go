package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestBuildContentSecurityPolicyKeepsDirectiveOrder(t *testing.T) {
	policy := buildContentSecurityPolicy(map[string][]string{
		"frame-ancestors": {"'none'"},
		"default-src":     {"'none'"},
		"unknown":         {"x"},
	})
	if policy != "default-src 'none'; frame-ancestors 'none'" {
		t.Fatalf("unexpected policy: %s", policy)
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(SecurityHeadersMiddleware())
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	directives := parseContentSecurityPolicy(rec.Header().Get("Content-Security-Policy"))
	if _, ok := directives["default-src"]["'none'"]; !ok {
		t.Fatalf("expected default-src 'none', got %v", directives)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected nosniff, got %q", got)
	}
	if got := rec.Header().Get("Strict-Transport-Security"); got != "" {
		t.Fatalf("expected no HSTS over plain HTTP, got %q", got)
	}
}

func parseContentSecurityPolicy(policy string) map[string]map[string]struct{} {
	result := make(map[string]map[string]struct{})

	for _, directive := range strings.Split(policy, ";") {
		directive = strings.TrimSpace(directive)
		if directive == "" {
			continue
		}

		parts := strings.Fields(directive)
		if len(parts) == 0 {
			continue
		}

		name := parts[0]
		values := make(map[string]struct{}, len(parts)-1)
		for _, value := range parts[1:] {
			values[value] = struct{}{}
		}

		result[name] = values
	}

	return result
}
