package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// apiContentSecurityPolicy allows nothing to load from JSON responses.
var apiContentSecurityPolicy = buildContentSecurityPolicy(map[string][]string{
	"default-src":     {"'none'"},
	"frame-ancestors": {"'none'"},
	"base-uri":        {"'none'"},
})

func buildContentSecurityPolicy(directives map[string][]string) string {
	order := []string{"default-src", "base-uri", "frame-ancestors"}
	parts := make([]string, 0, len(directives))
	for _, name := range order {
		values, ok := directives[name]
		if !ok || len(values) == 0 {
			continue
		}
		parts = append(parts, name+" "+strings.Join(values, " "))
	}
	return strings.Join(parts, "; ")
}

func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-DNS-Prefetch-Control", "off")
		c.Header("X-Permitted-Cross-Domain-Policies", "none")
		c.Header("Cross-Origin-Resource-Policy", "same-site")
		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Header("Content-Security-Policy", apiContentSecurityPolicy)
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
