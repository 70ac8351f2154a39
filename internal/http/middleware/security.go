// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the response hardening headers. SecurityHeaders covers every
// response (JSON API and static files); ContentSecurityPolicy is added only on
// the static chain that serves the HTML front-end.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// defaultHSTSMaxAge applies when SecurityOptions.HSTSMaxAge is not positive.
const defaultHSTSMaxAge = 180 * 24 * time.Hour

// SecurityOptions configures SecurityHeaders.
//
// HSTS is sent only on HTTPS requests, directly or behind a proxy setting
// X-Forwarded-Proto, so leave EnableHSTS off for plain-HTTP deployments.
type SecurityOptions struct {
	EnableHSTS   bool          // Strict-Transport-Security on HTTPS requests
	HSTSMaxAge   time.Duration // defaults to 180 days
	NoStore      bool          // Cache-Control: no-store for session-bearing API responses
	EnablePolicy bool          // Permissions-Policy and X-Permitted-Cross-Domain-Policies
}

type header struct{ key, value string }

// fixedHeaders returns the headers that do not depend on the request.
func (o SecurityOptions) fixedHeaders() []header {
	hs := []header{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"Referrer-Policy", "no-referrer"},
	}
	if o.EnablePolicy {
		hs = append(hs,
			header{"Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()"},
			header{"X-Permitted-Cross-Domain-Policies", "none"},
		)
	}
	if o.NoStore {
		hs = append(hs,
			header{"Cache-Control", "no-store"},
			header{"Pragma", "no-cache"},
			header{"Expires", "0"},
		)
	}
	return hs
}

func (o SecurityOptions) hstsValue() string {
	age := o.HSTSMaxAge
	if age <= 0 {
		age = defaultHSTSMaxAge
	}
	return "max-age=" + strconv.Itoa(int(age.Seconds())) + "; includeSubDomains; preload"
}

// SecurityHeaders sets the hardening headers described by opt and makes the
// request id readable by browser clients through Access-Control-Expose-Headers.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	fixed := opt.fixedHeaders()
	hsts := opt.hstsValue()

	return func(c *gin.Context) {
		h := c.Writer.Header()
		for _, kv := range fixed {
			h.Set(kv.key, kv.value)
		}
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}
		if h.Get(requestIDHeader) != "" {
			exposeHeader(h, requestIDHeader)
		}
		c.Next()
	}
}

// exposeHeader appends name to Access-Control-Expose-Headers once.
func exposeHeader(h http.Header, name string) {
	const key = "Access-Control-Expose-Headers"
	cur := h.Get(key)
	switch {
	case cur == "":
		h.Set(key, name)
	case !strings.Contains(cur, name):
		h.Set(key, cur+", "+name)
	}
}

func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// DefaultCSP allows only same-origin scripts, styles, images and fetch/SSE.
const DefaultCSP = "default-src 'self'; img-src 'self' data:; style-src 'self' 'unsafe-inline'; " +
	"connect-src 'self'; frame-ancestors 'none'; base-uri 'self'; form-action 'self'"

// ContentSecurityPolicy sets the Content-Security-Policy header. An empty
// policy means DefaultCSP.
func ContentSecurityPolicy(policy string) gin.HandlerFunc {
	if strings.TrimSpace(policy) == "" {
		policy = DefaultCSP
	}
	return func(c *gin.Context) {
		c.Header("Content-Security-Policy", policy)
		c.Next()
	}
}
