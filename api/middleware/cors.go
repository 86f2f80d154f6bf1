package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

var allowedHeaders = []string{
	"Authorization",
	"X-Client-Info",
	"Apikey",
	"Content-Type",
	"X-Request-Id",
}

// CORS allows any origin; credentials travel as bearer tokens, never cookies.
func CORS() func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: allowedHeaders,
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}).Handler
}
