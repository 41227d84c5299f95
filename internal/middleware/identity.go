package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/set-night/shopassist/internal/config"
)

type ctxKey string

const ClientIDKey ctxKey = "client_id"

var clientIDPattern = regexp.MustCompile(`^client_[a-f0-9]{32}$`)

// ClientIDFromContext extracts the browser identity from context.
func ClientIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ClientIDKey).(string)
	return id
}

// WithClientID stores id in ctx.
func WithClientID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ClientIDKey, id)
}

func generateClientID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate client id: %w", err)
	}
	return "client_" + hex.EncodeToString(buf), nil
}

func clientIDFromRequest(w http.ResponseWriter, r *http.Request, secure bool) (string, error) {
	id := ""
	if c, err := r.Cookie(config.ClientCookieName); err == nil && clientIDPattern.MatchString(c.Value) {
		id = c.Value
	}
	if id == "" {
		var err error
		if id, err = generateClientID(); err != nil {
			return "", err
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     config.ClientCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(config.ClientCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(config.ClientCookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
	return id, nil
}

// Identity assigns every browser a stable anonymous client id kept in a cookie.
// All widget state is keyed by it.
func Identity(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := clientIDFromRequest(w, r, secure)
			if err != nil {
				http.Error(w, `{"error":"failed to establish client identity"}`, http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClientID(r.Context(), id)))
		})
	}
}
