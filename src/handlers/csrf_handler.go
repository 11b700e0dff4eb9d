package handlers

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/logger"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/utils"
)

const (
	csrfCookieName = "_csrf_token"
	csrfHeaderName = "X-CSRF-Token"
)

// GetCSRFToken issues a double-submit token as a cookie and in the body.
func GetCSRFToken(w http.ResponseWriter, r *http.Request) {
	token := generateRandomToken()

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		MaxAge:   3600,
	})

	w.Header().Set(csrfHeaderName, token)
	utils.SendJSON(w, map[string]string{"csrfToken": token}, http.StatusOK)
}

func generateRandomToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		logger.L.Error("Error generating random bytes for CSRF token", "error", err)
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return base64.StdEncoding.EncodeToString(b)
}

// CSRFMiddleware checks that state-changing requests echo the CSRF cookie in
// the X-CSRF-Token header. Safe methods pass through.
func CSRFMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		headerToken := r.Header.Get(csrfHeaderName)
		cookie, errCookie := r.Cookie(csrfCookieName)
		if headerToken != "" && errCookie == nil &&
			subtle.ConstantTimeCompare([]byte(headerToken), []byte(cookie.Value)) == 1 {
			next.ServeHTTP(w, r)
			return
		}

		logger.FromContext(r.Context()).Warn("CSRF Validation Failed",
			slog.String("method", r.Method),
			slog.String("url", r.URL.String()),
			slog.Bool("headerTokenPresent", headerToken != ""),
			slog.Any("cookieError", errCookie),
			slog.String("origin", r.Header.Get("Origin")),
		)
		utils.SendJSONError(w, "CSRF token validation failed", http.StatusForbidden)
	})
}
