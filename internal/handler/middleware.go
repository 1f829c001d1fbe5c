package handler

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/GoArmGo/MarketApp/internal/auth"
	"github.com/GoArmGo/MarketApp/internal/domain"
)

// RequestLogger - middleware для логирования HTTP-запросов.
func RequestLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Оборачиваем ResponseWriter, чтобы знать статус
			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(ww, r)

			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

// responseWriter нужен, чтобы перехватывать код ответа
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack нужен для WebSocket-соединений камеры
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

type identityKey struct{}

// WithIdentity кладет пользователя в контекст запроса
func WithIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext возвращает пользователя, проверенного Authenticator
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(domain.Identity)
	return identity, ok
}

// Authenticator - middleware проверки токена доступа.
// Токен берется из заголовка Authorization или параметра access_token (для WebSocket).
func Authenticator(verifier *auth.Verifier, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				respondWithError(w, http.StatusUnauthorized, "Требуется авторизация", logger)
				return
			}

			claims, err := verifier.ParseToken(token)
			if err != nil {
				logger.Warn("invalid access token", "path", r.URL.Path, "error", err)
				respondWithError(w, http.StatusUnauthorized, "Недействительный токен", logger)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), claims.Identity())))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return r.URL.Query().Get("access_token")
}

// mustIdentity возвращает пользователя или отвечает 401
func mustIdentity(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (domain.Identity, bool) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok || identity.UID == "" {
		respondWithError(w, http.StatusUnauthorized, "Требуется авторизация", logger)
		return domain.Identity{}, false
	}
	return identity, true
}
