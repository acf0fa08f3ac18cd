package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/boddenberg/stylist-bfa-go/internal/domain"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/observability"
)

// DevUserHeader carries the user id when dev auth is enabled.
const DevUserHeader = "X-User-ID"

// Auth verifies HS256 bearer tokens issued by the surrounding application.
// The token subject is the user id.
type Auth struct {
	secret  []byte
	devAuth bool
	logger  *zap.Logger
}

// NewAuth creates the verifier. With devAuth the X-User-ID header is trusted
// when no bearer token is sent.
func NewAuth(secret string, devAuth bool, logger *zap.Logger) *Auth {
	return &Auth{secret: []byte(secret), devAuth: devAuth, logger: logger}
}

// Verify parses the token and returns its subject.
func (a *Auth) Verify(tokenString string) (string, error) {
	if len(a.secret) == 0 {
		return "", &domain.ErrUnauthorized{Message: "token verification is not configured"}
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}
	if claims.Subject == "" {
		return "", &domain.ErrUnauthorized{Message: "token has no subject"}
	}
	return claims.Subject, nil
}

// Middleware authenticates the request and stores the user id in the context.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := a.authenticate(r)
		if err != nil {
			a.logger.Warn("auth: rejected request",
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err),
			)
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		ctx := observability.WithUserID(r.Context(), userID)
		observability.AnnotateUser(ctx, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Auth) authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if a.devAuth {
			if id := strings.TrimSpace(r.Header.Get(DevUserHeader)); id != "" {
				return id, nil
			}
		}
		return "", &domain.ErrUnauthorized{Message: "missing bearer token"}
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", &domain.ErrUnauthorized{Message: "invalid authorization header"}
	}
	return a.Verify(strings.TrimSpace(parts[1]))
}

// UserIDFromContext returns the authenticated user id.
func UserIDFromContext(ctx context.Context) string {
	return observability.UserIDFromContext(ctx)
}

// RequestMetrics counts API requests by outcome. 5xx responses are errors.
func RequestMetrics(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if ww.Status() >= http.StatusInternalServerError {
				metrics.IncrRequest("error")
				return
			}
			metrics.IncrRequest("success")
		})
	}
}
