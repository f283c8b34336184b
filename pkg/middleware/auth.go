package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "maharaja/pkg/errors"
	httputil "maharaja/pkg/http"
	"maharaja/pkg/logger"
	"maharaja/pkg/model"

	"github.com/golang-jwt/jwt/v5"
)

const RequesterKey contextKey = "requester"

// Claims carries the caller identity in the subject and its role.
type Claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Authenticate resolves the bearer token into a Requester on the request
// context. Requests without a token continue anonymously; handlers decide
// whether an anonymous caller is allowed.
func Authenticate(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, found := bearerToken(r)
			if !found {
				next.ServeHTTP(w, r)
				return
			}

			requester, err := ParseToken(secret, raw)
			if err != nil {
				log.Warn("Rejected bearer token",
					"request_id", requestIDFrom(r),
					"path", r.URL.Path,
					"error", err,
				)
				if writeErr := httputil.WriteError(w, apperrors.Unauthorized("Invalid or expired token")); writeErr != nil {
					log.Error("failed to write error response", "middleware", "Authenticate", "error", writeErr)
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(WithRequester(r.Context(), requester)))
		})
	}
}

func ParseToken(secret, raw string) (model.Requester, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return model.Requester{}, err
	}
	if !token.Valid || claims.Subject == "" {
		return model.Requester{}, errors.New("token has no subject")
	}

	role := claims.Role
	switch role {
	case model.RoleAdmin, model.RoleStaff:
	default:
		role = model.RoleGuest
	}
	return model.Requester{ID: claims.Subject, Role: role}, nil
}

// IssueToken signs an HS256 token for the given caller.
func IssueToken(secret, subject string, role model.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func WithRequester(ctx context.Context, requester model.Requester) context.Context {
	return context.WithValue(ctx, RequesterKey, requester)
}

// RequesterFrom returns the caller on ctx, or an anonymous Requester.
func RequesterFrom(ctx context.Context) model.Requester {
	if requester, ok := ctx.Value(RequesterKey).(model.Requester); ok {
		return requester
	}
	return model.Requester{}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		token, found = strings.CutPrefix(header, "bearer ")
	}
	token = strings.TrimSpace(token)
	return token, found && token != ""
}
