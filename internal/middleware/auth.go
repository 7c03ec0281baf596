package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"virallens-backend/internal/models"
)

type contextKey string

const principalKey contextKey = "principal"

// AuthCookieName is the HTTP-only cookie the login handler sets and the auth
// gate reads before falling back to the Authorization header.
const AuthCookieName = "authToken"

// Principal is the authenticated identity attached to the request context
// once the gate succeeds.
type Principal struct {
	ID    uuid.UUID
	Email string
}

type userFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// tokenDenylist records logged-out token IDs until their natural expiry.
type tokenDenylist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type JWTAuth struct {
	secret    []byte
	expiresIn time.Duration
	users     userFinder
	denylist  tokenDenylist
}

func NewJWTAuth(secret string, expiresIn time.Duration, users userFinder, denylist tokenDenylist) *JWTAuth {
	return &JWTAuth{
		secret:    []byte(secret),
		expiresIn: expiresIn,
		users:     users,
		denylist:  denylist,
	}
}

// GenerateToken signs a credential binding the user id and email. The jti
// claim identifies the token in the revocation denylist.
func (j *JWTAuth) GenerateToken(userID uuid.UUID, email string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"email":   email,
		"jti":     uuid.NewString(),
		"iat":     now.Unix(),
		"exp":     now.Add(j.expiresIn).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// TokenFromRequest extracts the raw credential: cookie first, then the
// Authorization header after the "Bearer " prefix.
func TokenFromRequest(r *http.Request) (string, bool) {
	if cookie, err := r.Cookie(AuthCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}

	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" && parts[1] != "" {
		return parts[1], true
	}

	return "", false
}

// Middleware is the required auth gate: it verifies the credential, resolves
// its subject against the user store and attaches a Principal to the request
// context, or rejects with 401.
func (j *JWTAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr, ok := TokenFromRequest(r)
		if !ok {
			writeAuthError(w, http.StatusUnauthorized, "Access token required")
			return
		}

		principal, err := j.resolve(r.Context(), tokenStr)
		if err != nil {
			status, message := classifyAuthError(err)
			writeAuthError(w, status, message)
			return
		}

		ctx := WithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalMiddleware attaches a Principal when a valid credential is present
// and proceeds without one otherwise. It never rejects.
func (j *JWTAuth) OptionalMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr, ok := TokenFromRequest(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		principal, err := j.resolve(r.Context(), tokenStr)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := WithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Revoke denylists the token's jti for the remainder of its lifetime, so a
// logged-out credential stops authenticating before it expires.
func (j *JWTAuth) Revoke(ctx context.Context, tokenStr string) error {
	if j.denylist == nil {
		return nil
	}

	claims, err := j.parseClaims(tokenStr)
	if err != nil {
		// Expired or malformed tokens have nothing left to revoke.
		return nil
	}

	jti, _ := claims["jti"].(string)
	if jti == "" {
		return nil
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}

	return j.denylist.Revoke(ctx, jti, time.Until(exp.Time))
}

var (
	errUserGone  = errors.New("token subject no longer exists")
	errRevoked   = errors.New("token has been revoked")
	errUserStore = errors.New("user lookup failed")
)

// resolve verifies the credential and resolves its subject to a Principal.
func (j *JWTAuth) resolve(ctx context.Context, tokenStr string) (Principal, error) {
	claims, err := j.parseClaims(tokenStr)
	if err != nil {
		return Principal{}, err
	}

	if jti, _ := claims["jti"].(string); jti != "" && j.denylist != nil {
		revoked, err := j.denylist.IsRevoked(ctx, jti)
		if err == nil && revoked {
			return Principal{}, errRevoked
		}
	}

	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		return Principal{}, jwt.ErrTokenInvalidClaims
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return Principal{}, jwt.ErrTokenInvalidClaims
	}

	// The token can outlive its subject; a deleted account must not keep
	// authenticating.
	user, err := j.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Principal{}, errUserGone
		}
		return Principal{}, errUserStore
	}

	return Principal{ID: user.ID, Email: user.Email}, nil
}

func (j *JWTAuth) parseClaims(tokenStr string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return j.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func classifyAuthError(err error) (int, string) {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return http.StatusUnauthorized, "Token has expired"
	case errors.Is(err, errUserGone):
		return http.StatusUnauthorized, "User not found"
	case errors.Is(err, errRevoked):
		return http.StatusUnauthorized, "Token has been revoked"
	case errors.Is(err, errUserStore):
		return http.StatusInternalServerError, "Token verification failed"
	default:
		return http.StatusUnauthorized, "Invalid token"
	}
}

// WithPrincipal attaches a principal to the context the same way the gates
// do. Useful for exercising handlers without a real token.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// GetPrincipal returns the authenticated principal, or the zero value when
// the request did not pass a gate.
func GetPrincipal(ctx context.Context) Principal {
	p, _ := ctx.Value(principalKey).(Principal)
	return p
}

// PrincipalFromContext is the two-value form for handlers behind the optional
// gate.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: message})
}
