package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"virallens-backend/internal/models"
)

type fakeUserFinder struct {
	users map[uuid.UUID]*models.User
}

func (f *fakeUserFinder) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

type fakeDenylist struct {
	revoked map[string]bool
}

func (f *fakeDenylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	f.revoked[jti] = true
	return nil
}

func (f *fakeDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return f.revoked[jti], nil
}

func newTestGate(expiresIn time.Duration) (*JWTAuth, *models.User) {
	user := &models.User{ID: uuid.New(), Email: "test@example.com"}
	finder := &fakeUserFinder{users: map[uuid.UUID]*models.User{user.ID: user}}
	denylist := &fakeDenylist{revoked: make(map[string]bool)}
	return NewJWTAuth("test-secret", expiresIn, finder, denylist), user
}

// principalEcho responds with the principal the gate attached.
func principalEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := GetPrincipal(r.Context())
		json.NewEncoder(w).Encode(map[string]string{
			"id":    principal.ID.String(),
			"email": principal.Email,
		})
	})
}

func TestMiddleware_MissingToken(t *testing.T) {
	gate, _ := newTestGate(time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/api/chat/chats", nil)
	rr := httptest.NewRecorder()

	gate.Middleware(principalEcho()).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", rr.Code)
	}

	var resp models.ErrorResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Error != "Access token required" {
		t.Errorf("Expected 'Access token required', got %q", resp.Error)
	}
}

func TestMiddleware_CookieToken(t *testing.T) {
	gate, user := newTestGate(time.Hour)

	token, err := gate.GenerateToken(user.ID, user.Email)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/chat/chats", nil)
	req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: token})
	rr := httptest.NewRecorder()

	gate.Middleware(principalEcho()).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]string
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp["id"] != user.ID.String() {
		t.Errorf("Expected principal id %s, got %s", user.ID, resp["id"])
	}
	if resp["email"] != user.Email {
		t.Errorf("Expected principal email %s, got %s", user.Email, resp["email"])
	}
}

func TestMiddleware_BearerFallback(t *testing.T) {
	gate, user := newTestGate(time.Hour)

	token, err := gate.GenerateToken(user.ID, user.Email)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/chat/chats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	gate.Middleware(principalEcho()).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
}

func TestMiddleware_CookieTakesPrecedence(t *testing.T) {
	gate, user := newTestGate(time.Hour)

	token, _ := gate.GenerateToken(user.ID, user.Email)

	// A garbage cookie must not be rescued by a valid bearer header.
	req := httptest.NewRequest(http.MethodGet, "/api/chat/chats", nil)
	req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: "not-a-jwt"})
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	gate.Middleware(principalEcho()).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", rr.Code)
	}
}

func TestMiddleware_ExpiredToken(t *testing.T) {
	gate, user := newTestGate(-time.Minute)

	token, err := gate.GenerateToken(user.ID, user.Email)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/chat/chats", nil)
	req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: token})
	rr := httptest.NewRecorder()

	gate.Middleware(principalEcho()).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 for expired token, got %d", rr.Code)
	}

	var resp models.ErrorResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Error != "Token has expired" {
		t.Errorf("Expected 'Token has expired', got %q", resp.Error)
	}
}

func TestMiddleware_WrongSecret(t *testing.T) {
	gate, user := newTestGate(time.Hour)
	otherGate := NewJWTAuth("other-secret", time.Hour, &fakeUserFinder{}, nil)

	token, _ := otherGate.GenerateToken(user.ID, user.Email)

	req := httptest.NewRequest(http.MethodGet, "/api/chat/chats", nil)
	req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: token})
	rr := httptest.NewRecorder()

	gate.Middleware(principalEcho()).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 for bad signature, got %d", rr.Code)
	}
}

func TestMiddleware_DeletedUser(t *testing.T) {
	gate, _ := newTestGate(time.Hour)

	// Well-formed token whose subject no longer exists.
	token, err := gate.GenerateToken(uuid.New(), "gone@example.com")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/chat/chats", nil)
	req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: token})
	rr := httptest.NewRecorder()

	gate.Middleware(principalEcho()).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 for deleted user, got %d", rr.Code)
	}

	var resp models.ErrorResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Error != "User not found" {
		t.Errorf("Expected 'User not found', got %q", resp.Error)
	}
}

func TestMiddleware_RevokedToken(t *testing.T) {
	gate, user := newTestGate(time.Hour)

	token, err := gate.GenerateToken(user.ID, user.Email)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if err := gate.Revoke(context.Background(), token); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/chat/chats", nil)
	req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: token})
	rr := httptest.NewRecorder()

	gate.Middleware(principalEcho()).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 for revoked token, got %d", rr.Code)
	}
}

func TestOptionalMiddleware(t *testing.T) {
	gate, user := newTestGate(time.Hour)

	handler := gate.OptionalMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := PrincipalFromContext(r.Context())
		json.NewEncoder(w).Encode(map[string]bool{"authenticated": ok})
	}))

	// Without a credential the request proceeds unauthenticated.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	var resp map[string]bool
	json.NewDecoder(rr.Body).Decode(&resp)
	if rr.Code != http.StatusOK || resp["authenticated"] {
		t.Fatalf("Expected anonymous pass-through, got %d %v", rr.Code, resp)
	}

	// With a valid credential the principal is attached.
	token, _ := gate.GenerateToken(user.ID, user.Email)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: token})
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	json.NewDecoder(rr.Body).Decode(&resp)
	if rr.Code != http.StatusOK || !resp["authenticated"] {
		t.Fatalf("Expected authenticated pass-through, got %d %v", rr.Code, resp)
	}

	// An invalid credential is ignored, not rejected.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: "garbage"})
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	json.NewDecoder(rr.Body).Decode(&resp)
	if rr.Code != http.StatusOK || resp["authenticated"] {
		t.Fatalf("Expected anonymous pass-through for bad token, got %d %v", rr.Code, resp)
	}
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name      string
		cookie    string
		header    string
		wantToken string
		wantOK    bool
	}{
		{"cookie only", "cookie-token", "", "cookie-token", true},
		{"header only", "", "Bearer header-token", "header-token", true},
		{"cookie wins over header", "cookie-token", "Bearer header-token", "cookie-token", true},
		{"missing both", "", "", "", false},
		{"malformed header", "", "Basic abc", "", false},
		{"bearer with empty token", "", "Bearer ", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: tc.cookie})
			}
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}

			token, ok := TokenFromRequest(req)
			if ok != tc.wantOK || token != tc.wantToken {
				t.Errorf("Expected (%q, %v), got (%q, %v)", tc.wantToken, tc.wantOK, token, ok)
			}
		})
	}
}
