package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"virallens-backend/internal/config"
	"virallens-backend/internal/middleware"
	"virallens-backend/internal/models"
	"virallens-backend/internal/services"
)

type AuthHandler struct {
	authService *services.AuthService
	cfg         *config.Config
}

func NewAuthHandler(authService *services.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{authService: authService, cfg: cfg}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}

	user, err := h.authService.Signup(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err, h.cfg.IsProduction())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User created successfully",
		"user":    user,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}

	token, err := h.authService.Login(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err, h.cfg.IsProduction())
		return
	}

	http.SetCookie(w, h.authCookie(token, int(h.cfg.JWTExpiresIn/time.Second)))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Login successful"})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := middleware.TokenFromRequest(r); ok {
		if err := h.authService.Logout(r.Context(), token); err != nil {
			log.Printf("failed to revoke token on logout: %v", err)
		}
	}

	// Clearing the cookie needs the same attributes it was set with.
	http.SetCookie(w, h.authCookie("", -1))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())

	user, err := h.authService.GetProfile(r.Context(), principal.ID)
	if err != nil {
		handleServiceError(w, r, err, h.cfg.IsProduction())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Token is valid",
		"user": map[string]string{
			"id":    principal.ID.String(),
			"email": principal.Email,
		},
	})
}

func (h *AuthHandler) authCookie(token string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.cfg.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: parseSameSite(h.cfg.CookieSameSite),
	}
}

func parseSameSite(mode string) http.SameSite {
	switch mode {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// Shared helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, models.ErrorResponse{Error: message, Details: details})
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error, production bool) {
	switch e := err.(type) {
	case *services.ValidationError:
		writeError(w, http.StatusBadRequest, "Validation failed", e.Message)
	case *services.ConflictError:
		writeError(w, http.StatusConflict, e.Message, "")
	case *services.NotFoundError:
		writeError(w, http.StatusNotFound, e.Message, "")
	case *services.UnauthorizedError:
		writeError(w, http.StatusUnauthorized, e.Message, "")
	case *services.ForbiddenError:
		writeError(w, http.StatusForbidden, e.Message, "")
	default:
		if services.IsLLMError(err) {
			writeError(w, http.StatusInternalServerError, "Failed to generate AI response", err.Error())
			return
		}

		log.Printf("internal error on %s %s: %v", r.Method, r.URL.Path, err)
		details := ""
		if !production {
			details = err.Error()
		}
		writeError(w, http.StatusInternalServerError, "Internal server error", details)
	}
}
