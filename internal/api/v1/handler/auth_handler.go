package handler

import (
	"net/http"

	"lmsadmin/internal/api/v1/dto"
	"lmsadmin/internal/identity"
	"lmsadmin/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// AuthHandler handles sign-up, sign-in, sign-out and password reset
type AuthHandler struct {
	authService service.AuthService
	validate    *validator.Validate
	logger      zerolog.Logger
}

func NewAuthHandler(authService service.AuthService, validate *validator.Validate, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validate,
		logger:      logger.With().Str("handler", "AuthHandler").Logger(),
	}
}

// RegisterRoutes mounts auth routes. Only sign-out needs a session.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.HandleFunc("POST /auth/signup", h.signUp)
	mux.HandleFunc("POST /auth/signin", h.signIn)
	mux.HandleFunc("POST /auth/signin/google", h.signInGoogle)
	mux.Handle("POST /auth/signout", authMw(http.HandlerFunc(h.signOut)))
	mux.HandleFunc("POST /auth/password-reset", h.requestPasswordReset)
	mux.HandleFunc("POST /auth/password-reset/confirm", h.confirmPasswordReset)
}

func (h *AuthHandler) writeSession(w http.ResponseWriter, status int, res *service.AuthResult) {
	writeJSON(w, status, dto.SessionResponseDTO{
		Token:     res.Session.Token,
		SessionID: res.Session.ID,
		ExpiresAt: res.Session.ExpiresAt,
		User:      dto.NewUserResponse(res.User),
	})
}

// signUp godoc
// @Summary Create an account
// @Tags auth
// @Accept json
// @Produce json
// @Param body body dto.SignUpDTO true "Sign-up request"
// @Success 201 {object} dto.SessionResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO
// @Failure 409 {object} dto.ErrorResponseDTO "Email already in use"
// @Router /auth/signup [post]
func (h *AuthHandler) signUp(w http.ResponseWriter, r *http.Request) {
	var req dto.SignUpDTO
	if !decode(w, r, &req, h.validate) {
		return
	}
	res, err := h.authService.SignUp(r.Context(), service.SignUpInput{Name: req.Name, Email: req.Email, Password: req.Password, Phone: req.Phone})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeSession(w, http.StatusCreated, res)
}

// signIn godoc
// @Summary Sign in with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param body body dto.SignInDTO true "Credentials"
// @Success 200 {object} dto.SessionResponseDTO
// @Failure 401 {object} dto.ErrorResponseDTO
// @Failure 429 {object} dto.ErrorResponseDTO "Too many failed attempts"
// @Router /auth/signin [post]
func (h *AuthHandler) signIn(w http.ResponseWriter, r *http.Request) {
	var req dto.SignInDTO
	if !decode(w, r, &req, h.validate) {
		return
	}
	res, err := h.authService.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeSession(w, http.StatusOK, res)
}

// signInGoogle godoc
// @Summary Sign in with a Google ID token
// @Tags auth
// @Accept json
// @Produce json
// @Param body body dto.GoogleSignInDTO true "Google ID token"
// @Success 200 {object} dto.SessionResponseDTO
// @Failure 401 {object} dto.ErrorResponseDTO
// @Router /auth/signin/google [post]
func (h *AuthHandler) signInGoogle(w http.ResponseWriter, r *http.Request) {
	var req dto.GoogleSignInDTO
	if !decode(w, r, &req, nil) {
		return
	}
	res, err := h.authService.SignInFederated(r.Context(), req.IDToken)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeSession(w, http.StatusOK, res)
}

// signOut godoc
// @Summary End the current session
// @Tags auth
// @Security BearerAuth
// @Success 204
// @Router /auth/signout [post]
func (h *AuthHandler) signOut(w http.ResponseWriter, r *http.Request) {
	sessionID, _ := identity.SessionID(r.Context())
	if err := h.authService.SignOut(r.Context(), sessionID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requestPasswordReset godoc
// @Summary Email a password reset link
// @Tags auth
// @Accept json
// @Param body body dto.PasswordResetDTO true "Account email"
// @Success 202
// @Failure 401 {object} dto.ErrorResponseDTO "No account with this email"
// @Router /auth/password-reset [post]
func (h *AuthHandler) requestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req dto.PasswordResetDTO
	if !decode(w, r, &req, h.validate) {
		return
	}
	if err := h.authService.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// confirmPasswordReset godoc
// @Summary Set a new password with a reset token
// @Tags auth
// @Accept json
// @Param body body dto.PasswordResetConfirmDTO true "Reset token and new password"
// @Success 204
// @Failure 400 {object} dto.ErrorResponseDTO
// @Router /auth/password-reset/confirm [post]
func (h *AuthHandler) confirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req dto.PasswordResetConfirmDTO
	if !decode(w, r, &req, h.validate) {
		return
	}
	if err := h.authService.ConfirmPasswordReset(r.Context(), req.Token, req.Password); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
