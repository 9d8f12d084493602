package handler

import (
	"net/http"

	"lmsadmin/internal/api/v1/dto"
	"lmsadmin/internal/identity"
	"lmsadmin/internal/model"
	"lmsadmin/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type UserHandler struct {
	userService  service.UserService
	authService  service.AuthService
	draftService service.DraftService
	validate     *validator.Validate
	logger       zerolog.Logger
}

func NewUserHandler(userService service.UserService, authService service.AuthService, draftService service.DraftService, v *validator.Validate, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		userService:  userService,
		authService:  authService,
		draftService: draftService,
		validate:     v,
		logger:       logger.With().Str("handler", "UserHandler").Logger(),
	}
}

// RegisterRoutes mounts v1 user routes
func (h *UserHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("GET /users/me", authMw(http.HandlerFunc(h.getMe)))
	mux.Handle("PUT /users/me", authMw(http.HandlerFunc(h.updateMe)))
	mux.Handle("POST /users/me/avatar", authMw(http.HandlerFunc(h.uploadAvatar)))
	mux.Handle("GET /users", authMw(http.HandlerFunc(h.listUsers)))
	mux.Handle("GET /users/export", authMw(http.HandlerFunc(h.exportUsers)))
	mux.Handle("GET /users/{id}", authMw(http.HandlerFunc(h.getUser)))
	mux.Handle("PUT /users/{id}", authMw(http.HandlerFunc(h.updateUser)))
	mux.Handle("DELETE /users/{id}", authMw(http.HandlerFunc(h.deleteUser)))
	mux.Handle("POST /users/{id}/status", authMw(http.HandlerFunc(h.setStatus)))
}

func callerID(r *http.Request) string {
	id, _ := identity.UserID(r.Context())
	return id
}

func (h *UserHandler) writeUser(w http.ResponseWriter, u *model.User) {
	writeJSON(w, http.StatusOK, dto.NewUserResponse(u))
}

// getMe godoc
// @Summary Get the signed-in user's profile
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.UserResponseDTO
// @Failure 404 {object} dto.ErrorResponseDTO
// @Router /users/me [get]
func (h *UserHandler) getMe(w http.ResponseWriter, r *http.Request) {
	u, err := h.userService.GetUser(r.Context(), callerID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeUser(w, u)
}

// updateMe godoc
// @Summary Update the signed-in user's profile
// @Tags users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body dto.ProfileUpdateDTO true "Profile fields"
// @Success 200 {object} dto.UserResponseDTO
// @Router /users/me [put]
func (h *UserHandler) updateMe(w http.ResponseWriter, r *http.Request) {
	var req dto.ProfileUpdateDTO
	if !decode(w, r, &req, h.validate) {
		return
	}
	photo := req.PhotoURL
	if photo == nil {
		photo = req.Avatar
	}
	u, err := h.authService.UpdateProfile(r.Context(), callerID(r), service.ProfileUpdate{
		Name:     req.Name,
		Phone:    req.Phone,
		PhotoURL: photo,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeUser(w, u)
}

// uploadAvatar godoc
// @Summary Upload a profile picture
// @Tags users
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "JPEG or PNG image, at most 5 MB"
// @Success 200 {object} dto.UserResponseDTO
// @Failure 413 {object} dto.ErrorResponseDTO
// @Failure 415 {object} dto.ErrorResponseDTO
// @Router /users/me/avatar [post]
func (h *UserHandler) uploadAvatar(w http.ResponseWriter, r *http.Request) {
	data, contentType, ok := readUpload(w, r)
	if !ok {
		return
	}
	u, err := h.userService.UploadAvatar(r.Context(), callerID(r), data, contentType)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeUser(w, u)
}

func (h *UserHandler) listQuery(r *http.Request) (service.UserListQuery, error) {
	term, sort, page, pageSize, err := listParams(r)
	if err != nil {
		return service.UserListQuery{}, err
	}
	return service.UserListQuery{
		Term:     term,
		Sort:     sort,
		Page:     page,
		PageSize: pageSize,
		Role:     r.URL.Query().Get("role"),
		Status:   r.URL.Query().Get("status"),
	}, nil
}

// listUsers godoc
// @Summary List users
// @Tags users
// @Security BearerAuth
// @Produce json
// @Param q query string false "Filter term (name, email, role)"
// @Param sort query string false "title or createdDate"
// @Param dir query string false "asc or desc"
// @Param page query int false "Page number, from 1"
// @Param page_size query int false "Page size, at most 100"
// @Param role query string false "Role"
// @Param status query string false "active or inactive"
// @Success 200 {object} dto.PageDTO[dto.UserResponseDTO]
// @Router /users [get]
func (h *UserHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	q, err := h.listQuery(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	page, err := h.userService.ListUsers(r.Context(), q)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewPage(page, dto.NewUserResponse))
}

// exportUsers godoc
// @Summary Export users as a spreadsheet
// @Tags users
// @Security BearerAuth
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file
// @Router /users/export [get]
func (h *UserHandler) exportUsers(w http.ResponseWriter, r *http.Request) {
	q, err := h.listQuery(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	data, err := h.userService.ExportUsers(r.Context(), q)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="users.xlsx"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// getUser godoc
// @Summary Get a user
// @Tags users
// @Security BearerAuth
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} dto.UserResponseDTO
// @Failure 404 {object} dto.ErrorResponseDTO
// @Router /users/{id} [get]
func (h *UserHandler) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.userService.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeUser(w, u)
}

// updateUser godoc
// @Summary Update a user
// @Description Applies the given user form fields to the stored user.
// @Tags users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} dto.UserResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO "Validation failed"
// @Router /users/{id} [put]
func (h *UserHandler) updateUser(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if !decode(w, r, &fields, nil) {
		return
	}
	id := r.PathValue("id")
	if _, err := h.draftService.SubmitOnce(r.Context(), service.DraftUser, id, fields); err != nil {
		writeError(w, h.logger, err)
		return
	}
	u, err := h.userService.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeUser(w, u)
}

// deleteUser godoc
// @Summary Delete a user
// @Tags users
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 204
// @Router /users/{id} [delete]
func (h *UserHandler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.userService.DeleteUser(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// setStatus godoc
// @Summary Enable or disable a user
// @Tags users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param body body dto.UserStatusDTO true "New status"
// @Success 200 {object} dto.UserResponseDTO
// @Router /users/{id}/status [post]
func (h *UserHandler) setStatus(w http.ResponseWriter, r *http.Request) {
	var req dto.UserStatusDTO
	if !decode(w, r, &req, h.validate) {
		return
	}
	u, err := h.userService.SetStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeUser(w, u)
}
