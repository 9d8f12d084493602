package handler

import (
	"net/http"

	"lmsadmin/internal/api/v1/dto"
	"lmsadmin/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// DraftHandler exposes server-held create and edit forms.
type DraftHandler struct {
	draftService service.DraftService
	validate     *validator.Validate
	logger       zerolog.Logger
}

func NewDraftHandler(draftService service.DraftService, validate *validator.Validate, logger zerolog.Logger) *DraftHandler {
	return &DraftHandler{
		draftService: draftService,
		validate:     validate,
		logger:       logger.With().Str("handler", "DraftHandler").Logger(),
	}
}

func (h *DraftHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("POST /drafts/courses", authMw(h.open(service.DraftCourse)))
	mux.Handle("POST /drafts/users", authMw(h.open(service.DraftUser)))
	mux.Handle("GET /drafts/{id}", authMw(http.HandlerFunc(h.get)))
	mux.Handle("PATCH /drafts/{id}", authMw(http.HandlerFunc(h.setFields)))
	mux.Handle("DELETE /drafts/{id}", authMw(http.HandlerFunc(h.discard)))
	mux.Handle("POST /drafts/{id}/submit", authMw(http.HandlerFunc(h.submit)))
	mux.Handle("POST /drafts/{id}/reset", authMw(http.HandlerFunc(h.reset)))
}

// open godoc
// @Summary Open a course or user draft
// @Description With record_id the draft edits that record; without it the draft creates one.
// @Tags drafts
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body dto.DraftOpenDTO false "Record to edit"
// @Success 201 {object} service.DraftView
// @Router /drafts/courses [post]
// @Router /drafts/users [post]
func (h *DraftHandler) open(kind string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req dto.DraftOpenDTO
		if r.ContentLength != 0 && !decode(w, r, &req, nil) {
			return
		}
		v, err := h.draftService.Open(r.Context(), kind, req.RecordID)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, v)
	})
}

// get godoc
// @Summary Get a draft
// @Tags drafts
// @Security BearerAuth
// @Produce json
// @Param id path string true "Draft ID"
// @Success 200 {object} service.DraftView
// @Failure 404 {object} dto.ErrorResponseDTO
// @Router /drafts/{id} [get]
func (h *DraftHandler) get(w http.ResponseWriter, r *http.Request) {
	v, err := h.draftService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// setFields godoc
// @Summary Set draft fields
// @Tags drafts
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Draft ID"
// @Param body body dto.DraftFieldsDTO true "Field values"
// @Success 200 {object} service.DraftView
// @Failure 409 {object} dto.ErrorResponseDTO "Submission in progress"
// @Router /drafts/{id} [patch]
func (h *DraftHandler) setFields(w http.ResponseWriter, r *http.Request) {
	var req dto.DraftFieldsDTO
	if !decode(w, r, &req, h.validate) {
		return
	}
	v, err := h.draftService.SetFields(r.Context(), r.PathValue("id"), req.Fields)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// submit godoc
// @Summary Submit a draft
// @Tags drafts
// @Security BearerAuth
// @Produce json
// @Param id path string true "Draft ID"
// @Success 200 {object} dto.CreatedDTO
// @Failure 400 {object} dto.ErrorResponseDTO "First failing field"
// @Failure 409 {object} dto.ErrorResponseDTO "Submission in progress"
// @Router /drafts/{id}/submit [post]
func (h *DraftHandler) submit(w http.ResponseWriter, r *http.Request) {
	id, err := h.draftService.Submit(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.CreatedDTO{ID: id})
}

// reset godoc
// @Summary Reset a draft to its initial values
// @Tags drafts
// @Security BearerAuth
// @Produce json
// @Param id path string true "Draft ID"
// @Success 200 {object} service.DraftView
// @Router /drafts/{id}/reset [post]
func (h *DraftHandler) reset(w http.ResponseWriter, r *http.Request) {
	v, err := h.draftService.Reset(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// discard godoc
// @Summary Discard a draft
// @Tags drafts
// @Security BearerAuth
// @Param id path string true "Draft ID"
// @Success 204
// @Router /drafts/{id} [delete]
func (h *DraftHandler) discard(w http.ResponseWriter, r *http.Request) {
	if err := h.draftService.Discard(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
