package handler

import (
	"net/http"

	"lmsadmin/internal/api/v1/dto"
	"lmsadmin/internal/model"
	"lmsadmin/internal/service"

	"github.com/rs/zerolog"
)

// CourseHandler handles course-related endpoints
type CourseHandler struct {
	courseService service.CourseService
	draftService  service.DraftService
	logger        zerolog.Logger
}

// NewCourseHandler creates a new CourseHandler
func NewCourseHandler(courseService service.CourseService, draftService service.DraftService, logger zerolog.Logger) *CourseHandler {
	return &CourseHandler{
		courseService: courseService,
		draftService:  draftService,
		logger:        logger.With().Str("handler", "CourseHandler").Logger(),
	}
}

// RegisterRoutes mounts course routes
func (h *CourseHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("GET /courses", authMw(http.HandlerFunc(h.listCourses)))
	mux.Handle("POST /courses", authMw(http.HandlerFunc(h.createCourse)))
	mux.Handle("GET /courses/{id}", authMw(http.HandlerFunc(h.getCourse)))
	mux.Handle("PUT /courses/{id}", authMw(http.HandlerFunc(h.updateCourse)))
	mux.Handle("DELETE /courses/{id}", authMw(http.HandlerFunc(h.deleteCourse)))
	mux.Handle("POST /courses/{id}/thumbnail", authMw(http.HandlerFunc(h.uploadThumbnail)))
}

func (h *CourseHandler) writeCourse(w http.ResponseWriter, r *http.Request, status int, c *model.Course) {
	writeJSON(w, status, dto.NewCourseResponse(c, callerID(r)))
}

// listCourses godoc
// @Summary List courses
// @Description Filters, sorts and pages the course collection.
// @Tags courses
// @Security BearerAuth
// @Produce json
// @Param q query string false "Filter term (title, category, description)"
// @Param sort query string false "title, createdDate, rating or price"
// @Param dir query string false "asc or desc"
// @Param page query int false "Page number, from 1"
// @Param page_size query int false "Page size, at most 100"
// @Param instructor_id query string false "Only courses of this instructor"
// @Param category query string false "Only courses in this category"
// @Success 200 {object} dto.PageDTO[dto.CourseResponseDTO]
// @Failure 400 {object} dto.ErrorResponseDTO "Unknown sort field or direction"
// @Router /courses [get]
func (h *CourseHandler) listCourses(w http.ResponseWriter, r *http.Request) {
	term, sort, page, pageSize, err := listParams(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	result, err := h.courseService.ListCourses(r.Context(), service.CourseListQuery{
		Term:         term,
		Sort:         sort,
		Page:         page,
		PageSize:     pageSize,
		InstructorID: r.URL.Query().Get("instructor_id"),
		Category:     r.URL.Query().Get("category"),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	caller := callerID(r)
	writeJSON(w, http.StatusOK, dto.NewPage(result, func(c *model.Course) dto.CourseResponseDTO {
		return dto.NewCourseResponse(c, caller)
	}))
}

// createCourse godoc
// @Summary Create a new course
// @Description Validates the course form fields and creates a course owned by the caller.
// @Tags courses
// @Security BearerAuth
// @Accept json
// @Produce json
// @Success 201 {object} dto.CourseResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO "Validation failed"
// @Router /courses [post]
func (h *CourseHandler) createCourse(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if !decode(w, r, &fields, nil) {
		return
	}
	id, err := h.draftService.SubmitOnce(r.Context(), service.DraftCourse, "", fields)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	c, err := h.courseService.GetCourse(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeCourse(w, r, http.StatusCreated, c)
}

// getCourse godoc
// @Summary Get a course
// @Tags courses
// @Security BearerAuth
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} dto.CourseResponseDTO
// @Failure 404 {object} dto.ErrorResponseDTO "Course not found"
// @Router /courses/{id} [get]
func (h *CourseHandler) getCourse(w http.ResponseWriter, r *http.Request) {
	c, err := h.courseService.GetCourse(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeCourse(w, r, http.StatusOK, c)
}

// updateCourse godoc
// @Summary Update a course
// @Description Applies the given course form fields to the stored course.
// @Tags courses
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} dto.CourseResponseDTO
// @Failure 400 {object} dto.ErrorResponseDTO "Validation failed"
// @Failure 404 {object} dto.ErrorResponseDTO "Course not found"
// @Router /courses/{id} [put]
func (h *CourseHandler) updateCourse(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if !decode(w, r, &fields, nil) {
		return
	}
	id := r.PathValue("id")
	if _, err := h.draftService.SubmitOnce(r.Context(), service.DraftCourse, id, fields); err != nil {
		writeError(w, h.logger, err)
		return
	}
	c, err := h.courseService.GetCourse(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeCourse(w, r, http.StatusOK, c)
}

// deleteCourse godoc
// @Summary Delete a course
// @Description Deleting a course that is already gone succeeds.
// @Tags courses
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 204
// @Router /courses/{id} [delete]
func (h *CourseHandler) deleteCourse(w http.ResponseWriter, r *http.Request) {
	if err := h.courseService.DeleteCourse(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// uploadThumbnail godoc
// @Summary Upload a course thumbnail
// @Tags courses
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Course ID"
// @Param file formData file true "JPEG or PNG image, at most 5 MB"
// @Success 200 {object} dto.CourseResponseDTO
// @Failure 413 {object} dto.ErrorResponseDTO
// @Failure 415 {object} dto.ErrorResponseDTO
// @Router /courses/{id}/thumbnail [post]
func (h *CourseHandler) uploadThumbnail(w http.ResponseWriter, r *http.Request) {
	data, contentType, ok := readUpload(w, r)
	if !ok {
		return
	}
	c, err := h.courseService.SetThumbnail(r.Context(), r.PathValue("id"), data, contentType)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeCourse(w, r, http.StatusOK, c)
}
