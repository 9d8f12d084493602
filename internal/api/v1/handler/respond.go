package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"lmsadmin/internal/api/v1/dto"
	"lmsadmin/internal/form"
	"lmsadmin/internal/listing"
	"lmsadmin/internal/repository"
	"lmsadmin/internal/service"
	"lmsadmin/internal/storage"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// maxJSONBody bounds request bodies other than uploads.
const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, dto.ErrorResponseDTO{Error: msg})
}

// decode reads a JSON body into v and validates it when validate is set.
func decode(w http.ResponseWriter, r *http.Request, v any, validate *validator.Validate) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON payload: "+err.Error())
		return false
	}
	if validate != nil {
		if err := validate.Struct(v); err != nil {
			writeMessage(w, http.StatusBadRequest, "Validation failed: "+err.Error())
			return false
		}
	}
	return true
}

func authStatus(code string) int {
	switch code {
	case service.CodeUserNotFound, service.CodeWrongPassword, service.CodeInvalidCredential, service.CodeSessionExpired:
		return http.StatusUnauthorized
	case service.CodeEmailAlreadyInUse:
		return http.StatusConflict
	case service.CodeInvalidEmail, service.CodeWeakPassword, service.CodeInvalidActionCode, service.CodePopupClosedByUser:
		return http.StatusBadRequest
	case service.CodeTooManyRequests:
		return http.StatusTooManyRequests
	case service.CodeOperationNotAllowed, service.CodeUserDisabled:
		return http.StatusForbidden
	case service.CodeNetworkRequestFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError maps service, form and store errors to HTTP responses.
func writeError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	var (
		ve *form.ValidationError
		ae *service.AuthError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponseDTO{Error: ve.Message, Field: ve.Field})
	case errors.As(err, &ae):
		status := authStatus(ae.Code)
		if status >= 500 {
			logger.Error().Err(err).Msg("Auth operation failed")
		}
		writeJSON(w, status, dto.ErrorResponseDTO{Error: ae.Message(), Code: ae.Code})
	case errors.Is(err, form.ErrSubmitInProgress):
		writeMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, form.ErrUnknownField),
		errors.Is(err, service.ErrDraftKind),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, listing.ErrUnknownSortField),
		errors.Is(err, listing.ErrUnknownDirection):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, form.ErrDraftNotFound),
		errors.Is(err, service.ErrCourseNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, repository.ErrNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrUnauthenticated):
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, storage.ErrUnsupportedType):
		writeMessage(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, storage.ErrTooLarge):
		writeMessage(w, http.StatusRequestEntityTooLarge, err.Error())
	default:
		logger.Error().Err(err).Msg("Request failed")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

// listParams reads the shared list query parameters.
func listParams(r *http.Request) (term string, sort *listing.Sort, page, pageSize int, err error) {
	q := r.URL.Query()
	sort, err = listing.ParseSort(q.Get("sort"), q.Get("dir"))
	if err != nil {
		return "", nil, 0, 0, err
	}
	page, _ = strconv.Atoi(q.Get("page"))
	pageSize, _ = strconv.Atoi(q.Get("page_size"))
	return q.Get("q"), sort, page, pageSize, nil
}

// readUpload reads a single image from the "file" multipart field.
func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxImageBytes+(64<<10))
	if err := r.ParseMultipartForm(storage.MaxImageBytes); err != nil {
		writeMessage(w, http.StatusRequestEntityTooLarge, "Upload too large or not multipart: "+err.Error())
		return nil, "", false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Missing file field")
		return nil, "", false
	}
	defer file.Close()

	data := make([]byte, header.Size)
	if _, err := io.ReadFull(file, data); err != nil {
		writeMessage(w, http.StatusBadRequest, "Failed to read upload")
		return nil, "", false
	}
	return data, header.Header.Get("Content-Type"), true
}
