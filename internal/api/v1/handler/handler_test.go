package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"lmsadmin/internal/api/v1/dto"
	"lmsadmin/internal/form"
	"lmsadmin/internal/middleware"
	"lmsadmin/internal/repository"
	"lmsadmin/internal/service"
	"lmsadmin/internal/session"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type memBlobs struct{}

func (memBlobs) Upload(_ context.Context, key string, _ []byte, _ string) (string, error) {
	return "https://cdn.test/" + key, nil
}

func (memBlobs) DeletePrefix(context.Context, string) (int, error) { return 0, nil }

type nopMailer struct{}

func (nopMailer) SendPasswordReset(context.Context, string, string, string) error { return nil }

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	logger := zerolog.Nop()
	store := repository.NewMemoryStore()
	users := repository.NewUserRepo(store)
	courses := repository.NewCourseRepo(store)
	sessions := session.NewMemoryStore()
	validate := validator.New(validator.WithRequiredStructEnabled())

	authSvc := service.NewAuthService(users, sessions, session.NewTokenManager("test-secret", "lmsadmin"), nopMailer{}, nil, service.AuthSettings{
		SessionTTL: time.Hour,
		ResetURL:   "https://console.test/reset-password",
	}, logger)
	userSvc := service.NewUserService(users, sessions, memBlobs{}, nil, "cleanup", logger)
	courseSvc := service.NewCourseService(courses, users, memBlobs{}, nil, "cleanup", nil, "", logger)
	draftSvc := service.NewDraftService(form.NewRegistry(0), courseSvc, userSvc)

	mux := http.NewServeMux()
	authMw := middleware.AuthMiddleware(authSvc, logger)
	NewAuthHandler(authSvc, validate, logger).RegisterRoutes(mux, authMw)
	NewUserHandler(userSvc, authSvc, draftSvc, validate, logger).RegisterRoutes(mux, authMw)
	NewCourseHandler(courseSvc, draftSvc, logger).RegisterRoutes(mux, authMw)
	NewDraftHandler(draftSvc, validate, logger).RegisterRoutes(mux, authMw)
	NewDashboardHandler(service.NewDashboardService(users, courses), logger).RegisterRoutes(mux, authMw)
	NewHealthHandler(nil, logger).RegisterRoutes(mux)
	return mux
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func signUp(t *testing.T, h http.Handler, email string) dto.SessionResponseDTO {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/auth/signup", "", dto.SignUpDTO{Name: "Ada", Email: email, Password: "secret1"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup: %d %s", rr.Code, rr.Body.String())
	}
	return decodeBody[dto.SessionResponseDTO](t, rr)
}

func TestAuthEndpoints(t *testing.T) {
	h := newTestServer(t)
	sess := signUp(t, h, "ada@example.com")

	rr := do(t, h, http.MethodGet, "/users/me", sess.Token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("me: %d %s", rr.Code, rr.Body.String())
	}
	if me := decodeBody[dto.UserResponseDTO](t, rr); me.Email != "ada@example.com" {
		t.Fatalf("unexpected profile %+v", me)
	}

	rr = do(t, h, http.MethodPost, "/auth/signup", "", dto.SignUpDTO{Name: "Ada", Email: "ADA@example.com", Password: "secret1"})
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate signup: expected 409, got %d", rr.Code)
	}
	if e := decodeBody[dto.ErrorResponseDTO](t, rr); e.Code != service.CodeEmailAlreadyInUse || e.Error != service.AuthMessage(service.CodeEmailAlreadyInUse) {
		t.Fatalf("unexpected error body %+v", e)
	}

	rr = do(t, h, http.MethodPost, "/auth/signin", "", dto.SignInDTO{Email: "ada@example.com", Password: "wrong-1"})
	if rr.Code != http.StatusUnauthorized || decodeBody[dto.ErrorResponseDTO](t, rr).Code != service.CodeWrongPassword {
		t.Fatalf("wrong password: %d %s", rr.Code, rr.Body.String())
	}

	if rr = do(t, h, http.MethodPost, "/auth/signout", sess.Token, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("signout: %d", rr.Code)
	}
	if rr = do(t, h, http.MethodGet, "/users/me", sess.Token, nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("token must stop working after sign-out, got %d", rr.Code)
	}
}

func TestCourseEndpoints(t *testing.T) {
	h := newTestServer(t)
	if rr := do(t, h, http.MethodGet, "/courses", "", nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous list: expected 401, got %d", rr.Code)
	}
	sess := signUp(t, h, "ada@example.com")

	rr := do(t, h, http.MethodPost, "/courses", sess.Token, map[string]any{"category": "Programming"})
	if rr.Code != http.StatusBadRequest || decodeBody[dto.ErrorResponseDTO](t, rr).Field != "title" {
		t.Fatalf("missing title: %d %s", rr.Code, rr.Body.String())
	}

	rr = do(t, h, http.MethodPost, "/courses", sess.Token, map[string]any{"title": "Go", "category": "Programming", "price": "19.99"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rr.Code, rr.Body.String())
	}
	created := decodeBody[dto.CourseResponseDTO](t, rr)
	if !created.CanEdit || created.InstructorID != sess.User.ID || created.Price != 19.99 {
		t.Fatalf("unexpected course %+v", created)
	}

	rr = do(t, h, http.MethodPut, "/courses/"+created.ID, sess.Token, map[string]any{"title": "Advanced Go"})
	if rr.Code != http.StatusOK || decodeBody[dto.CourseResponseDTO](t, rr).Title != "Advanced Go" {
		t.Fatalf("update: %d %s", rr.Code, rr.Body.String())
	}

	rr = do(t, h, http.MethodGet, "/courses?q=advanced&sort=title&dir=desc", sess.Token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list: %d %s", rr.Code, rr.Body.String())
	}
	if page := decodeBody[dto.PageDTO[dto.CourseResponseDTO]](t, rr); page.Total != 1 || page.Items[0].ID != created.ID {
		t.Fatalf("unexpected page %+v", page)
	}

	if rr = do(t, h, http.MethodGet, "/courses?sort=color", sess.Token, nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown sort field: expected 400, got %d", rr.Code)
	}
	if rr = do(t, h, http.MethodGet, "/courses/missing", sess.Token, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("missing course: expected 404, got %d", rr.Code)
	}

	for i := 0; i < 2; i++ {
		if rr = do(t, h, http.MethodDelete, "/courses/"+created.ID, sess.Token, nil); rr.Code != http.StatusNoContent {
			t.Fatalf("delete #%d: %d %s", i+1, rr.Code, rr.Body.String())
		}
	}
}

func TestCourseListHugePage(t *testing.T) {
	h := newTestServer(t)
	sess := signUp(t, h, "ada@example.com")
	if rr := do(t, h, http.MethodPost, "/courses", sess.Token, map[string]any{"title": "Go"}); rr.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rr.Code, rr.Body.String())
	}

	for _, page := range []string{"1844674407370955162", "9223372036854775807"} {
		rr := do(t, h, http.MethodGet, "/courses?page="+page, sess.Token, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("page %s: %d %s", page, rr.Code, rr.Body.String())
		}
		if p := decodeBody[dto.PageDTO[dto.CourseResponseDTO]](t, rr); len(p.Items) != 0 || p.Total != 1 {
			t.Fatalf("page %s: unexpected %+v", page, p)
		}
	}
}

func TestSignUpKeepsPhone(t *testing.T) {
	h := newTestServer(t)
	rr := do(t, h, http.MethodPost, "/auth/signup", "", dto.SignUpDTO{Name: "Ada", Email: "ada@example.com", Password: "secret1", Phone: "+1 555 0100"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup: %d %s", rr.Code, rr.Body.String())
	}
	sess := decodeBody[dto.SessionResponseDTO](t, rr)

	rr = do(t, h, http.MethodGet, "/users/me", sess.Token, nil)
	if me := decodeBody[dto.UserResponseDTO](t, rr); rr.Code != http.StatusOK || me.Phone != "+1 555 0100" {
		t.Fatalf("me: %d %+v", rr.Code, me)
	}
}

func TestDraftEndpoints(t *testing.T) {
	h := newTestServer(t)
	sess := signUp(t, h, "ada@example.com")
	other := signUp(t, h, "grace@example.com")

	rr := do(t, h, http.MethodPost, "/drafts/courses", sess.Token, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("open: %d %s", rr.Code, rr.Body.String())
	}
	draft := decodeBody[service.DraftView](t, rr)

	if rr = do(t, h, http.MethodGet, "/drafts/"+draft.ID, other.Token, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("drafts are private to their owner, got %d", rr.Code)
	}

	rr = do(t, h, http.MethodPatch, "/drafts/"+draft.ID, sess.Token, dto.DraftFieldsDTO{Fields: map[string]any{"title": "Go"}})
	if rr.Code != http.StatusOK || decodeBody[service.DraftView](t, rr).Values["title"] != "Go" {
		t.Fatalf("set fields: %d %s", rr.Code, rr.Body.String())
	}
	rr = do(t, h, http.MethodPatch, "/drafts/"+draft.ID, sess.Token, dto.DraftFieldsDTO{Fields: map[string]any{"colour": "red"}})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown field: expected 400, got %d", rr.Code)
	}

	rr = do(t, h, http.MethodPost, "/drafts/"+draft.ID+"/submit", sess.Token, nil)
	if rr.Code != http.StatusBadRequest || decodeBody[dto.ErrorResponseDTO](t, rr).Field != "category" {
		t.Fatalf("invalid submit: %d %s", rr.Code, rr.Body.String())
	}

	do(t, h, http.MethodPatch, "/drafts/"+draft.ID, sess.Token, dto.DraftFieldsDTO{Fields: map[string]any{"category": "Programming"}})
	rr = do(t, h, http.MethodPost, "/drafts/"+draft.ID+"/submit", sess.Token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("submit: %d %s", rr.Code, rr.Body.String())
	}
	id := decodeBody[dto.CreatedDTO](t, rr).ID
	if rr = do(t, h, http.MethodGet, "/courses/"+id, sess.Token, nil); rr.Code != http.StatusOK {
		t.Fatalf("submitted course not stored: %d", rr.Code)
	}

	rr = do(t, h, http.MethodGet, "/drafts/"+draft.ID, sess.Token, nil)
	if rr.Code != http.StatusOK || decodeBody[service.DraftView](t, rr).Values["title"] != "" {
		t.Fatalf("create draft should be reset after submit: %d %s", rr.Code, rr.Body.String())
	}

	if rr = do(t, h, http.MethodDelete, "/drafts/"+draft.ID, sess.Token, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("discard: %d", rr.Code)
	}
	if rr = do(t, h, http.MethodGet, "/drafts/"+draft.ID, sess.Token, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("discarded draft: expected 404, got %d", rr.Code)
	}
}

func TestUserEndpoints(t *testing.T) {
	h := newTestServer(t)
	admin := signUp(t, h, "admin@example.com")
	target := signUp(t, h, "grace@example.com")

	rr := do(t, h, http.MethodPut, "/users/"+target.User.ID, admin.Token, map[string]any{"role": "owner"})
	if rr.Code != http.StatusBadRequest || decodeBody[dto.ErrorResponseDTO](t, rr).Field != "role" {
		t.Fatalf("bad role: %d %s", rr.Code, rr.Body.String())
	}
	rr = do(t, h, http.MethodPut, "/users/"+target.User.ID, admin.Token, map[string]any{"role": "Instructor", "phone": "555-0100"})
	if rr.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rr.Code, rr.Body.String())
	}
	if u := decodeBody[dto.UserResponseDTO](t, rr); u.Role != "instructor" || u.Phone != "555-0100" {
		t.Fatalf("unexpected user %+v", u)
	}

	rr = do(t, h, http.MethodGet, "/users?role=instructor", admin.Token, nil)
	if page := decodeBody[dto.PageDTO[dto.UserResponseDTO]](t, rr); rr.Code != http.StatusOK || page.Total != 1 {
		t.Fatalf("role filter: %d %+v", rr.Code, page)
	}

	rr = do(t, h, http.MethodPost, "/users/"+target.User.ID+"/status", admin.Token, dto.UserStatusDTO{Status: "inactive"})
	if rr.Code != http.StatusOK {
		t.Fatalf("set status: %d %s", rr.Code, rr.Body.String())
	}
	if rr = do(t, h, http.MethodGet, "/users/me", target.Token, nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("disabled user's session must be revoked, got %d", rr.Code)
	}

	rr = do(t, h, http.MethodGet, "/users/export", admin.Token, nil)
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != xlsxContentType || rr.Body.Len() == 0 {
		t.Fatalf("export: %d %q", rr.Code, rr.Header().Get("Content-Type"))
	}

	if rr = do(t, h, http.MethodGet, "/dashboard/stats", admin.Token, nil); rr.Code != http.StatusOK {
		t.Fatalf("stats: %d", rr.Code)
	}
	if st := decodeBody[service.DashboardStats](t, rr); st.TotalUsers != 2 || st.UsersByRole["instructor"] != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

type downDB struct{}

func (downDB) PingContext(context.Context) error { return errors.New("connection refused") }

func TestHealthz(t *testing.T) {
	h := newTestServer(t)
	if rr := do(t, h, http.MethodGet, "/healthz", "", nil); rr.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rr.Code)
	}

	mux := http.NewServeMux()
	NewHealthHandler(downDB{}, zerolog.Nop()).RegisterRoutes(mux)
	if rr := do(t, mux, http.MethodGet, "/healthz", "", nil); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("healthz with database down: expected 503, got %d", rr.Code)
	}
}

func TestAvatarUpload(t *testing.T) {
	h := newTestServer(t)
	sess := signUp(t, h, "ada@example.com")

	upload := func(contentType string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="file"; filename="me.img"`)
		hdr.Set("Content-Type", contentType)
		part, _ := mw.CreatePart(hdr)
		part.Write([]byte("image-bytes"))
		mw.Close()

		req := httptest.NewRequest(http.MethodPost, "/users/me/avatar", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+sess.Token)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	if rr := upload("application/pdf"); rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("pdf upload: expected 415, got %d", rr.Code)
	}
	rr := upload("image/png")
	if rr.Code != http.StatusOK {
		t.Fatalf("png upload: %d %s", rr.Code, rr.Body.String())
	}
	if u := decodeBody[dto.UserResponseDTO](t, rr); u.PhotoURL == "" {
		t.Fatalf("photo url not set: %+v", u)
	}
}
