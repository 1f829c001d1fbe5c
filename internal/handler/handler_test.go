package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/GoArmGo/MarketApp/internal/auth"
	"github.com/GoArmGo/MarketApp/internal/capture"
	"github.com/GoArmGo/MarketApp/internal/domain"
	"github.com/GoArmGo/MarketApp/internal/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubPhotoUseCase проверяет payload как настоящий usecase и запоминает вызовы
type stubPhotoUseCase struct {
	usecase.PhotoUseCase

	added    []domain.Payload
	primary  []uuid.UUID
	deleted  []uuid.UUID
	photos   []domain.ProfilePhoto
	err      error
	captured int
}

func (s *stubPhotoUseCase) ListPhotos(ctx context.Context, ownerID string) ([]domain.ProfilePhoto, error) {
	return s.photos, s.err
}

func (s *stubPhotoUseCase) AddPhoto(ctx context.Context, ownerID string, payload domain.Payload) (*domain.ProfilePhoto, error) {
	if err := payload.Validate(); err != nil {
		return nil, fmt.Errorf("usecase: %w", err)
	}
	if s.err != nil {
		return nil, s.err
	}
	s.added = append(s.added, payload)
	return &domain.ProfilePhoto{ID: uuid.New(), UserID: ownerID, IsPrimary: len(s.added) == 1}, nil
}

func (s *stubPhotoUseCase) SetPrimary(ctx context.Context, ownerID string, photoID uuid.UUID) error {
	s.primary = append(s.primary, photoID)
	return s.err
}

func (s *stubPhotoUseCase) DeleteOwnPhoto(ctx context.Context, ownerID string, photoID uuid.UUID) error {
	if s.err != nil {
		return s.err
	}
	s.deleted = append(s.deleted, photoID)
	return nil
}

func (s *stubPhotoUseCase) CaptureAndAddPhoto(ctx context.Context, ownerID string, source usecase.LiveCapture) (*domain.ProfilePhoto, error) {
	defer source.Stop() //nolint:errcheck
	s.captured++
	payload, err := source.Capture(ctx)
	if err != nil {
		return nil, err
	}
	return s.AddPhoto(ctx, ownerID, payload)
}

func withUser(r *http.Request, uid string) *http.Request {
	return r.WithContext(WithIdentity(r.Context(), domain.Identity{UID: uid, Email: uid + "@example.com"}))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func multipartBody(t *testing.T, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photo"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func photoRouter(h *PhotoHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/users/{uid}/photos", h.ListPhotos)
	r.Post("/api/photos", h.UploadPhoto)
	r.Put("/api/photos/{id}/primary", h.SetPrimary)
	r.Delete("/api/photos/{id}", h.DeletePhoto)
	return r
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("usecase: %w", domain.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("usecase: %w", domain.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("usecase: %w", domain.ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("capture: %w", domain.ErrPermissionDenied), http.StatusForbidden},
		{fmt.Errorf("capture: %w", domain.ErrSourceNotActive), http.StatusConflict},
		{fmt.Errorf("capture: %w", domain.ErrSourceBusy), http.StatusConflict},
		{fmt.Errorf("capture: %w", domain.ErrDeviceError), http.StatusBadGateway},
		{fmt.Errorf("usecase: %w: %w", domain.ErrUploadFailed, errors.New("s3")), http.StatusBadGateway},
		{fmt.Errorf("usecase: %w: %w", domain.ErrStoreUnavailable, errors.New("pq")), http.StatusServiceUnavailable},
		{errors.New("surprise"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		code, msg := statusForError(tt.err)
		assert.Equal(t, tt.code, code, tt.err.Error())
		assert.NotEmpty(t, msg)
	}
}

func TestUploadPhoto(t *testing.T) {
	uc := &stubPhotoUseCase{}
	h := NewPhotoHandler(uc, make(chan struct{}, 1), testLogger())

	body, ct := multipartBody(t, "me.png", "image/png", []byte("png-bytes"))
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/photos", body), "u1")
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()

	photoRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var photo domain.ProfilePhoto
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &photo))
	assert.Equal(t, "u1", photo.UserID)
	assert.True(t, photo.IsPrimary)

	require.Len(t, uc.added, 1)
	assert.Equal(t, "me.png", uc.added[0].Filename)
	assert.Equal(t, "image/png", uc.added[0].ContentType)
	assert.Equal(t, []byte("png-bytes"), uc.added[0].Data)
}

func TestUploadPhotoRejectsTextFile(t *testing.T) {
	uc := &stubPhotoUseCase{}
	h := NewPhotoHandler(uc, make(chan struct{}, 1), testLogger())

	body, ct := multipartBody(t, "notes.txt", "text/plain", []byte("hello"))
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/photos", body), "u1")
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()

	photoRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec), "text/plain")
	assert.Empty(t, uc.added)
}

func TestUploadPhotoMissingField(t *testing.T) {
	h := NewPhotoHandler(&stubPhotoUseCase{}, make(chan struct{}, 1), testLogger())

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/photos", bytes.NewBufferString("{}")), "u1")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	photoRouter(h).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadPhotoRequiresIdentity(t *testing.T) {
	h := NewPhotoHandler(&stubPhotoUseCase{}, make(chan struct{}, 1), testLogger())

	body, ct := multipartBody(t, "me.png", "image/png", []byte("png"))
	req := httptest.NewRequest(http.MethodPost, "/api/photos", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()

	photoRouter(h).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUploadPhotoLimiterFull(t *testing.T) {
	limiter := make(chan struct{}, 1)
	limiter <- struct{}{}
	h := NewPhotoHandler(&stubPhotoUseCase{}, limiter, testLogger())

	body, ct := multipartBody(t, "me.png", "image/png", []byte("png"))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/photos", body).WithContext(ctx), "u1")
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()

	photoRouter(h).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListPhotos(t *testing.T) {
	uc := &stubPhotoUseCase{photos: []domain.ProfilePhoto{{ID: uuid.New(), UserID: "u2", IsPrimary: true}}}
	h := NewPhotoHandler(uc, make(chan struct{}, 1), testLogger())

	rec := httptest.NewRecorder()
	photoRouter(h).ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodGet, "/api/users/u2/photos", nil), "u1"))

	require.Equal(t, http.StatusOK, rec.Code)
	var photos []domain.ProfilePhoto
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &photos))
	require.Len(t, photos, 1)
	assert.True(t, photos[0].IsPrimary)
}

func TestSetPrimaryHandler(t *testing.T) {
	id := uuid.New()

	t.Run("ok", func(t *testing.T) {
		uc := &stubPhotoUseCase{}
		h := NewPhotoHandler(uc, make(chan struct{}, 1), testLogger())
		rec := httptest.NewRecorder()

		photoRouter(h).ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodPut, "/api/photos/"+id.String()+"/primary", nil), "u1"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []uuid.UUID{id}, uc.primary)
	})

	t.Run("not found", func(t *testing.T) {
		uc := &stubPhotoUseCase{err: fmt.Errorf("usecase: %w", domain.ErrNotFound)}
		h := NewPhotoHandler(uc, make(chan struct{}, 1), testLogger())
		rec := httptest.NewRecorder()

		photoRouter(h).ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodPut, "/api/photos/"+id.String()+"/primary", nil), "u1"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		uc := &stubPhotoUseCase{}
		h := NewPhotoHandler(uc, make(chan struct{}, 1), testLogger())
		rec := httptest.NewRecorder()

		photoRouter(h).ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodPut, "/api/photos/nope/primary", nil), "u1"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, uc.primary)
	})
}

func TestDeletePhotoHandler(t *testing.T) {
	id := uuid.New()

	uc := &stubPhotoUseCase{}
	h := NewPhotoHandler(uc, make(chan struct{}, 1), testLogger())
	rec := httptest.NewRecorder()
	photoRouter(h).ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodDelete, "/api/photos/"+id.String(), nil), "u1"))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []uuid.UUID{id}, uc.deleted)

	forbidden := &stubPhotoUseCase{err: fmt.Errorf("usecase: %w", domain.ErrForbidden)}
	h = NewPhotoHandler(forbidden, make(chan struct{}, 1), testLogger())
	rec = httptest.NewRecorder()
	photoRouter(h).ServeHTTP(rec, withUser(httptest.NewRequest(http.MethodDelete, "/api/photos/"+id.String(), nil), "u1"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthenticator(t *testing.T) {
	verifier := auth.NewVerifier("secret")
	token, err := verifier.GenerateToken(domain.Identity{UID: "u1", Email: "a@example.com"}, time.Hour)
	require.NoError(t, err)

	var seen domain.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})
	mw := Authenticator(verifier, testLogger())(next)

	t.Run("header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusTeapot, rec.Code)
		assert.Equal(t, "u1", seen.UID)
		assert.Equal(t, "a@example.com", seen.Email)
	})

	t.Run("query for websocket", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/capture/ws?access_token="+token, nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	})

	t.Run("missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequestLoggerKeepsStatus(t *testing.T) {
	h := RequestLogger(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

// fakeHub реализует CameraHub
type fakeHub struct {
	pending bool
}

func (f *fakeHub) Deny(ownerID string) bool {
	ok := f.pending
	f.pending = false
	return ok
}

func (f *fakeHub) ServeWS(w http.ResponseWriter, r *http.Request, ownerID string) {
	http.Error(w, "no", http.StatusConflict)
}

type idleSource struct{}

func (idleSource) Open(ctx context.Context) (capture.Stream, error) {
	return nil, fmt.Errorf("camera: %w", domain.ErrPermissionDenied)
}

type passthroughEncoder struct{}

func (passthroughEncoder) EncodeJPEG(data []byte, quality int) ([]byte, error) {
	return data, nil
}

func TestCaptureHandler(t *testing.T) {
	manager := capture.NewManager(func(string) capture.Source { return idleSource{} }, passthroughEncoder{}, testLogger())
	defer manager.Close()

	uc := &stubPhotoUseCase{}
	hub := &fakeHub{}
	h := NewCaptureHandler(uc, manager, hub, time.Second, make(chan struct{}, 1), testLogger())

	t.Run("shot without stream", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Shot(rec, withUser(httptest.NewRequest(http.MethodPost, "/api/capture/shot", nil), "u1"))
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, 1, uc.captured)
		assert.Empty(t, uc.added)
	})

	t.Run("start denied", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Start(rec, withUser(httptest.NewRequest(http.MethodPost, "/api/capture/start", nil), "u1"))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, capture.StateIdle, manager.Session("u1").State())
	})

	t.Run("deny without request", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Deny(rec, withUser(httptest.NewRequest(http.MethodPost, "/api/capture/deny", nil), "u1"))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("deny pending", func(t *testing.T) {
		hub.pending = true
		rec := httptest.NewRecorder()
		h.Deny(rec, withUser(httptest.NewRequest(http.MethodPost, "/api/capture/deny", nil), "u1"))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("stop", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Stop(rec, withUser(httptest.NewRequest(http.MethodPost, "/api/capture/stop", nil), "u1"))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"state":"idle"}`, rec.Body.String())
	})
}

type frameStream struct{}

func (frameStream) Frame(ctx context.Context) ([]byte, error) {
	return []byte("frame"), nil
}

func (frameStream) Close() error { return nil }

type frameSource struct{}

func (frameSource) Open(ctx context.Context) (capture.Stream, error) {
	return frameStream{}, nil
}

func TestCaptureShotReleasesSession(t *testing.T) {
	manager := capture.NewManager(func(string) capture.Source { return frameSource{} }, passthroughEncoder{}, testLogger())
	defer manager.Close()

	uc := &stubPhotoUseCase{}
	h := NewCaptureHandler(uc, manager, &fakeHub{}, time.Second, make(chan struct{}, 1), testLogger())

	rec := httptest.NewRecorder()
	h.Start(rec, withUser(httptest.NewRequest(http.MethodPost, "/api/capture/start", nil), "u2"))
	require.Equal(t, http.StatusOK, rec.Code)
	session := manager.Session("u2")
	require.Equal(t, capture.StateStreaming, session.State())

	rec = httptest.NewRecorder()
	h.Shot(rec, withUser(httptest.NewRequest(http.MethodPost, "/api/capture/shot", nil), "u2"))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, uc.added, 1)

	assert.Equal(t, capture.StateIdle, session.State())
	assert.NotSame(t, session, manager.Session("u2"), "сессия после снимка удаляется из менеджера")
}
