package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/brightclass/brightclass-backend/internal/platform/apierr"
	"github.com/brightclass/brightclass-backend/internal/requestdata"
	"github.com/brightclass/brightclass-backend/internal/services"
)

type fakeLessonGenService struct {
	result *services.LessonResult
	err    error
}

func (f *fakeLessonGenService) GenerateLesson(ctx context.Context, userID uuid.UUID, in services.GenerateInput) (*services.LessonResult, error) {
	return f.result, f.err
}

func (f *fakeLessonGenService) GeneratePart(ctx context.Context, userID uuid.UUID, in services.GenerateInput) (*services.PartResult, error) {
	return nil, f.err
}

func (f *fakeLessonGenService) GenerateActivities(ctx context.Context, userID uuid.UUID, in services.GenerateInput) (*services.ActivitiesResult, error) {
	return nil, f.err
}

type fakeQuotaService struct {
	snap services.QuotaSnapshot
}

func (f *fakeQuotaService) Snapshot(ctx context.Context, userID uuid.UUID) (services.QuotaSnapshot, error) {
	return f.snap, nil
}

func (f *fakeQuotaService) WithQuotaAndLock(ctx context.Context, userID uuid.UUID, fn func(ctx context.Context) error) (services.QuotaSnapshot, error) {
	return f.snap, fn(ctx)
}

func newGenRouter(svc services.LessonGenService, quota services.QuotaService, authed bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewLessonGenHandler(svc, quota)

	r := gin.New()
	if authed {
		r.Use(func(c *gin.Context) {
			ctx := requestdata.WithRequestData(c.Request.Context(), &requestdata.RequestData{UserID: uuid.New()})
			c.Request = c.Request.WithContext(ctx)
		})
	}
	r.POST("/api/generate/lesson", h.GenerateLesson)
	r.GET("/api/generate/quota", h.GetQuota)
	return r
}

func postLesson(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/generate/lesson", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGenerateLessonHandlerSuccess(t *testing.T) {
	svc := &fakeLessonGenService{result: &services.LessonResult{
		RunID: uuid.New(),
		Quota: services.QuotaSnapshot{Used: 1, Remaining: 9, DailyLimit: 10},
	}}
	r := newGenRouter(svc, &fakeQuotaService{}, true)

	w := postLesson(r, `{"lesson_title":"Fractions"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var res services.LessonResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.Quota.Remaining != 9 {
		t.Fatalf("unexpected quota %+v", res.Quota)
	}
}

func TestGenerateLessonHandlerUnauthenticated(t *testing.T) {
	r := newGenRouter(&fakeLessonGenService{}, &fakeQuotaService{}, false)
	w := postLesson(r, `{}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestGenerateLessonHandlerBadJSON(t *testing.T) {
	r := newGenRouter(&fakeLessonGenService{}, &fakeQuotaService{}, true)
	w := postLesson(r, `{"lesson_title":`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGenerateLessonHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"quota exceeded", apierr.QuotaExceeded(errors.New("limit reached")), http.StatusTooManyRequests, apierr.CodeQuotaExceeded},
		{"lock held", apierr.LockHeld(errors.New("in progress")), http.StatusConflict, apierr.CodeLockHeld},
		{"invalid output", apierr.InvalidOutput(errors.New("still broken")), http.StatusInternalServerError, apierr.CodeInvalidOutput},
		{"throttled", apierr.Throttled(errors.New("budget exhausted")), http.StatusInternalServerError, apierr.CodeThrottled},
		{"untyped", errors.New("boom"), http.StatusInternalServerError, apierr.CodeUpstream},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newGenRouter(&fakeLessonGenService{err: tc.err}, &fakeQuotaService{}, true)
			w := postLesson(r, `{}`)
			if w.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, w.Code, w.Body.String())
			}
			var env ErrorEnvelope
			if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if env.Error.Code != tc.wantCode {
				t.Fatalf("expected code %q, got %q", tc.wantCode, env.Error.Code)
			}
		})
	}
}

func TestGenerateLessonHandlerQuotaDetail(t *testing.T) {
	quota := &fakeQuotaService{snap: services.QuotaSnapshot{Used: 10, Remaining: 0, DailyLimit: 10, Day: "2026-03-14"}}
	r := newGenRouter(&fakeLessonGenService{err: apierr.QuotaExceeded(errors.New("limit reached"))}, quota, true)

	w := postLesson(r, `{}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	var env struct {
		Error struct {
			Detail services.QuotaSnapshot `json:"detail"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if env.Error.Detail.Used != 10 || env.Error.Detail.Remaining != 0 {
		t.Fatalf("expected quota detail on 429, got %+v", env.Error.Detail)
	}
}

func TestGetQuotaHandler(t *testing.T) {
	quota := &fakeQuotaService{snap: services.QuotaSnapshot{Used: 3, Remaining: 7, DailyLimit: 10, Day: "2026-03-14"}}
	r := newGenRouter(&fakeLessonGenService{}, quota, true)

	req := httptest.NewRequest(http.MethodGet, "/api/generate/quota", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var res struct {
		Quota services.QuotaSnapshot `json:"quota"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.Quota.Remaining != 7 {
		t.Fatalf("unexpected quota %+v", res.Quota)
	}
}
