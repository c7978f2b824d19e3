package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Shivanand-hulikatti/techfest-registration/internal/metrics"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/model"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/ratelimit"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/service"
)

type registrarFunc func(ctx context.Context, req model.RegistrationRequest) (*model.RegistrationReceipt, error)

func (f registrarFunc) Register(ctx context.Context, req model.RegistrationRequest) (*model.RegistrationReceipt, error) {
	return f(ctx, req)
}

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, metrics.Entry) error { return errors.New("redis down") }

func (failingRecorder) Snapshot(context.Context) (metrics.Snapshot, error) {
	return metrics.Snapshot{}, errors.New("redis down")
}

func newRegistrationHandler(svc Registrar, rec metrics.Recorder, production bool) (*RegistrationHandler, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := NewRegistrationHandler(svc, ratelimit.NewMemoryLimiter(), registrationLimit, rec, zap.New(core), production)
	return h, logs
}

func postRegister(h *RegistrationHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Register(rec, req)
	return rec
}

const validBody = `{"fullName":"Ayesha Khan","email":"ayesha@example.edu","phoneNumber":"03001234567",` +
	`"university":"NUST","mainCategory":"tech-quiz","termsAccepted":true}`

func TestRegister_PanicIsRecoveredWithDetailsOutsideProduction(t *testing.T) {
	rec := metrics.NewMemoryRecorder()
	h, logs := newRegistrationHandler(registrarFunc(func(context.Context, model.RegistrationRequest) (*model.RegistrationReceipt, error) {
		panic("nil map write")
	}), rec, false)

	resp := postRegister(h, validBody)

	require.Equal(t, http.StatusInternalServerError, resp.Code)
	body := decodeBody[model.ErrorResponse](t, resp)
	assert.Equal(t, service.MsgUnexpected, body.Error)
	assert.Equal(t, "nil map write", body.Details)
	assert.NotEmpty(t, resp.Header().Get("X-Processing-Time"))

	require.Equal(t, 1, logs.FilterMessage("registration panicked").Len())
	assert.Equal(t, map[string]int64{"unexpected_error": 1}, rec.ErrorBreakdown())
	assert.Empty(t, rec.CategoryBreakdown())
}

func TestRegister_PanicHidesDetailsInProduction(t *testing.T) {
	h, _ := newRegistrationHandler(registrarFunc(func(context.Context, model.RegistrationRequest) (*model.RegistrationReceipt, error) {
		panic("secret connection string")
	}), metrics.NewMemoryRecorder(), true)

	resp := postRegister(h, validBody)

	require.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Empty(t, decodeBody[model.ErrorResponse](t, resp).Details)
	assert.NotContains(t, resp.Body.String(), "secret")
}

func TestRegister_UnclassifiedErrorIsUnexpected(t *testing.T) {
	rec := metrics.NewMemoryRecorder()
	h, _ := newRegistrationHandler(registrarFunc(func(context.Context, model.RegistrationRequest) (*model.RegistrationReceipt, error) {
		return nil, errors.New("boom")
	}), rec, true)

	resp := postRegister(h, validBody)

	require.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Equal(t, model.ErrorResponse{Error: service.MsgUnexpected}, decodeBody[model.ErrorResponse](t, resp))
	assert.Equal(t, map[string]int64{"unexpected_error": 1}, rec.ErrorBreakdown())
}

func TestRegister_DatabaseErrorCodeIsRecorded(t *testing.T) {
	rec := metrics.NewMemoryRecorder()
	h, _ := newRegistrationHandler(registrarFunc(func(context.Context, model.RegistrationRequest) (*model.RegistrationReceipt, error) {
		return nil, &service.Error{
			Type:    service.ErrorDatabase,
			Status:  http.StatusServiceUnavailable,
			Message: service.MsgUnavailable,
			Code:    "42501",
		}
	}), rec, true)

	resp := postRegister(h, validBody)

	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	body := decodeBody[model.ErrorResponse](t, resp)
	assert.Equal(t, service.MsgUnavailable, body.Error)
	assert.Equal(t, "42501", body.Code)
	assert.Equal(t, map[string]int64{"database_error": 1}, rec.ErrorBreakdown())
}

func TestRegister_TrailingDataIsInvalidJSON(t *testing.T) {
	for name, body := range map[string]string{
		"second object":  validBody + `{"again":true}`,
		"stray brace":    `{} }`,
		"stray bracket":  validBody + `]`,
		"trailing token": validBody + ` true`,
	} {
		t.Run(name, func(t *testing.T) {
			called := false
			h, _ := newRegistrationHandler(registrarFunc(func(context.Context, model.RegistrationRequest) (*model.RegistrationReceipt, error) {
				called = true
				return &model.RegistrationReceipt{}, nil
			}), metrics.NewMemoryRecorder(), true)

			resp := postRegister(h, body)

			require.Equal(t, http.StatusBadRequest, resp.Code)
			assert.Equal(t, msgInvalidJSON, decodeBody[model.ErrorResponse](t, resp).Error)
			assert.False(t, called)
		})
	}
}

func TestRegister_TrailingWhitespaceIsAccepted(t *testing.T) {
	h, _ := newRegistrationHandler(registrarFunc(func(context.Context, model.RegistrationRequest) (*model.RegistrationReceipt, error) {
		return &model.RegistrationReceipt{ID: "id-1"}, nil
	}), metrics.NewMemoryRecorder(), true)

	resp := postRegister(h, validBody+"\n\t ")

	require.Equal(t, http.StatusCreated, resp.Code)
}

func TestRegister_MetricsFailureDoesNotChangeResponse(t *testing.T) {
	h, logs := newRegistrationHandler(registrarFunc(func(context.Context, model.RegistrationRequest) (*model.RegistrationReceipt, error) {
		return &model.RegistrationReceipt{ID: "id-1", Email: "ayesha@example.edu"}, nil
	}), failingRecorder{}, true)

	resp := postRegister(h, validBody)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, 1, logs.FilterMessage("record metrics failed").Len())
}

func TestRegister_ProcessingTimeUsesClock(t *testing.T) {
	h, _ := newRegistrationHandler(registrarFunc(func(context.Context, model.RegistrationRequest) (*model.RegistrationReceipt, error) {
		return &model.RegistrationReceipt{ID: "id-1"}, nil
	}), metrics.NewMemoryRecorder(), true)
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	calls := 0
	h.now = func() time.Time {
		calls++
		return start.Add(time.Duration(calls-1) * 42 * time.Millisecond)
	}

	resp := postRegister(h, validBody)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "42ms", resp.Header().Get("X-Processing-Time"))
}

type limiterFunc func(ctx context.Context, key string, limit ratelimit.Limit) ratelimit.Decision

func (f limiterFunc) Admit(ctx context.Context, key string, limit ratelimit.Limit) ratelimit.Decision {
	return f(ctx, key, limit)
}

func TestRegister_DegradedLimiterOmitsWindowHeaders(t *testing.T) {
	h, _ := newRegistrationHandler(registrarFunc(func(context.Context, model.RegistrationRequest) (*model.RegistrationReceipt, error) {
		return &model.RegistrationReceipt{ID: "id-1"}, nil
	}), metrics.NewMemoryRecorder(), true)
	h.limiter = limiterFunc(func(_ context.Context, _ string, limit ratelimit.Limit) ratelimit.Decision {
		return ratelimit.Decision{Allowed: true, Limit: limit.Max, Degraded: true}
	})

	resp := postRegister(h, validBody)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "5", resp.Header().Get("X-RateLimit-Limit"))
	assert.Empty(t, resp.Header().Values("X-RateLimit-Remaining"))
	assert.Empty(t, resp.Header().Values("X-RateLimit-Reset"))
}

func TestStats_StoreFailure(t *testing.T) {
	h, _ := newRegistrationHandler(registrarFunc(nil), failingRecorder{}, true)

	resp := httptest.NewRecorder()
	h.Stats(resp, httptest.NewRequest(http.MethodGet, "/api/register/stats", nil))

	require.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Equal(t, "Failed to load metrics", decodeBody[model.ErrorResponse](t, resp).Error)
}
