package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/techfest-registration/internal/metrics"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/model"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/ratelimit"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/service"
)

// Response messages of the registration endpoint.
const (
	msgRegistered  = "Registration successful"
	msgRateLimited = "Too many registration attempts. Please try again later."
	msgInvalidJSON = "Invalid JSON in request body"
	msgHealthy     = "Registration API is running"
	msgStatsFailed = "Failed to load metrics"
)

// Registrar runs the registration pipeline after admission.
type Registrar interface {
	Register(ctx context.Context, req model.RegistrationRequest) (*model.RegistrationReceipt, error)
}

// RegistrationHandler serves the public registration endpoints.
type RegistrationHandler struct {
	svc        Registrar
	limiter    ratelimit.Limiter
	limit      ratelimit.Limit
	metrics    metrics.Recorder
	log        *zap.Logger
	production bool
	now        func() time.Time
}

// NewRegistrationHandler constructs a RegistrationHandler.
func NewRegistrationHandler(
	svc Registrar,
	limiter ratelimit.Limiter,
	limit ratelimit.Limit,
	rec metrics.Recorder,
	log *zap.Logger,
	production bool,
) *RegistrationHandler {
	return &RegistrationHandler{
		svc:        svc,
		limiter:    limiter,
		limit:      limit,
		metrics:    rec,
		log:        log,
		production: production,
		now:        time.Now,
	}
}

// attempt carries one request through the pipeline and makes sure it is
// answered and recorded exactly once.
type attempt struct {
	h         *RegistrationHandler
	w         http.ResponseWriter
	r         *http.Request
	start     time.Time
	entry     metrics.Entry
	responded bool
}

func (a *attempt) respond(status int, body any) {
	if a.responded {
		return
	}
	a.responded = true

	elapsed := a.h.now().Sub(a.start)
	a.w.Header().Set("X-Processing-Time", strconv.FormatInt(elapsed.Milliseconds(), 10)+"ms")
	writeJSON(a.w, status, body)

	a.entry.Duration = elapsed
	a.entry.Success = status < http.StatusBadRequest
	// Record even if the client has gone away.
	ctx := context.WithoutCancel(a.r.Context())
	if err := a.h.metrics.Record(ctx, a.entry); err != nil {
		a.h.log.Warn("record metrics failed", zap.Error(err))
	}
}

func (a *attempt) fail(errType service.ErrorType, code string, status int, body model.ErrorResponse) {
	a.entry.ErrorType = string(errType)
	a.entry.ErrorCode = code
	a.respond(status, body)
}

// Register handles POST /api/register
// Runs rate limit, decode, validation, duplicate check and insert in that
// order, stopping at the first failure.
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	a := &attempt{h: h, w: w, r: r, start: h.now()}
	a.entry.Timestamp = a.start.UTC()
	a.entry.ClientKey = ClientKey(r)

	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		h.log.Error("registration panicked",
			zap.Any("panic", rec),
			zap.String("client", a.entry.ClientKey),
			zap.String("category", a.entry.Category),
			zap.Duration("elapsed", h.now().Sub(a.start)),
			zap.Stack("stack"),
		)
		body := model.ErrorResponse{Error: service.MsgUnexpected}
		if !h.production {
			body.Details = fmt.Sprint(rec)
		}
		a.fail(service.ErrorUnexpected, "", http.StatusInternalServerError, body)
	}()

	dec := h.limiter.Admit(r.Context(), a.entry.ClientKey, h.limit)
	setRateLimitHeaders(w, dec)
	if !dec.Allowed {
		w.Header().Set("Retry-After", strconv.Itoa(dec.RetryAfter))
		a.fail(service.ErrorRateLimit, "", http.StatusTooManyRequests, model.ErrorResponse{
			Error:      msgRateLimited,
			RetryAfter: dec.RetryAfter,
		})
		return
	}

	var req model.RegistrationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.fail(service.ErrorInvalidJSON, "", http.StatusBadRequest, model.ErrorResponse{Error: msgInvalidJSON})
		return
	}
	a.entry.Category = strings.TrimSpace(req.MainCategory)

	receipt, err := h.svc.Register(r.Context(), req)
	if err != nil {
		e, ok := service.AsError(err)
		if !ok {
			h.log.Error("registration failed", zap.String("client", a.entry.ClientKey), zap.Error(err))
			body := model.ErrorResponse{Error: service.MsgUnexpected}
			if !h.production {
				body.Details = err.Error()
			}
			a.fail(service.ErrorUnexpected, "", http.StatusInternalServerError, body)
			return
		}
		a.fail(e.Type, e.Code, e.Status, serviceErrorResponse(e))
		return
	}

	a.respond(http.StatusCreated, model.SuccessResponse{
		Success: true,
		Message: msgRegistered,
		Data:    receipt,
	})
}

// setRateLimitHeaders reports the window state. A degraded decision has
// no known window, so only the limit is sent.
func setRateLimitHeaders(w http.ResponseWriter, dec ratelimit.Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
	if dec.Degraded {
		return
	}
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(dec.ResetAt.Unix(), 10))
}

type rateLimitInfo struct {
	MaxRequests int   `json:"maxRequests"`
	WindowMs    int64 `json:"windowMs"`
}

type healthResponse struct {
	Status    string        `json:"status"`
	Message   string        `json:"message"`
	RateLimit rateLimitInfo `json:"rateLimit"`
}

// Health handles GET /api/register
func (h *RegistrationHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Message: msgHealthy,
		RateLimit: rateLimitInfo{
			MaxRequests: h.limit.Max,
			WindowMs:    h.limit.Window.Milliseconds(),
		},
	})
}

// Stats handles GET /api/register/stats
func (h *RegistrationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	snap, err := h.metrics.Snapshot(r.Context())
	if err != nil {
		h.log.Error("load metrics failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgStatsFailed)
		return
	}
	writeData(w, http.StatusOK, snap)
}
