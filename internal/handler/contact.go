package handler

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/techfest-registration/internal/model"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/ratelimit"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/service"
)

// ContactSubmitter stores contact form messages.
type ContactSubmitter interface {
	Submit(ctx context.Context, req model.ContactRequest) (*model.ContactMessage, error)
}

// ContactHandler serves the public contact form.
type ContactHandler struct {
	svc     ContactSubmitter
	limiter ratelimit.Limiter
	limit   ratelimit.Limit
	log     *zap.Logger
}

// NewContactHandler constructs a ContactHandler.
func NewContactHandler(svc ContactSubmitter, limiter ratelimit.Limiter, limit ratelimit.Limit, log *zap.Logger) *ContactHandler {
	return &ContactHandler{svc: svc, limiter: limiter, limit: limit, log: log}
}

// Submit handles POST /api/contact
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	dec := h.limiter.Admit(r.Context(), "contact:"+ClientKey(r), h.limit)
	setRateLimitHeaders(w, dec)
	if !dec.Allowed {
		w.Header().Set("Retry-After", strconv.Itoa(dec.RetryAfter))
		writeJSON(w, http.StatusTooManyRequests, model.ErrorResponse{
			Error:      "Too many messages. Please try again later.",
			RetryAfter: dec.RetryAfter,
		})
		return
	}

	var req model.ContactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	msg, err := h.svc.Submit(r.Context(), req)
	if err != nil {
		if e, ok := service.AsError(err); ok {
			writeJSON(w, e.Status, serviceErrorResponse(e))
			return
		}
		h.log.Error("contact submit failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, service.MsgUnexpected)
		return
	}

	writeJSON(w, http.StatusCreated, model.SuccessResponse{
		Success: true,
		Message: "Message sent",
		Data:    map[string]string{"id": msg.ID},
	})
}
