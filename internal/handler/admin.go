package handler

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/r3labs/sse/v2"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/techfest-registration/internal/auth"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/model"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/realtime"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/repository"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/service"
)

// RegistrationAdmin is the admin surface of the registration service.
type RegistrationAdmin interface {
	ListRegistrations(ctx context.Context, f model.RegistrationFilter) (*service.RegistrationPage, error)
	ExportRegistrations(ctx context.Context, f model.RegistrationFilter) ([]model.Registration, error)
	GetRegistration(ctx context.Context, id string) (*model.Registration, error)
	UpdateRegistration(ctx context.Context, id string, upd model.RegistrationUpdate) (*model.Registration, error)
	DeleteRegistration(ctx context.Context, id string) error
}

// ContactAdmin is the admin surface of the contact service.
type ContactAdmin interface {
	List(ctx context.Context, unreadOnly bool, limit, offset int) ([]model.ContactMessage, error)
	Update(ctx context.Context, id string, upd model.ContactUpdate) (*model.ContactMessage, error)
	Delete(ctx context.Context, id string) error
}

// AdminHandler serves the authenticated admin API.
type AdminHandler struct {
	regs         RegistrationAdmin
	contacts     ContactAdmin
	secret       []byte
	passwordHash string
	tokenTTL     time.Duration
	events       *sse.Server
	log          *zap.Logger
	now          func() time.Time
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(
	regs RegistrationAdmin,
	contacts ContactAdmin,
	secret []byte,
	passwordHash string,
	tokenTTL time.Duration,
	events *sse.Server,
	log *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		regs:         regs,
		contacts:     contacts,
		secret:       secret,
		passwordHash: passwordHash,
		tokenTTL:     tokenTTL,
		events:       events,
		log:          log,
		now:          time.Now,
	}
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login handles POST /api/admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	if err := auth.CheckPassword(h.passwordHash, req.Password); err != nil {
		h.log.Warn("admin login rejected", zap.String("remote", ClientKey(r)))
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, expires, err := auth.GenerateToken(h.secret, h.tokenTTL, h.now())
	if err != nil {
		h.log.Error("issue admin token failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, service.MsgUnexpected)
		return
	}
	writeData(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expires.UTC()})
}

// ListRegistrations handles GET /api/admin/registrations
func (h *AdminHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	f, err := registrationFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := h.regs.ListRegistrations(r.Context(), f)
	if err != nil {
		h.log.Error("list registrations failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list registrations")
		return
	}
	writeData(w, http.StatusOK, page)
}

var exportHeader = []string{
	"id", "full_name", "email", "phone_number", "university", "department", "roll_number",
	"main_category", "sub_category", "team_name", "team_members", "status", "created_at",
}

// ExportRegistrations handles GET /api/admin/registrations/export
// Streams matching registrations as CSV.
func (h *AdminHandler) ExportRegistrations(w http.ResponseWriter, r *http.Request) {
	f, err := registrationFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	regs, err := h.regs.ExportRegistrations(r.Context(), f)
	if err != nil {
		h.log.Error("export registrations failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to export registrations")
		return
	}

	filename := fmt.Sprintf("registrations-%s.csv", h.now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.Write(exportHeader)
	for _, reg := range regs {
		_ = cw.Write([]string{
			reg.ID, reg.FullName, reg.Email, reg.PhoneNumber, reg.University,
			deref(reg.Department), deref(reg.RollNumber), reg.MainCategory,
			deref(reg.SubCategory), deref(reg.TeamName), deref(reg.TeamMembers),
			reg.Status, reg.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.log.Warn("write csv export failed", zap.Error(err))
	}
}

// GetRegistration handles GET /api/admin/registrations/{id}
func (h *AdminHandler) GetRegistration(w http.ResponseWriter, r *http.Request) {
	reg, err := h.regs.GetRegistration(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLookupError(w, err, "registration")
		return
	}
	writeData(w, http.StatusOK, reg)
}

// UpdateRegistration handles PATCH /api/admin/registrations/{id}
func (h *AdminHandler) UpdateRegistration(w http.ResponseWriter, r *http.Request) {
	var upd model.RegistrationUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	reg, err := h.regs.UpdateRegistration(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		if errors.Is(err, service.ErrInvalidStatus) {
			writeError(w, http.StatusBadRequest, "status must be one of pending, confirmed, rejected")
			return
		}
		h.writeLookupError(w, err, "registration")
		return
	}
	writeData(w, http.StatusOK, reg)
}

// DeleteRegistration handles DELETE /api/admin/registrations/{id}
func (h *AdminHandler) DeleteRegistration(w http.ResponseWriter, r *http.Request) {
	if err := h.regs.DeleteRegistration(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeLookupError(w, err, "registration")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListContacts handles GET /api/admin/contacts
func (h *AdminHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := intParam(q.Get("offset"), "offset")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	unread := q.Get("unread") == "true"

	msgs, err := h.contacts.List(r.Context(), unread, limit, offset)
	if err != nil {
		h.log.Error("list contact messages failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list contact messages")
		return
	}
	writeData(w, http.StatusOK, msgs)
}

// UpdateContact handles PATCH /api/admin/contacts/{id}
func (h *AdminHandler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	var upd model.ContactUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	msg, err := h.contacts.Update(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		h.writeLookupError(w, err, "contact message")
		return
	}
	writeData(w, http.StatusOK, msg)
}

// DeleteContact handles DELETE /api/admin/contacts/{id}
func (h *AdminHandler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	if err := h.contacts.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeLookupError(w, err, "contact message")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stream handles GET /api/admin/stream?stream=<table>
// Sends a server-sent event for every change to the table.
func (h *AdminHandler) Stream(w http.ResponseWriter, r *http.Request) {
	stream := r.URL.Query().Get("stream")
	if !realtime.IsTable(stream) {
		writeError(w, http.StatusBadRequest, "unknown stream")
		return
	}

	// Streams outlive the server's write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	h.log.Info("admin subscribed to changes", zap.String("stream", stream))
	h.events.ServeHTTP(w, r)
	h.log.Info("admin unsubscribed from changes", zap.String("stream", stream))
}

func (h *AdminHandler) writeLookupError(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, what+" not found")
		return
	}
	h.log.Error("admin "+what+" operation failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "failed to process "+what)
}

func registrationFilter(r *http.Request) (model.RegistrationFilter, error) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), "limit")
	if err != nil {
		return model.RegistrationFilter{}, err
	}
	offset, err := intParam(q.Get("offset"), "offset")
	if err != nil {
		return model.RegistrationFilter{}, err
	}
	return model.RegistrationFilter{
		Category: q.Get("category"),
		Status:   q.Get("status"),
		Search:   q.Get("search"),
		Limit:    limit,
		Offset:   offset,
	}, nil
}

func intParam(v, name string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
