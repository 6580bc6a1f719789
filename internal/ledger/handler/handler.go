package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"partnerd/internal/eventlog"
	"partnerd/internal/ledger"
	"partnerd/internal/platform/middleware"
	"partnerd/internal/transport/http/shared"
	id "partnerd/pkg/domain"
	dErrors "partnerd/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/service_mock.go -package=mocks

// Service defines the ledger operations the transport layer needs.
type Service interface {
	Create(ctx context.Context, initiator, counterparty id.Address, amount id.Amount) (id.PartnershipID, error)
	Confirm(ctx context.Context, caller id.Address, pid id.PartnershipID) error
	Cancel(ctx context.Context, caller id.Address, pid id.PartnershipID) error
	Get(ctx context.Context, pid id.PartnershipID) (ledger.Partnership, error)
	ListForParticipant(ctx context.Context, addr id.Address) ([]id.PartnershipID, error)
	StatsFor(ctx context.Context, addr id.Address) (ledger.Stats, error)
	History(ctx context.Context, pid id.PartnershipID) ([]eventlog.Event, error)
}

// Handler handles partnership ledger endpoints.
type Handler struct {
	ledger Service
	logger *slog.Logger
}

func New(ledger Service, logger *slog.Logger) *Handler {
	return &Handler{ledger: ledger, logger: logger}
}

// Register registers the ledger routes with the chi router. Mutations require
// an authenticated caller; reads are public.
func (h *Handler) Register(r chi.Router, validator middleware.JWTValidator) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireCaller(validator, h.logger))
		r.Post("/partnerships", h.handleCreate)
		r.Post("/partnerships/{id}/confirm", h.handleConfirm)
		r.Post("/partnerships/{id}/cancel", h.handleCancel)
	})
	r.Get("/partnerships/{id}", h.handleGet)
	r.Get("/partnerships/{id}/events", h.handleEvents)
	r.Get("/participants/{address}/partnerships", h.handleListForParticipant)
	r.Get("/participants/{address}/stats", h.handleStats)
}

type createRequest struct {
	Counterparty string `json:"counterparty"`
	Amount       string `json:"amount"`
}

type createResponse struct {
	ID string `json:"id"`
}

type partnershipResponse struct {
	ID                    string `json:"id"`
	Initiator             string `json:"initiator"`
	Counterparty          string `json:"counterparty"`
	Amount                string `json:"amount"`
	InitiatorConfirmed    bool   `json:"initiator_confirmed"`
	CounterpartyConfirmed bool   `json:"counterparty_confirmed"`
	Completed             bool   `json:"completed"`
	Cancelled             bool   `json:"cancelled"`
	CreatedAt             string `json:"created_at"`
}

type eventResponse struct {
	TxRef        string `json:"tx_ref"`
	Partnership  string `json:"partnership_id,omitempty"`
	Action       string `json:"action"`
	Actor        string `json:"actor"`
	Counterparty string `json:"counterparty,omitempty"`
	Amount       string `json:"amount,omitempty"`
	Timestamp    string `json:"timestamp"`
}

func toPartnershipResponse(p ledger.Partnership) partnershipResponse {
	return partnershipResponse{
		ID:                    p.ID.String(),
		Initiator:             p.Initiator.String(),
		Counterparty:          p.Counterparty.String(),
		Amount:                p.Amount.String(),
		InitiatorConfirmed:    p.InitiatorConfirmed,
		CounterpartyConfirmed: p.CounterpartyConfirmed,
		Completed:             p.Completed,
		Cancelled:             p.Cancelled,
		CreatedAt:             p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toEventResponse(ev eventlog.Event) eventResponse {
	resp := eventResponse{
		TxRef:     ev.TxRef.String(),
		Action:    string(ev.Action),
		Actor:     ev.Actor.String(),
		Timestamp: ev.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	if ev.Partnership != nil {
		resp.Partnership = ev.Partnership.String()
	}
	if !ev.Counterparty.IsZero() {
		resp.Counterparty = ev.Counterparty.String()
	}
	if !ev.Amount.IsZero() {
		resp.Amount = ev.Amount.String()
	}
	return resp
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	counterparty, err := id.ParseAddress(req.Counterparty)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid counterparty address"))
		return
	}
	amount, err := id.ParseAmount(req.Amount)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidAmount, "invalid amount"))
		return
	}

	pid, err := h.ledger.Create(ctx, caller, counterparty, amount)
	if err != nil {
		h.logger.WarnContext(ctx, "partnership creation rejected",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, createResponse{ID: pid.String()})
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.ledger.Confirm, "confirmation rejected")
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.ledger.Cancel, "cancellation rejected")
}

func (h *Handler) mutate(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, caller id.Address, pid id.PartnershipID) error,
	rejectedMsg string,
) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)

	pid, err := id.ParsePartnershipID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid partnership id"))
		return
	}

	if err := op(ctx, caller, pid); err != nil {
		h.logger.WarnContext(ctx, rejectedMsg,
			"request_id", middleware.GetRequestID(ctx),
			"partnership_id", pid.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pid, err := id.ParsePartnershipID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid partnership id"))
		return
	}

	partnership, err := h.ledger.Get(ctx, pid)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toPartnershipResponse(partnership))
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pid, err := id.ParsePartnershipID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid partnership id"))
		return
	}

	events, err := h.ledger.History(ctx, pid)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make([]eventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, toEventResponse(ev))
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleListForParticipant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	addr, err := id.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid address"))
		return
	}

	ids, err := h.ledger.ListForParticipant(ctx, addr)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list partnerships",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	out := make([]string, 0, len(ids))
	for _, pid := range ids {
		out = append(out, pid.String())
	}
	shared.WriteJSON(w, http.StatusOK, map[string][]string{"partnerships": out})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	addr, err := id.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid address"))
		return
	}

	stats, err := h.ledger.StatsFor(ctx, addr)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to compute stats",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, stats)
}
