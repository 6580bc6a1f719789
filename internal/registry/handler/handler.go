package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"partnerd/internal/platform/middleware"
	"partnerd/internal/registry"
	"partnerd/internal/transport/http/shared"
	id "partnerd/pkg/domain"
	dErrors "partnerd/pkg/domain-errors"
)

// Service defines the registry operations the transport layer needs.
type Service interface {
	Register(ctx context.Context, caller id.Address, displayName string, role id.Role) (registry.Participant, error)
	Profile(ctx context.Context, addr id.Address) (registry.Participant, error)
	List(ctx context.Context) ([]registry.Participant, error)
}

// Handler handles participant registry endpoints.
type Handler struct {
	registry Service
	logger   *slog.Logger
}

func New(registry Service, logger *slog.Logger) *Handler {
	return &Handler{registry: registry, logger: logger}
}

// Register registers the registry routes with the chi router. Profile reads
// are public; registration requires an authenticated caller.
func (h *Handler) Register(r chi.Router, validator middleware.JWTValidator) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireCaller(validator, h.logger))
		r.Post("/participants", h.handleRegister)
	})
	r.Get("/participants", h.handleList)
	r.Get("/participants/{address}", h.handleProfile)
}

type registerRequest struct {
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

type participantResponse struct {
	Address      string `json:"address"`
	DisplayName  string `json:"display_name"`
	Role         string `json:"role"`
	RegisteredAt string `json:"registered_at,omitempty"`
	Registered   bool   `json:"registered"`
}

func toParticipantResponse(p registry.Participant) participantResponse {
	resp := participantResponse{
		Address:     p.Address.String(),
		DisplayName: p.DisplayName,
		Registered:  p.Registered(),
	}
	if p.Registered() {
		resp.Role = p.Role.String()
		resp.RegisteredAt = p.RegisteredAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	role, err := id.ParseRole(req.Role)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "role must be brand or influencer"))
		return
	}

	participant, err := h.registry.Register(ctx, caller, req.DisplayName, role)
	if err != nil {
		h.logger.WarnContext(ctx, "registration rejected",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toParticipantResponse(participant))
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	addr, err := id.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid address"))
		return
	}

	participant, err := h.registry.Profile(ctx, addr)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load profile",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	// Unregistered addresses return the empty profile, not 404.
	resp := toParticipantResponse(participant)
	if !participant.Registered() {
		resp.Address = addr.String()
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	participants, err := h.registry.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list participants",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	out := make([]participantResponse, 0, len(participants))
	for _, p := range participants {
		out = append(out, toParticipantResponse(p))
	}
	shared.WriteJSON(w, http.StatusOK, out)
}
