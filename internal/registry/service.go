package registry

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"partnerd/internal/eventlog"
	"partnerd/internal/platform/metrics"
	id "partnerd/pkg/domain"
	dErrors "partnerd/pkg/domain-errors"
	"partnerd/pkg/platform/sentinel"
	txrunner "partnerd/pkg/platform/tx"
)

// Service owns participant registration. Registration is write-once: name and
// role are immutable afterwards, and the same address can never register twice.
type Service struct {
	store   Store
	events  *eventlog.Publisher
	runner  txrunner.Runner
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(store Store, events *eventlog.Publisher, runner txrunner.Runner, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		events:  events,
		runner:  runner,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Register creates the participant record for caller. The display name must
// be non-empty after trimming; the role must be a member of the closed set.
func (s *Service) Register(ctx context.Context, caller id.Address, displayName string, role id.Role) (Participant, error) {
	if caller.IsZero() {
		return Participant{}, dErrors.New(dErrors.CodeUnauthorized, "caller address is required")
	}
	if strings.TrimSpace(displayName) == "" {
		return Participant{}, dErrors.New(dErrors.CodeInvalidName, "display name cannot be empty")
	}
	if !role.Valid() {
		return Participant{}, dErrors.New(dErrors.CodeInvalidInput, "role must be brand or influencer")
	}

	participant := Participant{
		Address:      caller,
		DisplayName:  displayName,
		Role:         role,
		RegisteredAt: s.now().UTC(),
	}
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, participant); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeAlreadyRegistered, "address is already registered")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist registration")
		}
		if _, err := s.events.Emit(ctx, eventlog.Event{
			Action: eventlog.ActionRegistered,
			Actor:  caller,
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to log registration")
		}
		return nil
	})
	if err != nil {
		return Participant{}, err
	}

	if s.metrics != nil {
		s.metrics.PartnersRegistered.Inc()
	}
	s.logger.InfoContext(ctx, "participant registered",
		"address", caller.String(),
		"role", role.String(),
	)
	return participant, nil
}

// Profile is a total function over the address space: unregistered addresses
// yield the sentinel empty profile, never an error.
func (s *Service) Profile(ctx context.Context, addr id.Address) (Participant, error) {
	participant, err := s.store.Find(ctx, addr)
	if errors.Is(err, sentinel.ErrNotFound) {
		return EmptyProfile(), nil
	}
	if err != nil {
		return Participant{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}
	return participant, nil
}

// IsRegistered reports whether addr has a participant record. The ledger uses
// this as its counterparty policy check.
func (s *Service) IsRegistered(ctx context.Context, addr id.Address) (bool, error) {
	_, err := s.store.Find(ctx, addr)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check registration")
	}
	return true, nil
}

// List returns all participants in registration order. The listing is
// restartable: no cursor state is retained between calls.
func (s *Service) List(ctx context.Context) ([]Participant, error) {
	participants, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list participants")
	}
	return participants, nil
}
