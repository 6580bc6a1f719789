package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"partnerd/internal/eventlog"
	"partnerd/internal/platform/metrics"
	id "partnerd/pkg/domain"
	dErrors "partnerd/pkg/domain-errors"
	"partnerd/pkg/platform/sentinel"
	txrunner "partnerd/pkg/platform/tx"
)

// Directory answers the counterparty policy question. The registry service
// satisfies it.
type Directory interface {
	IsRegistered(ctx context.Context, addr id.Address) (bool, error)
}

// Service owns the partnership state machine and the escrow closure: value
// moves only through create (hold), confirm-to-completion (release) and
// cancel (refund). Mutations are applied serially by the execution substrate;
// the service performs no cross-operation locking of its own, and each
// mutation commits or fails as a whole through the runner.
type Service struct {
	store     Store
	vault     Vault
	events    *eventlog.Publisher
	directory Directory
	runner    txrunner.Runner
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

func NewService(
	store Store,
	vault Vault,
	events *eventlog.Publisher,
	directory Directory,
	runner txrunner.Runner,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:     store,
		vault:     vault,
		events:    events,
		directory: directory,
		runner:    runner,
		metrics:   m,
		logger:    logger,
		tracer:    otel.Tracer("partnerd/ledger"),
		now:       time.Now,
	}
}

// Create escrows amount for a new partnership between initiator and
// counterparty and returns the allocated id. The only operation that
// increases the held balance.
func (s *Service) Create(ctx context.Context, initiator, counterparty id.Address, amount id.Amount) (id.PartnershipID, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Create",
		trace.WithAttributes(attribute.String("initiator", initiator.String())))
	var pid id.PartnershipID
	err := s.create(ctx, initiator, counterparty, amount, &pid)
	endSpan(span, err)
	if err != nil {
		return 0, err
	}
	return pid, nil
}

func (s *Service) create(ctx context.Context, initiator, counterparty id.Address, amount id.Amount, out *id.PartnershipID) error {
	if initiator.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "caller address is required")
	}
	if amount.IsZero() {
		return dErrors.New(dErrors.CodeInvalidAmount, "amount must be greater than zero")
	}
	if counterparty == initiator {
		return dErrors.New(dErrors.CodeInvalidInput, "counterparty must differ from initiator")
	}
	registered, err := s.directory.IsRegistered(ctx, counterparty)
	if err != nil {
		return err
	}
	if !registered {
		return dErrors.New(dErrors.CodeUnknownCounterparty, "counterparty is not a registered participant")
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		// The vault moves first: under the noop runner there is no rollback,
		// so the fallible accounting step must precede the record write to
		// keep a failed hold from leaving an active, unescrowed partnership.
		if err := s.vault.Hold(ctx, amount); err != nil {
			return err
		}
		pid, err := s.store.NextID(ctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate partnership id")
		}
		partnership := Partnership{
			ID:           pid,
			Initiator:    initiator,
			Counterparty: counterparty,
			Amount:       amount,
			CreatedAt:    s.now().UTC(),
		}
		if err := s.store.Save(ctx, partnership); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist partnership")
		}
		if _, err := s.events.Emit(ctx, eventlog.Event{
			Partnership:  &pid,
			Action:       eventlog.ActionCreated,
			Actor:        initiator,
			Counterparty: counterparty,
			Amount:       amount,
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to log creation")
		}
		*out = pid
		return nil
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.PartnershipsCreated.Inc()
	}
	s.updateEscrowGauge(ctx)
	s.logger.InfoContext(ctx, "partnership created",
		"partnership_id", out.String(),
		"initiator", initiator.String(),
		"counterparty", counterparty.String(),
		"amount", amount.String(),
	)
	return nil
}

// Confirm records caller's confirmation. Re-confirming an already confirmed
// side is a no-op so retried transactions stay safe. When the second side
// confirms, the partnership completes and the escrowed amount is released to
// the counterparty.
func (s *Service) Confirm(ctx context.Context, caller id.Address, pid id.PartnershipID) error {
	ctx, span := s.tracer.Start(ctx, "ledger.Confirm",
		trace.WithAttributes(attribute.String("partnership_id", pid.String())))
	err := s.confirm(ctx, caller, pid)
	endSpan(span, err)
	return err
}

func (s *Service) confirm(ctx context.Context, caller id.Address, pid id.PartnershipID) error {
	var completed bool
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		partnership, err := s.loadForMutation(ctx, caller, pid)
		if err != nil {
			return err
		}
		if partnership.ConfirmedBy(caller) {
			return nil
		}

		switch caller {
		case partnership.Initiator:
			partnership.InitiatorConfirmed = true
		case partnership.Counterparty:
			partnership.CounterpartyConfirmed = true
		}
		if partnership.InitiatorConfirmed && partnership.CounterpartyConfirmed {
			partnership.Completed = true
			// Release before the record write, same discipline as create.
			if err := s.vault.Release(ctx, partnership.Counterparty, partnership.Amount); err != nil {
				return err
			}
		}

		if err := s.store.Save(ctx, partnership); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist confirmation")
		}
		if _, err := s.events.Emit(ctx, eventlog.Event{
			Partnership: &pid,
			Action:      eventlog.ActionConfirmed,
			Actor:       caller,
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to log confirmation")
		}

		if !partnership.Completed {
			return nil
		}
		completed = true
		if _, err := s.events.Emit(ctx, eventlog.Event{
			Partnership: &pid,
			Action:      eventlog.ActionCompleted,
			Actor:       caller,
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to log completion")
		}
		return nil
	})
	if err != nil {
		return err
	}

	if completed {
		if s.metrics != nil {
			s.metrics.PartnershipsCompleted.Inc()
		}
		s.updateEscrowGauge(ctx)
		s.logger.InfoContext(ctx, "partnership completed", "partnership_id", pid.String())
	}
	return nil
}

// Cancel refunds the escrowed amount to the initiator and terminates the
// partnership. Either party may cancel unilaterally at any point before
// completion, including after the other side confirmed.
func (s *Service) Cancel(ctx context.Context, caller id.Address, pid id.PartnershipID) error {
	ctx, span := s.tracer.Start(ctx, "ledger.Cancel",
		trace.WithAttributes(attribute.String("partnership_id", pid.String())))
	err := s.cancel(ctx, caller, pid)
	endSpan(span, err)
	return err
}

func (s *Service) cancel(ctx context.Context, caller id.Address, pid id.PartnershipID) error {
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		partnership, err := s.loadForMutation(ctx, caller, pid)
		if err != nil {
			return err
		}

		partnership.Cancelled = true
		if err := s.vault.Refund(ctx, partnership.Initiator, partnership.Amount); err != nil {
			return err
		}
		if err := s.store.Save(ctx, partnership); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist cancellation")
		}
		if _, err := s.events.Emit(ctx, eventlog.Event{
			Partnership: &pid,
			Action:      eventlog.ActionCancelled,
			Actor:       caller,
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to log cancellation")
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.PartnershipsCancelled.Inc()
	}
	s.updateEscrowGauge(ctx)
	s.logger.InfoContext(ctx, "partnership cancelled", "partnership_id", pid.String())
	return nil
}

// loadForMutation performs the shared precondition checks for confirm and
// cancel: the partnership exists, the caller is a party, and the record is
// not terminal.
func (s *Service) loadForMutation(ctx context.Context, caller id.Address, pid id.PartnershipID) (Partnership, error) {
	partnership, err := s.store.Find(ctx, pid)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Partnership{}, dErrors.New(dErrors.CodeNotFound, "partnership does not exist")
	}
	if err != nil {
		return Partnership{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load partnership")
	}
	if !partnership.IsParty(caller) {
		return Partnership{}, dErrors.New(dErrors.CodeUnauthorized, "caller is not a party to this partnership")
	}
	if partnership.Completed {
		return Partnership{}, dErrors.New(dErrors.CodeAlreadyCompleted, "partnership is already completed")
	}
	if partnership.Cancelled {
		return Partnership{}, dErrors.New(dErrors.CodeAlreadyCancelled, "partnership is already cancelled")
	}
	return partnership, nil
}

// Get returns the partnership record for pid.
func (s *Service) Get(ctx context.Context, pid id.PartnershipID) (Partnership, error) {
	partnership, err := s.store.Find(ctx, pid)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Partnership{}, dErrors.New(dErrors.CodeNotFound, "partnership does not exist")
	}
	if err != nil {
		return Partnership{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load partnership")
	}
	return partnership, nil
}

// ListForParticipant returns the ids of every partnership addr takes part in,
// in creation order. Restartable; no cursor state is kept.
func (s *Service) ListForParticipant(ctx context.Context, addr id.Address) ([]id.PartnershipID, error) {
	ids, err := s.store.ListByParticipant(ctx, addr)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list partnerships")
	}
	return ids, nil
}

// History returns the event trail for one partnership in emission order.
func (s *Service) History(ctx context.Context, pid id.PartnershipID) ([]eventlog.Event, error) {
	if _, err := s.Get(ctx, pid); err != nil {
		return nil, err
	}
	return s.events.History(ctx, pid)
}

// HeldBalance exposes the vault total for diagnostics and invariant checks.
func (s *Service) HeldBalance(ctx context.Context) (id.Amount, error) {
	return s.vault.Held(ctx)
}

func (s *Service) updateEscrowGauge(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	held, err := s.vault.Held(ctx)
	if err != nil {
		return
	}
	s.metrics.EscrowHeld.Set(float64(held))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
