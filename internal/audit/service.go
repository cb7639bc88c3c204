package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

var ErrInvalidEvent = errors.New("audit: invalid event")

// Service logs internal audit information.
//
// Audit is internal-only; callers should treat audit logging as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" || e.Message == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LogSecurityAlert records a rejected or suspicious gateway callback.
func (s *Service) LogSecurityAlert(ctx context.Context, riderID, paymentRequestID, message, metadata string) error {
	return s.Append(ctx, Event{
		Type:             EventTypeSecurityAlert,
		RiderID:          riderID,
		PaymentRequestID: paymentRequestID,
		Message:          message,
		Metadata:         metadata,
	})
}

// LogAdminAction records an administrative money-movement action.
func (s *Service) LogAdminAction(ctx context.Context, actorUserID, actorRole, ip, message string, target Event) error {
	return s.Append(ctx, Event{
		Type:             EventTypeAdminAction,
		ActorUserID:      actorUserID,
		ActorRole:        actorRole,
		IPAddress:        ip,
		RiderID:          target.RiderID,
		PaymentRequestID: target.PaymentRequestID,
		BatchID:          target.BatchID,
		SettlementID:     target.SettlementID,
		EntryID:          target.EntryID,
		Message:          message,
		Metadata:         target.Metadata,
	})
}
