package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to tenant users by default.
// - Callers should treat audit logging as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.AccountID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

func (s *Service) LogAccountRegistered(ctx context.Context, accountID, userID, ip string) error {
	return s.Append(ctx, Event{
		AccountID:   accountID,
		Type:        EventTypeAccountRegistered,
		ActorUserID: userID,
		IPAddress:   ip,
		Message:     "account registered",
	})
}

func (s *Service) LogAccountUpdated(ctx context.Context, accountID, userID, ip, friendlyName string) error {
	return s.Append(ctx, Event{
		AccountID:   accountID,
		Type:        EventTypeAccountUpdated,
		ActorUserID: userID,
		IPAddress:   ip,
		Message:     "friendly name changed",
		Metadata:    metadata(map[string]string{"friendly_name": friendlyName}),
	})
}

// LogCallTerminateRequested records an explicit status request, whether or not it applied.
func (s *Service) LogCallTerminateRequested(ctx context.Context, accountID, userID, ip, callID, requested, resulting string) error {
	return s.Append(ctx, Event{
		AccountID:   accountID,
		Type:        EventTypeCallTerminateRequested,
		ActorUserID: userID,
		IPAddress:   ip,
		CallID:      callID,
		Message:     "status change requested",
		Metadata:    metadata(map[string]string{"requested_status": requested, "resulting_status": resulting}),
	})
}

func metadata(m map[string]string) string {
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}
