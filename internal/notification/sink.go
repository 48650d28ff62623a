package notification

import (
	"context"

	"go.uber.org/zap"
)

// Sink is the fire-and-forget emission side of the notification log.
// A failed append must never roll back the lifecycle transition that
// triggered it, so Emit logs store faults and returns nothing.
type Sink struct {
	store Store
	log   *zap.Logger
}

// NewSink creates a sink over the given store
func NewSink(store Store, log *zap.Logger) *Sink {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sink{store: store, log: log}
}

// Emit appends a notification for the recipient, best-effort
func (s *Sink) Emit(ctx context.Context, recipientID, category, message string) {
	if recipientID == "" {
		return
	}
	_, err := s.store.Append(ctx, &Notification{
		RecipientID: recipientID,
		Category:    category,
		Message:     message,
	})
	if err != nil {
		s.log.Warn("notification emit failed",
			zap.String("recipient", recipientID),
			zap.String("category", category),
			zap.Error(err),
		)
	}
}
