package policy

import (
	"context"
	"log/slog"
)

// LogNotifier records triggers in the application log. Used when no Kafka
// brokers are configured, typically in local development.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) PolicyTriggered(ctx context.Context, ev Event) error {
	n.log.InfoContext(ctx, "policy trigger",
		slog.String("rider_id", ev.RiderID),
		slog.String("trigger", ev.Trigger),
		slog.String("transaction_id", ev.TransactionID),
		slog.Int("payment_day", ev.PaymentDay),
	)
	return nil
}
