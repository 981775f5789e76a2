package alert

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Event is one fluctuation alert: a tracked coin moved past the threshold
// within the comparison window. Delivery to the end user is the messaging
// transport's job; this package's contract ends at handing the event over.
type Event struct {
	UserID        string          `json:"user_id"`
	Symbol        string          `json:"coin_id"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Previous      decimal.Decimal `json:"previous_price"`
	Current       decimal.Decimal `json:"current_price"`
	At            time.Time       `json:"timestamp"`
}

// Notifier hands alert events to the messaging transport.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// LogNotifier writes alerts to the service log. It is the fallback when no
// broker is configured.
type LogNotifier struct {
	logger *logrus.Logger
}

func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, event Event) error {
	n.logger.WithFields(logrus.Fields{
		"user_id":        event.UserID,
		"coin_id":        event.Symbol,
		"change_percent": event.ChangePercent.String(),
		"previous_price": event.Previous.String(),
		"current_price":  event.Current.String(),
	}).Warn("Price fluctuation alert")
	return nil
}
