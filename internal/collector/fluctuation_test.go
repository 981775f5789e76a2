package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-paper-trading/internal/alert"
	"crypto-paper-trading/pkg/models"
)

type fakeTrackingSource struct {
	pairs []models.TrackingPair
}

func (f *fakeTrackingSource) PairsWithWindow(context.Context, time.Time) ([]models.TrackingPair, error) {
	return f.pairs, nil
}

type fakeNotifier struct {
	events  []alert.Event
	failFor string
}

func (f *fakeNotifier) Notify(_ context.Context, event alert.Event) error {
	if event.UserID == f.failFor {
		return errors.New("broker down")
	}
	f.events = append(f.events, event)
	return nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func pair(user, symbol, previous, current string) models.TrackingPair {
	return models.TrackingPair{
		UserID:        user,
		Symbol:        symbol,
		PreviousPrice: dec(previous),
		CurrentPrice:  dec(current),
	}
}

func TestEvaluateThreshold(t *testing.T) {
	checker := NewFluctuationChecker(nil, nil, 0.05, 5*time.Minute, quietLogger())
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		pair       models.TrackingPair
		wantFire   bool
		wantChange string
	}{
		{"six percent up fires", pair("u", "BTC", "100", "106"), true, "6"},
		{"four percent up stays quiet", pair("u", "BTC", "100", "104"), false, ""},
		{"exactly five percent fires", pair("u", "BTC", "100", "105"), true, "5"},
		{"five percent drop fires", pair("u", "BTC", "100", "95"), true, "-5"},
		{"zero previous price skipped", pair("u", "BTC", "0", "104"), false, ""},
		{"unchanged price stays quiet", pair("u", "BTC", "100", "100"), false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, fired := checker.Evaluate(tt.pair, now)
			assert.Equal(t, tt.wantFire, fired)
			if tt.wantFire {
				assert.True(t, event.ChangePercent.Equal(dec(tt.wantChange)),
					"change percent = %s", event.ChangePercent)
				assert.Equal(t, tt.pair.UserID, event.UserID)
				assert.Equal(t, tt.pair.Symbol, event.Symbol)
				assert.True(t, event.Previous.Equal(tt.pair.PreviousPrice))
				assert.True(t, event.Current.Equal(tt.pair.CurrentPrice))
			}
		})
	}
}

func TestCheckDeliversAlerts(t *testing.T) {
	source := &fakeTrackingSource{pairs: []models.TrackingPair{
		pair("user-1", "BTC", "100", "106"),
		pair("user-2", "BTC", "100", "103"),
		pair("user-3", "DOGE", "0.10", "0.08"),
	}}
	notifier := &fakeNotifier{}
	checker := NewFluctuationChecker(source, notifier, 0.05, 5*time.Minute, quietLogger())

	err := checker.Check(context.Background(), time.Now().UTC())
	require.NoError(t, err)

	require.Len(t, notifier.events, 2)
	assert.Equal(t, "user-1", notifier.events[0].UserID)
	assert.Equal(t, "user-3", notifier.events[1].UserID)
	assert.True(t, notifier.events[1].ChangePercent.Equal(dec("-20")))
}

func TestCheckIsolatesNotifierFailures(t *testing.T) {
	source := &fakeTrackingSource{pairs: []models.TrackingPair{
		pair("user-1", "BTC", "100", "110"),
		pair("user-2", "BTC", "100", "110"),
	}}
	notifier := &fakeNotifier{failFor: "user-1"}
	checker := NewFluctuationChecker(source, notifier, 0.05, 5*time.Minute, quietLogger())

	err := checker.Check(context.Background(), time.Now().UTC())
	require.NoError(t, err, "a failed delivery must not fail the cycle")

	require.Len(t, notifier.events, 1)
	assert.Equal(t, "user-2", notifier.events[0].UserID)
}
