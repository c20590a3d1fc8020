// Package notify delivers alerts about suggestions that turned negative.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"suggestguard/models"
	"suggestguard/utils"
)

// NegativeSuggestion is one alerted suggestion.
type NegativeSuggestion struct {
	Text     string          `json:"text"`
	Category models.Category `json:"category"`
	Rank     int             `json:"rank"`
}

// Event is handed to every Notifier after a scan found new negatives.
type Event struct {
	BrandID                string               `json:"brand_id"`
	BrandName              string               `json:"brand"`
	SnapshotID             string               `json:"snapshot_id"`
	NewNegativeSuggestions []NegativeSuggestion `json:"new_negative_suggestions"`
	Timestamp              time.Time            `json:"timestamp"`
}

// NewEvent builds an Event from the NEW trend records of a scan.
func NewEvent(brand *models.Brand, snapshotID string, records []models.TrendRecord, ts time.Time) Event {
	ev := Event{
		BrandID:                brand.ID,
		BrandName:              brand.Name,
		SnapshotID:             snapshotID,
		NewNegativeSuggestions: make([]NegativeSuggestion, 0, len(records)),
		Timestamp:              ts.UTC(),
	}
	for _, r := range records {
		ns := NegativeSuggestion{Text: r.Text, Category: r.Category}
		if r.CurrentRank != nil {
			ns.Rank = *r.CurrentRank
		}
		ev.NewNegativeSuggestions = append(ev.NewNegativeSuggestions, ns)
	}
	return ev
}

// Notifier delivers one event over one channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, ev Event) error
}

// AlertLog remembers which suggestions have already been alerted.
type AlertLog interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

// MemoryAlertLog is a process-local AlertLog. Entries expire after ttl, so a
// suggestion that resolves and later returns is alerted again; zero keeps
// them for the life of the process.
type MemoryAlertLog struct {
	set *utils.StringSet
}

func NewMemoryAlertLog(ttl time.Duration) *MemoryAlertLog {
	return &MemoryAlertLog{set: utils.NewStringSet(ttl)}
}

func (m *MemoryAlertLog) Seen(_ context.Context, key string) (bool, error) {
	return m.set.Contains(key), nil
}

func (m *MemoryAlertLog) Mark(_ context.Context, key string) error {
	m.set.Add(key)
	return nil
}

// AlertKey identifies one suggestion of one brand in an AlertLog.
func AlertKey(brandID, text string) string {
	return brandID + "|" + text
}

// Dispatcher fans an event out to every notifier. Delivery problems are
// logged and never returned: alerting must not fail a scan.
type Dispatcher struct {
	notifiers []Notifier
	log       AlertLog
	logger    *utils.Logger
	timeout   time.Duration
}

// NewDispatcher creates a Dispatcher. A nil log disables deduplication.
func NewDispatcher(logger *utils.Logger, log AlertLog, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{
		notifiers: notifiers,
		log:       log,
		logger:    logger,
		timeout:   15 * time.Second,
	}
}

// WithTimeout bounds each notifier call.
func (d *Dispatcher) WithTimeout(timeout time.Duration) *Dispatcher {
	d.timeout = timeout
	return d
}

// Len is the number of configured notifiers.
func (d *Dispatcher) Len() int {
	return len(d.notifiers)
}

// Dispatch delivers the not-yet-alerted suggestions of ev and returns how
// many notifiers accepted it. Suggestions are marked as alerted once at least
// one notifier succeeded, so a total outage is retried on the next scan.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) int {
	if len(d.notifiers) == 0 {
		return 0
	}

	fresh := ev.NewNegativeSuggestions[:0:0]
	for _, s := range ev.NewNegativeSuggestions {
		if d.log != nil {
			seen, err := d.log.Seen(ctx, AlertKey(ev.BrandID, s.Text))
			if err != nil {
				d.logger.Warn("[notify] Alert log lookup failed, alerting anyway: %v", err)
			} else if seen {
				continue
			}
		}
		fresh = append(fresh, s)
	}
	if len(fresh) == 0 {
		d.logger.Debug("[notify] All %d new negatives of %s were already alerted",
			len(ev.NewNegativeSuggestions), ev.BrandName)
		return 0
	}
	ev.NewNegativeSuggestions = fresh

	var errs []error
	delivered := 0
	for _, n := range d.notifiers {
		callCtx, cancel := context.WithTimeout(ctx, d.timeout)
		err := n.Notify(callCtx, ev)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
			continue
		}
		delivered++
	}
	if len(errs) > 0 {
		d.logger.Warn("[notify] %d/%d notifiers failed: %v", len(errs), len(d.notifiers), errors.Join(errs...))
	}

	if delivered > 0 && d.log != nil {
		for _, s := range fresh {
			if err := d.log.Mark(ctx, AlertKey(ev.BrandID, s.Text)); err != nil {
				d.logger.Warn("[notify] Failed to record alert for %q: %v", s.Text, err)
			}
		}
	}
	d.logger.Info("[notify] Alerted %d new negative suggestions of %s via %d notifiers",
		len(fresh), ev.BrandName, delivered)
	return delivered
}
