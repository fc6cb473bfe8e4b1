package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/seedwatch/seedwatch/internal/logger"
	"github.com/seedwatch/seedwatch/notify"
	"github.com/seedwatch/seedwatch/ontology"
)

// DispatcherConfig controls alert delivery behavior.
type DispatcherConfig struct {
	// SendTimeout bounds each individual notification send.
	SendTimeout time.Duration

	// Cooldown suppresses repeat sends for the same rule and matched
	// record within the window. 0 disables suppression and every pass
	// that still matches re-sends.
	Cooldown time.Duration
}

// DefaultDispatcherConfig returns the defaults used by NewEngine.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{SendTimeout: 10 * time.Second}
}

// Dispatcher renders a triggered rule's message templates per matched
// record and delivers them through the notification sink. Sends are
// fire-and-forget with a timeout; failures are recorded, not retried.
type Dispatcher struct {
	sink   notify.Sink
	config DispatcherConfig
	now    func() time.Time

	// lastNotified keys rule ID + matched-record natural key to the last
	// send time, consulted when a cooldown is configured.
	mu           sync.Mutex
	lastNotified map[string]time.Time
}

// NewDispatcher creates a dispatcher delivering through sink.
func NewDispatcher(sink notify.Sink, config DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		sink:         sink,
		config:       config,
		now:          time.Now,
		lastNotified: make(map[string]time.Time),
	}
}

// Dispatch sends the rule's alerts for every matched record and returns one
// outcome line per attempted action. A failure on one channel never
// suppresses the other channel or later records.
func (d *Dispatcher) Dispatch(ctx context.Context, rule ontology.BusinessRule, matched []MatchedRecord) []string {
	var actions []string
	for _, record := range matched {
		key := notifyKey(rule.ID, record)
		if d.onCooldown(key) {
			actions = append(actions, fmt.Sprintf("skipped (cooldown): %s", key))
			continue
		}

		sent := false
		fields := record.Fields()

		if rule.StaffAlertTemplate != "" {
			message := renderTemplate(rule.StaffAlertTemplate, fields)
			if err := d.send(ctx, func(sctx context.Context) error {
				return d.sink.SendStaffAlert(sctx, message, rule.ID)
			}); err != nil {
				logger.Error("staff alert failed", "rule_id", rule.ID, "error", err)
				actions = append(actions, fmt.Sprintf("staff alert failed: %v", err))
			} else {
				actions = append(actions, fmt.Sprintf("staff alert sent: %s", message))
				sent = true
			}
		}

		if rule.InfluencerMessageTemplate != "" {
			influencerID := record.influencerID()
			if influencerID == "" {
				actions = append(actions, "influencer message skipped: no influencer identity on matched record")
			} else {
				message := renderTemplate(rule.InfluencerMessageTemplate, fields)
				if err := d.send(ctx, func(sctx context.Context) error {
					return d.sink.SendInfluencerMessage(sctx, influencerID, message, rule.ID)
				}); err != nil {
					logger.Error("influencer message failed", "rule_id", rule.ID, "influencer_id", influencerID, "error", err)
					actions = append(actions, fmt.Sprintf("influencer message failed: %v", err))
				} else {
					actions = append(actions, fmt.Sprintf("influencer message sent: %s", influencerID))
					sent = true
				}
			}
		}

		if sent {
			d.markNotified(key)
		}
	}
	return actions
}

func (d *Dispatcher) send(ctx context.Context, fn func(context.Context) error) error {
	if d.config.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.SendTimeout)
		defer cancel()
	}
	return fn(ctx)
}

func (d *Dispatcher) onCooldown(key string) bool {
	if d.config.Cooldown <= 0 {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	last, ok := d.lastNotified[key]
	return ok && d.now().Sub(last) < d.config.Cooldown
}

func (d *Dispatcher) markNotified(key string) {
	if d.config.Cooldown <= 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastNotified[key] = d.now()
}

// notifyKey builds the natural key identifying one violation across passes.
func notifyKey(ruleID string, m MatchedRecord) string {
	parts := []string{ruleID}
	key := matchKey(m)
	for _, part := range key[:] {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, "/")
}

// renderTemplate substitutes {field} placeholders with matched-record
// values. Unknown placeholders are left visible in the message so a
// template/record mismatch shows up in the alert itself.
func renderTemplate(tpl string, fields map[string]string) string {
	pairs := make([]string, 0, len(fields)*2)
	for name, value := range fields {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}
