package notify

import (
	"context"

	"github.com/seedwatch/seedwatch/internal/logger"
)

// Sink delivers alerts produced by triggered rules. Implementations must be
// safe for concurrent use. A send failure on one channel must not affect
// the other; retries, if any, belong to the implementation.
type Sink interface {
	// SendStaffAlert delivers a message to the staff alert channel.
	SendStaffAlert(ctx context.Context, message, ruleID string) error

	// SendInfluencerMessage delivers a direct message addressed to an
	// influencer identity.
	SendInfluencerMessage(ctx context.Context, influencerID, message, ruleID string) error
}

// LogSink writes notifications to the structured log instead of an external
// channel. Default sink for development and tests.
type LogSink struct{}

// NewLogSink creates a log-backed sink.
func NewLogSink() *LogSink {
	return &LogSink{}
}

func (s *LogSink) SendStaffAlert(ctx context.Context, message, ruleID string) error {
	logger.Info("staff alert", "rule_id", ruleID, "message", message)
	return nil
}

func (s *LogSink) SendInfluencerMessage(ctx context.Context, influencerID, message, ruleID string) error {
	logger.Info("influencer message", "rule_id", ruleID, "influencer_id", influencerID, "message", message)
	return nil
}
