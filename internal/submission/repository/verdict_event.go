package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"codeverse/internal/common/mq"
	"codeverse/internal/judge"
	appErr "codeverse/pkg/errors"
)

// VerdictEvent is emitted once per finalized submission.
type VerdictEvent struct {
	SubmissionID    string              `json:"submission_id"`
	UserID          int64               `json:"user_id"`
	ProblemID       int64               `json:"problem_id"`
	Language        string              `json:"language"`
	Status          judge.VerdictStatus `json:"status"`
	TestCasesPassed int                 `json:"test_cases_passed"`
	TestCasesTotal  int                 `json:"test_cases_total"`
	Runtime         float64             `json:"runtime"`
	Memory          int                 `json:"memory"`
	FinalizedAt     int64               `json:"finalized_at"`
}

// VerdictEventPublisher publishes verdict events for async consumers
// (leaderboards, notifications).
type VerdictEventPublisher interface {
	PublishVerdict(ctx context.Context, event VerdictEvent) error
}

// MQVerdictEventPublisher publishes verdict events to a message queue.
type MQVerdictEventPublisher struct {
	producer mq.Producer
	topic    string
}

// NewMQVerdictEventPublisher creates a new MQ verdict event publisher.
func NewMQVerdictEventPublisher(producer mq.Producer, topic string) *MQVerdictEventPublisher {
	return &MQVerdictEventPublisher{producer: producer, topic: topic}
}

// PublishVerdict publishes a verdict event.
func (p *MQVerdictEventPublisher) PublishVerdict(ctx context.Context, event VerdictEvent) error {
	if p == nil || p.producer == nil {
		return appErr.New(appErr.ServiceUnavailable).WithMessage("verdict publisher is not configured")
	}
	if p.topic == "" {
		return appErr.New(appErr.InvalidParams).WithMessage("verdict topic is required")
	}
	if event.SubmissionID == "" {
		return appErr.ValidationError("submission_id", "required")
	}
	if event.FinalizedAt == 0 {
		event.FinalizedAt = time.Now().Unix()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal verdict event failed: %w", err)
	}
	message := mq.NewMessage(payload)
	message.ID = event.SubmissionID
	if err := p.producer.Publish(ctx, p.topic, message); err != nil {
		return appErr.Wrapf(err, appErr.ServiceUnavailable, "publish verdict event failed")
	}
	return nil
}
