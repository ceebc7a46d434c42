package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"example.com/backstage/services/events/internal/apperrors"
	"example.com/backstage/services/events/internal/models"
)

// Submission actions
const (
	ActionCreate = "create"
	ActionUpdate = "update"
)

// Outcome is how a processed message is settled on the queue
type Outcome int

const (
	OutcomeComplete Outcome = iota
	OutcomeAbandon
	OutcomeDeadLetter
)

func (o Outcome) String() string {
	switch o {
	case OutcomeComplete:
		return "complete"
	case OutcomeAbandon:
		return "abandon"
	case OutcomeDeadLetter:
		return "dead_letter"
	default:
		return "unknown"
	}
}

// Submission is the body of an event submission message
type Submission struct {
	Action string        `json:"action"`
	Slug   string        `json:"slug,omitempty"`
	Event  *models.Event `json:"event"`
}

// EventWriter is the write path a submission is applied through
type EventWriter interface {
	CreateEvent(ctx context.Context, input *models.Event) (*models.Event, error)
	UpdateEvent(ctx context.Context, slug string, input *models.Event) (*models.Event, error)
}

// Processor applies event submissions
type Processor struct {
	writer EventWriter
}

// NewProcessor creates a new submission processor
func NewProcessor(writer EventWriter) *Processor {
	return &Processor{writer: writer}
}

// Process decodes and applies one message body. Messages that can never
// succeed (malformed, rejected by validation, conflicting or targeting a
// missing event) are dead-lettered; anything else is abandoned for redelivery.
func (p *Processor) Process(ctx context.Context, body []byte) (Outcome, error) {
	var sub Submission
	if err := json.Unmarshal(body, &sub); err != nil {
		return OutcomeDeadLetter, errors.Wrap(err, "failed to decode submission")
	}
	if sub.Event == nil {
		return OutcomeDeadLetter, errors.New("submission has no event")
	}

	var err error
	switch sub.Action {
	case ActionCreate:
		_, err = p.writer.CreateEvent(ctx, sub.Event)
	case ActionUpdate:
		_, err = p.writer.UpdateEvent(ctx, sub.Slug, sub.Event)
	default:
		return OutcomeDeadLetter, fmt.Errorf("unknown action %q", sub.Action)
	}

	if err == nil {
		return OutcomeComplete, nil
	}
	return classify(err), err
}

func classify(err error) Outcome {
	switch {
	case apperrors.IsValidation(err),
		errors.Is(err, apperrors.ErrNotFound),
		errors.Is(err, apperrors.ErrDuplicateKey):
		return OutcomeDeadLetter
	default:
		return OutcomeAbandon
	}
}
