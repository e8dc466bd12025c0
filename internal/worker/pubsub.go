package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/luc118i/operacional-app/internal/provider/resilience"
)

// Job types.
const (
	JobSchemeReevaluate = "scheme_reevaluate"
	JobLineReevaluate   = "line_reevaluate"
	JobHealthCheck      = "health_check"
)

// ErrUnknownJob is returned for messages whose job type no handler serves.
var ErrUnknownJob = errors.New("unknown job type")

// JobMessage is the payload of a worker message.
type JobMessage struct {
	JobType   string   `json:"job_type"`
	SchemeID  string   `json:"scheme_id,omitempty"`
	SchemeIDs []string `json:"scheme_ids,omitempty"`
	LineCode  string   `json:"line_code,omitempty"`
}

// Pinger checks a dependency such as the database pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Processor runs decoded jobs. It holds no Pub/Sub state.
type Processor struct {
	job      *ReevaluateJob
	registry *resilience.Registry
	db       Pinger
	ratio    float64
	logger   zerolog.Logger
}

// ProcessorConfig holds configuration for the processor.
type ProcessorConfig struct {
	Job *ReevaluateJob
	// Registry reports upstream provider health (optional).
	Registry *resilience.Registry
	// DB is pinged by health checks (optional).
	DB     Pinger
	Logger zerolog.Logger
}

// NewProcessor creates a new job processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	return &Processor{
		job:      cfg.Job,
		registry: cfg.Registry,
		db:       cfg.DB,
		ratio:    cfg.Job.config.FailureRatio,
		logger:   cfg.Logger,
	}
}

// Process runs one job.
func (p *Processor) Process(ctx context.Context, msg JobMessage) error {
	switch msg.JobType {
	case JobSchemeReevaluate:
		return p.handleSchemeReevaluate(ctx, msg)
	case JobLineReevaluate:
		return p.handleLineReevaluate(ctx, msg)
	case JobHealthCheck:
		return p.handleHealthCheck(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJob, msg.JobType)
	}
}

func (p *Processor) handleSchemeReevaluate(ctx context.Context, msg JobMessage) error {
	ids := msg.SchemeIDs
	if msg.SchemeID != "" {
		ids = append([]string{msg.SchemeID}, ids...)
	}
	if len(ids) == 0 {
		return errors.New("scheme_reevaluate requires scheme_id or scheme_ids")
	}
	return p.check(p.job.Run(ctx, ids))
}

func (p *Processor) handleLineReevaluate(ctx context.Context, msg JobMessage) error {
	p.logger.Info().Str("line_code", msg.LineCode).Msg("starting line re-evaluation")

	result, err := p.job.RunLine(ctx, msg.LineCode)
	if err != nil {
		return err
	}
	return p.check(result)
}

func (p *Processor) check(result *ReevaluateResult) error {
	if result.Failing(p.ratio) {
		return fmt.Errorf("too many re-evaluation failures: %d/%d", result.Failed, result.Total)
	}
	return nil
}

func (p *Processor) handleHealthCheck(ctx context.Context) error {
	p.logger.Debug().Msg("running health check")

	if p.db != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := p.db.Ping(pingCtx); err != nil {
			return fmt.Errorf("health check: database: %w", err)
		}
	}

	if p.registry != nil {
		if overall := p.registry.Overall(); overall == resilience.StatusUnhealthy {
			for _, h := range p.registry.GetAllHealth() {
				if h.IsUnhealthy() {
					p.logger.Warn().
						Str("provider", h.Name).
						Str("circuit_state", h.CircuitState.String()).
						Msg("provider circuit open")
				}
			}
			return fmt.Errorf("health check: providers %s", overall)
		}
	}

	p.logger.Debug().Msg("health check passed")
	return nil
}

// PubSubHandler handles Pub/Sub messages for the worker.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	processor        *Processor
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	// MaxOutstanding caps unacknowledged messages in flight (default: 10).
	MaxOutstanding int
	Processor      *Processor
	Logger         zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	maxOutstanding := cfg.MaxOutstanding
	if maxOutstanding <= 0 {
		maxOutstanding = 10
	}
	subscriber.ReceiveSettings.MaxOutstandingMessages = maxOutstanding
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		processor:        cfg.Processor,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages. It blocks until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if h.handle(ctx, msg.ID, msg.PublishTime, msg.Data) {
			msg.Ack()
		} else {
			msg.Nack()
		}
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

// handle processes one message and reports whether it should be acked.
func (h *PubSubHandler) handle(ctx context.Context, id string, published time.Time, data []byte) bool {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", id).
		Str("publish_time", published.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		logger.Error().Err(err).Msg("failed to parse message")
		return false
	}

	err := h.processor.Process(ctx, msg)
	if errors.Is(err, ErrUnknownJob) {
		// Ack unknown messages to prevent redelivery
		logger.Warn().Str("job_type", msg.JobType).Msg("unknown job type")
		return true
	}
	if err != nil {
		logger.Error().Err(err).Str("job_type", msg.JobType).Msg("job failed")
		return false
	}

	logger.Info().
		Str("job_type", msg.JobType).
		Dur("duration", time.Since(startTime)).
		Msg("job completed successfully")
	return true
}
