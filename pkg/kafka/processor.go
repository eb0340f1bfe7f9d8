package kafka

import (
	"context"
	"errors"

	"github.com/Aleph-Alpha/jobtrace/pkg/sidekiq"
)

// JobFunc performs one job.
type JobFunc func(ctx context.Context, msg sidekiq.Message) error

// Processor reads records and runs each through a sidekiq server middleware
// chain. Every record is committed once handled, failed or not: Kafka has
// no per-record nack, so retrying is the job's own concern.
type Processor struct {
	reader Reader
	chain  *sidekiq.Chain
	topic  string
	logger Logger
}

func NewProcessor(reader Reader, chain *sidekiq.Chain, cfg Config, logger Logger) *Processor {
	return &Processor{reader: reader, chain: chain, topic: cfg.Topic, logger: logger}
}

// Run processes records until ctx is done or the reader fails.
func (p *Processor) Run(ctx context.Context, job JobFunc) error {
	for {
		m, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("kafka processor is shutting down due to context cancellation", ctx.Err())
				return ctx.Err()
			}
			return err
		}

		msg, err := MessageFromKafka(m)
		if err != nil {
			p.logger.Warn("dropping undecodable record", err, map[string]interface{}{
				"partition": m.Partition,
				"offset":    m.Offset,
			})
		} else if err := p.chain.Invoke(ctx, msg, p.queue(m.Topic), func(ctx context.Context) error {
			return job(ctx, msg)
		}); err != nil {
			p.logger.Error("job failed", err, map[string]interface{}{
				"queue":     msg.Queue(p.queue(m.Topic)),
				"job_class": msg.JobClass(),
				"offset":    m.Offset,
			})
		}

		if err := p.reader.CommitMessages(ctx, m); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			p.logger.Error("error in committing kafka offset", err, map[string]interface{}{
				"partition": m.Partition,
				"offset":    m.Offset,
			})
		}
	}
}

func (p *Processor) queue(topic string) string {
	if p.topic != "" {
		return p.topic
	}
	return topic
}
