// Package broker publishes article batches to a Google Cloud Pub/Sub
// topic, provisioning the topic on first use.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/newsflow/guardian-ingest/internal/pipeline"
)

// DefaultRetentionDays is the message retention applied to topics this
// publisher provisions.
const DefaultRetentionDays = 3

// Config captures the parameters required to reach the broker.
type Config struct {
	ProjectID     string
	Region        string
	RetentionDays int
}

// Publisher delivers each article of a batch as an individual message
// to a named topic and reports how many messages the broker accepted.
type Publisher struct {
	client *pubsub.Client
	cfg    Config
	logger *zap.Logger
}

// New builds a Pub/Sub-backed publisher.
func New(client *pubsub.Client, cfg Config, logger *zap.Logger) *Publisher {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = DefaultRetentionDays
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// Publish sends one message per article to brokerRef, each tagged with
// its zero-based batch index as the "id" attribute for intra-batch
// correlation. It returns the number of messages the broker accepted,
// which on partial delivery is less than the batch size; the count is
// never assumed complete.
//
// An empty batch is a valid no-op and returns 0 without contacting the
// broker. A batch containing a field-missing article is rejected before
// any network call: the publisher must be safe to call independently of
// the retriever.
func (p *Publisher) Publish(ctx context.Context, batch pipeline.Batch, brokerRef string) (int, error) {
	if p.cfg.Region == "" {
		return 0, fmt.Errorf("%w: region not specified", pipeline.ErrConfiguration)
	}
	if len(batch) == 0 {
		return 0, nil
	}
	for _, article := range batch {
		if err := article.Validate(); err != nil {
			return 0, fmt.Errorf("%w: invalid data type", pipeline.ErrValidation)
		}
	}

	topic, err := p.resolveTopic(ctx, brokerRef)
	if err != nil {
		return 0, err
	}
	defer topic.Stop()

	results := make([]*pubsub.PublishResult, 0, len(batch))
	for i, article := range batch {
		data, err := json.Marshal(article)
		if err != nil {
			return 0, fmt.Errorf("%w: marshal article %d: %v", pipeline.ErrValidation, i, err)
		}
		results = append(results, topic.Publish(ctx, &pubsub.Message{
			Data:       data,
			Attributes: map[string]string{"id": strconv.Itoa(i)},
		}))
	}

	delivered := 0
	for i, result := range results {
		if _, err := result.Get(ctx); err != nil {
			p.logger.Warn("message not accepted by broker",
				zap.String("topic", brokerRef),
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		delivered++
	}

	p.logger.Info("batch published",
		zap.String("topic", brokerRef),
		zap.Int("sent", len(batch)),
		zap.Int("delivered", delivered),
	)
	return delivered, nil
}

// resolveTopic looks the topic up by name and provisions it when
// missing, with the configured retention and storage region. The
// create is raced without locking: losing to a concurrent creator
// shows up as AlreadyExists and resolution simply retries. Any other
// resolution failure propagates without retry.
func (p *Publisher) resolveTopic(ctx context.Context, brokerRef string) (*pubsub.Topic, error) {
	topic := p.client.Topic(brokerRef)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve topic %q: %v", pipeline.ErrQueue, brokerRef, err)
	}
	if exists {
		return topic, nil
	}

	created, err := p.client.CreateTopicWithConfig(ctx, brokerRef, &pubsub.TopicConfig{
		RetentionDuration: time.Duration(p.cfg.RetentionDays) * 24 * time.Hour,
		MessageStoragePolicy: pubsub.MessageStoragePolicy{
			AllowedPersistenceRegions: []string{p.cfg.Region},
		},
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return p.client.Topic(brokerRef), nil
		}
		return nil, fmt.Errorf("%w: create topic %q: %v", pipeline.ErrQueue, brokerRef, err)
	}

	p.logger.Info("created broker topic",
		zap.String("topic", brokerRef),
		zap.Int("retention_days", p.cfg.RetentionDays),
	)
	return created, nil
}
