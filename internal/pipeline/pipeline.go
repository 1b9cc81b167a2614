package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/newsflow/guardian-ingest/internal/metrics"
)

// DailyQuota is the ceiling on batches archived per calendar day. Once
// this many snapshot objects exist under today's prefix, further
// invocations are blocked before any upstream call is made.
const DailyQuota = 50

// Retriever fetches articles for a search term from the upstream
// content API.
type Retriever interface {
	Search(ctx context.Context, query, fromDate string) (Batch, error)
}

// Publisher delivers a batch to the named broker queue and reports how
// many messages the broker accepted.
type Publisher interface {
	Publish(ctx context.Context, batch Batch, brokerRef string) (int, error)
}

// ArchiveStore is the durable bucket the pipeline archives snapshots to
// and derives the daily quota count from.
type ArchiveStore interface {
	Exists(ctx context.Context) (bool, error)
	Create(ctx context.Context) error
	CountToday(ctx context.Context) (int, error)
	Write(ctx context.Context, batch Batch) error
}

// Orchestrator runs one invocation through the pipeline state machine:
//
//	Validating → QuotaCheck → Retrieving → Publishing → Archiving → Done
//
// with QuotaCheck → Blocked as the rate-limited early exit and any
// component failure terminating in Failed. Control flow is strictly
// sequential; there is no partial-success rollback, so a publish that
// succeeds before a failed archive stays delivered and the failure is
// reported as-is.
//
// The quota read is a point-in-time listing, not a lock: two
// invocations racing through QuotaCheck can both pass before either
// archives, letting the effective daily count exceed the ceiling by up
// to the concurrency level minus one.
type Orchestrator struct {
	retriever Retriever
	publisher Publisher
	archive   ArchiveStore
	logger    *zap.Logger
}

// NewOrchestrator wires the pipeline collaborators.
func NewOrchestrator(retriever Retriever, publisher Publisher, archive ArchiveStore, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		retriever: retriever,
		publisher: publisher,
		archive:   archive,
		logger:    logger,
	}
}

// Run executes one invocation. A Blocked outcome is a normal result,
// not an error; every component failure aborts the remaining states and
// is returned verbatim alongside a Failed result.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	log := o.logger.With(
		zap.String("invocation_id", uuid.NewString()),
		zap.String("query", req.Query),
		zap.String("broker_ref", req.BrokerRef),
	)

	var (
		batch     Batch
		delivered int
	)

	state := StateValidating
	for {
		log.Debug("pipeline state", zap.String("state", string(state)))

		switch state {
		case StateValidating:
			if err := validateRequest(req); err != nil {
				return o.fail(log, state, err)
			}
			state = StateQuotaCheck

		case StateQuotaCheck:
			count, err := o.countArchivedToday(ctx)
			if err != nil {
				return o.fail(log, state, err)
			}
			if count >= DailyQuota {
				log.Info("daily quota reached, blocking invocation", zap.Int("archived_today", count))
				metrics.RecordInvocation(metrics.OutcomeBlocked)
				return Result{
					Message: fmt.Sprintf("Rate limit exceeded. No articles published to %s.", req.BrokerRef),
					State:   StateBlocked,
				}, nil
			}
			state = StateRetrieving

		case StateRetrieving:
			var err error
			batch, err = o.retriever.Search(ctx, req.Query, req.FromDate)
			if err != nil {
				return o.fail(log, state, err)
			}
			metrics.RecordRetrieved(len(batch))
			state = StatePublishing

		case StatePublishing:
			var err error
			delivered, err = o.publisher.Publish(ctx, batch, req.BrokerRef)
			if err != nil {
				return o.fail(log, state, err)
			}
			metrics.RecordPublished(delivered)
			state = StateArchiving

		case StateArchiving:
			// The snapshot records what was retrieved and attempted, so
			// the full batch is archived even when delivery was partial.
			if err := o.archive.Write(ctx, batch); err != nil {
				return o.fail(log, state, err)
			}
			state = StateDone

		case StateDone:
			log.Info("invocation complete",
				zap.Int("retrieved", len(batch)),
				zap.Int("delivered", delivered),
			)
			metrics.RecordInvocation(metrics.OutcomePublished)
			return Result{
				Message:   fmt.Sprintf("%d articles published to %s.", delivered, req.BrokerRef),
				Delivered: delivered,
				State:     StateDone,
			}, nil

		default:
			return o.fail(log, state, fmt.Errorf("unexpected pipeline state %q", state))
		}
	}
}

// countArchivedToday provisions the bucket when absent, then counts
// today's snapshots. The create is safe to race: a conflict from a
// concurrent creator means the bucket exists and counting can proceed.
func (o *Orchestrator) countArchivedToday(ctx context.Context) (int, error) {
	exists, err := o.archive.Exists(ctx)
	if err != nil {
		return 0, err
	}
	if !exists {
		if err := o.archive.Create(ctx); err != nil && !errors.Is(err, ErrConflict) {
			return 0, err
		}
	}
	return o.archive.CountToday(ctx)
}

func (o *Orchestrator) fail(log *zap.Logger, state State, err error) (Result, error) {
	log.Error("pipeline failed", zap.String("state", string(state)), zap.Error(err))
	metrics.RecordInvocation(metrics.OutcomeFailed)
	return Result{State: StateFailed}, err
}

func validateRequest(req Request) error {
	if req.Query == "" {
		return fmt.Errorf("%w: query is required", ErrValidation)
	}
	if req.BrokerRef == "" {
		return fmt.Errorf("%w: broker_ref is required", ErrValidation)
	}
	return nil
}
