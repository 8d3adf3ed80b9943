package events

import (
	"context"

	"github.com/fieldsnaps/fieldsnaps/internal/pkg/bg"
	"go.uber.org/zap"
)

// LocalDispatcher hands events straight to a handler. It stands in for
// Kafka on single-node deployments.
type LocalDispatcher struct {
	handler Handler
	runner  bg.Runner
	logger  *zap.Logger
}

func NewLocalDispatcher(handler Handler, runner bg.Runner, logger *zap.Logger) *LocalDispatcher {
	return &LocalDispatcher{
		handler: handler,
		runner:  runner,
		logger:  logger.Named("local_dispatcher"),
	}
}

func (d *LocalDispatcher) Produce(event Event) {
	d.runner.Do(func() {
		if err := d.handler(context.Background(), event); err != nil {
			d.logger.Error("Failed to handle event",
				zap.Error(err),
				zap.String("event_id", event.ID.String()),
				zap.String("event_type", string(event.Type)),
			)
		}
	})
}

func (d *LocalDispatcher) Close() {}
