package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/ManuGH/vidsync/internal/log"
)

// NewServer builds the asynq worker. Uploads and duplications share the
// default queue; sweeps get a queue of their own so a long upload batch
// cannot starve reconciliation.
func NewServer(opt asynq.RedisConnOpt, concurrency int) *asynq.Server {
	logger := log.WithComponent("jobs.server")
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueDefault: 3,
			QueueSweep:   1,
		},
		Logger:   zerologAdapter{logger: logger},
		LogLevel: asynq.InfoLevel,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, t *asynq.Task, err error) {
			id, _ := asynq.GetTaskID(ctx)
			logger.Error().Err(err).
				Str(log.FieldEvent, "job.failed").
				Str(log.FieldTaskID, id).
				Str("type", t.Type()).
				Msg("task failed")
		}),
	})
}

// zerologAdapter satisfies asynq.Logger.
type zerologAdapter struct {
	logger zerolog.Logger
}

func (a zerologAdapter) Debug(args ...any) { a.logger.Debug().Msg(fmt.Sprint(args...)) }
func (a zerologAdapter) Info(args ...any)  { a.logger.Info().Msg(fmt.Sprint(args...)) }
func (a zerologAdapter) Warn(args ...any)  { a.logger.Warn().Msg(fmt.Sprint(args...)) }
func (a zerologAdapter) Error(args ...any) { a.logger.Error().Msg(fmt.Sprint(args...)) }
func (a zerologAdapter) Fatal(args ...any) { a.logger.Fatal().Msg(fmt.Sprint(args...)) }
