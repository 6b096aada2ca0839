package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"mindful-resolve/internal/app"
	"mindful-resolve/internal/model"
)

type SolutionGenerator interface {
	GenerateSolution(ctx context.Context, sessionCode string) (string, error)
}

// SolutionWorker drains the solution queue so a session's solution is usually
// stored before either client asks for it.
type SolutionWorker struct {
	conn      *amqp.Connection
	generator SolutionGenerator
	queueName string
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSolutionWorker(conn *amqp.Connection, generator SolutionGenerator, queueName string, logger *zap.Logger) *SolutionWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SolutionWorker{
		conn:      conn,
		generator: generator,
		queueName: queueName,
		logger:    logger.Named("solution_worker"),
	}
}

func (w *SolutionWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	// one provider call in flight per worker
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				if w.handle(workerCtx, d.Body) {
					_ = d.Ack(false)
				} else {
					_ = d.Nack(false, false)
				}
			}
		}
	}()

	return nil
}

// handle reports whether the delivery is settled. Jobs for sessions that are
// gone, incomplete or already being generated are settled without retry.
func (w *SolutionWorker) handle(ctx context.Context, body []byte) bool {
	var job model.SolutionJob
	if err := json.Unmarshal(body, &job); err != nil {
		w.logger.Warn("decode solution job failed", zap.Error(err))
		return true
	}

	_, err := w.generator.GenerateSolution(ctx, job.SessionCode)
	switch {
	case err == nil:
		w.logger.Debug("solution job done", zap.String("job_id", job.ID), zap.String("session_code", job.SessionCode))
		return true
	case errors.Is(err, app.ErrSessionNotFound),
		errors.Is(err, app.ErrSessionIncomplete),
		errors.Is(err, app.ErrInvalidInput),
		errors.Is(err, app.ErrGenerationInProgress),
		errors.Is(err, app.ErrGeneratorUnavailable):
		w.logger.Info("solution job skipped", zap.String("job_id", job.ID), zap.String("session_code", job.SessionCode), zap.Error(err))
		return true
	default:
		w.logger.Error("solution job failed", zap.String("job_id", job.ID), zap.String("session_code", job.SessionCode), zap.Error(err))
		return false
	}
}

func (w *SolutionWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
