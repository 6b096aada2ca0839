package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"mindful-resolve/internal/model"
)

type SolutionJobPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewSolutionJobPublisher(conn *amqp.Connection, queueName string) *SolutionJobPublisher {
	return &SolutionJobPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

// PublishGenerate enqueues a solution generation job for the session.
func (p *SolutionJobPublisher) PublishGenerate(ctx context.Context, sessionCode string) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		p.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue failed: %w", err)
	}

	job := model.SolutionJob{
		ID:          uuid.NewString(),
		SessionCode: sessionCode,
		RequestedAt: time.Now(),
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal solution job failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    job.ID,
			Timestamp:    job.RequestedAt,
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish solution job failed: %w", err)
	}
	return nil
}
