package clients

import (
	"encoding/json"
	"fmt"
	"pos-handoff-svc/src/internal/config"
	"pos-handoff-svc/src/internal/models"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

// Notifier publishes session lifecycle events to RabbitMQ. Publishing is
// best effort: a broker outage must never fail the session operation that
// triggered the event.
type Notifier struct {
	channel *amqp.Channel
	cfg     *config.RabbitMQConfig
}

// NewNotifier creates a lifecycle event publisher on an open channel.
func NewNotifier(cfg *config.Configuration, channel *amqp.Channel) *Notifier {
	return &Notifier{
		channel: channel,
		cfg:     &cfg.Queue.RabbitMQ,
	}
}

// PublishSessionEvent publishes a lifecycle event routed by event name.
func (n *Notifier) PublishSessionEvent(event models.SessionEventMessage) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal session event: %w", err)
	}

	err = n.channel.Publish(
		n.cfg.Exchange,
		event.Event,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   event.Timestamp,
		},
	)

	if err != nil {
		logrus.WithError(err).Error("Failed to publish session event")
		return fmt.Errorf("failed to publish session event: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"session_id": event.SessionID,
		"event":      event.Event,
		"service":    event.ServiceName,
		"exchange":   n.cfg.Exchange,
	}).Debug("Session event published")

	return nil
}
