package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"newsletter_ingest/internal/domain"
)

const (
	ActionCreate = "create"
	ActionUpdate = "update"
)

// RabbitMQ announces ingested articles to downstream consumers.
type RabbitMQ struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
	logger     *slog.Logger
}

type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
	QueueName  string
}

func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareTopology(ch, cfg); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
		"routing_key", cfg.RoutingKey,
	)

	return &RabbitMQ{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     logger,
	}, nil
}

func declareTopology(ch *amqp.Channel, cfg Config) error {
	if err := ch.ExchangeDeclare(cfg.Exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// ArticleMessage is the event body published for every created or updated
// article. Protected articles are never announced.
type ArticleMessage struct {
	Action    string         `json:"action"`
	Article   domain.Article `json:"article"`
	Timestamp time.Time      `json:"timestamp"`
}

func newPublishing(article *domain.Article, isNew bool, now time.Time) (amqp.Publishing, string, error) {
	action := ActionUpdate
	if isNew {
		action = ActionCreate
	}

	body, err := json.Marshal(ArticleMessage{
		Action:    action,
		Article:   *article,
		Timestamp: now.UTC(),
	})
	if err != nil {
		return amqp.Publishing{}, "", fmt.Errorf("marshal message: %w", err)
	}

	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Type:         "article." + action,
		MessageId:    fmt.Sprintf("%s:%s:%d", article.Source, article.SourceItemID, now.UnixNano()),
		Headers: amqp.Table{
			"source":         article.Source,
			"source_item_id": article.SourceItemID,
			"issue_id":       article.IssueID,
		},
		Body:      body,
		Timestamp: now,
	}, action, nil
}

func (r *RabbitMQ) Publish(ctx context.Context, article *domain.Article, isNew bool) error {
	msg, action, err := newPublishing(article, isNew, time.Now())
	if err != nil {
		return err
	}

	err = r.channel.PublishWithContext(ctx, r.exchange, r.routingKey, false, false, msg)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	r.logger.Debug("published article",
		"source_item_id", article.SourceItemID,
		"action", action,
	)

	return nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
