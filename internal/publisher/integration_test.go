//go:build integration

package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"newsletter_ingest/internal/domain"
	"newsletter_ingest/testdata/utils"
)

type RabbitMQIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *rabbitmq.RabbitMQContainer
	amqpURL   string
	logger    *slog.Logger
}

func (s *RabbitMQIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	container, err := rabbitmq.Run(s.ctx,
		"rabbitmq:3.13-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	amqpURL, err := container.AmqpURL(s.ctx)
	s.Require().NoError(err)
	s.amqpURL = amqpURL
}

func (s *RabbitMQIntegrationSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func TestRabbitMQIntegrationSuite(t *testing.T) {
	suite.Run(t, new(RabbitMQIntegrationSuite))
}

func (s *RabbitMQIntegrationSuite) TestPublisher_Connection() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange",
		RoutingKey: "test-routing-key",
		QueueName:  "test-queue",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.NoError(err)
	s.NotNil(pub)

	err = pub.Close()
	s.NoError(err)
}

func testArticle(id int64, itemID, title string) *domain.Article {
	return &domain.Article{
		ID:           id,
		Source:       domain.SourceNewsletter,
		SourceItemID: itemID,
		IssueID:      "post_1",
		Title:        title,
		Slug:         "slug-" + itemID,
		CategorySlug: utils.Ptr("economia"),
		CategoryName: "ECONOMIA",
		ImageURL:     utils.Ptr("https://cdn.example.com/image.jpg"),
		Links:        domain.Links{{URL: "https://example.com/a", Text: "a"}},
		SourceURL:    "https://news.example.com/p/post_1",
		Status:       domain.StatusDraft,
	}
}

func (s *RabbitMQIntegrationSuite) TestPublisher_PublishCreate() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange-create",
		RoutingKey: "test-routing-key-create",
		QueueName:  "test-queue-create",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	err = pub.Publish(s.ctx, testArticle(1, "post_1-1", "Test Article"), true)
	s.NoError(err)

	msg := s.consumeMessage(cfg)
	s.Require().NotNil(msg)

	var received ArticleMessage
	err = json.Unmarshal(msg.Body, &received)
	s.NoError(err)
	s.Equal(ActionCreate, received.Action)
	s.Equal("post_1-1", received.Article.SourceItemID)
	s.Equal("Test Article", received.Article.Title)
}

func (s *RabbitMQIntegrationSuite) TestPublisher_PublishUpdate() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange-update",
		RoutingKey: "test-routing-key-update",
		QueueName:  "test-queue-update",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	err = pub.Publish(s.ctx, testArticle(2, "post_1-2", "Updated Article"), false)
	s.NoError(err)

	msg := s.consumeMessage(cfg)
	s.Require().NotNil(msg)

	var received ArticleMessage
	err = json.Unmarshal(msg.Body, &received)
	s.NoError(err)
	s.Equal(ActionUpdate, received.Action)
	s.Equal(int64(2), received.Article.ID)
}

func (s *RabbitMQIntegrationSuite) TestPublisher_MessageFormat() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange-format",
		RoutingKey: "test-routing-key-format",
		QueueName:  "test-queue-format",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	err = pub.Publish(s.ctx, testArticle(3, "post_1-3", "Full Article"), true)
	s.NoError(err)

	msg := s.consumeMessage(cfg)
	s.Require().NotNil(msg)

	s.Equal("application/json", msg.ContentType)
	s.Equal("article.create", msg.Type)
	s.Equal("post_1-3", msg.Headers["source_item_id"])
	s.Equal(uint8(amqp.Persistent), msg.DeliveryMode)

	var received ArticleMessage
	err = json.Unmarshal(msg.Body, &received)
	s.NoError(err)

	s.Equal(domain.SourceNewsletter, received.Article.Source)
	s.Require().NotNil(received.Article.CategorySlug)
	s.Equal("economia", *received.Article.CategorySlug)
	s.Require().NotNil(received.Article.ImageURL)
	s.Equal("https://cdn.example.com/image.jpg", *received.Article.ImageURL)
	s.Len(received.Article.Links, 1)
	s.False(received.Timestamp.IsZero())
}

func (s *RabbitMQIntegrationSuite) consumeMessage(cfg Config) *amqp.Delivery {
	conn, err := amqp.Dial(s.amqpURL)
	s.Require().NoError(err)
	defer conn.Close()

	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	msgs, err := ch.Consume(cfg.QueueName, "", true, false, false, false, nil)
	s.Require().NoError(err)

	select {
	case msg := <-msgs:
		return &msg
	case <-time.After(5 * time.Second):
		s.Fail("Timeout waiting for message")
		return nil
	}
}