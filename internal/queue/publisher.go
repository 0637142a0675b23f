package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/levelfi-io/referral-orchestrator/internal/config"
	"github.com/levelfi-io/referral-orchestrator/internal/types"
)

// Publisher forwards confirmed ledger actions to a RabbitMQ topic exchange so
// downstream consumers (notifications, analytics) can react without polling.
// The whole component is optional: a nil *Publisher is safe to call.
type Publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

type confirmedActionMessage struct {
	Account     string    `json:"account"`
	Action      string    `json:"action"`
	TxHash      string    `json:"txHash"`
	ConfirmedAt time.Time `json:"confirmedAt"`
}

func New(cfg *config.QueueConfig) (*Publisher, error) {
	conn, err := amqp.Dial(cfg.AmqpURI())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	err = channel.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Publisher{
		conn:     conn,
		channel:  channel,
		exchange: cfg.Exchange,
	}, nil
}

func (p *Publisher) PublishConfirmedAction(ctx context.Context, account common.Address, action types.ActionType, txHash common.Hash) error {
	if p == nil {
		return nil
	}

	body, err := json.Marshal(confirmedActionMessage{
		Account:     account.Hex(),
		Action:      action.String(),
		TxHash:      txHash.Hex(),
		ConfirmedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	routingKey := "action." + action.String()
	err = p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish confirmed action: %w", err)
	}

	log.Ctx(ctx).Debug().
		Str("routing_key", routingKey).
		Str("tx_hash", txHash.Hex()).
		Msg("published confirmed action")
	return nil
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if err := p.channel.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close rabbitmq channel")
	}
	if err := p.conn.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close rabbitmq connection")
	}
}
