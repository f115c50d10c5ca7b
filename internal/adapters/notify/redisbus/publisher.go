// Package redisbus publishes order events to Redis channels. Delivery is
// best effort: subscribers missing an event only miss a dashboard refresh.
package redisbus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/mvigliero/celushop/internal/domain"
)

const (
	ChannelOrderCreated = "orders.created"
	ChannelOrderStatus  = "orders.status"
)

type Publisher struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Publisher { return &Publisher{rdb: rdb} }

type orderEvent struct {
	Number   string  `json:"number"`
	UserID   string  `json:"userId"`
	Status   string  `json:"status"`
	Previous string  `json:"previous,omitempty"`
	Total    float64 `json:"total"`
	Items    int     `json:"items"`
	At       string  `json:"at"`
}

func (p *Publisher) OrderCreated(ctx context.Context, o *domain.Order) {
	p.publish(ctx, ChannelOrderCreated, orderEvent{
		Number: o.Number,
		UserID: o.UserID.String(),
		Status: string(o.Status),
		Total:  o.TotalPrice,
		Items:  len(o.Items),
		At:     time.Now().Format(time.RFC3339),
	})
}

func (p *Publisher) OrderStatusChanged(ctx context.Context, o *domain.Order, previous domain.OrderStatus) {
	p.publish(ctx, ChannelOrderStatus, orderEvent{
		Number:   o.Number,
		UserID:   o.UserID.String(),
		Status:   string(o.Status),
		Previous: string(previous),
		Total:    o.TotalPrice,
		Items:    len(o.Items),
		At:       time.Now().Format(time.RFC3339),
	})
}

func (p *Publisher) publish(ctx context.Context, channel string, ev orderEvent) {
	if p == nil || p.rdb == nil {
		log.Debug().Str("channel", channel).Str("order", ev.Number).Msg("redis not configured, event dropped")
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Warn().Err(err).Str("channel", channel).Msg("marshal order event")
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := p.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		log.Warn().Err(err).Str("channel", channel).Str("order", ev.Number).Msg("publish order event")
	}
}
