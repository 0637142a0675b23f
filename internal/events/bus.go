package events

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/levelfi-io/referral-orchestrator/internal/types"
)

// LedgerEvent is a decoded ledger log. Account is the zero address when the
// event is global or the id lookup failed.
type LedgerEvent struct {
	Type        types.EventType
	Account     common.Address
	UserID      uint64
	Level       uint64
	Amount      string
	BlockNumber uint64
	TxHash      common.Hash
}

type Handler func(ctx context.Context, evt *LedgerEvent)

// Bus fans decoded ledger events out to in-process consumers. Delivery is
// synchronous and in subscription order; a panicking handler does not take
// down the event stream.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

func (b *Bus) Emit(ctx context.Context, evt *LedgerEvent) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(ctx, h, evt)
	}
}

func (b *Bus) deliver(ctx context.Context, h Handler, evt *LedgerEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Ctx(ctx).Error().
				Interface("panic", r).
				Str("event_type", evt.Type.String()).
				Msg("event handler panicked")
		}
	}()
	h(ctx, evt)
}
