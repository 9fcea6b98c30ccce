package service

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/set-night/vitrine/internal/config"
	"github.com/set-night/vitrine/internal/domain"
)

// Sender delivers a notice to one chat. Implementations return an error
// wrapping domain.ErrRecipientUnreachable when the chat blocked the bot or no
// longer exists.
type Sender interface {
	Send(ctx context.Context, chatID int64, notice domain.Notice) error
}

type DeliveryResult struct {
	ChatID int64
	Err    error
}

func (r DeliveryResult) Unreachable() bool {
	return errors.Is(r.Err, domain.ErrRecipientUnreachable)
}

type FanoutReport struct {
	Results []DeliveryResult
}

func (r FanoutReport) Delivered() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

func (r FanoutReport) Failed() int {
	return len(r.Results) - r.Delivered()
}

// Unreachable returns the chats that can no longer receive messages.
func (r FanoutReport) Unreachable() []int64 {
	var ids []int64
	for _, res := range r.Results {
		if res.Unreachable() {
			ids = append(ids, res.ChatID)
		}
	}
	return ids
}

// Dispatcher sends notices with a per-send timeout and bounded concurrency.
type Dispatcher struct {
	sender      Sender
	concurrency int
}

func NewDispatcher(sender Sender) *Dispatcher {
	return &Dispatcher{sender: sender, concurrency: config.NotifyConcurrency}
}

// Notify sends a notice to one recipient.
func (d *Dispatcher) Notify(ctx context.Context, chatID int64, notice domain.Notice) error {
	ctx, cancel := context.WithTimeout(ctx, config.NotifyTimeout)
	defer cancel()

	if err := d.sender.Send(ctx, chatID, notice); err != nil {
		slog.Warn("deliver notice", "chat_id", chatID, "error", err)
		return err
	}
	return nil
}

// Fanout sends the same notice to every recipient. A failure for one
// recipient never stops delivery to the others.
func (d *Dispatcher) Fanout(ctx context.Context, chatIDs []int64, notice domain.Notice) FanoutReport {
	results := make([]DeliveryResult, len(chatIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, chatID := range chatIDs {
		g.Go(func() error {
			results[i] = DeliveryResult{ChatID: chatID, Err: d.Notify(gctx, chatID, notice)}
			return nil
		})
	}
	_ = g.Wait()

	return FanoutReport{Results: results}
}
