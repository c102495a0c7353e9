// Package processor runs the notification-processing state machine.
//
// Every notification moves Fetched -> {Skipped | Throttled | Success |
// Failure} -> Handled, and Handled is terminal: once an id is in the handled
// ledger it is never looked at again, across restarts included. Within a
// cycle notifications are processed strictly sequentially so a cooldown
// granted by one affects the eligibility of the next.
package processor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"skylens/internal/analysis"
	"skylens/internal/bluesky"
	"skylens/internal/command"
	"skylens/internal/ledger"
	logx "skylens/pkg/logx"
)

// AnalysisService is the slice of the analysis client the processor uses.
type AnalysisService interface {
	Request(ctx context.Context, target string) (*analysis.Result, error)
}

type Processor struct {
	platform  bluesky.Client
	analysis  AnalysisService
	handled   *ledger.Handled
	cooldowns *ledger.Cooldowns

	batchLimit int64
	log        logx.Logger
}

func New(platform bluesky.Client, svc AnalysisService, handled *ledger.Handled, cooldowns *ledger.Cooldowns, batchLimit int64, log logx.Logger) *Processor {
	if batchLimit <= 0 {
		batchLimit = 50
	}
	return &Processor{
		platform:   platform,
		analysis:   svc,
		handled:    handled,
		cooldowns:  cooldowns,
		batchLimit: batchLimit,
		log:        log,
	}
}

// RunCycle fetches one batch of notifications and processes them in order.
//
// A platform or ledger failure aborts the remainder of the batch; the
// unprocessed tail is re-delivered on a later cycle and re-skipped through
// the handled ledger. Analysis failures never abort the cycle; they become
// replies to the requester.
func (p *Processor) RunCycle(ctx context.Context) error {
	start := time.Now()
	notifs, err := p.platform.ListNotifications(ctx, p.batchLimit)
	if err != nil {
		return fmt.Errorf("fetch notifications: %w", err)
	}

	var acted int
	for _, n := range notifs {
		if err := ctx.Err(); err != nil {
			return err
		}
		replied, err := p.processOne(ctx, n)
		if err != nil {
			return fmt.Errorf("notification %s: %w", n.ID(), err)
		}
		if replied {
			acted++
		}
	}

	if acted > 0 || p.log.Enabled(logx.LevelDebug) {
		p.log.Info("cycle done",
			logx.Int("fetched", len(notifs)),
			logx.Int("replied", acted),
			logx.Duration("took", time.Since(start)))
	}
	return nil
}

// processOne runs one notification through the state machine. The returned
// error is reserved for platform/ledger failures that must abort the batch.
func (p *Processor) processOne(ctx context.Context, n bluesky.Notification) (replied bool, err error) {
	// The platform already saw these; nothing to do, not even ledger writes.
	if n.IsRead {
		return false, nil
	}

	done, err := p.handled.Has(ctx, n.ID())
	if err != nil {
		return false, fmt.Errorf("handled check: %w", err)
	}
	if done {
		return false, nil
	}

	log := p.log.With(
		logx.String("id", n.ID()),
		logx.String("author", n.Author.Handle))

	if !n.Actionable() {
		return false, p.finish(ctx, n)
	}
	if strings.TrimSpace(n.Text) == "" {
		return false, p.finish(ctx, n)
	}

	target, ok := command.Parse(n.Text, n.Author.Handle)
	if !ok {
		// Not a command; nothing to reply to.
		return false, p.finish(ctx, n)
	}

	throttled, err := p.cooldowns.Active(ctx, n.Author.DID)
	if err != nil {
		return false, fmt.Errorf("cooldown check: %w", err)
	}
	if throttled {
		// No analysis call and no grant: a throttled attempt never
		// consumes quota.
		log.Info("request throttled")
		p.send(ctx, n, throttledText(n.Author.Handle), log)
		return true, p.finish(ctx, n)
	}

	res, reqErr := p.analysis.Request(ctx, target)
	if reqErr != nil {
		log.Warn("analysis failed", logx.String("target", target), logx.Err(reqErr))
		p.send(ctx, n, failureText(n.Author.Handle, analysis.UserMessage(reqErr)), log)
		// Failure does not consume the requester's quota either.
		return true, p.finish(ctx, n)
	}

	log.Info("analysis ready", logx.String("target", target), logx.String("url", res.URL))
	p.send(ctx, n, successText(target, res.URL), log)
	if err := p.cooldowns.Grant(ctx, n.Author.DID); err != nil {
		return true, fmt.Errorf("cooldown grant: %w", err)
	}
	return true, p.finish(ctx, n)
}

// send posts a reply, best-effort: a failed send is logged but never grounds
// to reprocess the notification.
func (p *Processor) send(ctx context.Context, n bluesky.Notification, text string, log logx.Logger) {
	if err := p.platform.Reply(ctx, n, text); err != nil {
		log.Warn("reply send failed", logx.Err(err))
	}
}

// finish marks the notification handled and advances the seen-cursor. The
// ledger write comes first: once it succeeds the notification can never be
// reprocessed, so aborting the batch on a cursor failure cannot duplicate a
// reply already sent.
func (p *Processor) finish(ctx context.Context, n bluesky.Notification) error {
	if err := p.handled.Mark(ctx, n.ID()); err != nil {
		return fmt.Errorf("mark handled: %w", err)
	}
	if n.IndexedAt != "" {
		if err := p.platform.UpdateSeen(ctx, n.IndexedAt); err != nil {
			return fmt.Errorf("seen-cursor update: %w", err)
		}
	}
	return nil
}
