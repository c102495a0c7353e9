// Package poller drives the notification processor on a fixed interval.
//
// Overlap is prevented by the cron chain's skip-if-still-running wrapper: a
// tick that arrives while the previous cycle is still inside a network call
// is dropped, never queued, which preserves the strictly sequential
// processing the ledgers rely on. A failing cycle is logged and the schedule
// simply continues at the next tick.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "skylens/pkg/logx"
)

type Poller struct {
	interval time.Duration
	job      func(ctx context.Context) error
	log      logx.Logger

	mu sync.Mutex
	c  *cron.Cron
}

func New(interval time.Duration, job func(ctx context.Context) error, log logx.Logger) *Poller {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Poller{interval: interval, job: job, log: log}
}

// Start begins ticking. The ctx bounds every cycle; canceling it makes
// in-flight platform and analysis calls return promptly.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.c != nil {
		return
	}

	cl := cronLog{p.log}
	c := cron.New(cron.WithChain(
		cron.Recover(cl),
		cron.SkipIfStillRunning(cl),
	))
	c.Schedule(every(p.interval), cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		if err := p.job(ctx); err != nil {
			p.log.Warn("poll cycle failed", logx.Err(err))
		}
	}))
	c.Start()
	p.c = c
	p.log.Info("poller started", logx.Duration("interval", p.interval))
}

// Stop halts the schedule and waits for a running cycle, bounded by ctx.
func (p *Poller) Stop(ctx context.Context) {
	p.mu.Lock()
	c := p.c
	p.c = nil
	p.mu.Unlock()
	if c == nil {
		return
	}

	select {
	case <-c.Stop().Done():
		p.log.Info("poller stopped")
	case <-ctx.Done():
		p.log.Warn("poller stop timed out; cycle still draining")
	}
}

// every is a constant-delay cron.Schedule. cron's own ConstantDelaySchedule
// truncates to whole seconds, which rules out sub-second intervals in tests.
type every time.Duration

func (e every) Next(t time.Time) time.Time { return t.Add(time.Duration(e)) }

// cronLog adapts logx to cron's logger interface.
type cronLog struct{ log logx.Logger }

func (l cronLog) Info(msg string, kv ...interface{}) {
	l.log.Debug(msg, pairFields(kv)...)
}

func (l cronLog) Error(err error, msg string, kv ...interface{}) {
	l.log.Error(msg, append(pairFields(kv), logx.Err(err))...)
}

func pairFields(kv []interface{}) []logx.Field {
	fields := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			k = fmt.Sprint(kv[i])
		}
		fields = append(fields, logx.Any(k, kv[i+1]))
	}
	return fields
}
