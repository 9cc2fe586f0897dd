package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"callnotes/storage"
	"callnotes/timeutil"
)

// Notifier delivers a text message to a chat.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string) error
}

// LogNotifier delivers messages to the log. It serves LocalChat, which has
// no remote endpoint.
type LogNotifier struct {
	Log zerolog.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(_ context.Context, chatID int64, text string) error {
	n.Log.Info().Int64("chat_id", chatID).Str("text", text).Msg("reminder due")
	return nil
}

// Dispatcher periodically delivers due reminders.
type Dispatcher struct {
	store    storage.Store
	remote   Notifier
	local    Notifier
	interval time.Duration
	batch    int
	loc      *time.Location
	now      timeutil.Clock
	log      zerolog.Logger
}

// NewDispatcher constructs a new Dispatcher. LocalChat reminders always go to
// the log. remote may be nil, in which case reminders of other chats stay
// pending.
func NewDispatcher(store storage.Store, remote Notifier, interval time.Duration, loc *time.Location, logger zerolog.Logger) *Dispatcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if loc == nil {
		loc = time.UTC
	}
	log := logger.With().Str("component", "dispatcher").Logger()
	return &Dispatcher{
		store:    store,
		remote:   remote,
		local:    LogNotifier{Log: log},
		interval: interval,
		batch:    100,
		loc:      loc,
		now:      time.Now,
		log:      log,
	}
}

// WithClock overrides the current-time source.
func (d *Dispatcher) WithClock(c timeutil.Clock) *Dispatcher {
	if c != nil {
		d.now = c
	}
	return d
}

// Run delivers due reminders every interval until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.log.Info().Dur("interval", d.interval).Msg("reminder dispatcher started")
	d.cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			d.log.Info().Msg("reminder dispatcher stopped")
			return
		case <-ticker.C:
			d.cycle(ctx)
		}
	}
}

func (d *Dispatcher) cycle(ctx context.Context) {
	sent, err := d.RunOnce(ctx)
	if err != nil {
		d.log.Error().Err(err).Msg("dispatch due reminders")
		return
	}
	if sent > 0 {
		d.log.Info().Int("count", sent).Msg("reminders delivered")
	}
}

// RunOnce delivers every reminder due now and returns how many were sent.
// A failed delivery leaves the reminder pending for the next cycle.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	now := d.now()
	due, err := d.store.DueReminders(ctx, now, d.batch)
	if err != nil {
		return 0, fmt.Errorf("fetch due reminders: %w", err)
	}

	sent := 0
	for _, r := range due {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}

		n := d.remote
		switch {
		case r.ChatID == LocalChat:
			n = d.local
		case n == nil:
			// No transport for remote chats; leave them for a dispatcher that has one.
			continue
		}
		if err := n.Notify(ctx, r.ChatID, FormatReminderAlert(r, d.loc)); err != nil {
			d.log.Warn().Err(err).Uint("reminder_id", r.ID).Int64("chat_id", r.ChatID).Msg("reminder delivery failed")
			continue
		}
		if err := d.store.MarkReminderSent(ctx, r.ID, now); err != nil {
			d.log.Error().Err(err).Uint("reminder_id", r.ID).Msg("mark reminder sent")
			continue
		}
		sent++
	}
	return sent, nil
}
