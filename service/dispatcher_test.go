package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"callnotes/storage"
)

func TestDispatcher_RunOnce(t *testing.T) {
	store := &fakeStore{reminders: []storage.Reminder{
		{ID: 1, ChatID: 10, Title: "Call Alice", DueAt: testNow.Add(-time.Minute), Status: storage.StatusPending, NoteID: 4},
		{ID: 2, ChatID: 11, Title: "Blocked chat", DueAt: testNow.Add(-time.Minute), Status: storage.StatusPending},
		{ID: 3, ChatID: 10, Title: "Later", DueAt: testNow.Add(time.Hour), Status: storage.StatusPending},
		{ID: 4, ChatID: LocalChat, Title: "Local", DueAt: testNow, Status: storage.StatusPending},
	}}
	notifier := &fakeNotifier{fail: map[int64]bool{11: true}}

	d := NewDispatcher(store, notifier, time.Minute, time.UTC, zerolog.Nop()).
		WithClock(func() time.Time { return testNow })

	sent, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, sent)

	require.Len(t, notifier.sent, 1)
	require.Equal(t, int64(10), notifier.sent[0].chatID)
	require.Contains(t, notifier.sent[0].text, "Call Alice")
	require.Contains(t, notifier.sent[0].text, "note #4")

	require.Equal(t, storage.StatusSent, store.reminders[0].Status)
	require.Equal(t, storage.StatusPending, store.reminders[1].Status)
	require.Equal(t, storage.StatusPending, store.reminders[2].Status)
	require.Equal(t, storage.StatusSent, store.reminders[3].Status)

	// The failed one is retried on the next cycle.
	notifier.fail = nil
	sent, err = d.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, sent)
}

func TestDispatcher_RunOnceWithoutRemoteKeepsChatsPending(t *testing.T) {
	store := &fakeStore{reminders: []storage.Reminder{
		{ID: 1, ChatID: 42, Title: "Telegram chat", DueAt: testNow.Add(-time.Minute), Status: storage.StatusPending},
		{ID: 2, ChatID: LocalChat, Title: "Local", DueAt: testNow.Add(-time.Minute), Status: storage.StatusPending},
	}}
	d := NewDispatcher(store, nil, time.Minute, time.UTC, zerolog.Nop()).
		WithClock(func() time.Time { return testNow })

	sent, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, sent)
	require.Equal(t, storage.StatusPending, store.reminders[0].Status)
	require.Equal(t, storage.StatusSent, store.reminders[1].Status)
}

func TestDispatcher_RunOnceStoreError(t *testing.T) {
	store := &fakeStore{dueErr: errors.New("db locked")}
	d := NewDispatcher(store, nil, 0, nil, zerolog.Nop())

	_, err := d.RunOnce(context.Background())
	require.Error(t, err)
}

func TestDispatcher_RunStopsOnCancel(t *testing.T) {
	store := &fakeStore{reminders: []storage.Reminder{
		{ID: 1, ChatID: 10, Title: "x", DueAt: testNow.Add(-time.Minute), Status: storage.StatusPending},
	}}
	notifier := &fakeNotifier{}
	d := NewDispatcher(store, notifier, time.Hour, time.UTC, zerolog.Nop()).
		WithClock(func() time.Time { return testNow })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.reminders[0].Status == storage.StatusSent
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestFormatReminders(t *testing.T) {
	require.Equal(t, "No reminders in the requested time range.", FormatReminders(nil, time.UTC))

	out := FormatReminders([]storage.Reminder{
		{Title: "Call Alice", NoteID: 2, DueAt: time.Date(2024, 6, 1, 15, 30, 0, 0, time.UTC)},
		{Title: "Done", NoteID: 3, DueAt: time.Date(2024, 6, 2, 0, 5, 0, 0, time.UTC), Status: storage.StatusSent},
	}, time.UTC)
	require.Equal(t, "Sat Jun 1 3:30pm  Call Alice (note #2)\nSun Jun 2 12:05am  Done (note #3) [sent]", out)
}

func TestFormatNoteSaved(t *testing.T) {
	res := NoteResult{
		Note: storage.Note{ID: 9, Body: "x", Contact: &storage.Contact{Name: "Bo"}},
		Suggestions: []Suggestion{
			{Index: 1, Phrase: "at 3pm", DueAt: time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC)},
		},
	}
	hint := func(id uint) string { return fmt.Sprintf("accept %d <number>", id) }

	out := FormatNoteSaved(res, time.UTC, hint)
	require.Equal(t, "Saved note #9 (Bo).\nSuggested reminders:\n1) Sat Jun 1 3:00pm (\"at 3pm\")\naccept 9 <number>", out)

	require.Equal(t, "Saved note #1.", FormatNoteSaved(NoteResult{Note: storage.Note{ID: 1}}, time.UTC, hint))
	require.NotContains(t, FormatNoteSaved(res, time.UTC, nil), "accept")
}
