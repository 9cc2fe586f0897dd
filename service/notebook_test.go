package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"callnotes/storage"
	"callnotes/timeutil"
)

// 2024-06-01 10:00 UTC, a Saturday.
var testNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func newTestNotebook(store *fakeStore, allowed ...int64) *Notebook {
	times := timeutil.NewExpressionParser(timeutil.WithClock(func() time.Time { return testNow }))
	windows := timeutil.NewWindowParser(24*time.Hour, 7*24*time.Hour)
	return NewNotebook(store, times, windows, NewWhitelist(allowed), zerolog.Nop())
}

func TestWhitelist_IsAllowed(t *testing.T) {
	wl := NewWhitelist([]int64{1, 2, 3})
	require.True(t, wl.IsAllowed(1))
	require.True(t, wl.IsAllowed(3))
	require.False(t, wl.IsAllowed(4))
	require.True(t, wl.IsAllowed(LocalChat))

	var nilList *Whitelist
	require.False(t, nilList.IsAllowed(1))
	require.True(t, nilList.IsAllowed(LocalChat))
}

func TestNotebook_SuggestReminders(t *testing.T) {
	nb := newTestNotebook(&fakeStore{})

	sugg := nb.SuggestReminders("call Bob at 9am, then Ann 2:15pm, or 14:15, no later than 17:00", testNow)
	require.Len(t, sugg, 3)

	// 9am already passed at 10:00 and moves to tomorrow.
	require.Equal(t, 1, sugg[0].Index)
	require.Equal(t, "at 9am", sugg[0].Phrase)
	require.Equal(t, time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC), sugg[0].DueAt)

	// 2:15pm and 14:15 are the same instant.
	require.Equal(t, time.Date(2024, 6, 1, 14, 15, 0, 0, time.UTC), sugg[1].DueAt)
	require.Equal(t, 3, sugg[2].Index)
	require.Equal(t, 17, sugg[2].DueAt.Hour())

	require.Empty(t, nb.SuggestReminders("call back around lunch", testNow))
	require.Empty(t, nb.SuggestReminders("", testNow))
}

func TestNotebook_SuggestRemindersInLocation(t *testing.T) {
	loc := time.FixedZone("UTC-7", -7*60*60)
	nb := newTestNotebook(&fakeStore{}).WithLocation(loc)

	// 10:00 UTC is 03:00 local, so 8am local is still ahead today.
	sugg := nb.SuggestReminders("sync at 8am", testNow)
	require.Len(t, sugg, 1)
	require.Equal(t, time.Date(2024, 6, 1, 8, 0, 0, 0, loc), sugg[0].DueAt)
	require.Equal(t, loc, nb.Location())
}

func TestNotebook_SaveNote(t *testing.T) {
	store := &fakeStore{}
	links := &fakePreviewer{}
	nb := newTestNotebook(store, 42).WithLinkPreviewer(links)

	res, err := nb.SaveNote(context.Background(), testNow, NoteRequest{
		ChatID:  42,
		Contact: "Alice",
		Body:    "  let's talk at 3:30pm tomorrow, see https://example.com/pricing  ",
	})
	require.NoError(t, err)
	require.Equal(t, uint(1), res.Note.ID)
	require.Equal(t, "let's talk at 3:30pm tomorrow, see https://example.com/pricing", res.Note.Body)
	require.Equal(t, "https://example.com/pricing", res.Note.LinkURL)
	require.Equal(t, "Pricing page", res.Note.LinkTitle)
	require.NotNil(t, res.Note.ContactID)
	require.Equal(t, "Alice", res.Note.Contact.Name)
	require.Len(t, res.Suggestions, 1)
	require.Equal(t, time.Date(2024, 6, 1, 15, 30, 0, 0, time.UTC), res.Suggestions[0].DueAt)

	require.Len(t, store.contacts, 1)
	require.Equal(t, []string{"https://example.com/pricing"}, links.calls)

	// The same contact name is reused.
	_, err = nb.SaveNote(context.Background(), testNow, NoteRequest{ChatID: 42, Contact: "alice", Body: "again"})
	require.NoError(t, err)
	require.Len(t, store.contacts, 1)
}

func TestNotebook_SaveNoteLinkPreviewFailureIgnored(t *testing.T) {
	store := &fakeStore{}
	nb := newTestNotebook(store, 1).WithLinkPreviewer(&fakePreviewer{err: errors.New("timeout")})

	res, err := nb.SaveNote(context.Background(), testNow, NoteRequest{ChatID: 1, Body: "https://example.com"})
	require.NoError(t, err)
	require.Equal(t, "https://example.com", res.Note.LinkURL)
	require.Empty(t, res.Note.LinkTitle)
}

func TestNotebook_SaveNoteRejects(t *testing.T) {
	nb := newTestNotebook(&fakeStore{}, 1)

	_, err := nb.SaveNote(context.Background(), testNow, NoteRequest{ChatID: 2, Body: "hi"})
	require.ErrorIs(t, err, ErrChatNotAllowed)

	_, err = nb.SaveNote(context.Background(), testNow, NoteRequest{ChatID: 1, Body: "   "})
	require.ErrorIs(t, err, ErrEmptyNote)
}

func TestNotebook_AcceptSuggestion(t *testing.T) {
	store := &fakeStore{}
	nb := newTestNotebook(store, 7)

	res, err := nb.SaveNote(context.Background(), testNow, NoteRequest{ChatID: 7, Body: "Quote for Dave\nring him 11am or 4pm"})
	require.NoError(t, err)
	require.Len(t, res.Suggestions, 2)

	r, err := nb.AcceptSuggestion(context.Background(), testNow, 7, res.Note.ID, 2)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 6, 1, 16, 0, 0, 0, time.UTC), r.DueAt)
	require.Equal(t, "Quote for Dave", r.Title)
	require.Equal(t, res.Note.ID, r.NoteID)
	require.Len(t, store.reminders, 1)

	_, err = nb.AcceptSuggestion(context.Background(), testNow, 7, res.Note.ID, 3)
	require.ErrorIs(t, err, ErrSuggestionNotFound)

	_, err = nb.AcceptSuggestion(context.Background(), testNow, 7, 99, 1)
	require.ErrorIs(t, err, ErrNoteNotFound)

	_, err = nb.AcceptSuggestion(context.Background(), testNow, LocalChat, res.Note.ID, 1)
	require.ErrorIs(t, err, ErrNoteNotFound)
}

func TestNotebook_ReminderTitleFromLLM(t *testing.T) {
	store := &fakeStore{}
	model := &fakeLLM{response: "Send Dave the quote"}
	nb := newTestNotebook(store).WithLLM(model)

	res, err := nb.SaveNote(context.Background(), testNow, NoteRequest{Body: "Dave needs the quote by 5pm"})
	require.NoError(t, err)

	r, err := nb.AcceptSuggestion(context.Background(), testNow, LocalChat, res.Note.ID, 1)
	require.NoError(t, err)
	require.Equal(t, "Send Dave the quote", r.Title)
	require.Equal(t, "Dave needs the quote by 5pm", model.lastNote)

	model.err = errors.New("rate limited")
	r, err = nb.AcceptSuggestion(context.Background(), testNow, LocalChat, res.Note.ID, 1)
	require.NoError(t, err)
	require.Equal(t, "Dave needs the quote by 5pm", r.Title)
}

func TestNotebook_ScheduleReminder(t *testing.T) {
	store := &fakeStore{}
	nb := newTestNotebook(store)

	res, err := nb.SaveNote(context.Background(), testNow, NoteRequest{Contact: "Eve", Body: "renewal discussion"})
	require.NoError(t, err)

	r, err := nb.ScheduleReminder(context.Background(), testNow, LocalChat, res.Note.ID, "at 9:30")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 6, 2, 9, 30, 0, 0, time.UTC), r.DueAt)
	require.Equal(t, "Eve: renewal discussion", r.Title)

	_, err = nb.ScheduleReminder(context.Background(), testNow, LocalChat, res.Note.ID, "sometime")
	require.ErrorIs(t, err, ErrNoTimeFound)
}

func TestNotebook_Listings(t *testing.T) {
	store := &fakeStore{}
	nb := newTestNotebook(store, 3)
	ctx := context.Background()

	_, err := nb.SaveNote(ctx, testNow.Add(-30*time.Hour), NoteRequest{ChatID: 3, Body: "old"})
	require.NoError(t, err)
	res, err := nb.SaveNote(ctx, testNow.Add(-time.Hour), NoteRequest{ChatID: 3, Body: "fresh, call at 6pm"})
	require.NoError(t, err)
	_, err = nb.AcceptSuggestion(ctx, testNow, 3, res.Note.ID, 1)
	require.NoError(t, err)

	notes, err := nb.RecentNotes(ctx, testNow, 3, "")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.Equal(t, "fresh, call at 6pm", notes[0].Body)

	notes, err = nb.RecentNotes(ctx, testNow, 3, "last 2 days")
	require.NoError(t, err)
	require.Len(t, notes, 2)

	rems, err := nb.UpcomingReminders(ctx, testNow, 3, "")
	require.NoError(t, err)
	require.Len(t, rems, 1)

	rems, err = nb.UpcomingReminders(ctx, testNow, 3, "next 2 hours")
	require.NoError(t, err)
	require.Empty(t, rems)

	_, err = nb.UpcomingReminders(ctx, testNow, 3, "someday")
	require.ErrorIs(t, err, timeutil.ErrInvalidWindow)

	_, err = nb.RecentNotes(ctx, testNow, 4, "")
	require.ErrorIs(t, err, ErrChatNotAllowed)
}

func TestFallbackTitleTruncates(t *testing.T) {
	nb := newTestNotebook(&fakeStore{})
	long := "Discuss the migration plan for the billing system with the finance team in detail at 4pm"

	res, err := nb.SaveNote(context.Background(), testNow, NoteRequest{Body: long})
	require.NoError(t, err)
	r, err := nb.AcceptSuggestion(context.Background(), testNow, LocalChat, res.Note.ID, 1)
	require.NoError(t, err)
	require.LessOrEqual(t, len([]rune(r.Title)), maxTitleRunes)
	require.True(t, strings.HasSuffix(r.Title, "…"), r.Title)
	require.True(t, strings.HasPrefix(r.Title, "Discuss the migration plan"), r.Title)
}

func TestFallbackTitleCountsContactPrefix(t *testing.T) {
	note := storage.Note{
		Body:    "Walk through the renewal terms and the revised delivery schedule for next quarter",
		Contact: &storage.Contact{Name: "Bartholomew Featherstonehaugh"},
	}

	title := fallbackTitle(note)
	require.LessOrEqual(t, len([]rune(title)), maxTitleRunes)
	require.True(t, strings.HasPrefix(title, "Bartholomew Featherstonehaugh: Walk"), title)
	require.True(t, strings.HasSuffix(title, "…"), title)

	short := fallbackTitle(storage.Note{Body: "ping Bob", Contact: &storage.Contact{Name: "bob"}})
	require.Equal(t, "ping Bob", short)
}
