package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"callnotes/linkpreview"
	"callnotes/storage"
)

// fakeStore is an in-memory implementation of storage.Store.
type fakeStore struct {
	mu        sync.Mutex
	contacts  []storage.Contact
	notes     []storage.Note
	reminders []storage.Reminder
	dueErr    error
}

func (f *fakeStore) CreateContact(ctx context.Context, c *storage.Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.contacts {
		if existing.Name == c.Name {
			return fmt.Errorf("duplicate contact %q", c.Name)
		}
	}
	c.ID = uint(len(f.contacts) + 1)
	f.contacts = append(f.contacts, *c)
	return nil
}

func (f *fakeStore) ListContacts(ctx context.Context) ([]storage.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]storage.Contact(nil), f.contacts...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) CreateNote(ctx context.Context, n *storage.Note) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n.ID = uint(len(f.notes) + 1)
	f.notes = append(f.notes, *n)
	return nil
}

func (f *fakeStore) GetNote(ctx context.Context, id uint) (storage.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.notes {
		if n.ID == id {
			return n, nil
		}
	}
	return storage.Note{}, storage.ErrNotFound
}

func (f *fakeStore) ListNotes(ctx context.Context, chatID int64, from, to time.Time, limit int) ([]storage.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.Note
	for _, n := range f.notes {
		if n.ChatID == chatID && !n.CreatedAt.Before(from) && !n.CreatedAt.After(to) {
			out = append(out, n)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) CreateReminder(ctx context.Context, r *storage.Reminder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = uint(len(f.reminders) + 1)
	f.reminders = append(f.reminders, *r)
	return nil
}

func (f *fakeStore) ListReminders(ctx context.Context, chatID int64, from, to time.Time) ([]storage.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.Reminder
	for _, r := range f.reminders {
		if r.ChatID == chatID && !r.DueAt.Before(from) && r.DueAt.Before(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) DueReminders(ctx context.Context, before time.Time, limit int) ([]storage.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dueErr != nil {
		return nil, f.dueErr
	}
	var out []storage.Reminder
	for _, r := range f.reminders {
		if r.Status == storage.StatusPending && !r.DueAt.After(before) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkReminderSent(ctx context.Context, id uint, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.reminders {
		if f.reminders[i].ID == id && f.reminders[i].Status == storage.StatusPending {
			f.reminders[i].Status = storage.StatusSent
			f.reminders[i].SentAt = &at
			return nil
		}
	}
	return storage.ErrNotFound
}

type fakeLLM struct {
	lastNote string
	response string
	err      error
}

func (f *fakeLLM) ReminderTitle(ctx context.Context, note string) (string, error) {
	f.lastNote = note
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type fakePreviewer struct {
	calls []string
	err   error
}

func (f *fakePreviewer) Preview(ctx context.Context, rawURL string) (linkpreview.Preview, error) {
	f.calls = append(f.calls, rawURL)
	if f.err != nil {
		return linkpreview.Preview{}, f.err
	}
	return linkpreview.Preview{URL: rawURL, Title: "Pricing page"}, nil
}

type sentMessage struct {
	chatID int64
	text   string
}

type fakeNotifier struct {
	sent []sentMessage
	fail map[int64]bool
}

func (f *fakeNotifier) Notify(ctx context.Context, chatID int64, text string) error {
	if f.fail[chatID] {
		return errors.New("delivery failed")
	}
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	return nil
}
