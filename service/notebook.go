package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"callnotes/linkpreview"
	"callnotes/llm"
	"callnotes/storage"
	"callnotes/timeutil"
)

var (
	ErrChatNotAllowed     = errors.New("chat not allowed")
	ErrEmptyNote          = errors.New("note is empty")
	ErrNoteNotFound       = errors.New("note not found")
	ErrSuggestionNotFound = errors.New("no such reminder suggestion")
	ErrNoTimeFound        = errors.New("no time found in text")
)

const (
	maxListedNotes = 200
	maxTitleRunes  = 60
)

// LinkPreviewer extracts a readable title for a URL found in a note.
type LinkPreviewer interface {
	Preview(ctx context.Context, rawURL string) (linkpreview.Preview, error)
}

// Notebook coordinates storing call notes, suggesting reminders from the
// times mentioned in them, and listing notes and reminders per chat.
type Notebook struct {
	store    storage.Store
	times    *timeutil.ExpressionParser
	windows  *timeutil.WindowParser
	contacts *ContactBook
	wl       *Whitelist
	log      zerolog.Logger

	llm   llm.Client    // optional
	links LinkPreviewer // optional
	loc   *time.Location
}

// NewNotebook constructs a new Notebook. Times are shown and resolved in UTC
// until WithLocation is called.
func NewNotebook(store storage.Store, times *timeutil.ExpressionParser, windows *timeutil.WindowParser, wl *Whitelist, logger zerolog.Logger) *Notebook {
	log := logger.With().Str("component", "notebook").Logger()
	return &Notebook{
		store:    store,
		times:    times,
		windows:  windows,
		contacts: NewContactBook(store, logger),
		wl:       wl,
		log:      log,
		loc:      time.UTC,
	}
}

// WithLLM enables model-written reminder titles.
func (n *Notebook) WithLLM(c llm.Client) *Notebook {
	n.llm = c
	return n
}

// WithLinkPreviewer enables link previews for notes containing a URL.
func (n *Notebook) WithLinkPreviewer(p LinkPreviewer) *Notebook {
	n.links = p
	return n
}

// WithLocation sets the wall-clock zone used to place parsed times.
func (n *Notebook) WithLocation(loc *time.Location) *Notebook {
	if loc != nil {
		n.loc = loc
	}
	return n
}

// Location returns the wall-clock zone of the notebook.
func (n *Notebook) Location() *time.Location {
	return n.loc
}

// Allowed reports whether chatID may use the notebook.
func (n *Notebook) Allowed(chatID int64) bool {
	return n.wl.IsAllowed(chatID)
}

// Contacts returns the contact book backing the notebook.
func (n *Notebook) Contacts() *ContactBook {
	return n.contacts
}

// Suggestion is a reminder time proposed from a phrase in a note.
type Suggestion struct {
	Index  int // 1-based, in order of appearance
	Phrase string
	DueAt  time.Time
}

// SuggestReminders scans text for every time phrase and resolves each one on
// base's calendar day, moving past times to the following day. Phrases that
// resolve to the same instant are reported once.
func (n *Notebook) SuggestReminders(text string, base time.Time) []Suggestion {
	base = base.In(n.loc)

	var out []Suggestion
	seen := make(map[int64]struct{})
	for _, phrase := range timeutil.Candidates(text) {
		due, ok := n.times.Parse(phrase, base, true)
		if !ok {
			continue
		}
		key := due.Unix()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, Suggestion{Index: len(out) + 1, Phrase: phrase, DueAt: due})
	}
	return out
}

// NoteRequest describes a note to save.
type NoteRequest struct {
	ChatID int64
	// Contact optionally names who the call was with. Unknown names are
	// added to the contact book.
	Contact string
	Body    string
}

// NoteResult is a saved note with the reminders it suggests.
type NoteResult struct {
	Note        storage.Note
	Suggestions []Suggestion
}

// SaveNote validates access, attaches the contact and link preview, stores
// the note and returns reminder suggestions for it.
func (n *Notebook) SaveNote(ctx context.Context, now time.Time, req NoteRequest) (NoteResult, error) {
	if !n.wl.IsAllowed(req.ChatID) {
		return NoteResult{}, ErrChatNotAllowed
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return NoteResult{}, ErrEmptyNote
	}

	note := storage.Note{
		ChatID:    req.ChatID,
		Body:      body,
		CreatedAt: now,
	}

	if strings.TrimSpace(req.Contact) != "" {
		c, err := n.contacts.Resolve(ctx, now, req.Contact)
		if err != nil {
			return NoteResult{}, err
		}
		note.ContactID = &c.ID
		note.Contact = &c
	}

	if n.links != nil {
		if u := linkpreview.FirstURL(body); u != "" {
			note.LinkURL = u
			p, err := n.links.Preview(ctx, u)
			if err != nil {
				n.log.Warn().Err(err).Int64("chat_id", req.ChatID).Msg("link preview failed")
			} else {
				note.LinkTitle = p.Title
			}
		}
	}

	if err := n.store.CreateNote(ctx, &note); err != nil {
		return NoteResult{}, fmt.Errorf("store note: %w", err)
	}

	res := NoteResult{Note: note, Suggestions: n.SuggestReminders(body, now)}
	n.log.Info().
		Int64("chat_id", req.ChatID).
		Uint("note_id", note.ID).
		Int("suggestions", len(res.Suggestions)).
		Msg("note saved")
	return res, nil
}

// AcceptSuggestion creates a reminder from the index-th suggestion of a
// stored note, recomputed relative to now.
func (n *Notebook) AcceptSuggestion(ctx context.Context, now time.Time, chatID int64, noteID uint, index int) (storage.Reminder, error) {
	note, err := n.note(ctx, chatID, noteID)
	if err != nil {
		return storage.Reminder{}, err
	}

	sugg := n.SuggestReminders(note.Body, now)
	if index < 1 || index > len(sugg) {
		return storage.Reminder{}, fmt.Errorf("%w: %d of %d", ErrSuggestionNotFound, index, len(sugg))
	}
	return n.createReminder(ctx, now, note, sugg[index-1].DueAt)
}

// ScheduleReminder creates a reminder for a stored note at the first time
// mentioned in expr, rolled to tomorrow when already past.
func (n *Notebook) ScheduleReminder(ctx context.Context, now time.Time, chatID int64, noteID uint, expr string) (storage.Reminder, error) {
	note, err := n.note(ctx, chatID, noteID)
	if err != nil {
		return storage.Reminder{}, err
	}

	due, ok := n.times.Parse(expr, now.In(n.loc), true)
	if !ok {
		return storage.Reminder{}, fmt.Errorf("%w: %q", ErrNoTimeFound, expr)
	}
	return n.createReminder(ctx, now, note, due)
}

// RecentNotes lists a chat's notes in a past window, "last 24 hours" style.
func (n *Notebook) RecentNotes(ctx context.Context, now time.Time, chatID int64, rawRange string) ([]storage.Note, error) {
	if !n.wl.IsAllowed(chatID) {
		return nil, ErrChatNotAllowed
	}
	tr, err := n.windows.Parse(now.In(n.loc), rawRange, timeutil.Past)
	if err != nil {
		return nil, err
	}
	notes, err := n.store.ListNotes(ctx, chatID, tr.From, tr.To, maxListedNotes)
	if err != nil {
		return nil, fmt.Errorf("fetch notes: %w", err)
	}
	return notes, nil
}

// UpcomingReminders lists a chat's reminders in a future window, "next 24
// hours" style.
func (n *Notebook) UpcomingReminders(ctx context.Context, now time.Time, chatID int64, rawRange string) ([]storage.Reminder, error) {
	if !n.wl.IsAllowed(chatID) {
		return nil, ErrChatNotAllowed
	}
	tr, err := n.windows.Parse(now.In(n.loc), rawRange, timeutil.Future)
	if err != nil {
		return nil, err
	}
	rems, err := n.store.ListReminders(ctx, chatID, tr.From, tr.To)
	if err != nil {
		return nil, fmt.Errorf("fetch reminders: %w", err)
	}
	return rems, nil
}

func (n *Notebook) note(ctx context.Context, chatID int64, noteID uint) (storage.Note, error) {
	if !n.wl.IsAllowed(chatID) {
		return storage.Note{}, ErrChatNotAllowed
	}
	note, err := n.store.GetNote(ctx, noteID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && note.ChatID != chatID) {
		return storage.Note{}, fmt.Errorf("%w: #%d", ErrNoteNotFound, noteID)
	}
	if err != nil {
		return storage.Note{}, fmt.Errorf("load note: %w", err)
	}
	return note, nil
}

func (n *Notebook) createReminder(ctx context.Context, now time.Time, note storage.Note, due time.Time) (storage.Reminder, error) {
	r := storage.Reminder{
		NoteID:    note.ID,
		ChatID:    note.ChatID,
		Title:     n.title(ctx, note),
		DueAt:     due,
		Status:    storage.StatusPending,
		CreatedAt: now,
	}
	if err := n.store.CreateReminder(ctx, &r); err != nil {
		return storage.Reminder{}, fmt.Errorf("store reminder: %w", err)
	}
	n.log.Info().
		Int64("chat_id", r.ChatID).
		Uint("note_id", note.ID).
		Uint("reminder_id", r.ID).
		Time("due_at", r.DueAt).
		Msg("reminder created")
	return r, nil
}

// title prefers a model-written title and falls back to the note's first
// line.
func (n *Notebook) title(ctx context.Context, note storage.Note) string {
	if n.llm != nil {
		t, err := n.llm.ReminderTitle(ctx, note.Body)
		if err == nil {
			return t
		}
		n.log.Warn().Err(err).Uint("note_id", note.ID).Msg("llm title failed, using note text")
	}
	return fallbackTitle(note)
}

func fallbackTitle(note storage.Note) string {
	line := note.Body
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if note.Contact != nil && !strings.Contains(strings.ToLower(line), strings.ToLower(note.Contact.Name)) {
		line = note.Contact.Name + ": " + line
	}
	if utf8.RuneCountInString(line) > maxTitleRunes {
		line = strings.TrimSpace(string([]rune(line)[:maxTitleRunes-1])) + "…"
	}
	return line
}
