package telegram

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/mymmrac/telego"
	"github.com/rs/zerolog"

	"callnotes/service"
	"callnotes/storage"
	"callnotes/timeutil"
)

// secretHeader carries the secret_token configured with setWebhook.
const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

const helpText = "Send any text to save it as a call note; times like \"3pm\" or \"at 14:30\" become reminder suggestions.\n" +
	"/note <contact> | <text> - save a note for a contact\n" +
	"/notes [last 2 days] - list recent notes\n" +
	"/reminders [next 3 days] - list upcoming reminders\n" +
	"/remind <note> <number|time> - set a reminder\n" +
	"/contact <name> - look up a contact"

const windowHelp = "Could not parse the requested time range. Use e.g. 'last 6 hours', 'next 2 days' or '2024-01-01 to 2024-01-02'."

// WebhookHandler handles incoming Telegram webhook updates.
type WebhookHandler struct {
	sender   Sender
	notebook *service.Notebook
	secret   string
	now      timeutil.Clock
	log      zerolog.Logger
}

// NewWebhookHandler constructs a new WebhookHandler. When secret is set,
// updates without the matching secret header are rejected.
func NewWebhookHandler(sender Sender, notebook *service.Notebook, secret string, logger zerolog.Logger) http.Handler {
	return &WebhookHandler{
		sender:   sender,
		notebook: notebook,
		secret:   secret,
		now:      time.Now,
		log:      logger.With().Str("component", "webhook").Logger(),
	}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h.secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(secretHeader)), []byte(h.secret)) != 1 {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		h.log.Warn().Err(err).Msg("read body")
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var upd telego.Update
	if err := json.Unmarshal(body, &upd); err != nil {
		h.log.Warn().Err(err).Msg("invalid update json")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	msg := upd.Message
	if msg == nil {
		msg = upd.ChannelPost
	}
	if msg == nil || strings.TrimSpace(msg.Text) == "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	reply := h.handle(r.Context(), msg.Chat.ID, msg.Text)
	if reply != "" {
		if err := h.sender.SendMessage(r.Context(), msg.Chat.ID, reply, int64(msg.MessageID)); err != nil {
			h.log.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("send reply")
		}
	}
	w.WriteHeader(http.StatusOK)
}

// handle runs one message and returns the reply text, or "" to stay silent.
func (h *WebhookHandler) handle(ctx context.Context, chatID int64, text string) string {
	now := h.now()
	loc := h.notebook.Location()

	cmd, args := parseCommand(text)
	switch cmd {
	case "":
		res, err := h.notebook.SaveNote(ctx, now, service.NoteRequest{ChatID: chatID, Body: text})
		if err != nil {
			return h.errorReply(chatID, err)
		}
		return service.FormatNoteSaved(res, loc, remindHint)

	case "note":
		contact, body, ok := strings.Cut(args, "|")
		if !ok {
			return "Usage: /note <contact> | <text>"
		}
		res, err := h.notebook.SaveNote(ctx, now, service.NoteRequest{ChatID: chatID, Contact: contact, Body: body})
		if err != nil {
			return h.errorReply(chatID, err)
		}
		return service.FormatNoteSaved(res, loc, remindHint)

	case "notes":
		notes, err := h.notebook.RecentNotes(ctx, now, chatID, args)
		if err != nil {
			return h.errorReply(chatID, err)
		}
		return service.FormatNotes(notes, loc)

	case "reminders":
		rems, err := h.notebook.UpcomingReminders(ctx, now, chatID, args)
		if err != nil {
			return h.errorReply(chatID, err)
		}
		return service.FormatReminders(rems, loc)

	case "remind":
		return h.remind(ctx, now, chatID, args)

	case "contact":
		if !h.allowed(chatID) {
			return ""
		}
		contacts, err := h.notebook.Contacts().Find(ctx, args, 10)
		if err != nil {
			return h.errorReply(chatID, err)
		}
		return service.FormatContacts(contacts)

	default:
		if !h.allowed(chatID) {
			return ""
		}
		return helpText
	}
}

// remind accepts "/remind <note> <n>" for a suggestion number or
// "/remind <note> <time>" for an explicit time. A bare integer is always a
// suggestion number.
func (h *WebhookHandler) remind(ctx context.Context, now time.Time, chatID int64, args string) string {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return "Usage: /remind <note> <number|time>"
	}
	noteID, err := strconv.ParseUint(strings.TrimPrefix(fields[0], "#"), 10, 64)
	if err != nil {
		return "Usage: /remind <note> <number|time>"
	}
	rest := strings.Join(fields[1:], " ")

	var r storage.Reminder
	if idx, convErr := strconv.Atoi(rest); convErr == nil {
		r, err = h.notebook.AcceptSuggestion(ctx, now, chatID, uint(noteID), idx)
	} else {
		r, err = h.notebook.ScheduleReminder(ctx, now, chatID, uint(noteID), rest)
	}
	if err != nil {
		return h.errorReply(chatID, err)
	}
	return "Reminder set for " + service.FormatWhen(r.DueAt, h.notebook.Location()) + ": " + r.Title
}

func (h *WebhookHandler) allowed(chatID int64) bool {
	if chatID == service.LocalChat {
		return false
	}
	return h.notebook.Allowed(chatID)
}

func (h *WebhookHandler) errorReply(chatID int64, err error) string {
	switch {
	case errors.Is(err, service.ErrChatNotAllowed):
		h.log.Info().Int64("chat_id", chatID).Msg("message from non-allowed chat")
		return ""
	case errors.Is(err, timeutil.ErrInvalidWindow):
		return windowHelp
	case errors.Is(err, service.ErrNoteNotFound),
		errors.Is(err, service.ErrSuggestionNotFound),
		errors.Is(err, service.ErrNoTimeFound),
		errors.Is(err, service.ErrEmptyNote),
		errors.Is(err, service.ErrEmptyContactName):
		return "Sorry: " + err.Error()
	default:
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("handle message")
		return "Something went wrong. Please try again later."
	}
}

func remindHint(noteID uint) string {
	return fmt.Sprintf("Reply /remind %d <number> to set one.", noteID)
}

// parseCommand splits "/cmd@bot args" into ("cmd", "args"). Plain text
// yields an empty command.
//
//	"/notes last 2 days"  -> "notes", "last 2 days"
//	"/Remind@notes_bot 3 1" -> "remind", "3 1"
//	"call Bob at 3pm"     -> "", ""
func parseCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	head, args := text[1:], ""
	if i := strings.IndexFunc(head, unicode.IsSpace); i >= 0 {
		head, args = head[:i], head[i+1:]
	}
	if i := strings.IndexByte(head, '@'); i >= 0 {
		head = head[:i]
	}
	if head == "" {
		head = "help"
	}
	return strings.ToLower(head), strings.TrimSpace(args)
}
