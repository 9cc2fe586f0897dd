package service

import (
	"fmt"
	"strings"
	"time"

	"callnotes/storage"
	"callnotes/timeutil"
)

// FormatWhen renders an instant as "Sat Jun 1 3:30pm" in loc.
func FormatWhen(t time.Time, loc *time.Location) string {
	t = t.In(loc)
	return t.Format("Mon Jan 2") + " " + timeutil.FormatClock(t)
}

// FormatNoteSaved is the reply to a freshly saved note. When the note has
// suggestions, hint renders the closing line telling the user how to accept
// one for the given note ID.
func FormatNoteSaved(res NoteResult, loc *time.Location, hint func(noteID uint) string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Saved note #%d", res.Note.ID)
	if res.Note.Contact != nil {
		fmt.Fprintf(&b, " (%s)", res.Note.Contact.Name)
	}
	b.WriteString(".")
	if res.Note.LinkTitle != "" {
		fmt.Fprintf(&b, "\nLink: %s", res.Note.LinkTitle)
	}
	if len(res.Suggestions) == 0 {
		return b.String()
	}

	b.WriteString("\nSuggested reminders:")
	for _, s := range res.Suggestions {
		fmt.Fprintf(&b, "\n%d) %s (%q)", s.Index, FormatWhen(s.DueAt, loc), s.Phrase)
	}
	if hint != nil {
		b.WriteString("\n")
		b.WriteString(hint(res.Note.ID))
	}
	return b.String()
}

// FormatNotes renders a note listing, oldest first.
func FormatNotes(notes []storage.Note, loc *time.Location) string {
	if len(notes) == 0 {
		return "No notes found in the requested time range."
	}
	var b strings.Builder
	for i, n := range notes {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "#%d [%s]", n.ID, FormatWhen(n.CreatedAt, loc))
		if n.Contact != nil {
			fmt.Fprintf(&b, " %s:", n.Contact.Name)
		}
		b.WriteString(" ")
		b.WriteString(n.Body)
	}
	return b.String()
}

// FormatReminders renders a reminder listing, soonest first.
func FormatReminders(rems []storage.Reminder, loc *time.Location) string {
	if len(rems) == 0 {
		return "No reminders in the requested time range."
	}
	var b strings.Builder
	for i, r := range rems {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s  %s (note #%d)", FormatWhen(r.DueAt, loc), r.Title, r.NoteID)
		if r.Status == storage.StatusSent {
			b.WriteString(" [sent]")
		}
	}
	return b.String()
}

// FormatReminderAlert is the message delivered when a reminder is due.
func FormatReminderAlert(r storage.Reminder, loc *time.Location) string {
	return fmt.Sprintf("⏰ Reminder: %s\nDue %s (note #%d)", r.Title, FormatWhen(r.DueAt, loc), r.NoteID)
}

// FormatContacts renders a contact listing.
func FormatContacts(contacts []storage.Contact) string {
	if len(contacts) == 0 {
		return "No matching contacts."
	}
	var b strings.Builder
	for i, c := range contacts {
		if i > 0 {
			b.WriteString("\n")
		}
		if c.Favorite {
			b.WriteString("★ ")
		}
		b.WriteString(c.Name)
		if c.Phone.Valid {
			fmt.Fprintf(&b, "  %s", c.Phone.String)
		}
		if c.Email.Valid {
			fmt.Fprintf(&b, "  <%s>", c.Email.String)
		}
	}
	return b.String()
}
