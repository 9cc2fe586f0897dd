package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrNotFound is returned when a lookup by ID matches nothing.
var ErrNotFound = errors.New("record not found")

// Reminder statuses.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
)

// Contact is an address book entry notes can be attached to.
type Contact struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"uniqueIndex;not null"`
	Phone     sql.NullString
	Email     sql.NullString
	Favorite  bool `gorm:"not null;default:false"`
	CreatedAt time.Time
}

// Note is a free-text call note. Timestamps are stored in UTC.
type Note struct {
	ID        uint  `gorm:"primaryKey"`
	ChatID    int64 `gorm:"not null;index:idx_notes_chat_created,priority:1"`
	ContactID *uint `gorm:"index"`
	Contact   *Contact
	Body      string `gorm:"not null"`
	LinkURL   string
	LinkTitle string
	CreatedAt time.Time `gorm:"index:idx_notes_chat_created,priority:2"`
}

// Reminder is a due date derived from a note.
type Reminder struct {
	ID        uint      `gorm:"primaryKey"`
	NoteID    uint      `gorm:"not null;index"`
	ChatID    int64     `gorm:"not null;index:idx_reminders_chat_due,priority:1"`
	Title     string    `gorm:"not null"`
	DueAt     time.Time `gorm:"not null;index:idx_reminders_chat_due,priority:2;index:idx_reminders_status_due,priority:2"`
	Status    string    `gorm:"not null;default:pending;index:idx_reminders_status_due,priority:1"`
	SentAt    *time.Time
	CreatedAt time.Time
}

// Store defines the persistence operations used by the service.
type Store interface {
	CreateContact(ctx context.Context, c *Contact) error
	ListContacts(ctx context.Context) ([]Contact, error)

	CreateNote(ctx context.Context, n *Note) error
	GetNote(ctx context.Context, id uint) (Note, error)
	ListNotes(ctx context.Context, chatID int64, from, to time.Time, limit int) ([]Note, error)

	CreateReminder(ctx context.Context, r *Reminder) error
	ListReminders(ctx context.Context, chatID int64, from, to time.Time) ([]Reminder, error)
	DueReminders(ctx context.Context, before time.Time, limit int) ([]Reminder, error)
	MarkReminderSent(ctx context.Context, id uint, at time.Time) error
}

// SQLiteStore is a concrete implementation of Store backed by SQLite.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore constructs a new SQLiteStore.
func NewSQLiteStore(db *gorm.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Open opens (or creates) the SQLite database at path and migrates the
// schema.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC().Truncate(time.Second)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := InitSchema(db); err != nil {
		return nil, err
	}
	return db, nil
}

// InitSchema creates the required tables and indexes if they do not already
// exist. It is idempotent and safe to call on every startup.
func InitSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(&Contact{}, &Note{}, &Reminder{}); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Stored times are second precision UTC so that SQLite's text comparison
// orders them correctly.
func ts(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// CreateContact stores a contact and fills in its ID.
func (s *SQLiteStore) CreateContact(ctx context.Context, c *Contact) error {
	if !c.CreatedAt.IsZero() {
		c.CreatedAt = ts(c.CreatedAt)
	}
	return s.db.WithContext(ctx).Create(c).Error
}

// ListContacts returns every contact ordered by name.
func (s *SQLiteStore) ListContacts(ctx context.Context) ([]Contact, error) {
	var out []Contact
	err := s.db.WithContext(ctx).Order("name ASC").Find(&out).Error
	return out, err
}

// CreateNote stores a note and fills in its ID.
func (s *SQLiteStore) CreateNote(ctx context.Context, n *Note) error {
	if !n.CreatedAt.IsZero() {
		n.CreatedAt = ts(n.CreatedAt)
	}
	return s.db.WithContext(ctx).Omit("Contact").Create(n).Error
}

// GetNote loads a note with its contact.
func (s *SQLiteStore) GetNote(ctx context.Context, id uint) (Note, error) {
	var n Note
	err := s.db.WithContext(ctx).Preload("Contact").First(&n, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Note{}, fmt.Errorf("note %d: %w", id, ErrNotFound)
	}
	return n, err
}

// ListNotes returns notes for a chat created between from and to, both
// inclusive, ordered by creation time ascending. A note saved this second is
// listed by a window ending now. A hard limit is applied to avoid unbounded
// memory usage.
func (s *SQLiteStore) ListNotes(ctx context.Context, chatID int64, from, to time.Time, limit int) ([]Note, error) {
	if limit <= 0 {
		limit = 1000
	}
	var out []Note
	err := s.db.WithContext(ctx).
		Preload("Contact").
		Where("chat_id = ? AND created_at >= ? AND created_at <= ?", chatID, ts(from), ts(to)).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CreateReminder stores a pending reminder and fills in its ID.
func (s *SQLiteStore) CreateReminder(ctx context.Context, r *Reminder) error {
	r.DueAt = ts(r.DueAt)
	if !r.CreatedAt.IsZero() {
		r.CreatedAt = ts(r.CreatedAt)
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	return s.db.WithContext(ctx).Create(r).Error
}

// ListReminders returns a chat's reminders due in [from, to), soonest first.
func (s *SQLiteStore) ListReminders(ctx context.Context, chatID int64, from, to time.Time) ([]Reminder, error) {
	var out []Reminder
	err := s.db.WithContext(ctx).
		Where("chat_id = ? AND due_at >= ? AND due_at < ?", chatID, ts(from), ts(to)).
		Order("due_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// DueReminders returns pending reminders due at or before the given instant
// across all chats.
func (s *SQLiteStore) DueReminders(ctx context.Context, before time.Time, limit int) ([]Reminder, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []Reminder
	err := s.db.WithContext(ctx).
		Where("status = ? AND due_at <= ?", StatusPending, ts(before)).
		Order("due_at ASC, id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// MarkReminderSent flags a pending reminder as delivered.
func (s *SQLiteStore) MarkReminderSent(ctx context.Context, id uint, at time.Time) error {
	sentAt := ts(at)
	res := s.db.WithContext(ctx).
		Model(&Reminder{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(map[string]any{"status": StatusSent, "sent_at": sentAt})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("pending reminder %d: %w", id, ErrNotFound)
	}
	return nil
}
