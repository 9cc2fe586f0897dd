package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sahilm/fuzzy"

	"callnotes/storage"
)

// ErrEmptyContactName is returned when a contact has no name.
var ErrEmptyContactName = errors.New("contact name is required")

// ContactBook manages the address book notes are attached to.
type ContactBook struct {
	store storage.Store
	log   zerolog.Logger
}

// NewContactBook constructs a new ContactBook.
func NewContactBook(store storage.Store, logger zerolog.Logger) *ContactBook {
	return &ContactBook{
		store: store,
		log:   logger.With().Str("component", "contacts").Logger(),
	}
}

// ContactInput describes a new contact.
type ContactInput struct {
	Name     string
	Phone    string
	Email    string
	Favorite bool
}

// Add stores a new contact.
func (b *ContactBook) Add(ctx context.Context, now time.Time, in ContactInput) (storage.Contact, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return storage.Contact{}, ErrEmptyContactName
	}
	c := storage.Contact{
		Name:      name,
		Phone:     storage.NullString(in.Phone),
		Email:     storage.NullString(in.Email),
		Favorite:  in.Favorite,
		CreatedAt: now,
	}
	if err := b.store.CreateContact(ctx, &c); err != nil {
		return storage.Contact{}, fmt.Errorf("create contact %q: %w", name, err)
	}
	b.log.Info().Uint("contact_id", c.ID).Msg("contact added")
	return c, nil
}

// Find returns contacts whose name fuzzily matches query, best match first.
// An empty query lists favorites first, then everyone else by name.
func (b *ContactBook) Find(ctx context.Context, query string, limit int) ([]storage.Contact, error) {
	all, err := b.store.ListContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}

	query = strings.TrimSpace(query)
	var out []storage.Contact
	if query == "" {
		out = all
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Favorite && !out[j].Favorite
		})
	} else {
		names := make([]string, len(all))
		for i, c := range all {
			names[i] = c.Name
		}
		for _, m := range fuzzy.Find(query, names) {
			out = append(out, all[m.Index])
		}
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Resolve returns the contact named name, ignoring case, creating it when
// it does not exist yet.
func (b *ContactBook) Resolve(ctx context.Context, now time.Time, name string) (storage.Contact, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return storage.Contact{}, ErrEmptyContactName
	}

	all, err := b.store.ListContacts(ctx)
	if err != nil {
		return storage.Contact{}, fmt.Errorf("list contacts: %w", err)
	}
	for _, c := range all {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return b.Add(ctx, now, ContactInput{Name: name})
}
