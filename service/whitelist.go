package service

// LocalChat is the chat ID used by the command line. It is always allowed.
const LocalChat int64 = 0

// Whitelist encapsulates chat access control.
type Whitelist struct {
	allowed map[int64]struct{}
}

// NewWhitelist constructs a whitelist from a slice of chat IDs.
func NewWhitelist(ids []int64) *Whitelist {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return &Whitelist{allowed: m}
}

// IsAllowed reports whether the given chat may read and write notes.
func (w *Whitelist) IsAllowed(chatID int64) bool {
	if chatID == LocalChat {
		return true
	}
	if w == nil {
		return false
	}
	_, ok := w.allowed[chatID]
	return ok
}
