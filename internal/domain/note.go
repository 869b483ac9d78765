package domain

// StickyNote is a free-form note. The id is opaque and time-based,
// effectively unique per creation instant.
type StickyNote struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Color     string `json:"color"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// UpdateSignal returns the note's modification signal: UpdatedAt,
// falling back to CreatedAt.
func (n *StickyNote) UpdateSignal() int64 {
	if n.UpdatedAt != 0 {
		return n.UpdatedAt
	}
	return n.CreatedAt
}

// Clone returns a copy of the note.
func (n *StickyNote) Clone() *StickyNote {
	if n == nil {
		return nil
	}
	c := *n
	return &c
}
