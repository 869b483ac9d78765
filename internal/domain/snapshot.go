package domain

import "time"

// TombstoneRetention is how long a deletion record survives before
// merges purge it. Past this window a deletion is no longer permanent:
// the same URL reintroduced by another device will come back.
const TombstoneRetention = 30 * 24 * time.Hour

// Tombstone marks a URL as deleted. It lets merges distinguish
// "never existed" from "deleted elsewhere".
type Tombstone struct {
	URL string `json:"url"`
	// Name is informational only.
	Name      string `json:"name,omitempty"`
	DeletedAt int64  `json:"deletedAt"`
}

// Settings is the flat bag of independently merge-resolved scalars.
// An empty string means the value is unset on that side.
type Settings struct {
	CardSize  string `json:"bookmarkCardSize,omitempty"`
	CardShape string `json:"bookmarkCardShape,omitempty"`
	SortBy    string `json:"bookmarkSortBy,omitempty"`
}

// Snapshot is the full exchangeable state of the dataset at a point in
// time. It is immutable once produced; a merge yields a new snapshot
// that fully supersedes the prior one. Field names match the wire
// format of already-deployed clients.
type Snapshot struct {
	Bookmarks []*Bookmark   `json:"customBookmarks"`
	Deleted   []Tombstone   `json:"deletedBookmarks,omitempty"`
	Notes     []*StickyNote `json:"stickyNotes,omitempty"`
	Settings
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := &Snapshot{Settings: s.Settings}
	if s.Bookmarks != nil {
		c.Bookmarks = make([]*Bookmark, len(s.Bookmarks))
		for i, b := range s.Bookmarks {
			c.Bookmarks[i] = b.Clone()
		}
	}
	if s.Deleted != nil {
		c.Deleted = make([]Tombstone, len(s.Deleted))
		copy(c.Deleted, s.Deleted)
	}
	if s.Notes != nil {
		c.Notes = make([]*StickyNote, len(s.Notes))
		for i, n := range s.Notes {
			c.Notes[i] = n.Clone()
		}
	}
	return c
}

// EnvelopeVersion is the wire envelope format version.
const EnvelopeVersion = "1.0"

// Envelope wraps a snapshot for transfer: format version, generation
// timestamp (epoch milliseconds) and the identifier of the device that
// produced it.
type Envelope struct {
	Version   string    `json:"version"`
	Timestamp int64     `json:"timestamp"`
	Device    string    `json:"device"`
	Data      *Snapshot `json:"data"`
}
