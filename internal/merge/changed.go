package merge

import "github.com/idleeyan/tabsync/internal/domain"

// Changed reports whether merged differs structurally from base. It is
// the decision signal for overwriting a side after a merge.
//
// The comparison is order-independent: it checks bookmark list length
// and URL-set membership, per-bookmark name/icon/visit count,
// tombstone count, each tracked settings key, and note list
// length/id-set plus per-note title, content and color. List order
// differences alone never count as changed.
func Changed(base, merged *domain.Snapshot) bool {
	if base == nil {
		base = &domain.Snapshot{}
	}
	if merged == nil {
		merged = &domain.Snapshot{}
	}

	if len(base.Bookmarks) != len(merged.Bookmarks) {
		return true
	}
	mergedByURL := make(map[string]*domain.Bookmark, len(merged.Bookmarks))
	for _, b := range merged.Bookmarks {
		mergedByURL[b.URL] = b
	}
	for _, b := range base.Bookmarks {
		m, ok := mergedByURL[b.URL]
		if !ok {
			return true
		}
		if b.Name != m.Name || b.Icon != m.Icon || b.VisitCount != m.VisitCount {
			return true
		}
	}

	if len(base.Deleted) != len(merged.Deleted) {
		return true
	}

	if base.Settings != merged.Settings {
		return true
	}

	if len(base.Notes) != len(merged.Notes) {
		return true
	}
	mergedNotes := make(map[string]*domain.StickyNote, len(merged.Notes))
	for _, n := range merged.Notes {
		mergedNotes[n.ID] = n
	}
	for _, n := range base.Notes {
		m, ok := mergedNotes[n.ID]
		if !ok {
			return true
		}
		if n.Title != m.Title || n.Content != m.Content || n.Color != m.Color {
			return true
		}
	}

	return false
}
