// Package merge reconciles two snapshots of the same logical dataset
// given no shared history other than per-record timestamps.
//
// Every function is pure: no I/O, no clock reads beyond the "now"
// parameter taken once per call. Conflicts resolve by field-level
// last-writer-wins, which can drop concurrent edits to the same field
// made in the same window; that is a deliberate simplification, not a
// bug to fix here.
package merge

import (
	"sort"
	"time"

	"github.com/idleeyan/tabsync/internal/domain"
)

// Bookmarks reconciles two bookmark lists, honoring both sides'
// deletion tombstones.
//
// A bookmark whose URL carries a tombstone survives only when its own
// modification signal is strictly newer than the latest deletion for
// that URL (the user re-added it after the deletion was recorded
// elsewhere). When the same URL appears on both sides the copy with
// the newer signal wins, except that the visit counter never
// regresses: the merged copy always carries the maximum of both
// counts. Surviving bookmarks keep their prior relative order and get
// contiguous indexes from 0.
func Bookmarks(local, remote []*domain.Bookmark, localDeleted, remoteDeleted []domain.Tombstone) []*domain.Bookmark {
	// Latest deletion per URL across both sides.
	deletedAt := make(map[string]int64)
	for _, t := range localDeleted {
		if t.URL != "" && t.DeletedAt > deletedAt[t.URL] {
			deletedAt[t.URL] = t.DeletedAt
		}
	}
	for _, t := range remoteDeleted {
		if t.URL != "" && t.DeletedAt > deletedAt[t.URL] {
			deletedAt[t.URL] = t.DeletedAt
		}
	}

	byURL := make(map[string]*domain.Bookmark)
	order := make([]string, 0, len(local)+len(remote))

	all := make([]*domain.Bookmark, 0, len(local)+len(remote))
	all = append(all, local...)
	all = append(all, remote...)

	for _, b := range all {
		if b == nil || b.URL == "" {
			continue
		}

		if dt, deleted := deletedAt[b.URL]; deleted {
			if b.ModSignal() > dt {
				// The bookmark outlives its tombstone: deletion
				// superseded, the URL is live again.
				delete(deletedAt, b.URL)
			} else {
				continue
			}
		}

		existing, seen := byURL[b.URL]
		if !seen {
			byURL[b.URL] = b.Clone()
			order = append(order, b.URL)
			continue
		}

		winner := existing
		if b.ModSignal() > existing.ModSignal() {
			winner = b
		}
		merged := winner.Clone()
		merged.VisitCount = max(existing.VisitCount, b.VisitCount)
		byURL[b.URL] = merged
	}

	out := make([]*domain.Bookmark, 0, len(order))
	for _, url := range order {
		out = append(out, byURL[url])
	}

	// Prior index decides list order, encounter order breaks ties.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Index < out[j].Index
	})
	for i, b := range out {
		b.Index = i
	}
	return out
}

// Tombstones unions both deletion lists, keeping the later deletion
// per URL, then drops entries older than the retention window
// measured against now.
func Tombstones(local, remote []domain.Tombstone, now time.Time) []domain.Tombstone {
	byURL := make(map[string]domain.Tombstone)
	order := make([]string, 0, len(local)+len(remote))

	for _, t := range append(append([]domain.Tombstone{}, local...), remote...) {
		if t.URL == "" {
			continue
		}
		existing, seen := byURL[t.URL]
		if !seen {
			byURL[t.URL] = t
			order = append(order, t.URL)
			continue
		}
		if t.DeletedAt > existing.DeletedAt {
			byURL[t.URL] = t
		}
	}

	cutoff := now.Add(-domain.TombstoneRetention).UnixMilli()
	out := make([]domain.Tombstone, 0, len(order))
	for _, url := range order {
		if t := byURL[url]; t.DeletedAt > cutoff {
			out = append(out, t)
		}
	}
	return out
}

// Settings resolves each named value independently: when both sides
// carry a value the remote one wins, otherwise whichever side has one.
func Settings(local, remote domain.Settings) domain.Settings {
	return domain.Settings{
		CardSize:  pick(local.CardSize, remote.CardSize),
		CardShape: pick(local.CardShape, remote.CardShape),
		SortBy:    pick(local.SortBy, remote.SortBy),
	}
}

func pick(local, remote string) string {
	if remote != "" {
		return remote
	}
	return local
}

// Notes unions both note lists by id, keeping whichever copy was
// updated more recently, sorted newest-updated-first.
func Notes(local, remote []*domain.StickyNote) []*domain.StickyNote {
	byID := make(map[string]*domain.StickyNote)
	order := make([]string, 0, len(local)+len(remote))

	all := make([]*domain.StickyNote, 0, len(local)+len(remote))
	all = append(all, local...)
	all = append(all, remote...)

	for _, n := range all {
		if n == nil || n.ID == "" {
			continue
		}
		existing, seen := byID[n.ID]
		if !seen {
			byID[n.ID] = n.Clone()
			order = append(order, n.ID)
			continue
		}
		if n.UpdateSignal() > existing.UpdateSignal() {
			byID[n.ID] = n.Clone()
		}
	}

	out := make([]*domain.StickyNote, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdateSignal() > out[j].UpdateSignal()
	})
	return out
}
