package domain

import (
	"time"
)

// MaxVisitHistory bounds the per-bookmark visit log, newest first.
const MaxVisitHistory = 100

// Time-of-day buckets for visit aggregates.
const (
	SlotMorning   = "morning"   // 06:00-12:00
	SlotAfternoon = "afternoon" // 12:00-18:00
	SlotEvening   = "evening"   // everything else
)

// Bookmark represents one user bookmark.
// The URL is the identity within a dataset; all timestamps are epoch
// milliseconds to stay wire-compatible with snapshots produced by
// already-deployed clients.
type Bookmark struct {
	// ─────────────────────────────
	// Identity & display
	// ─────────────────────────────

	// URL is the canonical unique identifier.
	URL string `json:"url"`

	// Name is the display label.
	Name string `json:"name"`

	// Icon is an image URL or a data URI.
	Icon string `json:"icon,omitempty"`

	// Index is the display position. Contiguous from 0 within the
	// active list after any merge or reorder.
	Index int `json:"index"`

	// ─────────────────────────────
	// Visit tracking
	// ─────────────────────────────

	VisitCount int   `json:"visitCount"`
	LastVisit  int64 `json:"lastVisit,omitempty"`
	FirstVisit int64 `json:"firstVisit,omitempty"`

	// LastModify is set on explicit edits (rename, icon change,
	// re-add). It takes precedence over LastVisit as the bookmark's
	// modification signal.
	LastModify int64 `json:"lastModify,omitempty"`

	// VisitHistory keeps at most MaxVisitHistory entries, newest first.
	VisitHistory []VisitRecord `json:"visitHistory,omitempty"`

	// Derived aggregates maintained by RecordVisit.
	DailyStats     map[string]DailyStat    `json:"dailyStats,omitempty"`
	TimeOfDayStats map[string]TimeSlotStat `json:"timeOfDayStats,omitempty"`
}

// VisitRecord is one entry in the bounded visit log.
type VisitRecord struct {
	Timestamp int64  `json:"timestamp"`
	Date      string `json:"date"` // YYYY-MM-DD
	Time      string `json:"time"` // HH:MM:SS
	Hour      int    `json:"hour"`
	DayOfWeek int    `json:"dayOfWeek"`
	Month     int    `json:"month"`
	Year      int    `json:"year"`
	Duration  int64  `json:"duration"`
	Referrer  string `json:"referrer"`
}

// DailyStat aggregates visits for one calendar day.
type DailyStat struct {
	Count         int   `json:"count"`
	TotalDuration int64 `json:"totalDuration"`
}

// TimeSlotStat aggregates visits for one time-of-day bucket.
type TimeSlotStat struct {
	Count       int     `json:"count"`
	AvgDuration float64 `json:"avgDuration"`
}

// ModSignal returns the bookmark's modification signal used for
// last-writer-wins comparisons: LastModify, falling back to LastVisit.
func (b *Bookmark) ModSignal() int64 {
	if b.LastModify != 0 {
		return b.LastModify
	}
	return b.LastVisit
}

// RecordVisit updates the visit counter, the bounded history log and
// the derived aggregates for a visit happening at now.
func (b *Bookmark) RecordVisit(now time.Time) {
	ms := now.UnixMilli()

	b.VisitCount++
	b.LastVisit = ms
	if b.FirstVisit == 0 {
		b.FirstVisit = ms
	}

	rec := VisitRecord{
		Timestamp: ms,
		Date:      now.Format("2006-01-02"),
		Time:      now.Format("15:04:05"),
		Hour:      now.Hour(),
		DayOfWeek: int(now.Weekday()),
		Month:     int(now.Month()),
		Year:      now.Year(),
		Referrer:  "direct",
	}

	b.VisitHistory = append([]VisitRecord{rec}, b.VisitHistory...)
	if len(b.VisitHistory) > MaxVisitHistory {
		b.VisitHistory = b.VisitHistory[:MaxVisitHistory]
	}

	if b.DailyStats == nil {
		b.DailyStats = make(map[string]DailyStat)
	}
	day := b.DailyStats[rec.Date]
	day.Count++
	b.DailyStats[rec.Date] = day

	if b.TimeOfDayStats == nil {
		b.TimeOfDayStats = make(map[string]TimeSlotStat)
	}
	slot := b.TimeOfDayStats[TimeSlot(rec.Hour)]
	slot.Count++
	b.TimeOfDayStats[TimeSlot(rec.Hour)] = slot
}

// TimeSlot maps an hour of day to its aggregate bucket.
func TimeSlot(hour int) string {
	switch {
	case hour >= 6 && hour < 12:
		return SlotMorning
	case hour >= 12 && hour < 18:
		return SlotAfternoon
	default:
		return SlotEvening
	}
}

// Clone returns a deep copy of the bookmark.
func (b *Bookmark) Clone() *Bookmark {
	if b == nil {
		return nil
	}
	c := *b
	if b.VisitHistory != nil {
		c.VisitHistory = make([]VisitRecord, len(b.VisitHistory))
		copy(c.VisitHistory, b.VisitHistory)
	}
	if b.DailyStats != nil {
		c.DailyStats = make(map[string]DailyStat, len(b.DailyStats))
		for k, v := range b.DailyStats {
			c.DailyStats[k] = v
		}
	}
	if b.TimeOfDayStats != nil {
		c.TimeOfDayStats = make(map[string]TimeSlotStat, len(b.TimeOfDayStats))
		for k, v := range b.TimeOfDayStats {
			c.TimeOfDayStats[k] = v
		}
	}
	return &c
}
