// Package downtime produces the dark nights of a survey from a scheduled
// maintenance table and a stochastic failure model.
package downtime

import "github.com/GoSim-25-26J-441/opsim-driver/pkg/models"

// Source is a finite queue of downtime entries ordered by start night
type Source interface {
	Len() int
	PopNext() (models.DowntimeEntry, bool)
	ListAll() []models.DowntimeEntry
}

// queue backs both downtime sources
type queue struct {
	entries []models.DowntimeEntry
	next    int
}

// Len is the number of entries not yet popped
func (q *queue) Len() int {
	return len(q.entries) - q.next
}

// PopNext returns the next entry, or false once the queue is drained
func (q *queue) PopNext() (models.DowntimeEntry, bool) {
	if q.next >= len(q.entries) {
		return models.DowntimeEntry{}, false
	}
	e := q.entries[q.next]
	q.next++
	return e, true
}

// ListAll returns every entry, popped or not
func (q *queue) ListAll() []models.DowntimeEntry {
	out := make([]models.DowntimeEntry, len(q.entries))
	copy(out, q.entries)
	return out
}

func (q *queue) reset(entries []models.DowntimeEntry) {
	q.entries = entries
	q.next = 0
}
