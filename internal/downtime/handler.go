package downtime

import (
	"log/slog"

	"github.com/GoSim-25-26J-441/opsim-driver/pkg/logger"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/models"
)

// Handler merges the scheduled and unscheduled streams into dark nights
type Handler struct {
	scheduled   Source
	unscheduled Source

	pendingScheduled   *models.DowntimeEntry
	pendingUnscheduled *models.DowntimeEntry
	dark               map[int]struct{}
	log                *slog.Logger
}

// NewHandler primes one pending entry from each stream
func NewHandler(scheduled, unscheduled Source, log *slog.Logger) *Handler {
	h := &Handler{
		scheduled:   scheduled,
		unscheduled: unscheduled,
		dark:        make(map[int]struct{}),
		log:         logger.OrDefault(log),
	}
	h.pendingScheduled = pop(scheduled)
	h.pendingUnscheduled = pop(unscheduled)
	return h
}

func pop(s Source) *models.DowntimeEntry {
	if s == nil {
		return nil
	}
	e, ok := s.PopNext()
	if !ok {
		return nil
	}
	return &e
}

// GetDowntime is called once per night in increasing order. It returns the
// number of dark nights remaining from night onwards, or 0 for an open night.
func (h *Handler) GetDowntime(night int) int {
	h.prune(night)
	for len(h.dark) == 0 {
		if !h.merge() {
			return 0
		}
		h.prune(night)
	}

	if _, ok := h.dark[night]; !ok {
		return 0
	}
	delete(h.dark, night)
	return len(h.dark) + 1
}

// prune drops nights already behind the loop
func (h *Handler) prune(night int) {
	for n := range h.dark {
		if n < night {
			delete(h.dark, n)
		}
	}
}

// merge fills the dark set from the pending entries. It reports false once
// both streams are exhausted.
func (h *Handler) merge() bool {
	sdt, usdt := h.pendingScheduled, h.pendingUnscheduled
	switch {
	case sdt == nil && usdt == nil:
		return false
	case usdt == nil:
		h.take(*sdt)
		h.pendingScheduled = pop(h.scheduled)
	case sdt == nil:
		h.take(*usdt)
		h.pendingUnscheduled = pop(h.unscheduled)
	case sdt.Night < usdt.Night && sdt.End() <= usdt.Night:
		h.take(*sdt)
		h.pendingScheduled = pop(h.scheduled)
	case usdt.Night < sdt.Night && usdt.End() <= sdt.Night:
		h.take(*usdt)
		h.pendingUnscheduled = pop(h.unscheduled)
	default:
		h.log.Debug("merging overlapping downtime",
			"scheduled_night", sdt.Night, "scheduled_duration", sdt.Duration,
			"unscheduled_night", usdt.Night, "unscheduled_duration", usdt.Duration)
		h.take(*sdt)
		h.take(*usdt)
		h.pendingScheduled = pop(h.scheduled)
		h.pendingUnscheduled = pop(h.unscheduled)
	}
	return true
}

func (h *Handler) take(e models.DowntimeEntry) {
	for _, n := range e.Nights() {
		h.dark[n] = struct{}{}
	}
}
