package section

import (
	"slices"
	"sync"
)

// Active picks the last section, in display order, whose top edge is at or
// above scrollY+threshold. When none qualifies the first section wins, and
// with no layout at all the first entry of Order is returned.
//
// A section stays active once its top has been scrolled past, even when the
// next section is already partly visible.
func Active(extents []Extent, scrollY, threshold float64) ID {
	if len(extents) == 0 {
		return Order[0]
	}

	active := extents[0].ID
	for _, e := range extents[1:] {
		if e.Top <= scrollY+threshold {
			active = e.ID
		}
	}
	return active
}

// Progress is the fraction of the page scrolled so far, clamped to [0, 1].
func Progress(scrollY, docHeight, viewportHeight float64) float64 {
	scrollable := docHeight - viewportHeight
	if scrollable <= 0 {
		return 0
	}
	p := scrollY / scrollable
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

// Tracker keeps the latest page layout and the section it selects. The
// zero value is not usable; call NewTracker.
type Tracker struct {
	mu        sync.Mutex
	threshold float64
	extents   []Extent
	scrollY   float64
	active    ID
}

// NewTracker returns a tracker with no layout yet, reporting the first
// section as active.
func NewTracker(threshold float64) *Tracker {
	return &Tracker{threshold: threshold, active: Order[0]}
}

// Layout replaces the known section extents, e.g. after a resize or once
// images have loaded, and recomputes the active section.
func (t *Tracker) Layout(extents []Extent) ID {
	sorted := slices.Clone(extents)
	slices.SortStableFunc(sorted, func(a, b Extent) int {
		return slices.Index(Order, a.ID) - slices.Index(Order, b.ID)
	})

	t.mu.Lock()
	defer t.mu.Unlock()
	t.extents = sorted
	t.active = Active(t.extents, t.scrollY, t.threshold)
	return t.active
}

// Update records a scroll tick and returns the active section. The second
// result reports whether the active section changed.
func (t *Tracker) Update(scrollY float64) (ID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scrollY = scrollY
	next := Active(t.extents, scrollY, t.threshold)
	changed := next != t.active
	t.active = next
	return next, changed
}

// Active returns the current active section.
func (t *Tracker) Active() ID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}
