package fileops

import (
	"sort"
	"time"
)

// eventGroup is a temporally and path-correlated cluster of events believed
// to describe one logical operation. Groups are transient: they exist only
// between grouping and detection and are never exposed to callers.
type eventGroup struct {
	key    string
	events []FileEvent
}

// lastTime returns the timestamp of the newest event in the group.
func (g *eventGroup) lastTime() time.Time {
	return g.events[len(g.events)-1].Time()
}

// append adds an event and, for moves that change the logical target,
// returns the key the group should be tracked under from now on.
func (g *eventGroup) append(e FileEvent) string {
	g.events = append(g.events, e)
	if e.Type == EventMoved && e.DestPath != "" {
		if k := normalizeKey(e.DestPath); k != g.key {
			g.key = k
		}
	}
	return g.key
}

// groupEvents partitions an ordered event sequence into per-target groups.
// An event joins the open group for its key when its timestamp is within
// window of the group's newest event (boundary inclusive); otherwise the old
// group closes and a fresh one opens. A move's destination also resolves to
// a key so temp-to-real transitions stay in one group even though the
// literal path changes.
func groupEvents(events []FileEvent, window time.Duration) []*eventGroup {
	open := make(map[string]*eventGroup)
	var closed []*eventGroup

	for _, e := range events {
		srcKey := normalizeKey(e.Path)
		g := open[srcKey]
		foundKey := srcKey
		if g == nil && e.Type == EventMoved && e.DestPath != "" {
			destKey := normalizeKey(e.DestPath)
			if other := open[destKey]; other != nil {
				g, foundKey = other, destKey
			}
		}

		if g != nil && e.Time().Sub(g.lastTime()) > window {
			closed = append(closed, g)
			delete(open, foundKey)
			g = nil
		}

		if g == nil {
			g = &eventGroup{key: srcKey}
			open[srcKey] = g
			foundKey = srcKey
		}

		if newKey := g.append(e); newKey != foundKey {
			delete(open, foundKey)
			open[newKey] = g
		}
	}

	for _, g := range open {
		closed = append(closed, g)
	}
	sort.SliceStable(closed, func(i, j int) bool {
		a, b := closed[i].events[0], closed[j].events[0]
		if a.Time().Equal(b.Time()) {
			return a.Sequence() < b.Sequence()
		}
		return a.Time().Before(b.Time())
	})
	return closed
}
