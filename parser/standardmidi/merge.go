package standardmidi

import (
	"slices"

	"gitlab.com/gomidi/midi/v2/smf"
)

// Timeline is an ordered mapping from absolute tick positions to the events
// that occur at that tick. A MIDI file stores each track as its own
// delta-timed event stream; the timeline is the single merged view of all of
// them, keyed by absolute tick.
type Timeline struct {
	events map[uint32][]smf.Message
}

// MergeTracks squashes every track of a MIDI file into one Timeline.
// Each track's deltas accumulate into a running absolute tick starting at 0.
// Events from different tracks landing on the same tick keep a stable order:
// track order first, then original in-track order. Any decodable event stream
// is accepted; unsupported events are filtered out later, not here.
func MergeTracks(tracks []smf.Track) *Timeline {
	tl := &Timeline{events: make(map[uint32][]smf.Message)}
	for _, track := range tracks {
		var tick uint32
		for _, event := range track {
			tick += event.Delta
			tl.events[tick] = append(tl.events[tick], event.Message)
		}
	}
	return tl
}

// Ticks returns every tick position that has events, in ascending order.
func (tl *Timeline) Ticks() []uint32 {
	ticks := make([]uint32, 0, len(tl.events))
	for tick := range tl.events {
		ticks = append(ticks, tick)
	}
	slices.Sort(ticks)
	return ticks
}

// EventsAt returns the events occurring at the given tick, in merge order.
func (tl *Timeline) EventsAt(tick uint32) []smf.Message {
	return tl.events[tick]
}

// Len returns the number of distinct tick positions in the timeline.
func (tl *Timeline) Len() int {
	return len(tl.events)
}
