// SPDX-License-Identifier: MIT
package analysis

import "fmt"

// EventKind tags the variant carried by an Event.
type EventKind uint8

const (
	EventTempo EventKind = iota + 1
	EventVolume
	EventReset
)

// String returns the lowercase name of the kind.
func (k EventKind) String() string {
	switch k {
	case EventTempo:
		return "tempo"
	case EventVolume:
		return "volume"
	case EventReset:
		return "reset"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name for JSON transports.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event is a semantic event derived from the audio stream.
//
//	Tempo:  Average is the smoothed bpm, Accuracy in [0, 1]
//	Volume: Average is the loudness in [0, 1]
//	Reset:  no payload
type Event struct {
	Kind     EventKind `json:"type"`
	Average  float64   `json:"average,omitempty"`
	Accuracy float64   `json:"accuracy,omitempty"`
}

// TempoEvent returns a Tempo event.
func TempoEvent(average, accuracy float64) Event {
	return Event{Kind: EventTempo, Average: average, Accuracy: accuracy}
}

// VolumeEvent returns a Volume event.
func VolumeEvent(average float64) Event {
	return Event{Kind: EventVolume, Average: average}
}

// ResetEvent returns a Reset event.
func ResetEvent() Event {
	return Event{Kind: EventReset}
}

func (e Event) String() string {
	switch e.Kind {
	case EventTempo:
		return fmt.Sprintf("Tempo{average: %.2f, accuracy: %.2f}", e.Average, e.Accuracy)
	case EventVolume:
		return fmt.Sprintf("Volume{average: %.3f}", e.Average)
	case EventReset:
		return "Reset"
	default:
		return fmt.Sprintf("Event(%d)", e.Kind)
	}
}
