package wavedump

const (
	// NoCrossing is written for a timing mark that was not found.
	NoCrossing = -1.0
	// MissingChannel is written for every column of a configured channel
	// that is not present in an event.
	MissingChannel = -999.0
)

type RawEvent struct {
	EventCounter   uint32
	TriggerTimeTag uint32
	BoardID        uint32
	Channels       map[int][]uint16
}

// ChannelIDs returns the channels present in the event in ascending order.
func (e RawEvent) ChannelIDs() []int {
	return sortedKeys(e.Channels)
}

// Crossing is an interpolated sample-index time. Found is false when the
// waveform never crosses the level.
type Crossing struct {
	Time  float64
	Found bool
}

func (c Crossing) OrSentinel() float64 {
	if !c.Found {
		return NoCrossing
	}
	return c.Time
}

type ProcessedChannelResult struct {
	BaselineMean  float64
	BaselineRMS   float64
	PeakHeight    float64
	PeakTime      float64
	Charge        float64
	ThresholdTime Crossing
	CFDTime       Crossing
}

// EventResult collects the features of the configured channels present in one event.
type EventResult struct {
	EventCounter   uint32
	TriggerTimeTag uint32
	BoardID        uint32
	Channels       map[int]ProcessedChannelResult
	Waveforms      map[int][]uint16
}
