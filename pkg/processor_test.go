package wavedump

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceDecoder replays a fixed list of events, returning err once they run out.
type sliceDecoder struct {
	events []RawEvent
	err    error
	pulled int
	closed bool
}

func (d *sliceDecoder) NextEvent() (RawEvent, error) {
	if d.pulled >= len(d.events) {
		if d.err != nil {
			return RawEvent{}, d.err
		}
		return RawEvent{}, io.EOF
	}
	d.pulled++
	return d.events[d.pulled-1], nil
}

func (d *sliceDecoder) Progress() float64 {
	if len(d.events) == 0 {
		return 0
	}
	return float64(d.pulled) / float64(len(d.events))
}

func (d *sliceDecoder) Close() error {
	d.closed = true
	return nil
}

type memoryWriter struct {
	results []EventResult
	err     error
}

func (w *memoryWriter) WriteEvent(result *EventResult) error {
	if w.err != nil {
		return w.err
	}
	w.results = append(w.results, *result)
	return nil
}

func (w *memoryWriter) Close() error { return nil }

func pulse(length int, baseline uint16, at int, height uint16) []uint16 {
	waveform := make([]uint16, length)
	for i := range waveform {
		waveform[i] = baseline
	}
	waveform[at] = baseline + height
	return waveform
}

func testEvents(n int, channels ...int) []RawEvent {
	events := make([]RawEvent, n)
	for i := range events {
		events[i] = RawEvent{
			EventCounter:   uint32(i),
			TriggerTimeTag: uint32(10 * i),
			Channels:       make(map[int][]uint16),
		}
		for _, ch := range channels {
			events[i].Channels[ch] = pulse(50, 100, 20, 50)
		}
	}
	return events
}

func testChannels(t *testing.T, ids ...int) []ChannelConfig {
	t.Helper()
	channels := make([]ChannelConfig, len(ids))
	for i, ch := range ids {
		c, err := NewChannelConfig(ch, 1, 10, Dynamic, Window{5, 5}, 20, 0.5)
		require.NoError(t, err)
		channels[i] = c
	}
	return channels
}

func TestProcessorAllEvents(t *testing.T) {
	processor, err := NewProcessor(testChannels(t, 0, 1), DefaultProcessorOptions())
	require.NoError(t, err)
	writer := &memoryWriter{}

	summary, err := processor.Process(&sliceDecoder{events: testEvents(5, 0, 1)}, writer)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.EventsRead)
	assert.Equal(t, 5, summary.EventsProcessed)
	assert.Equal(t, 0, summary.DecodeErrors)
	require.Len(t, writer.results, 5)
	for i, result := range writer.results {
		assert.Equal(t, uint32(i), result.EventCounter)
		assert.Equal(t, uint32(10*i), result.TriggerTimeTag)
		require.Contains(t, result.Channels, 1)
		assert.Equal(t, 50.0, result.Channels[1].PeakHeight)
		assert.Nil(t, result.Waveforms)
	}
	assert.Equal(t, []int{0, 1}, summary.ChannelIDs)
	assert.Equal(t, 5, summary.Channels[0].Processed)
	assert.Equal(t, 0, summary.Channels[0].Missing)
	mean, _ := summary.Channels[0].MeanCharge()
	assert.InDelta(t, 50*CHARGE_CONST, mean, 1e-9)
	assert.InDelta(t, 50, summary.Channels[0].MeanPeakHeight(), 1e-9)
}

func TestProcessorSkipAndMax(t *testing.T) {
	opts := DefaultProcessorOptions()
	opts.Skip = 2
	opts.MaxEvents = 3
	processor, err := NewProcessor(testChannels(t, 0), opts)
	require.NoError(t, err)
	writer := &memoryWriter{}
	dec := &sliceDecoder{events: testEvents(10, 0)}

	summary, err := processor.Process(dec, writer)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.EventsRead)
	assert.Equal(t, 3, summary.EventsProcessed)
	require.Len(t, writer.results, 3)
	assert.Equal(t, uint32(2), writer.results[0].EventCounter)
	assert.Equal(t, uint32(4), writer.results[2].EventCounter)
	assert.Equal(t, 5, dec.pulled)
}

func TestProcessorMissingChannels(t *testing.T) {
	processor, err := NewProcessor(testChannels(t, 0, 3), DefaultProcessorOptions())
	require.NoError(t, err)
	writer := &memoryWriter{}
	events := testEvents(4, 0, 5)
	events[1].Channels[3] = pulse(50, 100, 20, 50)
	events[2].Channels[3] = []uint16{}

	summary, err := processor.Process(&sliceDecoder{events: events}, writer)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Channels[0].Processed)
	assert.Equal(t, 1, summary.Channels[3].Processed)
	assert.Equal(t, 3, summary.Channels[3].Missing)
	assert.NotContains(t, writer.results[0].Channels, 3)
	assert.Contains(t, writer.results[1].Channels, 3)
	assert.NotContains(t, writer.results[2].Channels, 3)
	// channel 5 is not configured
	assert.NotContains(t, writer.results[0].Channels, 5)
	assert.NotContains(t, summary.Channels, 5)
}

func TestProcessorDecodeErrorDiscard(t *testing.T) {
	decodeErr := &DecodeError{Offset: 100, Record: 3, ChannelID: 1, Err: io.ErrUnexpectedEOF}
	processor, err := NewProcessor(testChannels(t, 0), DefaultProcessorOptions())
	require.NoError(t, err)
	writer := &memoryWriter{}

	summary, err := processor.Process(&sliceDecoder{events: testEvents(3, 0), err: decodeErr}, writer)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.EventsProcessed)
	assert.Equal(t, 1, summary.DecodeErrors)
	assert.Len(t, writer.results, 3)
}

func TestProcessorDecodeErrorReturned(t *testing.T) {
	decodeErr := &DecodeError{Offset: 100, Record: 3, ChannelID: 1, Err: io.ErrUnexpectedEOF}
	opts := DefaultProcessorOptions()
	opts.Discard = false
	processor, err := NewProcessor(testChannels(t, 0), opts)
	require.NoError(t, err)

	summary, err := processor.Process(&sliceDecoder{events: testEvents(3, 0), err: decodeErr})
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	var got *DecodeError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, int64(3), got.Record)
	assert.Equal(t, 3, summary.EventsProcessed)
	assert.Equal(t, 1, summary.DecodeErrors)
}

func TestProcessorWriteError(t *testing.T) {
	processor, err := NewProcessor(testChannels(t, 0), DefaultProcessorOptions())
	require.NoError(t, err)
	writeErr := errors.New("disk full")

	_, err = processor.Process(&sliceDecoder{events: testEvents(2, 0)}, &memoryWriter{err: writeErr})
	assert.ErrorIs(t, err, writeErr)
}

func TestProcessorKeepWaveforms(t *testing.T) {
	opts := DefaultProcessorOptions()
	opts.KeepWaveforms = true
	opts.NumWorkers = 4
	processor, err := NewProcessor(testChannels(t, 0, 1, 2), opts)
	require.NoError(t, err)

	events := testEvents(1, 0, 1, 2)
	result := processor.ProcessEvent(events[0], nil)
	assert.Len(t, result.Channels, 3)
	assert.Equal(t, events[0].Channels[2], result.Waveforms[2])
}

func TestNewProcessorRejects(t *testing.T) {
	_, err := NewProcessor(nil, DefaultProcessorOptions())
	assert.Error(t, err)

	_, err = NewProcessor(testChannels(t, 1, 1), DefaultProcessorOptions())
	assert.Error(t, err)
}
