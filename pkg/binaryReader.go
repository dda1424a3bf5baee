package wavedump

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	N_CHANNELS       = 8
	SAMPLE_MASK      = 0x3FFF
	CH_HEADER_WORDS  = 2
	EVENT_HEADER_LEN = 16
)

type EventHeaderStruct struct {
	EventSize   uint32
	BoardID     uint32
	Pattern     uint32
	ChannelMask uint32
}

type EventInfoStruct struct {
	EventCounter   uint32
	TriggerTimeTag uint32
}

// BinaryDecoder reads the packed little-endian event stream written by
// WaveDump for an 8-channel 14-bit digitizer.
type BinaryDecoder struct {
	reader    *bufio.Reader
	closer    io.Closer
	size      int64
	position  int64
	exhausted bool
}

// NewBinaryDecoder reads events from r, which must be positioned at offset 0.
func NewBinaryDecoder(r io.ReadSeeker) (*BinaryDecoder, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("error getting file size: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("error seeking to start: %w", err)
	}
	return &BinaryDecoder{reader: bufio.NewReader(r), size: size}, nil
}

func (d *BinaryDecoder) read(buf []byte) error {
	n, err := io.ReadFull(d.reader, buf)
	d.position += int64(n)
	return err
}

func (d *BinaryDecoder) decodeError(record int64, channel int, err error) error {
	d.exhausted = true
	// a clean EOF inside an event is a truncated event
	if errors.Is(err, io.EOF) {
		err = fmt.Errorf("%v: %w", err, io.ErrUnexpectedEOF)
	}
	return &DecodeError{Offset: d.position, Record: record, ChannelID: channel, Err: err}
}

// NextEvent returns io.EOF once fewer than 16 bytes remain. Any other
// failure is a *DecodeError, after which the decoder is exhausted.
func (d *BinaryDecoder) NextEvent() (RawEvent, error) {
	if d.exhausted {
		return RawEvent{}, io.EOF
	}

	headerBinary := make([]byte, EVENT_HEADER_LEN)
	if err := d.read(headerBinary); err != nil {
		d.exhausted = true
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return RawEvent{}, io.EOF
		}
		return RawEvent{}, &DecodeError{Offset: d.position, Record: -1, ChannelID: -1, Err: err}
	}
	header := EventHeaderStruct{
		EventSize:   binary.LittleEndian.Uint32(headerBinary[0:4]),
		BoardID:     binary.LittleEndian.Uint32(headerBinary[4:8]),
		Pattern:     binary.LittleEndian.Uint32(headerBinary[8:12]),
		ChannelMask: binary.LittleEndian.Uint32(headerBinary[12:16]),
	}

	infoBinary := make([]byte, 8)
	if err := d.read(infoBinary); err != nil {
		return RawEvent{}, d.decodeError(-1, -1, fmt.Errorf("error reading event info: %w", err))
	}
	info := EventInfoStruct{
		EventCounter:   binary.LittleEndian.Uint32(infoBinary[0:4]),
		TriggerTimeTag: binary.LittleEndian.Uint32(infoBinary[4:8]),
	}

	event := RawEvent{
		EventCounter:   info.EventCounter,
		TriggerTimeTag: info.TriggerTimeTag,
		BoardID:        header.BoardID,
		Channels:       make(map[int][]uint16),
	}
	record := int64(info.EventCounter)

	if verbosity > 2 {
		message := fmt.Sprintf("Event %d: board %d, channel mask 0x%02x, size %d words",
			info.EventCounter, header.BoardID, header.ChannelMask, header.EventSize)
		logger.Info(message, "binaryReader")
	}

	for _, ch := range activeChannels(header.ChannelMask) {
		sizeBinary := make([]byte, 4)
		if err := d.read(sizeBinary); err != nil {
			return RawEvent{}, d.decodeError(record, ch, fmt.Errorf("error reading channel size: %w", err))
		}
		chSize := binary.LittleEndian.Uint32(sizeBinary)
		if chSize < CH_HEADER_WORDS {
			return RawEvent{}, d.decodeError(record, ch, fmt.Errorf("channel size %d smaller than header", chSize))
		}
		nSamples := int64(chSize-CH_HEADER_WORDS) * 2
		if remaining := d.size - d.position; nSamples*2 > remaining {
			return RawEvent{}, d.decodeError(record, ch,
				fmt.Errorf("channel size %d needs %d bytes, %d left: %w", chSize, nSamples*2, remaining, io.ErrUnexpectedEOF))
		}

		waveformBinary := make([]byte, nSamples*2)
		if err := d.read(waveformBinary); err != nil {
			return RawEvent{}, d.decodeError(record, ch, fmt.Errorf("error reading waveform: %w", err))
		}
		event.Channels[ch] = unpackSamples(waveformBinary)
	}
	return event, nil
}

// activeChannels returns the set bits 0-7 of the mask in ascending order.
func activeChannels(mask uint32) []int {
	channels := make([]int, 0, N_CHANNELS)
	for ch := 0; ch < N_CHANNELS; ch++ {
		if mask&(1<<ch) != 0 {
			channels = append(channels, ch)
		}
	}
	return channels
}

// unpackSamples strips the converter status bits above bit 13.
func unpackSamples(data []byte) []uint16 {
	samples := make([]uint16, len(data)/2)
	for i := range samples {
		samples[i] = binary.LittleEndian.Uint16(data[2*i:]) & SAMPLE_MASK
	}
	return samples
}

func (d *BinaryDecoder) Progress() float64 {
	if d.size <= 0 {
		return 0
	}
	return float64(d.position) / float64(d.size)
}

func (d *BinaryDecoder) Close() error {
	d.exhausted = true
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}
