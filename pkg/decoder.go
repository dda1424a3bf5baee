package wavedump

import (
	"fmt"
	"os"
)

// EventDecoder produces the events of one input, in stream order.
// NextEvent returns io.EOF at the clean end of the stream and a
// *DecodeError for a corrupted event; both end the stream.
type EventDecoder interface {
	NextEvent() (RawEvent, error)
	// Progress is the fraction of the input consumed, 0 when unknown.
	Progress() float64
	Close() error
}

var (
	_ EventDecoder = (*BinaryDecoder)(nil)
	_ EventDecoder = (*TextDecoder)(nil)
)

// OpenDecoder opens a binary file or, for ASCII, a glob pattern matching
// one text file per channel.
func OpenDecoder(path string, fileType FileType) (EventDecoder, error) {
	switch fileType {
	case Binary:
		file, err := os.Open(path)
		if err != nil {
			return nil, &ErrOpenFile{Filename: path, Err: err}
		}
		decoder, err := NewBinaryDecoder(file)
		if err != nil {
			file.Close()
			return nil, err
		}
		decoder.closer = file
		return decoder, nil
	case ASCII:
		return NewTextDecoder(path)
	default:
		return nil, fmt.Errorf("unknown file type: %v", fileType)
	}
}
