package wavedump

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFiles is returned when a text pattern matches no channel file.
	ErrNoFiles = errors.New("no channel files found")
	// ErrEmptyWaveform is returned when a waveform with no samples is processed.
	ErrEmptyWaveform = errors.New("empty waveform")
)

// ErrOpenFile represents an error when opening a file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %q: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error { return e.Err }

// ConfigError is returned when a channel configuration fails validation.
type ConfigError struct {
	ChannelID int
	Field     string
	Value     any
	Reason    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("channel %d: invalid %s %v: %s", e.ChannelID, e.Field, e.Value, e.Reason)
}

// DecodeError reports a malformed event. Offset is the byte offset in the
// binary stream (-1 for text sources), Record the event counter or record
// index when known and ChannelID the channel being read (-1 if none).
type DecodeError struct {
	Offset    int64
	Record    int64
	ChannelID int
	Err       error
}

func (e *DecodeError) Error() string {
	msg := "decode error"
	if e.Offset >= 0 {
		msg += fmt.Sprintf(" at offset %d", e.Offset)
	}
	if e.Record >= 0 {
		msg += fmt.Sprintf(", event %d", e.Record)
	}
	if e.ChannelID >= 0 {
		msg += fmt.Sprintf(", channel %d", e.ChannelID)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ErrCreateGroup represents an error when creating a group.
type ErrCreateGroup struct {
	GroupName string
	Err       error
}

func (e *ErrCreateGroup) Error() string {
	return fmt.Sprintf("error creating group %q: %v", e.GroupName, e.Err)
}

func (e *ErrCreateGroup) Unwrap() error { return e.Err }

// ErrCreateTable represents an error when creating a table.
type ErrCreateTable struct {
	TableName string
	Err       error
}

func (e *ErrCreateTable) Error() string {
	return fmt.Sprintf("error creating table %q: %v", e.TableName, e.Err)
}

func (e *ErrCreateTable) Unwrap() error { return e.Err }
