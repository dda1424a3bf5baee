package wavedump

import (
	"errors"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeErrorMessage(t *testing.T) {
	err := &DecodeError{Offset: 128, Record: 4, ChannelID: 2, Err: io.ErrUnexpectedEOF}
	assert.Equal(t, "decode error at offset 128, event 4, channel 2: unexpected EOF", err.Error())
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))

	err = &DecodeError{Offset: -1, Record: 0, ChannelID: -1, Err: errors.New("bad line")}
	assert.Equal(t, "decode error, event 0: bad line", err.Error())
}

func TestErrorWrapping(t *testing.T) {
	assert.ErrorIs(t, &ErrOpenFile{Filename: "x", Err: os.ErrNotExist}, os.ErrNotExist)
	assert.ErrorIs(t, &ErrCreateTable{TableName: "t", Err: os.ErrPermission}, os.ErrPermission)
	assert.ErrorIs(t, &ErrCreateGroup{GroupName: "g", Err: os.ErrClosed}, os.ErrClosed)

	err := &ConfigError{ChannelID: 3, Field: "polarity", Value: 0, Reason: "must be 1 or -1"}
	assert.Equal(t, "channel 3: invalid polarity 0: must be 1 or -1", err.Error())
}
