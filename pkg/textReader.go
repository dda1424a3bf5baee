package wavedump

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Lines before the samples of every record: record length, board id,
// channel, event number, pattern, trigger time tag, DC offset and a blank line.
const (
	TEXT_HEADER_LINES = 8
	TTT_LINE          = 5
)

var channelNumber = regexp.MustCompile(`\d+`)

type channelFile struct {
	channel int
	file    *os.File
	reader  *bufio.Reader
}

// TextDecoder reads the one-file-per-channel text output of WaveDump,
// advancing every channel file by one record per event.
type TextDecoder struct {
	files     []channelFile
	counter   uint32
	exhausted bool
}

// NewTextDecoder opens every file matching pattern whose base name contains
// a channel number. All files are closed if any of them fails to open.
func NewTextDecoder(pattern string) (*TextDecoder, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("error matching pattern %q: %w", pattern, err)
	}
	sort.Strings(matches)

	paths := make(map[int]string)
	for _, path := range matches {
		number := channelNumber.FindString(filepath.Base(path))
		if number == "" {
			continue
		}
		ch, err := strconv.Atoi(number)
		if err != nil {
			return nil, fmt.Errorf("error parsing channel number of %q: %w", path, err)
		}
		if previous, ok := paths[ch]; ok {
			return nil, fmt.Errorf("files %q and %q both map to channel %d", previous, path, ch)
		}
		paths[ch] = path
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w matching pattern %q", ErrNoFiles, pattern)
	}

	decoder := &TextDecoder{}
	for _, ch := range sortedKeys(paths) {
		file, err := os.Open(paths[ch])
		if err != nil {
			decoder.Close()
			return nil, &ErrOpenFile{Filename: paths[ch], Err: err}
		}
		decoder.files = append(decoder.files, channelFile{
			channel: ch,
			file:    file,
			reader:  bufio.NewReader(file),
		})
	}

	if verbosity > 0 {
		message := fmt.Sprintf("Found %d ASCII channel files: %v", len(decoder.files), decoder.ChannelIDs())
		logger.Info(message, "textReader")
	}
	return decoder, nil
}

func (d *TextDecoder) ChannelIDs() []int {
	ids := make([]int, len(d.files))
	for i, f := range d.files {
		ids[i] = f.channel
	}
	return ids
}

// readLine returns the next line without its terminator. ok is false only
// when nothing could be read.
func readLine(r *bufio.Reader) (string, bool, error) {
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", false, err
	}
	if line == "" && err != nil {
		return "", false, nil
	}
	return strings.TrimRight(line, "\r\n"), true, nil
}

// parseInt parses a decimal value or a hexadecimal one prefixed by 0x or 0X.
func parseInt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseInt(s[2:], 16, 64)
	}
	return strconv.ParseInt(s, 10, 64)
}

// NextEvent reads one record from every channel file. io.EOF is returned the
// first time any file cannot provide its header lines.
func (d *TextDecoder) NextEvent() (RawEvent, error) {
	if d.exhausted {
		return RawEvent{}, io.EOF
	}

	event := RawEvent{
		EventCounter: d.counter,
		BoardID:      0,
		Channels:     make(map[int][]uint16),
	}
	record := int64(d.counter)

	for _, f := range d.files {
		var header [TEXT_HEADER_LINES]string
		for i := range header {
			line, ok, err := readLine(f.reader)
			if err != nil {
				d.exhausted = true
				return RawEvent{}, &DecodeError{Offset: -1, Record: record, ChannelID: f.channel,
					Err: fmt.Errorf("error reading header: %w", err)}
			}
			if !ok {
				d.exhausted = true
				return RawEvent{}, io.EOF
			}
			header[i] = line
		}

		key, value, found := strings.Cut(header[TTT_LINE], ":")
		if !found {
			d.exhausted = true
			return RawEvent{}, &DecodeError{Offset: -1, Record: record, ChannelID: f.channel,
				Err: fmt.Errorf("malformed trigger time tag line %q", header[TTT_LINE])}
		}
		ttt, err := parseInt(value)
		if err != nil {
			d.exhausted = true
			return RawEvent{}, &DecodeError{Offset: -1, Record: record, ChannelID: f.channel,
				Err: fmt.Errorf("error parsing %s: %w", strings.TrimSpace(key), err)}
		}
		event.TriggerTimeTag = uint32(ttt)

		waveform, err := readSamples(f.reader)
		if err != nil {
			d.exhausted = true
			return RawEvent{}, &DecodeError{Offset: -1, Record: record, ChannelID: f.channel,
				Err: fmt.Errorf("error reading waveform: %w", err)}
		}
		event.Channels[f.channel] = waveform

		if verbosity > 2 {
			message := fmt.Sprintf("Record %d, channel %d: %d samples", record, f.channel, len(waveform))
			logger.Info(message, "textReader")
		}
	}

	d.counter++
	return event, nil
}

// readSamples reads one integer per line until a blank line, the end of the
// file or the first line that is not an integer.
func readSamples(r *bufio.Reader) ([]uint16, error) {
	waveform := make([]uint16, 0)
	for {
		line, ok, err := readLine(r)
		if err != nil {
			return nil, err
		}
		if !ok || strings.TrimSpace(line) == "" {
			break
		}
		value, err := parseInt(line)
		if err != nil {
			break
		}
		waveform = append(waveform, uint16(value))
	}
	return waveform, nil
}

func (d *TextDecoder) Progress() float64 {
	return 0
}

func (d *TextDecoder) Close() error {
	d.exhausted = true
	var errs []error
	for _, f := range d.files {
		if err := f.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing channel %d file: %w", f.channel, err))
		}
	}
	d.files = nil
	return errors.Join(errs...)
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
