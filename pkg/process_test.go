package wavedump

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBinaryRun(t *testing.T, fname string, n int) {
	t.Helper()
	var data []byte
	for i := 0; i < n; i++ {
		event := binaryEvent{
			boardID: 2,
			counter: uint32(i),
			ttt:     uint32(1000 * i),
			channels: map[int][]uint16{
				0: pulse(40, 200, 15, 80),
				1: pulse(40, 300, 20, 30),
			},
		}
		data = append(data, event.encode(t)...)
	}
	require.NoError(t, os.WriteFile(fname, data, 0644))
}

func TestProcessFileRoot(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "run.dat")
	output := filepath.Join(dir, "run.root")
	writeBinaryRun(t, input, 6)

	config := Configuration{
		FileType:      Binary,
		OutputFormat:  ROOT,
		NumWorkers:    2,
		Discard:       true,
		SpectraDir:    filepath.Join(dir, "spectra"),
		CatalogDriver: "sqlite",
		CatalogDSN:    filepath.Join(dir, "catalog.db"),
	}
	channels := testChannels(t, 0, 1, 4)
	catalog, err := OpenCatalogFromConfig(config)
	require.NoError(t, err)
	defer catalog.Close()

	summary, err := ProcessFile(input, output, config, channels, catalog)
	require.NoError(t, err)
	assert.Equal(t, 6, summary.EventsProcessed)
	assert.Equal(t, 6, summary.Channels[0].Processed)
	assert.Equal(t, 6, summary.Channels[4].Missing)

	rows := readTree(t, output, "Tree_ch0", "ch0_")
	require.Len(t, rows, 6)
	assert.Equal(t, int32(5), rows[5].EventNumber)
	assert.Equal(t, uint32(5000), rows[5].TriggerTime)
	assert.Equal(t, int32(2), rows[5].BoardID)
	assert.Equal(t, 80.0, rows[5].PeakHeight)
	assert.Equal(t, 15.0, rows[5].PeakTime)

	missing := readTree(t, output, "Tree_ch4", "ch4_")
	require.Len(t, missing, 6)
	assert.Equal(t, MissingChannel, missing[0].BaselineMean)

	assert.FileExists(t, filepath.Join(dir, "spectra", "ch0_charge.png"))
	assert.FileExists(t, filepath.Join(dir, "spectra", "ch1_peak_height.png"))
	assert.NoFileExists(t, filepath.Join(dir, "spectra", "ch4_charge.png"))

	runs, err := catalog.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, input, runs[0].InputFile)
	assert.Equal(t, output, runs[0].OutputFile)
	assert.Equal(t, 6, runs[0].Events)
}

func TestProcessFileMaxEvents(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "run.dat")
	writeBinaryRun(t, input, 6)

	config := Configuration{FileType: Binary, OutputFormat: ROOT, MaxEvents: 2, Skip: 1, Discard: true}
	summary, err := ProcessFile(input, filepath.Join(dir, "run.root"), config, testChannels(t, 1), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.EventsRead)
	assert.Equal(t, 2, summary.EventsProcessed)
}

func TestProcessFileMissingInput(t *testing.T) {
	dir := t.TempDir()
	config := Configuration{FileType: Binary, OutputFormat: ROOT}
	_, err := ProcessFile(filepath.Join(dir, "missing.dat"), filepath.Join(dir, "out.root"), config,
		testChannels(t, 0), nil)
	var openErr *ErrOpenFile
	assert.ErrorAs(t, err, &openErr)
	assert.NoFileExists(t, filepath.Join(dir, "out.root"))
}

func TestProcessFileTruncated(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "run.dat")
	writeBinaryRun(t, input, 3)
	data, err := os.ReadFile(input)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(input, data[:len(data)-10], 0644))

	config := Configuration{FileType: Binary, OutputFormat: ROOT, Discard: true}
	summary, err := ProcessFile(input, filepath.Join(dir, "run.root"), config, testChannels(t, 0), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.EventsProcessed)
	assert.Equal(t, 1, summary.DecodeErrors)

	config.Discard = false
	_, err = ProcessFile(input, filepath.Join(dir, "run2.root"), config, testChannels(t, 0), nil)
	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestProcessFileASCII(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"wave0.txt", "wave1.txt"} {
		writeChannelFile(t, dir, name,
			textRecord{ttt: "0x100", samples: []string{"10", "10", "10", "40", "10"}},
			textRecord{ttt: "0x200", samples: []string{"10", "10", "10", "70", "10"}},
		)
	}
	config := Configuration{FileType: ASCII, OutputFormat: ROOT, Discard: true}
	channel, err := NewChannelConfig(1, 1, 3, Fixed, Window{0, 5}, 5, 0.5)
	require.NoError(t, err)
	output := filepath.Join(dir, "output.root")

	summary, err := ProcessFile(filepath.Join(dir, "wave*.txt"), output, config, []ChannelConfig{channel}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.EventsProcessed)

	rows := readTree(t, output, "Tree_ch1", "ch1_")
	require.Len(t, rows, 2)
	assert.Equal(t, int32(1), rows[1].EventNumber)
	assert.Equal(t, uint32(0x200), rows[1].TriggerTime)
	assert.Equal(t, int32(0), rows[1].BoardID)
	assert.Equal(t, 60.0, rows[1].PeakHeight)
	assert.InDelta(t, 60*CHARGE_CONST, rows[1].Charge, 1e-12)
}
