package wavedump

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractChannelsMatchesSerial(t *testing.T) {
	var jobs []WorkerData
	for ch := 0; ch < 8; ch++ {
		config, err := NewChannelConfig(ch, 1, 5, Dynamic, Window{3, 5}, 4, 0.5)
		require.NoError(t, err)
		waveform := make([]uint16, 40)
		for i := range waveform {
			waveform[i] = 100
		}
		waveform[10+ch] = uint16(200 + 10*ch)
		jobs = append(jobs, WorkerData{Config: config, Waveform: waveform})
	}

	serial := extractChannels(jobs, 1)
	parallel := extractChannels(jobs, 4)
	require.Len(t, parallel, 8)
	assert.Equal(t, serial, parallel)
	for ch := 0; ch < 8; ch++ {
		res := parallel[ch]
		assert.Equal(t, ch, res.ChannelID)
		assert.NoError(t, res.Err)
		assert.Equal(t, float64(10+ch), res.Result.PeakTime)
	}
}

func TestExtractChannelsReportsErrors(t *testing.T) {
	config, err := NewChannelConfig(2, 1, 5, Fixed, Window{0, 5}, 4, 0.5)
	require.NoError(t, err)
	results := extractChannels([]WorkerData{{Config: config}}, 2)
	require.Contains(t, results, 2)
	assert.ErrorIs(t, results[2].Err, ErrEmptyWaveform)
}

func TestExtractChannelsNoJobs(t *testing.T) {
	assert.Empty(t, extractChannels(nil, 4))
}
