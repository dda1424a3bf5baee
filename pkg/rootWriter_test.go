package wavedump

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rtree"
)

func readTree(t *testing.T, fname string, treeName string, prefix string) []rootRow {
	t.Helper()
	f, err := groot.Open(fname)
	require.NoError(t, err)
	defer f.Close()

	obj, err := f.Get(treeName)
	require.NoError(t, err)
	tree, ok := obj.(rtree.Tree)
	require.True(t, ok)

	var row rootRow
	rvars := []rtree.ReadVar{
		{Name: "event_number", Value: &row.EventNumber},
		{Name: "trigger_time", Value: &row.TriggerTime},
		{Name: "board_id", Value: &row.BoardID},
		{Name: prefix + "baseline_mean", Value: &row.BaselineMean},
		{Name: prefix + "baseline_rms", Value: &row.BaselineRMS},
		{Name: prefix + "peak_height", Value: &row.PeakHeight},
		{Name: prefix + "peak_time", Value: &row.PeakTime},
		{Name: prefix + "charge", Value: &row.Charge},
		{Name: prefix + "threshold_time", Value: &row.ThresholdTime},
		{Name: prefix + "cfd_time", Value: &row.CFDTime},
	}
	r, err := rtree.NewReader(tree, rvars)
	require.NoError(t, err)
	defer r.Close()

	var rows []rootRow
	err = r.Read(func(ctx rtree.RCtx) error {
		rows = append(rows, row)
		return nil
	})
	require.NoError(t, err)
	return rows
}

func TestRootWriterRoundTrip(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "out.root")
	writer, err := NewRootWriter(fname, testChannels(t, 0, 2))
	require.NoError(t, err)

	first := EventResult{
		EventCounter:   10,
		TriggerTimeTag: 555,
		BoardID:        1,
		Channels: map[int]ProcessedChannelResult{
			0: {
				BaselineMean:  100.5,
				BaselineRMS:   1.5,
				PeakHeight:    42,
				PeakTime:      17,
				Charge:        3.25,
				ThresholdTime: Crossing{Time: 15.5, Found: true},
			},
		},
	}
	second := EventResult{EventCounter: 11, TriggerTimeTag: 600, BoardID: 1,
		Channels: map[int]ProcessedChannelResult{
			2: {PeakHeight: 7, CFDTime: Crossing{Time: 3.5, Found: true}},
		},
	}
	require.NoError(t, writer.WriteEvent(&first))
	require.NoError(t, writer.WriteEvent(&second))
	require.NoError(t, writer.Close())

	ch0 := readTree(t, fname, "Tree_ch0", "ch0_")
	require.Len(t, ch0, 2)
	assert.Equal(t, rootRow{
		EventNumber:   10,
		TriggerTime:   555,
		BoardID:       1,
		BaselineMean:  100.5,
		BaselineRMS:   1.5,
		PeakHeight:    42,
		PeakTime:      17,
		Charge:        3.25,
		ThresholdTime: 15.5,
		CFDTime:       NoCrossing,
	}, ch0[0])
	assert.Equal(t, int32(11), ch0[1].EventNumber)
	assert.Equal(t, MissingChannel, ch0[1].Charge)
	assert.Equal(t, MissingChannel, ch0[1].CFDTime)

	ch2 := readTree(t, fname, "Tree_ch2", "ch2_")
	require.Len(t, ch2, 2)
	assert.Equal(t, MissingChannel, ch2[0].PeakHeight)
	assert.Equal(t, 7.0, ch2[1].PeakHeight)
	assert.Equal(t, NoCrossing, ch2[1].ThresholdTime)
	assert.Equal(t, 3.5, ch2[1].CFDTime)
}
