package wavedump

import (
	"errors"
	"fmt"

	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/riofs"
	"go-hep.org/x/hep/groot/rtree"
)

// rootRow is the content of one entry of a Tree_ch{N} tree.
type rootRow struct {
	EventNumber   int32
	TriggerTime   uint32
	BoardID       int32
	BaselineMean  float64
	BaselineRMS   float64
	PeakHeight    float64
	PeakTime      float64
	Charge        float64
	ThresholdTime float64
	CFDTime       float64
}

type rootTree struct {
	channel int
	row     *rootRow
	writer  rtree.Writer
}

// RootWriter writes one TTree per configured channel, Tree_ch{N}, with
// ch{N}_-prefixed branches for every feature.
type RootWriter struct {
	File       *riofs.File
	Filename   string
	Trees      []*rootTree
	EvtCounter int
}

func NewRootWriter(filename string, channels []ChannelConfig) (*RootWriter, error) {
	if verbosity > 0 {
		logger.Info(fmt.Sprintf("Creating file: %s", filename), "rootWriter")
	}
	file, err := groot.Create(filename)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}

	writer := &RootWriter{File: file, Filename: filename}
	for _, c := range channels {
		ch := c.ChannelID()
		row := &rootRow{}
		prefix := fmt.Sprintf("ch%d_", ch)
		wvars := []rtree.WriteVar{
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
		treeName := fmt.Sprintf("Tree_ch%d", ch)
		tw, err := rtree.NewWriter(file, treeName, wvars)
		if err != nil {
			writer.Close()
			return nil, &ErrCreateTable{TableName: treeName, Err: err}
		}
		writer.Trees = append(writer.Trees, &rootTree{channel: ch, row: row, writer: tw})
	}
	return writer, nil
}

func (w *RootWriter) WriteEvent(result *EventResult) error {
	for _, tree := range w.Trees {
		row := tree.row
		row.EventNumber = int32(result.EventCounter)
		row.TriggerTime = result.TriggerTimeTag
		row.BoardID = int32(result.BoardID)

		features, ok := result.Channels[tree.channel]
		if ok {
			row.BaselineMean = features.BaselineMean
			row.BaselineRMS = features.BaselineRMS
			row.PeakHeight = features.PeakHeight
			row.PeakTime = features.PeakTime
			row.Charge = features.Charge
			row.ThresholdTime = features.ThresholdTime.OrSentinel()
			row.CFDTime = features.CFDTime.OrSentinel()
		} else {
			row.BaselineMean = MissingChannel
			row.BaselineRMS = MissingChannel
			row.PeakHeight = MissingChannel
			row.PeakTime = MissingChannel
			row.Charge = MissingChannel
			row.ThresholdTime = MissingChannel
			row.CFDTime = MissingChannel
		}
		if _, err := tree.writer.Write(); err != nil {
			return fmt.Errorf("error writing Tree_ch%d entry %d: %w", tree.channel, w.EvtCounter, err)
		}
	}
	w.EvtCounter++
	return nil
}

func (w *RootWriter) Close() error {
	if verbosity > 0 {
		logger.Info(fmt.Sprintf("Closing file: %s", w.Filename), "rootWriter")
	}
	var errs []error
	for _, tree := range w.Trees {
		if err := tree.writer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing Tree_ch%d: %w", tree.channel, err))
		}
	}
	if err := w.File.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing file: %w", err))
	}
	return errors.Join(errs...)
}
