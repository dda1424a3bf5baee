package wavedump

import (
	"fmt"
	"path/filepath"

	"go-hep.org/x/hep/hbook"
	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/plot/vg"
)

type ChannelSummary struct {
	ChannelID          int
	Processed          int
	Missing            int
	NoThresholdCrossed int
	NoCFDCrossed       int
	Charge             *hbook.H1D
	PeakHeight         *hbook.H1D
}

func newChannelSummary(ch int, opts ProcessorOptions) *ChannelSummary {
	return &ChannelSummary{
		ChannelID:  ch,
		Charge:     hbook.NewH1D(opts.SpectraBins, opts.ChargeRange[0], opts.ChargeRange[1]),
		PeakHeight: hbook.NewH1D(opts.SpectraBins, opts.PeakRange[0], opts.PeakRange[1]),
	}
}

func (s *ChannelSummary) fill(result ProcessedChannelResult) {
	s.Processed++
	if !result.ThresholdTime.Found {
		s.NoThresholdCrossed++
	}
	if !result.CFDTime.Found {
		s.NoCFDCrossed++
	}
	s.Charge.Fill(result.Charge, 1)
	s.PeakHeight.Fill(result.PeakHeight, 1)
}

// MeanCharge returns the mean and standard deviation of the charge, in pC.
func (s *ChannelSummary) MeanCharge() (float64, float64) {
	if s.Processed < 2 {
		return s.Charge.XMean(), 0
	}
	return s.Charge.XMean(), s.Charge.XStdDev()
}

func (s *ChannelSummary) MeanPeakHeight() float64 {
	return s.PeakHeight.XMean()
}

type RunSummary struct {
	EventsRead      int
	EventsProcessed int
	DecodeErrors    int
	ChannelIDs      []int
	Channels        map[int]*ChannelSummary
}

func newRunSummary(channels []ChannelConfig, opts ProcessorOptions) RunSummary {
	summary := RunSummary{
		Channels: make(map[int]*ChannelSummary),
	}
	for _, c := range channels {
		summary.ChannelIDs = append(summary.ChannelIDs, c.ChannelID())
		summary.Channels[c.ChannelID()] = newChannelSummary(c.ChannelID(), opts)
	}
	return summary
}

// SaveSpectra draws the charge and peak height histogram of every channel
// with entries into dir as ch{N}_charge.png and ch{N}_peak_height.png.
func (s RunSummary) SaveSpectra(dir string) error {
	for _, ch := range s.ChannelIDs {
		cs := s.Channels[ch]
		if cs.Processed == 0 {
			continue
		}
		err := savePlot(cs.Charge, fmt.Sprintf("Channel %d charge", ch), "Charge [pC]",
			filepath.Join(dir, fmt.Sprintf("ch%d_charge.png", ch)))
		if err != nil {
			return err
		}
		err = savePlot(cs.PeakHeight, fmt.Sprintf("Channel %d peak height", ch), "Peak height [ADC]",
			filepath.Join(dir, fmt.Sprintf("ch%d_peak_height.png", ch)))
		if err != nil {
			return err
		}
	}
	return nil
}

func savePlot(h *hbook.H1D, title string, xlabel string, fname string) error {
	p := hplot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = "Entries"

	hh := hplot.NewH1D(h)
	hh.Infos.Style = hplot.HInfoSummary
	p.Add(hh, hplot.NewGrid())

	if err := p.Save(15*vg.Centimeter, 10*vg.Centimeter, fname); err != nil {
		return fmt.Errorf("error saving %s: %w", fname, err)
	}
	return nil
}
