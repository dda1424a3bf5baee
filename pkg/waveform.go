package wavedump

import (
	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Converts ADC counts in millivolts into picocoulombs: 1e-3 V/mV and
// 1e12 pC/C over a 50 Ohm input sampled at 500 MS/s.
const (
	WAVEFORM_UNITS = 1e-3
	CHARGE_UNITS   = 1e12
	IMPEDANCE      = 50.0
	SAMPLE_RATE    = 500e6
	CHARGE_CONST   = WAVEFORM_UNITS * CHARGE_UNITS / (IMPEDANCE * SAMPLE_RATE)
)

func toFloat64[T constraints.Integer | constraints.Float](values []T) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}

// ExtractFeatures computes the pulse parameters of one waveform.
// It has no side effects and can run concurrently for different channels.
func ExtractFeatures(waveform []uint16, config ChannelConfig) (ProcessedChannelResult, error) {
	if len(waveform) == 0 {
		return ProcessedChannelResult{}, ErrEmptyWaveform
	}
	raw := toFloat64(waveform)

	baselineMean, baselineRMS := CalculateBaseline(raw, config.BaselineSamples())
	corrected := CorrectPolarity(raw, baselineMean, config.Polarity())
	peakIdx, peakHeight := FindPeak(corrected)

	return ProcessedChannelResult{
		BaselineMean:  baselineMean,
		BaselineRMS:   baselineRMS,
		PeakHeight:    peakHeight,
		PeakTime:      float64(peakIdx),
		Charge:        CalculateCharge(corrected, peakIdx, config.ChargeMethod(), config.ChargeWindow()),
		ThresholdTime: FindCrossing(corrected, config.Threshold()),
		CFDTime:       FindCrossing(corrected, peakHeight*config.CFDFraction()),
	}, nil
}

// CalculateBaseline returns the mean and population standard deviation of
// the first nSamples samples, or of the whole waveform if it is shorter.
func CalculateBaseline(waveform []float64, nSamples int) (float64, float64) {
	if nSamples > len(waveform) {
		nSamples = len(waveform)
	}
	return stat.PopMeanStdDev(waveform[:nSamples], nil)
}

// CorrectPolarity subtracts the baseline and flips negative pulses so that
// every pulse is a positive excursion.
func CorrectPolarity(waveform []float64, baseline float64, polarity int) []float64 {
	corrected := make([]float64, len(waveform))
	copy(corrected, waveform)
	floats.AddConst(-baseline, corrected)
	floats.Scale(float64(polarity), corrected)
	return corrected
}

// FindPeak returns the index and value of the maximum. The first index wins on ties.
func FindPeak(waveform []float64) (int, float64) {
	idx := floats.MaxIdx(waveform)
	return idx, waveform[idx]
}

// ChargeWindowBounds returns the [start, end) integration range clipped to the waveform.
func ChargeWindowBounds(length int, peakIdx int, method ChargeMethod, window Window) (int, int) {
	var start, end int
	switch method {
	case Fixed:
		start, end = window[0], window[1]
	case Dynamic:
		start, end = peakIdx-window[0], peakIdx+window[1]
	}
	start = min(max(start, 0), length)
	end = min(max(end, 0), length)
	if end < start {
		end = start
	}
	return start, end
}

func CalculateCharge(waveform []float64, peakIdx int, method ChargeMethod, window Window) float64 {
	start, end := ChargeWindowBounds(len(waveform), peakIdx, method, window)
	return floats.Sum(waveform[start:end]) * CHARGE_CONST
}

// FindCrossing returns the interpolated index where the waveform first goes
// above level. A crossing on the first sample is reported at 0.
func FindCrossing(waveform []float64, level float64) Crossing {
	for i, y2 := range waveform {
		if !(y2 > level) {
			continue
		}
		if i == 0 {
			return Crossing{Time: 0, Found: true}
		}
		y1 := waveform[i-1]
		// y1 <= level < y2 makes the slope non-zero; the check only guards
		// against non-finite samples
		if y2 == y1 {
			return Crossing{}
		}
		return Crossing{Time: float64(i-1) + (level-y1)/(y2-y1), Found: true}
	}
	return Crossing{}
}
