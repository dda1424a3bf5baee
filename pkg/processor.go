package wavedump

import (
	"errors"
	"fmt"
	"io"
)

type ProcessorOptions struct {
	NumWorkers int
	// MaxEvents stops the run after that many processed events; 0 means no limit.
	MaxEvents int
	// Skip drops the first events of the stream after decoding them.
	Skip int
	// Discard ends the run without error on a corrupted event. Otherwise
	// the decode error is returned.
	Discard       bool
	ProgressEvery int
	KeepWaveforms bool
	SpectraBins   int
	ChargeRange   [2]float64
	PeakRange     [2]float64
}

func DefaultProcessorOptions() ProcessorOptions {
	return ProcessorOptions{
		NumWorkers:    1,
		Discard:       true,
		ProgressEvery: 1000,
		SpectraBins:   200,
		ChargeRange:   [2]float64{-10, 190},
		PeakRange:     [2]float64{0, 16384},
	}
}

// ResultWriter persists the per-event results of a run.
type ResultWriter interface {
	WriteEvent(result *EventResult) error
	Close() error
}

type Processor struct {
	channels []ChannelConfig
	opts     ProcessorOptions
}

func NewProcessor(channels []ChannelConfig, opts ProcessorOptions) (*Processor, error) {
	if len(channels) == 0 {
		return nil, errors.New("no channels configured")
	}
	seen := make(map[int]bool)
	for _, c := range channels {
		if seen[c.ChannelID()] {
			return nil, fmt.Errorf("channel %d configured twice", c.ChannelID())
		}
		seen[c.ChannelID()] = true
	}
	if opts.SpectraBins <= 0 {
		opts.SpectraBins = DefaultProcessorOptions().SpectraBins
	}
	if opts.ChargeRange[0] >= opts.ChargeRange[1] {
		opts.ChargeRange = DefaultProcessorOptions().ChargeRange
	}
	if opts.PeakRange[0] >= opts.PeakRange[1] {
		opts.PeakRange = DefaultProcessorOptions().PeakRange
	}
	return &Processor{channels: channels, opts: opts}, nil
}

func (p *Processor) Channels() []ChannelConfig {
	return p.channels
}

// Process pulls every event from the decoder in order, extracts the features
// of the configured channels and hands the results to the writers.
func (p *Processor) Process(dec EventDecoder, writers ...ResultWriter) (RunSummary, error) {
	summary := newRunSummary(p.channels, p.opts)

	for {
		if p.opts.MaxEvents > 0 && summary.EventsProcessed >= p.opts.MaxEvents {
			if verbosity > 0 {
				logger.Info("Max events reached", "processor")
			}
			break
		}

		event, err := dec.NextEvent()
		if err != nil {
			var decodeErr *DecodeError
			if errors.As(err, &decodeErr) {
				summary.DecodeErrors++
				logger.Error(fmt.Sprintf("error reading event after %d events: %v", summary.EventsRead, err))
				if p.opts.Discard {
					break
				}
				return summary, err
			}
			if errors.Is(err, io.EOF) {
				break
			}
			return summary, fmt.Errorf("error reading event: %w", err)
		}
		summary.EventsRead++

		if summary.EventsRead <= p.opts.Skip {
			if verbosity > 1 {
				message := fmt.Sprintf("Skipping event %d", event.EventCounter)
				logger.Info(message, "processor")
			}
			continue
		}

		result := p.ProcessEvent(event, &summary)
		for _, w := range writers {
			if err := w.WriteEvent(&result); err != nil {
				return summary, fmt.Errorf("error writing event %d: %w", event.EventCounter, err)
			}
		}
		summary.EventsProcessed++

		if verbosity > 1 {
			message := fmt.Sprintf("Processed event %d (%d channels)", event.EventCounter, len(result.Channels))
			logger.Info(message, "processor")
		} else if verbosity > 0 && p.opts.ProgressEvery > 0 && summary.EventsProcessed%p.opts.ProgressEvery == 0 {
			message := fmt.Sprintf("Processed %d events (%.1f%%)", summary.EventsProcessed, 100*dec.Progress())
			logger.Info(message, "processor")
		}
	}
	return summary, nil
}

// ProcessEvent extracts the features of the configured channels present in
// the event. A channel that is absent, or whose extraction fails, is left
// out of the result and counted as missing.
func (p *Processor) ProcessEvent(event RawEvent, summary *RunSummary) EventResult {
	result := EventResult{
		EventCounter:   event.EventCounter,
		TriggerTimeTag: event.TriggerTimeTag,
		BoardID:        event.BoardID,
		Channels:       make(map[int]ProcessedChannelResult),
	}
	if p.opts.KeepWaveforms {
		result.Waveforms = make(map[int][]uint16)
	}

	jobs := make([]WorkerData, 0, len(p.channels))
	for _, config := range p.channels {
		waveform, ok := event.Channels[config.ChannelID()]
		if !ok {
			continue
		}
		jobs = append(jobs, WorkerData{Config: config, Waveform: waveform})
		if p.opts.KeepWaveforms {
			result.Waveforms[config.ChannelID()] = waveform
		}
	}

	extracted := extractChannels(jobs, p.opts.NumWorkers)
	for _, config := range p.channels {
		ch := config.ChannelID()
		res, ok := extracted[ch]
		if ok && res.Err != nil {
			logger.Error(fmt.Sprintf("event %d channel %d: %v", event.EventCounter, ch, res.Err))
			ok = false
		}
		if !ok {
			if summary != nil {
				summary.Channels[ch].Missing++
			}
			continue
		}
		result.Channels[ch] = res.Result
		if summary != nil {
			summary.Channels[ch].fill(res.Result)
		}
	}
	return result
}
