package wavedump

import (
	"errors"
	"fmt"
	"os"
	"time"
)

func (c Configuration) ProcessorOptions() ProcessorOptions {
	opts := DefaultProcessorOptions()
	opts.NumWorkers = c.NumWorkers
	opts.MaxEvents = c.MaxEvents
	opts.Skip = c.Skip
	opts.Discard = c.Discard
	opts.KeepWaveforms = c.WriteWaveforms && c.OutputFormat == HDF5
	if c.SpectraBins > 0 {
		opts.SpectraBins = c.SpectraBins
	}
	return opts
}

func NewResultWriter(output string, config Configuration, channels []ChannelConfig) (ResultWriter, error) {
	switch config.OutputFormat {
	case ROOT:
		return NewRootWriter(output, channels)
	case HDF5:
		return NewHDF5Writer(output, channels, config.WriteWaveforms, config.CompressionLevel)
	default:
		return nil, fmt.Errorf("unknown output format: %v", config.OutputFormat)
	}
}

// ProcessFile decodes input, writes the features of the configured channels
// to output and, when a catalog is given, records the run.
func ProcessFile(input string, output string, config Configuration, channels []ChannelConfig,
	catalog *Catalog) (summary RunSummary, err error) {
	started := time.Now()

	processor, err := NewProcessor(channels, config.ProcessorOptions())
	if err != nil {
		return summary, err
	}

	dec, err := OpenDecoder(input, config.FileType)
	if err != nil {
		return summary, err
	}
	defer func() {
		if closeErr := dec.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("error closing input: %w", closeErr))
		}
	}()

	writer, err := NewResultWriter(output, config, channels)
	if err != nil {
		return summary, err
	}

	summary, err = processor.Process(dec, writer)
	if closeErr := writer.Close(); closeErr != nil {
		err = errors.Join(err, fmt.Errorf("error closing output: %w", closeErr))
	}
	if err != nil {
		return summary, err
	}

	if config.SpectraDir != "" {
		if err := os.MkdirAll(config.SpectraDir, 0755); err != nil {
			return summary, fmt.Errorf("error creating spectra directory: %w", err)
		}
		if err := summary.SaveSpectra(config.SpectraDir); err != nil {
			return summary, err
		}
	}

	if catalog != nil {
		run := NewRunRecord(input, output, config.FileType, started)
		if err := catalog.RecordRun(run, summary, time.Now()); err != nil {
			return summary, err
		}
	}

	if verbosity > 0 {
		message := fmt.Sprintf("Completed %s: %d events processed in %d ms", input, summary.EventsProcessed,
			time.Since(started).Milliseconds())
		logger.Info(message, "process")
	}
	return summary, nil
}
