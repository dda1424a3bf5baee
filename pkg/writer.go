package wavedump

import (
	"errors"
	"fmt"

	hdf5 "github.com/jmbenlloch/go-hdf5"
)

type channelDatasets struct {
	channel  int
	group    *hdf5.Group
	features *hdf5.Dataset
	// rwf is created with the first non-empty waveform, its sample count is fixed from then on
	rwf      *hdf5.Dataset
	nSamples int
}

// HDF5Writer writes the run tables into /Run and the features of every
// configured channel into /ch{N}/features, optionally with the raw
// waveforms in /ch{N}/rwf.
type HDF5Writer struct {
	File             *hdf5.File
	Filename         string
	RunGroup         *hdf5.Group
	EventTable       *hdf5.Dataset
	ChannelsTable    *hdf5.Dataset
	Channels         []*channelDatasets
	WriteWaveforms   bool
	CompressionLevel int
	EvtCounter       int
}

func NewHDF5Writer(filename string, channels []ChannelConfig, writeWaveforms bool, compressionLevel int) (*HDF5Writer, error) {
	if verbosity > 0 {
		logger.Info(fmt.Sprintf("Creating file: %s", filename), "hdf5Writer")
	}
	file, err := openFile(filename)
	if err != nil {
		return nil, err
	}
	writer := &HDF5Writer{
		File:             file,
		Filename:         filename,
		WriteWaveforms:   writeWaveforms,
		CompressionLevel: compressionLevel,
	}
	if err := writer.init(channels); err != nil {
		writer.Close()
		return nil, err
	}
	return writer, nil
}

func (w *HDF5Writer) init(channels []ChannelConfig) error {
	var err error
	if w.RunGroup, err = createGroup(w.File, "Run"); err != nil {
		return err
	}
	if w.EventTable, err = createTable(w.RunGroup, "events", EventDataHDF5{}, w.CompressionLevel); err != nil {
		return err
	}
	if w.ChannelsTable, err = createTable(w.RunGroup, "channels", ChannelConfigHDF5{}, w.CompressionLevel); err != nil {
		return err
	}

	// The array MUST be allocated at creation, if not, HDF5 will panic
	configs := make([]ChannelConfigHDF5, len(channels))
	for i, c := range channels {
		window := c.ChargeWindow()
		configs[i] = ChannelConfigHDF5{
			channel:          int32(c.ChannelID()),
			polarity:         int32(c.Polarity()),
			baseline_samples: int32(c.BaselineSamples()),
			charge_method:    int32(c.ChargeMethod()),
			window_start:     int32(window[0]),
			window_end:       int32(window[1]),
			threshold:        c.Threshold(),
			cfd_fraction:     c.CFDFraction(),
		}

		groupName := fmt.Sprintf("ch%d", c.ChannelID())
		group, err := createGroup(w.File, groupName)
		if err != nil {
			return err
		}
		datasets := &channelDatasets{channel: c.ChannelID(), group: group}
		w.Channels = append(w.Channels, datasets)
		if datasets.features, err = createTable(group, "features", FeaturesHDF5{}, w.CompressionLevel); err != nil {
			return err
		}
	}
	if err := writeArrayToTable(w.ChannelsTable, &configs, 0); err != nil {
		return fmt.Errorf("error writing channel configuration: %w", err)
	}
	return nil
}

func (w *HDF5Writer) WriteEvent(result *EventResult) error {
	evtNumber := int32(result.EventCounter)
	err := writeEntryToTable(w.EventTable, EventDataHDF5{
		evt_number:   evtNumber,
		trigger_time: result.TriggerTimeTag,
		board_id:     int32(result.BoardID),
	}, w.EvtCounter)
	if err != nil {
		return fmt.Errorf("error writing event table: %w", err)
	}

	for _, datasets := range w.Channels {
		row := FeaturesHDF5{
			evt_number:     evtNumber,
			baseline_mean:  MissingChannel,
			baseline_rms:   MissingChannel,
			peak_height:    MissingChannel,
			peak_time:      MissingChannel,
			charge:         MissingChannel,
			threshold_time: MissingChannel,
			cfd_time:       MissingChannel,
		}
		if features, ok := result.Channels[datasets.channel]; ok {
			row.baseline_mean = features.BaselineMean
			row.baseline_rms = features.BaselineRMS
			row.peak_height = features.PeakHeight
			row.peak_time = features.PeakTime
			row.charge = features.Charge
			row.threshold_time = features.ThresholdTime.OrSentinel()
			row.cfd_time = features.CFDTime.OrSentinel()
		}
		if err := writeEntryToTable(datasets.features, row, w.EvtCounter); err != nil {
			return fmt.Errorf("error writing ch%d features: %w", datasets.channel, err)
		}

		if w.WriteWaveforms {
			if err := w.writeWaveform(datasets, result.Waveforms[datasets.channel]); err != nil {
				return fmt.Errorf("error writing ch%d waveform: %w", datasets.channel, err)
			}
		}
	}
	w.EvtCounter++
	return nil
}

// writeWaveform zero pads or truncates the waveform to the sample count of
// the first non-empty waveform of the channel. Rows of earlier events, and of
// events where the channel is absent, stay zero.
func (w *HDF5Writer) writeWaveform(datasets *channelDatasets, waveform []uint16) error {
	if datasets.rwf == nil {
		if len(waveform) == 0 {
			return nil
		}
		dset, err := create2dArray(datasets.group, "rwf", len(waveform), w.CompressionLevel)
		if err != nil {
			return err
		}
		datasets.rwf = dset
		datasets.nSamples = len(waveform)
	}

	// write2dArray extends the array to EvtCounter+1 rows, the skipped rows are zero filled
	data := make([]int16, datasets.nSamples)
	for i, sample := range waveform {
		if i >= datasets.nSamples {
			break
		}
		data[i] = int16(sample)
	}
	return write2dArray(datasets.rwf, &data, w.EvtCounter, datasets.nSamples)
}

func (w *HDF5Writer) Close() error {
	if verbosity > 0 {
		logger.Info(fmt.Sprintf("Closing file: %s", w.Filename), "hdf5Writer")
	}
	var errs []error

	for _, datasets := range w.Channels {
		if datasets.features != nil {
			if err := datasets.features.Close(); err != nil {
				errs = append(errs, fmt.Errorf("error closing ch%d features: %w", datasets.channel, err))
			}
		}
		if datasets.rwf != nil {
			if err := datasets.rwf.Close(); err != nil {
				errs = append(errs, fmt.Errorf("error closing ch%d waveforms: %w", datasets.channel, err))
			}
		}
		if err := datasets.group.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing ch%d group: %w", datasets.channel, err))
		}
	}
	if w.EventTable != nil {
		if err := w.EventTable.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing event table: %w", err))
		}
	}
	if w.ChannelsTable != nil {
		if err := w.ChannelsTable.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing channels table: %w", err))
		}
	}
	if w.RunGroup != nil {
		if err := w.RunGroup.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing run group: %w", err))
		}
	}
	if err := w.File.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing file: %w", err))
	}

	return errors.Join(errs...)
}
