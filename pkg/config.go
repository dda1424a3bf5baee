package wavedump

import (
	"encoding/json"
	"fmt"
)

type Configuration struct {
	FileIn           string          `json:"file_in"`
	FileOut          string          `json:"file_out"`
	FileType         FileType        `json:"file_type"`
	OutputFormat     OutputFormat    `json:"output_format"`
	Batch            bool            `json:"batch"`
	Pattern          string          `json:"pattern"`
	MaxEvents        int             `json:"max_events"`
	Skip             int             `json:"skip"`
	Verbosity        int             `json:"verbosity"`
	NumWorkers       int             `json:"num_workers"`
	Discard          bool            `json:"discard"`
	WriteWaveforms   bool            `json:"write_waveforms"`
	CompressionLevel int             `json:"compression_level"`
	SpectraDir       string          `json:"spectra_dir"`
	SpectraBins      int             `json:"spectra_bins"`
	CatalogDriver    string          `json:"catalog_driver"`
	CatalogDSN       string          `json:"catalog_dsn"`
	Host             string          `json:"host"`
	User             string          `json:"user"`
	Passwd           string          `json:"pass"`
	DBName           string          `json:"dbname"`
	Channels         []ChannelConfig `json:"channels"`
}

type FileType int

const (
	Binary FileType = iota
	ASCII
)

var fileTypeStrings = []string{
	"binary",
	"ascii",
}

func (f FileType) String() string {
	if f < Binary || f > ASCII {
		return "UNKNOWN"
	}
	return fileTypeStrings[f]
}

func ParseFileType(s string) (FileType, error) {
	for i, v := range fileTypeStrings {
		if v == s {
			return FileType(i), nil
		}
	}
	return Binary, fmt.Errorf("invalid file type: %s", s)
}

func (f FileType) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

func (f *FileType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseFileType(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

type OutputFormat int

const (
	ROOT OutputFormat = iota
	HDF5
)

var outputFormatStrings = []string{
	"root",
	"hdf5",
}

var outputFormatExtensions = []string{
	".root",
	".h5",
}

func (o OutputFormat) String() string {
	if o < ROOT || o > HDF5 {
		return "UNKNOWN"
	}
	return outputFormatStrings[o]
}

// Extension returns the file extension used for output files of this format.
func (o OutputFormat) Extension() string {
	if o < ROOT || o > HDF5 {
		return ""
	}
	return outputFormatExtensions[o]
}

func ParseOutputFormat(s string) (OutputFormat, error) {
	for i, v := range outputFormatStrings {
		if v == s {
			return OutputFormat(i), nil
		}
	}
	return ROOT, fmt.Errorf("invalid output format: %s", s)
}

func (o OutputFormat) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

func (o *OutputFormat) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseOutputFormat(s)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}
