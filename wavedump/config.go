package main

import (
	"encoding/json"
	"fmt"
	"os"

	wavedump "github.com/next-exp/wavedump_go/pkg"
)

func defaultConfiguration() wavedump.Configuration {
	var config wavedump.Configuration

	// Set default values
	config.FileType = wavedump.Binary
	config.OutputFormat = wavedump.ROOT
	config.Batch = false
	config.Pattern = "*.dat"
	config.MaxEvents = 0
	config.Skip = 0
	config.Verbosity = 0
	config.NumWorkers = 1
	config.Discard = true
	config.WriteWaveforms = false
	config.CompressionLevel = 4
	config.SpectraBins = 200
	config.CatalogDriver = ""
	config.Host = "localhost"
	config.User = "wavedump"
	config.Passwd = ""
	config.DBName = "wavedump"
	return config
}

// LoadConfiguration returns the defaults when filename is empty.
func LoadConfiguration(filename string) (wavedump.Configuration, error) {
	config := defaultConfiguration()
	if filename == "" {
		return config, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = json.Unmarshal(data, &config)
	if err != nil {
		return config, err
	}
	return config, nil
}

func printConfiguration(config wavedump.Configuration, logger Logger) {
	logger.Info(fmt.Sprintf("File in: %s", config.FileIn), "config")
	logger.Info(fmt.Sprintf("File out: %s", config.FileOut), "config")
	logger.Info(fmt.Sprintf("File type: %s", config.FileType), "config")
	logger.Info(fmt.Sprintf("Output format: %s", config.OutputFormat), "config")
	logger.Info(fmt.Sprintf("Batch: %t", config.Batch), "config")
	logger.Info(fmt.Sprintf("Pattern: %s", config.Pattern), "config")
	logger.Info(fmt.Sprintf("Skip: %d", config.Skip), "config")
	logger.Info(fmt.Sprintf("Max events: %d", config.MaxEvents), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
	logger.Info(fmt.Sprintf("Discard: %t", config.Discard), "config")
	logger.Info(fmt.Sprintf("Number of workers: %d", config.NumWorkers), "config")
	logger.Info(fmt.Sprintf("Write waveforms: %t", config.WriteWaveforms), "config")
	logger.Info(fmt.Sprintf("Compression level: %d", config.CompressionLevel), "config")
	logger.Info(fmt.Sprintf("Spectra dir: %s", config.SpectraDir), "config")
	logger.Info(fmt.Sprintf("Catalog driver: %s", config.CatalogDriver), "config")
	if config.CatalogDriver == "mysql" && config.CatalogDSN == "" {
		logger.Info(fmt.Sprintf("Host: %s", config.Host), "config")
		logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
	}
	for _, ch := range config.Channels {
		logger.Info(ch.String(), "config")
	}
}
