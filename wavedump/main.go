package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	wavedump "github.com/next-exp/wavedump_go/pkg"
)

var configuration wavedump.Configuration

var (
	logger         Logger
	VerbosityLevel int
)

func init() {
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	handlerStdOut := NewHandler(os.Stdout, opts)
	handlerStdErr := slog.NewJSONHandler(os.Stderr, opts)
	logger = Logger{
		InfoLog:  slog.New(handlerStdOut),
		ErrorLog: slog.New(handlerStdErr),
	}
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(),
		"Usage: %s [-config file.json] [-file-type binary|ascii] [-batch] [-pattern glob] [-format root|hdf5] <input> [output]\n",
		filepath.Base(os.Args[0]))
	flag.PrintDefaults()
}

func main() {
	os.Exit(run())
}

func run() int {
	configFilename := flag.String("config", "", "Configuration file path")
	fileType := flag.String("file-type", "", "Input file type: binary or ascii")
	batch := flag.Bool("batch", false, "Process every matching file under the input directory")
	pattern := flag.String("pattern", "", "File name pattern for batch mode")
	format := flag.String("format", "", "Output format: root or hdf5")
	flag.Usage = usage
	flag.Parse()

	var err error
	configuration, err = LoadConfiguration(*configFilename)
	if err != nil {
		message := fmt.Errorf("Error reading configuration file: %w", err)
		logger.Error(message.Error())
		return 1
	}
	if err := applyFlags(&configuration, *fileType, *batch, *pattern, *format, flag.Args()); err != nil {
		logger.Error(err.Error())
		flag.Usage()
		return 2
	}

	wavedump.SetLogger(logger)
	wavedump.SetVerbosity(configuration.Verbosity)
	VerbosityLevel = configuration.Verbosity
	if VerbosityLevel > 0 && *configFilename != "" {
		message := fmt.Sprintf("Reading configuration file: %s", *configFilename)
		logger.Info(message, "main")
	}

	channels := configuration.Channels
	if len(channels) == 0 {
		logger.Info("No channel configuration given, using default channels", "main")
		channels = wavedump.DefaultChannelConfigs()
		configuration.Channels = channels
	}
	if VerbosityLevel > 0 {
		printConfiguration(configuration, logger)
	}

	catalog, err := wavedump.OpenCatalogFromConfig(configuration)
	if err != nil {
		message := fmt.Errorf("Error opening catalog: %w", err)
		logger.Error(message.Error())
		return 1
	}
	if catalog != nil {
		defer catalog.Close()
	}

	if configuration.Batch {
		return processBatch(channels, catalog)
	}

	summary, err := wavedump.ProcessFile(configuration.FileIn, configuration.FileOut, configuration, channels, catalog)
	if err != nil {
		message := fmt.Errorf("Error processing %s: %w", configuration.FileIn, err)
		logger.Error(message.Error())
		return 1
	}
	printSummary(summary)
	return 0
}

// applyFlags overrides the configuration with the flags that were set.
func applyFlags(config *wavedump.Configuration, fileType string, batch bool, pattern string,
	format string, args []string) error {
	var err error
	if fileType != "" {
		if config.FileType, err = wavedump.ParseFileType(fileType); err != nil {
			return err
		}
	}
	if format != "" {
		if config.OutputFormat, err = wavedump.ParseOutputFormat(format); err != nil {
			return err
		}
	}
	if batch {
		config.Batch = true
	}
	if pattern != "" {
		config.Pattern = pattern
	}
	if len(args) > 2 {
		return fmt.Errorf("too many arguments: %v", args)
	}
	if len(args) > 0 {
		config.FileIn = args[0]
	}
	if len(args) > 1 {
		config.FileOut = args[1]
	}
	if config.FileIn == "" {
		return fmt.Errorf("no input given")
	}
	if config.FileOut == "" && !config.Batch {
		config.FileOut = defaultOutput(config.FileIn, config.FileType, config.OutputFormat)
	}
	return nil
}

func defaultOutput(input string, fileType wavedump.FileType, format wavedump.OutputFormat) string {
	if fileType == wavedump.ASCII {
		return filepath.Join(filepath.Dir(input), "output"+format.Extension())
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + format.Extension()
}

func processBatch(channels []wavedump.ChannelConfig, catalog *wavedump.Catalog) int {
	files, err := wavedump.FindDataFiles(configuration.FileIn, configuration.Pattern, configuration.FileType,
		configuration.OutputFormat.Extension())
	if err != nil {
		logger.Error(err.Error())
		return 1
	}
	if len(files) == 0 {
		message := fmt.Errorf("%w under %s", wavedump.ErrNoFiles, configuration.FileIn)
		logger.Error(message.Error())
		return 1
	}
	message := fmt.Sprintf("Found %d files to process", len(files))
	logger.Info(message, "batch")

	spectraDir := configuration.SpectraDir
	succeeded, failed, totalEvents := 0, 0, 0
	for _, file := range files {
		config := configuration
		if spectraDir != "" {
			stem := strings.TrimSuffix(filepath.Base(file.Output), filepath.Ext(file.Output))
			config.SpectraDir = filepath.Join(spectraDir, filepath.Base(filepath.Dir(file.Output))+"_"+stem)
		}
		summary, err := wavedump.ProcessFile(file.Input, file.Output, config, channels, catalog)
		if err != nil {
			message := fmt.Errorf("Error processing %s: %w", file.Input, err)
			logger.Error(message.Error())
			failed++
			continue
		}
		succeeded++
		totalEvents += summary.EventsProcessed
		if VerbosityLevel > 0 {
			printSummary(summary)
		}
	}

	message = fmt.Sprintf("Batch finished: %d succeeded, %d failed, %d events processed", succeeded, failed, totalEvents)
	logger.Info(message, "batch")
	if failed > 0 {
		return 1
	}
	return 0
}

func printSummary(summary wavedump.RunSummary) {
	message := fmt.Sprintf("Events read: %d, processed: %d, decode errors: %d",
		summary.EventsRead, summary.EventsProcessed, summary.DecodeErrors)
	logger.Info(message, "summary")
	for _, ch := range summary.ChannelIDs {
		cs := summary.Channels[ch]
		mean, std := cs.MeanCharge()
		message := fmt.Sprintf("ch%d: %d processed, %d missing, charge %.3f +- %.3f pC", ch, cs.Processed,
			cs.Missing, mean, std)
		logger.Info(message, "summary")
	}
}
