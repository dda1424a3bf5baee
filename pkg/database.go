package wavedump

import (
	"fmt"
	"math"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	sqlx "github.com/jmoiron/sqlx" //make alias name the package to sqlx
	_ "modernc.org/sqlite"
)

var catalogSchema = []string{`
CREATE TABLE IF NOT EXISTS runs (
	run_id       VARCHAR(36) PRIMARY KEY,
	input_file   TEXT NOT NULL,
	output_file  TEXT NOT NULL,
	file_type    VARCHAR(16) NOT NULL,
	events_read  INTEGER NOT NULL,
	events       INTEGER NOT NULL,
	decode_errors INTEGER NOT NULL,
	started_at   VARCHAR(40) NOT NULL,
	finished_at  VARCHAR(40) NOT NULL
)`, `
CREATE TABLE IF NOT EXISTS channel_summaries (
	run_id           VARCHAR(36) NOT NULL,
	channel_id       INTEGER NOT NULL,
	processed        INTEGER NOT NULL,
	missing          INTEGER NOT NULL,
	no_threshold     INTEGER NOT NULL,
	no_cfd           INTEGER NOT NULL,
	mean_charge      DOUBLE PRECISION NOT NULL,
	std_charge       DOUBLE PRECISION NOT NULL,
	mean_peak_height DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, channel_id)
)`,
}

type RunRecord struct {
	RunID      string `db:"run_id"`
	InputFile  string `db:"input_file"`
	OutputFile string `db:"output_file"`
	FileType   string `db:"file_type"`
	EventsRead int    `db:"events_read"`
	Events     int    `db:"events"`
	Errors     int    `db:"decode_errors"`
	StartedAt  string `db:"started_at"`
	FinishedAt string `db:"finished_at"`
}

type ChannelSummaryRecord struct {
	RunID          string  `db:"run_id"`
	ChannelID      int     `db:"channel_id"`
	Processed      int     `db:"processed"`
	Missing        int     `db:"missing"`
	NoThreshold    int     `db:"no_threshold"`
	NoCFD          int     `db:"no_cfd"`
	MeanCharge     float64 `db:"mean_charge"`
	StdCharge      float64 `db:"std_charge"`
	MeanPeakHeight float64 `db:"mean_peak_height"`
}

// Catalog keeps a record of every processed file and the per-channel
// statistics of its run.
type Catalog struct {
	db *sqlx.DB
}

func ConnectToDatabase(user string, pass string, host string, dbname string) (*sqlx.DB, error) {
	port := "3306"
	dbURI := fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)
	db, err := sqlx.Connect("mysql", dbURI)
	return db, err
}

// OpenCatalog connects to a sqlite database file or a mysql DSN and
// creates the tables if needed.
func OpenCatalog(driver string, dsn string) (*Catalog, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error connecting to %s catalog: %w", driver, err)
	}
	return newCatalog(db)
}

func newCatalog(db *sqlx.DB) (*Catalog, error) {
	for _, statement := range catalogSchema {
		if _, err := db.Exec(statement); err != nil {
			db.Close()
			return nil, fmt.Errorf("error creating catalog tables: %w", err)
		}
	}
	return &Catalog{db: db}, nil
}

// OpenCatalogFromConfig uses CatalogDSN if set, otherwise the mysql
// credentials of the configuration. An empty driver disables the catalog.
func OpenCatalogFromConfig(config Configuration) (*Catalog, error) {
	switch config.CatalogDriver {
	case "":
		return nil, nil
	case "mysql":
		if config.CatalogDSN != "" {
			return OpenCatalog("mysql", config.CatalogDSN)
		}
		db, err := ConnectToDatabase(config.User, config.Passwd, config.Host, config.DBName)
		if err != nil {
			return nil, fmt.Errorf("error connecting to database: %w", err)
		}
		return newCatalog(db)
	default:
		return OpenCatalog(config.CatalogDriver, config.CatalogDSN)
	}
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

func NewRunRecord(input string, output string, fileType FileType, started time.Time) RunRecord {
	return RunRecord{
		RunID:      uuid.NewString(),
		InputFile:  input,
		OutputFile: output,
		FileType:   fileType.String(),
		StartedAt:  started.UTC().Format(time.RFC3339),
	}
}

// finite maps the NaN of an empty histogram to 0 for storage.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// RecordRun stores the run and one row per channel in a single transaction.
func (c *Catalog) RecordRun(run RunRecord, summary RunSummary, finished time.Time) error {
	run.EventsRead = summary.EventsRead
	run.Events = summary.EventsProcessed
	run.Errors = summary.DecodeErrors
	run.FinishedAt = finished.UTC().Format(time.RFC3339)

	tx, err := c.db.Beginx()
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExec(`INSERT INTO runs (run_id, input_file, output_file, file_type, events_read, events, decode_errors, started_at, finished_at)
		VALUES (:run_id, :input_file, :output_file, :file_type, :events_read, :events, :decode_errors, :started_at, :finished_at)`, run)
	if err != nil {
		return fmt.Errorf("error inserting run: %w", err)
	}

	for _, ch := range summary.ChannelIDs {
		cs := summary.Channels[ch]
		meanCharge, stdCharge := cs.MeanCharge()
		record := ChannelSummaryRecord{
			RunID:          run.RunID,
			ChannelID:      ch,
			Processed:      cs.Processed,
			Missing:        cs.Missing,
			NoThreshold:    cs.NoThresholdCrossed,
			NoCFD:          cs.NoCFDCrossed,
			MeanCharge:     finite(meanCharge),
			StdCharge:      finite(stdCharge),
			MeanPeakHeight: finite(cs.MeanPeakHeight()),
		}
		_, err = tx.NamedExec(`INSERT INTO channel_summaries (run_id, channel_id, processed, missing, no_threshold, no_cfd, mean_charge, std_charge, mean_peak_height)
			VALUES (:run_id, :channel_id, :processed, :missing, :no_threshold, :no_cfd, :mean_charge, :std_charge, :mean_peak_height)`, record)
		if err != nil {
			return fmt.Errorf("error inserting channel %d summary: %w", ch, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing run: %w", err)
	}
	if verbosity > 0 {
		message := fmt.Sprintf("Run %s recorded in catalog", run.RunID)
		logger.Info(message, "database")
	}
	return nil
}

func (c *Catalog) Runs() ([]RunRecord, error) {
	var runs []RunRecord
	if err := c.db.Select(&runs, "SELECT * FROM runs ORDER BY started_at, run_id"); err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	return runs, nil
}

func (c *Catalog) ChannelSummaries(runID string) ([]ChannelSummaryRecord, error) {
	var records []ChannelSummaryRecord
	query := c.db.Rebind("SELECT * FROM channel_summaries WHERE run_id = ? ORDER BY channel_id")
	if err := c.db.Select(&records, query, runID); err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	return records, nil
}
