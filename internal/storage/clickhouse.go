package storage

import (
	"context"
	"fmt"
	"log"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"TrafficLens/internal/config"
	"TrafficLens/internal/model"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS traffic_records (
    Timestamp      DateTime,
    PID            UInt32,
    ProcessName    String,
    LocalInterface String,
    LocalPort      UInt16,
    RemoteAddress  String,
    RemotePort     UInt16,
    Protocol       LowCardinality(String),
    UploadBps      UInt64,
    DownloadBps    UInt64,
    SourceFile     String
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (ProcessName, Timestamp);
`

// ClickHouseWriter implements the model.RecordWriter interface for ClickHouse.
type ClickHouseWriter struct {
	conn driver.Conn
}

// NewClickHouseWriter connects to ClickHouse and ensures the record table exists.
func NewClickHouseWriter(cfg config.ClickHouseConfig) (model.RecordWriter, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(context.Background(), createTableStatement); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	log.Println("Successfully connected to ClickHouse and ensured table exists.")

	return &ClickHouseWriter{conn: conn}, nil
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: false,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

// WriteRecords batch-inserts one day's traffic records.
func (w *ClickHouseWriter) WriteRecords(ctx context.Context, records []model.TrafficRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO traffic_records")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, r := range records {
		err := batch.Append(
			r.Timestamp,
			uint32(r.PID),
			r.ProcessName,
			r.LocalInterface,
			r.LocalPort,
			r.RemoteAddress,
			r.RemotePort,
			r.Protocol,
			r.UploadBps,
			r.DownloadBps,
			r.SourceFile,
		)
		if err != nil {
			return fmt.Errorf("failed to append record to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	log.Printf("Inserted %d record(s) into ClickHouse", len(records))
	return nil
}

// Close terminates the ClickHouse connection.
func (w *ClickHouseWriter) Close() error {
	return w.conn.Close()
}
