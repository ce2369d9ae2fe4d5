package jigsaw

import (
	"context"
	"fmt"
	"log"
	"time"

	"GoJigsaw/internal/config"
	"GoJigsaw/internal/model"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

const createHeavyFlowsTableStatement = `
CREATE TABLE IF NOT EXISTS heavy_flows (
    Timestamp   DateTime,
    TaskName    String,
    Flow        String,
    Count       UInt64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (TaskName, Timestamp);
`

// ClickHouseWriter implements the model.Writer interface for ClickHouse.
type ClickHouseWriter struct {
	conn     driver.Conn
	interval time.Duration
}

// NewClickHouseWriter creates a new ClickHouse writer for heavy flows.
func NewClickHouseWriter(cfg config.ClickHouseConfig, interval time.Duration) (model.Writer, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(context.Background(), createHeavyFlowsTableStatement); err != nil {
		return nil, fmt.Errorf("failed to create heavy_flows table: %w", err)
	}
	log.Println("Successfully connected to ClickHouse and ensured heavy_flows table exists.")

	return &ClickHouseWriter{conn: conn, interval: interval}, nil
}

func (w *ClickHouseWriter) GetInterval() time.Duration {
	return w.interval
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
	})

	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

func (w *ClickHouseWriter) Write(payload any, timestamp string) error {
	snapshot, ok := payload.(HeavySnapshot)
	if !ok {
		return fmt.Errorf("invalid payload type for ClickHouse Writer: expected jigsaw.HeavySnapshot, got %T", payload)
	}

	batch, err := w.conn.PrepareBatch(context.Background(), "INSERT INTO heavy_flows")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	snapshotTime, _ := time.Parse("2006-01-02_15-04-05", timestamp)

	for _, flow := range snapshot.Flows {
		if err := batch.Append(snapshotTime, snapshot.TaskName, flow.Flow, uint64(flow.Count)); err != nil {
			return fmt.Errorf("failed to append heavy flow to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Printf("Wrote %d heavy flows to ClickHouse", len(snapshot.Flows))
	return nil
}
