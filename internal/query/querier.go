package query

import (
	"context"
	"fmt"
	"time"

	"GoJigsaw/internal/config"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// HeavyFlowRecord is one persisted heavy flow row.
type HeavyFlowRecord struct {
	Timestamp time.Time `json:"timestamp"`
	TaskName  string    `json:"task_name"`
	Flow      string    `json:"flow"`
	Count     uint64    `json:"count"`
}

// Querier defines the interface for querying persisted heavy flows.
type Querier interface {
	// TopFlows returns the most recent heavy flows for a task, sorted
	// by count descending. taskName may be empty to query all tasks.
	TopFlows(ctx context.Context, taskName string, limit int) ([]HeavyFlowRecord, error)
}

// clickhouseQuerier implements the Querier interface for ClickHouse.
type clickhouseQuerier struct {
	conn driver.Conn
}

// NewClickHouseQuerier creates a new querier for ClickHouse.
func NewClickHouseQuerier(cfg config.ClickHouseConfig) (Querier, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &clickhouseQuerier{conn: conn}, nil
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

func (q *clickhouseQuerier) TopFlows(ctx context.Context, taskName string, limit int) ([]HeavyFlowRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT Timestamp, TaskName, Flow, Count
		FROM heavy_flows
	`
	args := []any{}
	if taskName != "" {
		query += " WHERE TaskName = ?"
		args = append(args, taskName)
	}
	query += " ORDER BY Count DESC LIMIT ?"
	args = append(args, limit)

	rows, err := q.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var records []HeavyFlowRecord
	for rows.Next() {
		var rec HeavyFlowRecord
		if err := rows.Scan(&rec.Timestamp, &rec.TaskName, &rec.Flow, &rec.Count); err != nil {
			return nil, fmt.Errorf("failed to scan heavy flow row: %w", err)
		}
		records = append(records, rec)
	}

	return records, nil
}
