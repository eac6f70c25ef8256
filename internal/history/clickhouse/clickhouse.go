package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/loykin/acqsim/internal/history"
)

// Sink sends yield snapshots to ClickHouse using the official ClickHouse Go client.
type Sink struct {
	conn  driver.Conn
	table string
}

// New connects to ClickHouse at addr and creates table if it is missing.
func New(addr, table string) (*Sink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: "default",
			Username: "default",
			Password: "",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	s := &Sink{
		conn:  conn,
		table: table,
	}
	if err := s.EnsureTable(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create ClickHouse table %s: %w", table, err)
	}
	return s, nil
}

// EnsureTable creates the target table if it does not exist.
func (s *Sink) EnsureTable(ctx context.Context) error {
	return s.conn.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			type String,
			occurred_at DateTime64(6),
			run_id String,
			read_count Int64,
			alignment_coverage Float64,
			summary String
		) ENGINE = MergeTree()
		ORDER BY (run_id, occurred_at)`, s.table))
}

func (s *Sink) Name() string { return "clickhouse" }

func (s *Sink) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *Sink) Send(ctx context.Context, e history.Event) error {
	body, err := json.Marshal(e.Summary)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`INSERT INTO %s (type, occurred_at, run_id, read_count, alignment_coverage, summary) VALUES (?, ?, ?, ?, ?, ?)`, s.table)

	err = s.conn.Exec(ctx, query,
		string(e.Type),
		e.OccurredAt,
		e.RunID,
		e.Summary.ReadCount,
		e.Summary.AlignmentCoverage,
		string(body),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event into ClickHouse: %w", err)
	}

	return nil
}
