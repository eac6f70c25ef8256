package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/clickhouse"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/loykin/acqsim/internal/history"
	"github.com/loykin/acqsim/internal/yield"
)

// setupClickHouseContainer starts a ClickHouse container for testing
func setupClickHouseContainer(ctx context.Context, t *testing.T) (testcontainers.Container, string) {
	t.Helper()

	clickHouseContainer, err := clickhouse.Run(ctx,
		"clickhouse/clickhouse-server:24.3.2.23",
		clickhouse.WithUsername("default"),
		clickhouse.WithPassword(""),
		clickhouse.WithDatabase("default"),
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/ping").
				WithPort("8123/tcp").
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Skipf("ClickHouse container unavailable: %v", err)
	}

	host, err := clickHouseContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := clickHouseContainer.MappedPort(ctx, "9000")
	if err != nil {
		t.Fatalf("Failed to get mapped port: %v", err)
	}

	return clickHouseContainer, host + ":" + port.Port()
}

func TestClickHouseSink_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()

	container, addr := setupClickHouseContainer(ctx, t)
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate ClickHouse container: %v", err)
		}
	}()

	sink, err := New(addr, "yield_history_test")
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}
	defer func() { _ = sink.Close() }()

	var acc yield.Accumulator
	for _, r := range []int{99, 98} {
		if err := acc.Tick(r); err != nil {
			t.Fatal(err)
		}
		evt := history.Event{Type: history.EventTick, OccurredAt: time.Now().UTC(), RunID: "ch-run", Summary: acc.Snapshot()}
		if err := sink.Send(ctx, evt); err != nil {
			t.Fatalf("Failed to send event: %v", err)
		}
	}

	var count uint64
	row := sink.conn.QueryRow(ctx, "SELECT count() FROM yield_history_test WHERE run_id = ?", "ch-run")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 rows, got %d", count)
	}
}

func TestClickHouseSink_FromDSNCreatesTable(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()

	container, addr := setupClickHouseContainer(ctx, t)
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate ClickHouse container: %v", err)
		}
	}()

	// A fresh sink must be able to write without any extra setup call.
	sink, err := New(addr, "yield_history_fresh")
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}
	defer func() { _ = sink.Close() }()

	var acc yield.Accumulator
	if err := acc.Tick(95); err != nil {
		t.Fatal(err)
	}
	evt := history.Event{Type: history.EventTick, OccurredAt: time.Now().UTC(), RunID: "fresh", Summary: acc.Snapshot()}
	if err := sink.Send(ctx, evt); err != nil {
		t.Fatalf("Send on a new sink failed: %v", err)
	}

	// Reopening the same table is a no-op.
	again, err := New(addr, "yield_history_fresh")
	if err != nil {
		t.Fatalf("Failed to reopen sink: %v", err)
	}
	_ = again.Close()
}
