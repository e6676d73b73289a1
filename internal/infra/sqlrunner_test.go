package infra

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"xstream/internal/sqlinline"
)

func TestExtractMarker(t *testing.T) {
	marker, body, err := extractMarker(sqlinline.QSelectIntegrationToken)
	if err != nil {
		t.Fatalf("extractMarker: %v", err)
	}
	if marker != "8a8e0d52-7f5d-4f21-8b7d-f7d4b821eed7" {
		t.Fatalf("marker = %q", marker)
	}
	if strings.Contains(body, "--sql") || !strings.Contains(body, "integration_tokens") {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestExtractMarkerRejectsUnmarkedQueries(t *testing.T) {
	for _, q := range []string{"", "select 1", "--sql nope\nselect 1", "--sql 8a8e0d52-7f5d-4f21-8b7d-f7d4b821eed7"} {
		if _, _, err := extractMarker(q); err == nil {
			t.Fatalf("extractMarker(%q) should fail", q)
		}
	}
}

type recordingExecutor struct {
	queries []string
	execErr error
	row     pgx.Row
}

func (r *recordingExecutor) Exec(_ context.Context, query string, _ ...any) (pgconn.CommandTag, error) {
	r.queries = append(r.queries, query)
	return pgconn.NewCommandTag("UPDATE 1"), r.execErr
}

func (r *recordingExecutor) QueryRow(_ context.Context, query string, _ ...any) pgx.Row {
	r.queries = append(r.queries, query)
	return r.row
}

type scanRow struct {
	value string
	err   error
}

func (s scanRow) Scan(dest ...any) error {
	if s.err != nil {
		return s.err
	}
	*(dest[0].(*string)) = s.value
	return nil
}

func TestSQLRunnerStripsMarkerAndLogsElapsed(t *testing.T) {
	var buf bytes.Buffer
	exec := &recordingExecutor{}
	runner := NewSQLRunner(exec, zerolog.New(&buf).Level(zerolog.DebugLevel))
	tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	runner.now = func() time.Time {
		tick = tick.Add(5 * time.Millisecond)
		return tick
	}

	tag, err := runner.Exec(context.Background(), sqlinline.QDeleteIntegrationToken, "gemini")
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if tag.RowsAffected() != 1 {
		t.Fatalf("rows = %d", tag.RowsAffected())
	}
	if len(exec.queries) != 1 || strings.Contains(exec.queries[0], "--sql") {
		t.Fatalf("marker not stripped: %q", exec.queries)
	}
	line := buf.String()
	if !strings.Contains(line, `"elapsed":5`) || !strings.Contains(line, `"rows":1`) {
		t.Fatalf("unexpected log line: %s", line)
	}
}

func TestSQLRunnerQueryRow(t *testing.T) {
	exec := &recordingExecutor{row: scanRow{value: "secret"}}
	runner := NewSQLRunner(exec, zerolog.Nop())

	var got string
	if err := runner.QueryRow(context.Background(), sqlinline.QSelectIntegrationToken, "gemini").Scan(&got); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if got != "secret" {
		t.Fatalf("got %q", got)
	}

	exec.row = scanRow{err: pgx.ErrNoRows}
	if err := runner.QueryRow(context.Background(), sqlinline.QSelectIntegrationToken, "gemini").Scan(&got); !IsNoRows(err) {
		t.Fatalf("err = %v, want no rows", err)
	}
}

func TestSQLRunnerRejectsUnmarkedQueries(t *testing.T) {
	exec := &recordingExecutor{execErr: errors.New("should not run")}
	runner := NewSQLRunner(exec, zerolog.Nop())
	if _, err := runner.Exec(context.Background(), "--sql nope\nselect 1"); !errors.Is(err, ErrUnmarkedQuery) {
		t.Fatalf("Exec err = %v", err)
	}
	var v string
	if err := runner.QueryRow(context.Background(), "--sql nope\nselect 1").Scan(&v); !errors.Is(err, ErrUnmarkedQuery) {
		t.Fatalf("QueryRow err = %v", err)
	}
	if len(exec.queries) != 0 {
		t.Fatalf("unmarked query reached the database: %q", exec.queries)
	}
}
