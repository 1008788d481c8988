package recorder_test

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/tlscontrol-oss/entity"
	"github.com/tsinghua-fib-lab/tlscontrol-oss/output/recorder"
	_ "modernc.org/sqlite"
)

func TestRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.db")
	r, err := recorder.New(path, "run-1")
	require.NoError(t, err)

	require.NoError(t, r.Record(0, nil))
	require.NoError(t, r.Record(1, entity.Decision{
		"b": {PhaseID: 2, Duration: 22.7},
		"a": {PhaseID: 0, Duration: 8.7},
	}))
	require.NoError(t, r.Record(2, entity.Decision{
		"a": {PhaseID: 2, Duration: 70},
	}))
	require.NoError(t, r.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM decisions WHERE run_id = ?`, "run-1",
	).Scan(&count))
	assert.Equal(t, 3, count)

	rows, err := db.Query(
		`SELECT step, tls_id, phase_id, duration FROM decisions ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()

	type row struct {
		step     int32
		tlsID    string
		phaseID  int
		duration float64
	}
	var got []row
	for rows.Next() {
		var r row
		require.NoError(t, rows.Scan(&r.step, &r.tlsID, &r.phaseID, &r.duration))
		got = append(got, r)
	}
	require.NoError(t, rows.Err())
	// 同一step内按tls id排序写入
	assert.Equal(t, []row{
		{1, "a", 0, 8.7},
		{1, "b", 2, 22.7},
		{2, "a", 2, 70},
	}, got)
}

func TestRecordSeparateRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.db")
	decision := entity.Decision{"a": {PhaseID: 0, Duration: 8.7}}

	r1, err := recorder.New(path, "run-1")
	require.NoError(t, err)
	require.NoError(t, r1.Record(0, decision))
	require.NoError(t, r1.Close())

	r2, err := recorder.New(path, "run-2")
	require.NoError(t, err)
	require.NoError(t, r2.Record(0, decision))
	require.NoError(t, r2.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM decisions WHERE run_id = ?`, "run-2",
	).Scan(&count))
	assert.Equal(t, 1, count)
}
