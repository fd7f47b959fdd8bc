package datarecording

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arenasim/arena/sim"
)

type sampleRow struct {
	Name  string
	Value float64
	Count int
}

func newTestRecorder(t *testing.T) (DataRecorder, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "trace")
	recorder := New(path)
	t.Cleanup(recorder.Close)

	return recorder, path + ".sqlite3"
}

func TestRecorderRoundTrip(t *testing.T) {
	recorder, dbFile := newTestRecorder(t)

	recorder.CreateTable("samples", sampleRow{})
	recorder.InsertData("samples", sampleRow{Name: "fps", Value: 59.9, Count: 1})
	recorder.InsertData("samples", sampleRow{Name: "fps", Value: 60.1, Count: 2})
	recorder.Flush()

	db, err := sql.Open("sqlite3", dbFile)
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Query("SELECT Name, Value, Count FROM samples ORDER BY Count")
	require.NoError(t, err)
	defer rows.Close()

	var got []sampleRow
	for rows.Next() {
		var r sampleRow
		require.NoError(t, rows.Scan(&r.Name, &r.Value, &r.Count))
		got = append(got, r)
	}
	require.NoError(t, rows.Err())

	require.Equal(t, []sampleRow{
		{Name: "fps", Value: 59.9, Count: 1},
		{Name: "fps", Value: 60.1, Count: 2},
	}, got)
}

func TestRecorderListTables(t *testing.T) {
	recorder, _ := newTestRecorder(t)

	recorder.CreateTable("alpha", sampleRow{})
	recorder.CreateTable("beta", sampleRow{})

	tables := recorder.ListTables()
	require.ElementsMatch(t, []string{"alpha", "beta"}, tables)
}

func TestRecorderRejectsUnsupportedFieldTypes(t *testing.T) {
	recorder, _ := newTestRecorder(t)

	type badRow struct {
		Data map[string]int
	}

	require.Panics(t, func() {
		recorder.CreateTable("bad", badRow{})
	})
}

func TestRecorderRejectsUnknownTable(t *testing.T) {
	recorder, _ := newTestRecorder(t)

	require.Panics(t, func() {
		recorder.InsertData("missing", sampleRow{})
	})
}

func TestRecorderRefusesToOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace")

	recorder := New(path)
	recorder.Close()

	require.Panics(t, func() { New(path) })
}

// captureRecorder remembers inserted entries per table without a
// database behind it.
type captureRecorder struct {
	created []string
	rows    map[string][]any
}

func newCaptureRecorder() *captureRecorder {
	return &captureRecorder{rows: make(map[string][]any)}
}

func (r *captureRecorder) CreateTable(tableName string, _ any) {
	r.created = append(r.created, tableName)
}

func (r *captureRecorder) InsertData(tableName string, entry any) {
	r.rows[tableName] = append(r.rows[tableName], entry)
}

func (r *captureRecorder) ListTables() []string { return r.created }
func (r *captureRecorder) Flush()               {}
func (r *captureRecorder) Close()               {}

func TestSimTracerCreatesTraceTables(t *testing.T) {
	recorder := newCaptureRecorder()

	NewSimTracer(recorder)

	require.ElementsMatch(t, []string{"iterations", "events"}, recorder.created)
}

func TestSimTracerRecordsIterations(t *testing.T) {
	recorder := newCaptureRecorder()
	tracer := NewSimTracer(recorder)

	engine, err := sim.NewEngine(sim.DefaultConfig(), nil)
	require.NoError(t, err)
	engine.OnIterationComplete = tracer.RecordIteration

	engine.Pause()
	require.NoError(t, engine.Start(true))
	defer engine.Stop()

	require.True(t, engine.Step())
	require.True(t, engine.Step())

	rows := recorder.rows["iterations"]
	require.Len(t, rows, 2)

	first, ok := rows[0].(IterationSample)
	require.True(t, ok)
	require.Equal(t, uint64(1), first.Iteration)

	second := rows[1].(IterationSample)
	require.Equal(t, uint64(2), second.Iteration)
	require.GreaterOrEqual(t, second.SimulationTime, first.SimulationTime)
}

func TestSimTracerRecordsDispatchedEvents(t *testing.T) {
	recorder := newCaptureRecorder()
	tracer := NewSimTracer(recorder)

	bus := sim.NewEventBus(0)
	bus.AcceptHook(tracer)

	id := bus.CreateAndPublish(
		sim.EventAgentMoved, "red_1", nil, nil, nil, sim.PriorityLow)
	require.NotEmpty(t, id)

	bus.ProcessEvents(10)

	rows := recorder.rows["events"]
	require.Len(t, rows, 1)

	record, ok := rows[0].(EventRecord)
	require.True(t, ok)
	require.Equal(t, id, record.ID)
	require.Equal(t, string(sim.EventAgentMoved), record.Type)
	require.Equal(t, int(sim.PriorityLow), record.Priority)
	require.Equal(t, "red_1", record.SourceID)
}
