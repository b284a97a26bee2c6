package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factorykiosk/attendance/pkg/db"
)

// Shift 10:00, grace 30 (late threshold 10:30), end 17:00
var testPolicy = Policy{
	ShiftStartMinutes: 10 * 60,
	LateGraceMinutes:  30,
	ShiftEndMinutes:   17 * 60,
}

// newTestEngine fixes "now" at 2025-06-10 12:00 UTC so past/today decisions
// are deterministic
func newTestEngine() *Engine {
	e := NewEngine(testPolicy, time.UTC)
	e.Now = func() time.Time {
		return time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	}
	return e
}

func at(day, hour, minute int) int64 {
	return time.Date(2025, 6, day, hour, minute, 0, 0, time.UTC).UnixMilli()
}

func TestBuildDayRecords_FullDay(t *testing.T) {
	e := newTestEngine()
	records := e.BuildDayRecords([]db.Punch{
		{ID: 1, WorkerID: 7, Type: db.PunchIn, Timestamp: at(9, 9, 0)},
		{ID: 2, WorkerID: 7, Type: db.PunchOut, Timestamp: at(9, 17, 0)},
	})

	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, int64(7), rec.WorkerID)
	assert.Equal(t, "2025-06-09", rec.Date.Format("2006-01-02"))
	assert.Equal(t, int64(480), rec.DurationMinutes)
	assert.False(t, rec.IsLate)
	assert.False(t, rec.IsEarly)
	assert.False(t, rec.MissingOut)
	assert.False(t, rec.OrphanOut)
}

func TestBuildDayRecords_LateAndEarly(t *testing.T) {
	tests := []struct {
		name      string
		inHour    int
		inMinute  int
		outHour   int
		outMinute int
		wantLate  bool
		wantEarly bool
	}{
		{"on time", 10, 0, 17, 0, false, false},
		{"exactly at threshold", 10, 30, 17, 0, false, false},
		{"one minute past threshold", 10, 31, 17, 0, true, false},
		{"well past threshold", 11, 0, 17, 0, true, false},
		{"left early", 10, 0, 16, 0, false, true},
		{"late and early", 11, 0, 16, 30, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine()
			records := e.BuildDayRecords([]db.Punch{
				{ID: 1, WorkerID: 1, Type: db.PunchIn, Timestamp: at(9, tt.inHour, tt.inMinute)},
				{ID: 2, WorkerID: 1, Type: db.PunchOut, Timestamp: at(9, tt.outHour, tt.outMinute)},
			})
			require.Len(t, records, 1)
			assert.Equal(t, tt.wantLate, records[0].IsLate)
			assert.Equal(t, tt.wantEarly, records[0].IsEarly)
		})
	}
}

func TestBuildDayRecords_NoisyScansUseMinInMaxOut(t *testing.T) {
	e := newTestEngine()
	records := e.BuildDayRecords([]db.Punch{
		{ID: 1, WorkerID: 1, Type: db.PunchIn, Timestamp: at(9, 9, 5)},
		{ID: 2, WorkerID: 1, Type: db.PunchIn, Timestamp: at(9, 9, 0)},
		{ID: 3, WorkerID: 1, Type: db.PunchIn, Timestamp: at(9, 9, 10)},
		{ID: 4, WorkerID: 1, Type: db.PunchOut, Timestamp: at(9, 16, 50)},
		{ID: 5, WorkerID: 1, Type: db.PunchOut, Timestamp: at(9, 17, 0)},
	})

	require.Len(t, records, 1)
	rec := records[0]
	require.NotNil(t, rec.InTs)
	require.NotNil(t, rec.OutTs)
	assert.Equal(t, at(9, 9, 0), *rec.InTs)
	assert.Equal(t, at(9, 17, 0), *rec.OutTs)
	assert.Equal(t, int64(480), rec.DurationMinutes)
}

func TestBuildDayRecords_MissingOutSynthesized(t *testing.T) {
	e := newTestEngine()
	records := e.BuildDayRecords([]db.Punch{
		{ID: 1, WorkerID: 1, Type: db.PunchIn, Timestamp: at(8, 8, 0)},
	})

	require.Len(t, records, 1)
	rec := records[0]
	assert.True(t, rec.MissingOut)
	assert.True(t, rec.SyntheticOut)
	require.NotNil(t, rec.OutTs)
	assert.Equal(t, at(8, 23, 59), *rec.OutTs)
	// 08:00 to 23:59 is 959 minutes
	assert.Equal(t, int64(959), rec.DurationMinutes)
}

func TestBuildDayRecords_TodayNotSynthesized(t *testing.T) {
	e := newTestEngine()
	records := e.BuildDayRecords([]db.Punch{
		{ID: 1, WorkerID: 1, Type: db.PunchIn, Timestamp: at(10, 8, 0)},
	})

	require.Len(t, records, 1)
	rec := records[0]
	assert.Nil(t, rec.OutTs)
	assert.False(t, rec.MissingOut)
	assert.False(t, rec.SyntheticOut)
	assert.Equal(t, int64(0), rec.DurationMinutes)
}

func TestBuildDayRecords_OrphanOutFlagged(t *testing.T) {
	e := newTestEngine()
	records := e.BuildDayRecords([]db.Punch{
		{ID: 1, WorkerID: 1, Type: db.PunchOut, Timestamp: at(9, 17, 0)},
	})

	require.Len(t, records, 1)
	rec := records[0]
	assert.True(t, rec.OrphanOut)
	assert.Nil(t, rec.InTs)
	assert.Equal(t, int64(0), rec.DurationMinutes)
	assert.False(t, rec.IsLate)
	assert.False(t, rec.IsEarly)
}

func TestBuildDayRecords_PersistedAutoOutStillCountsMissing(t *testing.T) {
	e := newTestEngine()
	records := e.BuildDayRecords([]db.Punch{
		{ID: 1, WorkerID: 1, Type: db.PunchIn, Timestamp: at(8, 8, 0)},
		{ID: 2, WorkerID: 1, Type: db.PunchOut, Timestamp: at(8, 23, 59)},
	})

	require.Len(t, records, 1)
	rec := records[0]
	assert.True(t, rec.MissingOut, "a persisted 23:59:00 OUT keeps the day counted as missed")
	assert.False(t, rec.SyntheticOut, "nothing left for the catch-up pass to insert")
}

func TestBuildDayRecords_GroupsByLocalDate(t *testing.T) {
	// UTC+5:30: a punch at 18:45 UTC lands on the next local day when it is
	// past local midnight
	loc := time.FixedZone("IST", 5*3600+30*60)
	e := NewEngine(testPolicy, loc)
	e.Now = func() time.Time {
		return time.Date(2025, 6, 10, 12, 0, 0, 0, loc)
	}

	// 2025-06-08 23:50 local IN, 2025-06-09 00:30 local OUT
	in := time.Date(2025, 6, 8, 23, 50, 0, 0, loc).UnixMilli()
	out := time.Date(2025, 6, 9, 0, 30, 0, 0, loc).UnixMilli()

	records := e.BuildDayRecords([]db.Punch{
		{ID: 1, WorkerID: 1, Type: db.PunchIn, Timestamp: in},
		{ID: 2, WorkerID: 1, Type: db.PunchOut, Timestamp: out},
	})

	require.Len(t, records, 2)
	assert.Equal(t, "2025-06-08", records[0].Date.Format("2006-01-02"))
	assert.True(t, records[0].SyntheticOut, "the IN day gets a synthetic OUT")
	assert.Equal(t, "2025-06-09", records[1].Date.Format("2006-01-02"))
	assert.True(t, records[1].OrphanOut, "the after-midnight OUT is an orphan on its own day")
}

func TestPendingAutoOuts(t *testing.T) {
	e := newTestEngine()
	records := e.BuildDayRecords([]db.Punch{
		{ID: 1, WorkerID: 1, Type: db.PunchIn, Timestamp: at(8, 8, 0)},
		{ID: 2, WorkerID: 2, Type: db.PunchIn, Timestamp: at(9, 9, 0)},
		{ID: 3, WorkerID: 2, Type: db.PunchOut, Timestamp: at(9, 17, 0)},
	})

	outs := e.PendingAutoOuts(records)
	require.Len(t, outs, 1)
	assert.Equal(t, int64(1), outs[0].WorkerID)
	assert.Equal(t, at(8, 23, 59), outs[0].Timestamp)
	assert.Contains(t, outs[0].Note, "2025-06-08")
}

func TestPolicyValidate(t *testing.T) {
	assert.NoError(t, testPolicy.Validate())

	bad := Policy{ShiftStartMinutes: 17 * 60, LateGraceMinutes: 30, ShiftEndMinutes: 10 * 60}
	assert.Error(t, bad.Validate())

	noGrace := Policy{ShiftStartMinutes: 10 * 60, LateGraceMinutes: 0, ShiftEndMinutes: 17 * 60}
	assert.Error(t, noGrace.Validate())
}
