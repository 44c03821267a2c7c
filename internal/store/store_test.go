package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aircore/internal/ir"
	"github.com/roach88/aircore/internal/testutil"
)

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("synchronous", "1"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")

	s1, err := Open(path)
	require.NoError(t, err)
	chargingRecording(t, s1, "rec-1")
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	recs, err := s2.ListRecordings(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.db")

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.db.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}

func TestOpenMemory(t *testing.T) {
	s, err := OpenMemory()
	require.NoError(t, err)
	defer s.Close()

	chargingRecording(t, s, "mem")
	rec, err := s.ReadRecording(context.Background(), "mem")
	require.NoError(t, err)
	assert.Equal(t, "charging", rec.Name)
}

func TestWriteReadRecording(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	written := chargingRecording(t, s, "rec-1")

	want, err := ir.ConfigHash(testutil.ChargingConfig())
	require.NoError(t, err)
	assert.Equal(t, want, written.ConfigHash)

	rec, err := s.ReadRecording(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "rec-1", rec.ID)
	assert.Equal(t, "charging", rec.Name)
	assert.Equal(t, want, rec.ConfigHash)
	assert.Equal(t, 0.5, rec.Step)
	assert.Equal(t, int64(1), rec.Seq)

	require.Len(t, rec.Config.Variables, 5)
	assert.Equal(t, "elec.charge_rate", rec.Config.Variables[0].Name)
	assert.Equal(t, ir.SourceHost, rec.Config.Variables[0].Source)
	require.Len(t, rec.Config.Systems, 2)
	assert.Equal(t, testutil.ChargingConfig().Systems[1].Ports, rec.Config.Systems[1].Ports)

	again, err := ir.ConfigHash(rec.Config)
	require.NoError(t, err)
	assert.Equal(t, want, again)
}

func TestWriteRecording_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	chargingRecording(t, s, "rec-1")

	dup := &Recording{ID: "rec-1", Name: "other", Config: testutil.ChargingConfig(), Seq: 7}
	require.NoError(t, s.WriteRecording(ctx, dup))

	rec, err := s.ReadRecording(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "charging", rec.Name)
}

func TestWriteRecording_DifferentConfigConflicts(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	chargingRecording(t, s, "rec-1")

	other := testutil.ChargingConfig()
	other.Systems[0].Params = map[string]float64{"capacity": 50}
	err := s.WriteRecording(ctx, &Recording{ID: "rec-1", Name: "charging", Config: other, Seq: 9})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)

	rec, err := s.ReadRecording(ctx, "rec-1")
	require.NoError(t, err)
	want, err := ir.ConfigHash(testutil.ChargingConfig())
	require.NoError(t, err)
	assert.Equal(t, want, rec.ConfigHash)
}

func TestWriteRecording_RequiresConfig(t *testing.T) {
	s := createTestStore(t)
	err := s.WriteRecording(context.Background(), &Recording{ID: "x"})
	require.Error(t, err)
}

func TestReadRecording_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadRecording(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.LatestRecording(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRecordings_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	chargingRecording(t, s, "b")
	chargingRecording(t, s, "a")
	chargingRecording(t, s, "c")

	recs, err := s.ListRecordings(ctx)
	require.NoError(t, err)
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"b", "a", "c"}, ids)

	latest, err := s.LatestRecording(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c", latest.ID)
	assert.Equal(t, int64(3), latest.Seq)
}

func TestWriteReadTicks(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	rec := chargingRecording(t, s, "rec-1")

	tick1 := &TickRecord{
		Tick:    1,
		DT:      0.5,
		Inputs:  map[string]ir.Value{"elec.charge_rate": ir.Real(10)},
		Outputs: map[string]ir.Value{"elec.level": ir.Real(5), "elec.saturated": ir.Bool(false)},
	}
	tick2 := &TickRecord{
		Tick:    2,
		DT:      0.5,
		Outputs: map[string]ir.Value{"elec.level": ir.Real(0.1)},
		Faults:  []Fault{{Class: ir.ClassRuntime, Code: ir.ErrCodeDegradedUpdate, System: "bus", Message: "held"}},
	}
	require.NoError(t, s.WriteTick(ctx, rec.ID, tick2))
	require.NoError(t, s.WriteTick(ctx, rec.ID, tick1))
	assert.Len(t, tick1.OutputHash, 64)

	ticks, err := s.ReadTicks(ctx, rec)
	require.NoError(t, err)
	require.Len(t, ticks, 2)

	assert.Equal(t, uint64(1), ticks[0].Tick)
	assert.Equal(t, 0.5, ticks[0].DT)
	assert.True(t, ticks[0].Inputs["elec.charge_rate"].Equal(ir.Real(10)))
	assert.True(t, ticks[0].Outputs["elec.level"].Equal(ir.Real(5)))
	assert.True(t, ticks[0].Outputs["elec.saturated"].Equal(ir.Bool(false)))
	assert.Empty(t, ticks[0].Faults)
	assert.Equal(t, tick1.OutputHash, ticks[0].OutputHash)

	assert.Empty(t, ticks[1].Inputs)
	assert.True(t, ticks[1].Outputs["elec.level"].Equal(ir.Real(0.1)))
	assert.Equal(t, tick2.Faults, ticks[1].Faults)
}

func TestWriteTick_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	rec := chargingRecording(t, s, "rec-1")

	tr := &TickRecord{Tick: 1, DT: 0.5}
	require.NoError(t, s.WriteTick(ctx, rec.ID, tr))
	require.NoError(t, s.WriteTick(ctx, rec.ID, tr))

	n, err := s.CountTicks(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWriteTick_DifferentTickConflicts(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	rec := chargingRecording(t, s, "rec-1")

	first := &TickRecord{Tick: 1, DT: 0.5, Outputs: map[string]ir.Value{"elec.level": ir.Real(5)}}
	require.NoError(t, s.WriteTick(ctx, rec.ID, first))

	level := map[string]ir.Value{"elec.level": ir.Real(5)}
	tests := []struct {
		name string
		tick *TickRecord
	}{
		{"outputs", &TickRecord{Tick: 1, DT: 0.5, Outputs: map[string]ir.Value{"elec.level": ir.Real(10)}}},
		{"dt", &TickRecord{Tick: 1, DT: 0.25, Outputs: level}},
		{"inputs", &TickRecord{Tick: 1, DT: 0.5, Inputs: map[string]ir.Value{"elec.charge_rate": ir.Real(20)}, Outputs: level}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.WriteTick(ctx, rec.ID, tt.tick)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConflict)
		})
	}

	ticks, err := s.ReadTicks(ctx, rec)
	require.NoError(t, err)
	require.Len(t, ticks, 1)
	assert.True(t, ticks[0].Outputs["elec.level"].Equal(ir.Real(5)))
}

func TestWriteTick_RequiresRecording(t *testing.T) {
	s := createTestStore(t)
	err := s.WriteTick(context.Background(), "nope", &TickRecord{Tick: 1, DT: 1})
	require.Error(t, err)
}

func TestReadTicks_RejectsUndeclaredVariable(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	rec := chargingRecording(t, s, "rec-1")

	tr := &TickRecord{Tick: 1, DT: 0.5, Outputs: map[string]ir.Value{"ghost": ir.Real(1)}}
	require.NoError(t, s.WriteTick(ctx, rec.ID, tr))

	_, err := s.ReadTicks(ctx, rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestNextSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq, err := s.NextSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	chargingRecording(t, s, "a")
	seq, err = s.NextSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)
}
