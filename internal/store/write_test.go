package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphscript/internal/ir"
	"github.com/roach88/graphscript/internal/testutil"
)

func TestWriteClass_ReadLatest(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := NewClassRecord(testClass(1, "game::counter"), "scripts/counter.cue")
	second := NewClassRecord(testClass(2, "game::counter"), "scripts/counter.cue")
	require.NoError(t, s.WriteClass(ctx, first))
	require.NoError(t, s.WriteClass(ctx, second))

	got, err := s.ReadClass(ctx, first.GUID)
	require.NoError(t, err)
	assert.Equal(t, second, got)
	assert.Equal(t, first.Fingerprint, got.Fingerprint, "timestamps do not change the fingerprint")
	assert.Equal(t, ir.IRVersion, got.IRVersion)
}

func TestWriteClass_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	rec := NewClassRecord(testClass(1, "game::counter"), "")

	require.NoError(t, s.WriteClass(ctx, rec))
	require.NoError(t, s.WriteClass(ctx, rec))

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM classes").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestReadClass_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadClass(context.Background(), testutil.GUIDFor("class/none"))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListClasses_LatestPerClassByName(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	empty, err := s.ListClasses(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for _, rec := range []ClassRecord{
		NewClassRecord(testClass(1, "game::zeta"), ""),
		NewClassRecord(testClass(2, "game::alpha"), ""),
		NewClassRecord(testClass(3, "game::zeta"), ""),
	} {
		require.NoError(t, s.WriteClass(ctx, rec))
	}

	classes, err := s.ListClasses(ctx)
	require.NoError(t, err)
	require.Len(t, classes, 2)
	assert.Equal(t, "game::alpha", classes[0].Name)
	assert.Equal(t, "game::zeta", classes[1].Name)
	assert.Equal(t, int64(3), classes[1].Timestamp)
}

func TestLatestFingerprint(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	rec := NewClassRecord(testClass(1, "game::counter"), "")

	_, ok, err := s.LatestFingerprint(ctx, rec.GUID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.WriteClass(ctx, rec))
	fp, ok, err := s.LatestFingerprint(ctx, rec.GUID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, rec.Fingerprint, fp)
}

func TestLatestTimestamp(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ts, err := s.LatestTimestamp(ctx)
	require.NoError(t, err)
	assert.Zero(t, ts)

	require.NoError(t, s.WriteClass(ctx, NewClassRecord(testClass(7, "game::counter"), "")))
	require.NoError(t, s.WriteClass(ctx, NewClassRecord(testClass(3, "game::door"), "")))
	ts, err = s.LatestTimestamp(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), ts)
}

func TestRuns_WriteFinishRead(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-b")
	createTestRun(t, s, "run-a")

	require.NoError(t, s.FinishRun(ctx, "run-b", 120))
	assert.True(t, errors.Is(s.FinishRun(ctx, "run-missing", 1), ErrNotFound))

	run, err := s.ReadRun(ctx, "run-b")
	require.NoError(t, err)
	assert.Equal(t, uint64(120), run.Frames)
	assert.Equal(t, "game::counter", run.ClassName)
	assert.Equal(t, testutil.GUIDFor("class/game::counter"), run.ClassGUID)

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-a", runs[0].ID)

	_, err = s.ReadRun(ctx, "run-missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSignals_RoundTripInOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	run := createTestRun(t, s, "run-1")

	recs := []SignalRecord{
		signalRecord(t, run, 1, 0, ir.NewSignal(testutil.SignalX, ir.Int(7))),
		signalRecord(t, run, 2, 1, ir.Signal{
			Type:   testutil.SignalSig,
			Sender: testutil.GUIDFor("object/sender"),
			Params: []ir.Value{ir.Float(0.5), ir.String("hi"), ir.Bool(true)},
		}),
		signalRecord(t, run, 3, 1, ir.NewSignal(testutil.SignalSig)),
	}
	require.NoError(t, s.WriteSignals(ctx, recs[1:]))
	require.NoError(t, s.WriteSignal(ctx, recs[0]))

	got, err := s.ReadSignals(ctx, run)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range recs {
		assert.Equal(t, recs[i].Seq, got[i].Seq)
		assert.Equal(t, recs[i].Hash, got[i].Hash)
		assert.Equal(t, recs[i].Signal, got[i].Signal)
		assert.Equal(t, recs[i].Sender, got[i].Sender)
		assert.Equal(t, recs[i].Frame, got[i].Frame)
	}
	assert.Equal(t, []ir.Value{ir.Int(7)}, got[0].Params)
	assert.Equal(t, []ir.Value{ir.Float(0.5), ir.String("hi"), ir.Bool(true)}, got[1].Params)
	assert.Empty(t, got[2].Params)

	none, err := s.ReadSignals(ctx, "run-none")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestWriteSignals_AtomicOnFailure(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	run := createTestRun(t, s, "run-1")

	err := s.WriteSignals(ctx, []SignalRecord{
		signalRecord(t, run, 1, 0, ir.NewSignal(testutil.SignalSig)),
		signalRecord(t, "run-unknown", 2, 0, ir.NewSignal(testutil.SignalSig)),
	})
	require.Error(t, err, "foreign key violation")

	got, err := s.ReadSignals(ctx, run)
	require.NoError(t, err)
	assert.Empty(t, got)
}
