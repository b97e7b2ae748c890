package archive

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgepadayatti/goades/ades"
	"github.com/georgepadayatti/goades/policy"
	"github.com/georgepadayatti/goades/report"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func reports(id string, ind ades.Indication) *report.Reports {
	valid := 0
	if ind == ades.IndicationTotalPassed {
		valid = 1
	}
	return &report.Reports{
		RunID:          id,
		ValidationTime: now,
		Policy:         "QES AdESQC TL based",
		PolicyVersion:  "1.0.0",
		Level:          policy.LevelArchivalData,
		Simple: &report.SimpleReport{
			ValidationTime:       now,
			Policy:               "QES AdESQC TL based",
			SignaturesCount:      1,
			ValidSignaturesCount: valid,
			Signatures:           []report.SignatureEntry{{ID: "S-1", Format: "XAdES-BASELINE-B", Indication: ind}},
		},
		Detailed: &report.DetailedReport{
			Signatures: []report.SignatureDetail{{ID: "S-1", Final: ades.Conclusion{Indication: ind}}},
		},
	}
}

func open(t *testing.T, clock clockwork.Clock) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"), WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveGet(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(now.Add(time.Minute))
	s := open(t, clock)

	r := reports("run-1", ades.IndicationTotalPassed)
	sum, err := s.Save(ctx, r)
	require.NoError(t, err)

	fp, err := r.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, Summary{
		ID:                   "run-1",
		ValidationTime:       now,
		Policy:               "QES AdESQC TL based",
		PolicyVersion:        "1.0.0",
		Level:                "ARCHIVAL_DATA",
		SignaturesCount:      1,
		ValidSignaturesCount: 1,
		Fingerprint:          fp,
		CreatedAt:            now.Add(time.Minute),
	}, sum)

	rec, err := s.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, sum, rec.Summary)

	var decoded struct {
		RunID  string `json:"runId"`
		Simple struct {
			Signatures []struct {
				Indication string `json:"indication"`
			} `json:"signatures"`
		} `json:"simpleReport"`
	}
	require.NoError(t, json.Unmarshal(rec.Data, &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	require.Len(t, decoded.Simple.Signatures, 1)
	assert.Equal(t, "TOTAL_PASSED", decoded.Simple.Signatures[0].Indication)
}

func TestGetMissing(t *testing.T) {
	s := open(t, clockwork.NewFakeClockAt(now))
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveRejects(t *testing.T) {
	ctx := context.Background()
	s := open(t, clockwork.NewFakeClockAt(now))

	_, err := s.Save(ctx, nil)
	assert.ErrorIs(t, err, ErrInvalidInputData)

	r := reports("", ades.IndicationTotalPassed)
	_, err = s.Save(ctx, r)
	assert.ErrorIs(t, err, ErrInvalidInputData)

	r = reports("run-1", ades.IndicationTotalPassed)
	_, err = s.Save(ctx, r)
	require.NoError(t, err)
	_, err = s.Save(ctx, r)
	assert.ErrorIs(t, err, ErrWriteFailed)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(now)
	s := open(t, clock)

	for _, id := range []string{"run-1", "run-2", "run-3"} {
		_, err := s.Save(ctx, reports(id, ades.IndicationTotalPassed))
		require.NoError(t, err)
		clock.Advance(time.Second)
	}

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	ids := make([]string, 0, len(all))
	for _, sum := range all {
		ids = append(ids, sum.ID)
	}
	assert.Equal(t, []string{"run-3", "run-2", "run-1"}, ids)

	two, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, two, 2)
	assert.Equal(t, "run-3", two[0].ID)
}

func TestByFingerprint(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(now)
	s := open(t, clock)

	passed := reports("run-1", ades.IndicationTotalPassed)
	_, err := s.Save(ctx, passed)
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = s.Save(ctx, reports("run-2", ades.IndicationTotalFailed))
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = s.Save(ctx, reports("run-3", ades.IndicationTotalPassed))
	require.NoError(t, err)

	fp, err := passed.Fingerprint()
	require.NoError(t, err)
	same, err := s.ByFingerprint(ctx, fp)
	require.NoError(t, err)
	require.Len(t, same, 2)
	assert.Equal(t, "run-1", same[0].ID)
	assert.Equal(t, "run-3", same[1].ID)
}

func TestReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Save(ctx, reports("run-1", ades.IndicationTotalPassed))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	rec, err := s.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", rec.ID)
}

func TestOpenRejectsMemory(t *testing.T) {
	_, err := Open(":memory:")
	assert.ErrorIs(t, err, ErrInvalidInputData)
	_, err = Open("")
	assert.ErrorIs(t, err, ErrInvalidInputData)
}
