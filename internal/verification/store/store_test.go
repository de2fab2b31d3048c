package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"docverify/internal/verification/models"
	"docverify/pkg/platform/sentinel"
)

func sealedTrail(id, submitter string, started time.Time, statuses ...models.StepStatus) *models.AuditTrail {
	trail := &models.AuditTrail{
		VerificationID: id,
		InitiatedBy:    submitter,
		DocumentClass:  models.ClassPayslip,
		StartedAt:      started,
		CompletedAt:    started.Add(time.Second),
	}
	for i, st := range statuses {
		trail.Steps = append(trail.Steps, models.ProcessingStep{
			Name:   []string{"verification_started", "consent_validation", "security_screening"}[i],
			Status: st,
		})
	}
	return trail
}

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	t.Run("write once", func(t *testing.T) {
		s := NewInMemoryStore()
		trail := sealedTrail("v-1", "sub-1", now, models.StepCompleted)
		require.NoError(t, s.Append(ctx, trail))

		err := s.Append(ctx, sealedTrail("v-1", "sub-1", now))
		assert.ErrorIs(t, err, sentinel.ErrConflict)

		got, err := s.Get(ctx, "v-1")
		require.NoError(t, err)
		assert.Same(t, trail, got)
	})

	t.Run("rejects unsealed trail", func(t *testing.T) {
		s := NewInMemoryStore()
		err := s.Append(ctx, &models.AuditTrail{VerificationID: "v-1"})
		assert.ErrorIs(t, err, ErrUnsealed)
		assert.ErrorIs(t, s.Append(ctx, nil), ErrUnsealed)
	})

	t.Run("missing trail", func(t *testing.T) {
		_, err := NewInMemoryStore().Get(ctx, "nope")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("lists by submitter oldest first", func(t *testing.T) {
		s := NewInMemoryStore()
		require.NoError(t, s.Append(ctx, sealedTrail("v-2", "sub-1", now.Add(time.Minute))))
		require.NoError(t, s.Append(ctx, sealedTrail("v-1", "sub-1", now)))
		require.NoError(t, s.Append(ctx, sealedTrail("v-3", "sub-2", now)))

		trails, err := s.ListBySubmitter(ctx, "sub-1")
		require.NoError(t, err)
		require.Len(t, trails, 2)
		assert.Equal(t, "v-1", trails[0].VerificationID)
		assert.Equal(t, "v-2", trails[1].VerificationID)
	})

	t.Run("lists failures at a step", func(t *testing.T) {
		s := NewInMemoryStore()
		require.NoError(t, s.Append(ctx, sealedTrail("v-2", "sub-1", now.Add(time.Minute), models.StepCompleted, models.StepFailed)))
		require.NoError(t, s.Append(ctx, sealedTrail("v-1", "sub-2", now, models.StepCompleted, models.StepFailed)))
		require.NoError(t, s.Append(ctx, sealedTrail("v-3", "sub-1", now, models.StepFailed)))
		require.NoError(t, s.Append(ctx, sealedTrail("v-4", "sub-1", now, models.StepCompleted, models.StepCompleted)))

		ids, err := s.ListFailedAt(ctx, "consent_validation")
		require.NoError(t, err)
		assert.Equal(t, []string{"v-1", "v-2"}, ids)

		ids, err = s.ListFailedAt(ctx, "security_screening")
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}

type failingAppender struct{ err error }

func (f failingAppender) Append(context.Context, *models.AuditTrail) error { return f.err }

func TestFanout(t *testing.T) {
	ctx := context.Background()
	trail := sealedTrail("v-1", "sub-1", time.Now())

	t.Run("mirror failure does not fail the write", func(t *testing.T) {
		primary := NewInMemoryStore()
		mirror := NewInMemoryStore()
		f := NewFanout(nil, primary, failingAppender{err: errors.New("broker down")}, mirror)

		require.NoError(t, f.Append(ctx, trail))
		_, err := mirror.Get(ctx, "v-1")
		assert.NoError(t, err)
	})

	t.Run("primary failure skips mirrors", func(t *testing.T) {
		mirror := NewInMemoryStore()
		f := NewFanout(nil, failingAppender{err: errors.New("db down")}, mirror)

		require.Error(t, f.Append(ctx, trail))
		_, err := mirror.Get(ctx, "v-1")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

type recordingProducer struct {
	records []*kgo.Record
	err     error
}

func (p *recordingProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	out := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		p.records = append(p.records, r)
		out = append(out, kgo.ProduceResult{Record: r, Err: p.err})
	}
	return out
}

func TestKafkaPublisher(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes keyed trail", func(t *testing.T) {
		producer := &recordingProducer{}
		pub := NewKafkaPublisher(producer, "")
		trail := sealedTrail("v-1", "sub-1", time.Now(), models.StepCompleted, models.StepFailed)

		require.NoError(t, pub.Append(ctx, trail))
		require.Len(t, producer.records, 1)
		rec := producer.records[0]
		assert.Equal(t, DefaultTopic, rec.Topic)
		assert.Equal(t, "v-1", string(rec.Key))
		assert.Contains(t, rec.Headers, kgo.RecordHeader{Key: "outcome", Value: []byte("failed")})

		var decoded models.AuditTrail
		require.NoError(t, json.Unmarshal(rec.Value, &decoded))
		assert.Equal(t, "sub-1", decoded.InitiatedBy)
		assert.Len(t, decoded.Steps, 2)
	})

	t.Run("broker error surfaces", func(t *testing.T) {
		pub := NewKafkaPublisher(&recordingProducer{err: errors.New("not leader")}, "trails")
		err := pub.Append(ctx, sealedTrail("v-1", "sub-1", time.Now()))
		assert.ErrorContains(t, err, "not leader")
	})
}

func TestStepColumns(t *testing.T) {
	trail := sealedTrail("v-1", "sub-1", time.Now(), models.StepCompleted, models.StepFailed, models.StepAborted)
	names, failed := stepColumns(trail)
	assert.Equal(t, []string{"verification_started", "consent_validation", "security_screening"}, names)
	assert.Equal(t, []string{"consent_validation"}, failed)
}
