package worker_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luc118i/operacional-app/internal/provider/resilience"
	"github.com/luc118i/operacional-app/internal/scheme"
	"github.com/luc118i/operacional-app/internal/worker"
)

type pinger struct {
	err error
}

func (p pinger) Ping(context.Context) error {
	return p.err
}

func newProcessor(r worker.Reevaluator, l worker.SchemeLister, db worker.Pinger) *worker.Processor {
	return worker.NewProcessor(worker.ProcessorConfig{
		Job:      newJob(r, l),
		Registry: resilience.NewRegistry(),
		DB:       db,
		Logger:   zerolog.Nop(),
	})
}

func TestProcessor_SchemeReevaluate(t *testing.T) {
	r := newFakeReevaluator()
	p := newProcessor(r, nil, nil)

	err := p.Process(context.Background(), worker.JobMessage{
		JobType:   worker.JobSchemeReevaluate,
		SchemeID:  "sch_a",
		SchemeIDs: []string{"sch_b"},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"sch_a", "sch_b"}, r.sortedCalls())
}

func TestProcessor_SchemeReevaluateRequiresIDs(t *testing.T) {
	p := newProcessor(newFakeReevaluator(), nil, nil)

	err := p.Process(context.Background(), worker.JobMessage{JobType: worker.JobSchemeReevaluate})

	assert.Error(t, err)
}

func TestProcessor_SchemeReevaluateFailure(t *testing.T) {
	r := newFakeReevaluator()
	r.errs["sch_a"] = errors.New("remote evaluator down")
	p := newProcessor(r, nil, nil)

	err := p.Process(context.Background(), worker.JobMessage{JobType: worker.JobSchemeReevaluate, SchemeID: "sch_a"})

	assert.ErrorContains(t, err, "too many re-evaluation failures")
}

func TestProcessor_DeletedSchemeIsNotAFailure(t *testing.T) {
	r := newFakeReevaluator()
	r.errs["sch_a"] = scheme.ErrSchemeNotFound
	p := newProcessor(r, nil, nil)

	err := p.Process(context.Background(), worker.JobMessage{JobType: worker.JobSchemeReevaluate, SchemeID: "sch_a"})

	assert.NoError(t, err)
}

func TestProcessor_LineReevaluate(t *testing.T) {
	r := newFakeReevaluator()
	l := &fakeLister{schemes: []*scheme.Scheme{{ID: "sch_1"}}}
	p := newProcessor(r, l, nil)

	err := p.Process(context.Background(), worker.JobMessage{JobType: worker.JobLineReevaluate, LineCode: "4120"})

	require.NoError(t, err)
	assert.Equal(t, []string{"sch_1"}, r.sortedCalls())
}

func TestProcessor_HealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		p := newProcessor(newFakeReevaluator(), nil, pinger{})
		assert.NoError(t, p.Process(context.Background(), worker.JobMessage{JobType: worker.JobHealthCheck}))
	})

	t.Run("database down", func(t *testing.T) {
		p := newProcessor(newFakeReevaluator(), nil, pinger{err: errors.New("no route to host")})
		err := p.Process(context.Background(), worker.JobMessage{JobType: worker.JobHealthCheck})
		assert.ErrorContains(t, err, "database")
	})
}

func TestProcessor_UnknownJob(t *testing.T) {
	p := newProcessor(newFakeReevaluator(), nil, nil)

	err := p.Process(context.Background(), worker.JobMessage{JobType: "provider_refresh"})

	assert.ErrorIs(t, err, worker.ErrUnknownJob)
}
