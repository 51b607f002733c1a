package scheduler

import (
	"errors"
	"testing"

	"github.com/aristath/sectorpilot/internal/modules/rebalancing"
	"github.com/aristath/sectorpilot/internal/modules/universe"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRefresher struct{ mock.Mock }

func (m *mockRefresher) RefreshPerformance() (*universe.RefreshResult, error) {
	args := m.Called()
	if r := args.Get(0); r != nil {
		return r.(*universe.RefreshResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockGenerator struct{ mock.Mock }

func (m *mockGenerator) Generate(trigger string, dryRun bool) (*rebalancing.Run, error) {
	args := m.Called(trigger, dryRun)
	if r := args.Get(0); r != nil {
		return r.(*rebalancing.Run), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestRebalanceJob_Run(t *testing.T) {
	refresher := &mockRefresher{}
	generator := &mockGenerator{}
	refresher.On("RefreshPerformance").Return(&universe.RefreshResult{Sectors: 3, Stocks: 6}, nil).Once()
	generator.On("Generate", rebalancing.TriggerScheduled, false).Return(&rebalancing.Run{ID: "run-1"}, nil).Once()

	job := NewRebalanceJob(refresher, generator, zerolog.Nop())
	assert.Equal(t, "rebalance", job.Name())
	require.NoError(t, job.Run())

	refresher.AssertExpectations(t)
	generator.AssertExpectations(t)
}

func TestRebalanceJob_RefreshFailureSkipsGeneration(t *testing.T) {
	refresher := &mockRefresher{}
	generator := &mockGenerator{}
	refresher.On("RefreshPerformance").Return(nil, errors.New("database is locked"))

	err := NewRebalanceJob(refresher, generator, zerolog.Nop()).Run()
	assert.ErrorContains(t, err, "failed to refresh performance")
	generator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestRebalanceJob_GenerateFailure(t *testing.T) {
	refresher := &mockRefresher{}
	generator := &mockGenerator{}
	refresher.On("RefreshPerformance").Return(&universe.RefreshResult{}, nil)
	generator.On("Generate", rebalancing.TriggerScheduled, false).Return(nil, errors.New("boom"))

	err := NewRebalanceJob(refresher, generator, zerolog.Nop()).Run()
	assert.ErrorContains(t, err, "failed to generate rebalance run")
}

type countingJob struct{ runs int }

func (j *countingJob) Name() string { return "counting" }
func (j *countingJob) Run() error {
	j.runs++
	return nil
}

func TestScheduler_AddJob(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{}

	require.NoError(t, s.AddJob("30 9 * * MON-FRI", job))
	assert.Error(t, s.AddJob("not a schedule", job))

	require.NoError(t, s.RunNow(job))
	assert.Equal(t, 1, job.runs)

	s.Start()
	s.Stop()
}

type failingJob struct{}

func (failingJob) Name() string { return "failing" }
func (failingJob) Run() error { return errors.New("disk full") }

type blockingJob struct {
	started chan struct{}
	release chan struct{}
}

func (j *blockingJob) Name() string { return "blocking" }
func (j *blockingJob) Run() error {
	close(j.started)
	<-j.release
	return nil
}

func TestScheduler_Status(t *testing.T) {
	s := New(zerolog.Nop())
	counting := &countingJob{}

	require.NoError(t, s.AddJob("15 3 * * *", counting))
	require.NoError(t, s.RunNow(counting))
	require.NoError(t, s.RunNow(counting))
	assert.EqualError(t, s.RunNow(failingJob{}), "disk full")

	status := s.Status()
	require.Len(t, status, 2)

	assert.Equal(t, "counting", status[0].Name)
	assert.Equal(t, "15 3 * * *", status[0].Schedule)
	assert.Equal(t, 2, status[0].Runs)
	assert.Zero(t, status[0].Failures)
	assert.Empty(t, status[0].LastError)
	assert.False(t, status[0].LastStarted.IsZero())
	assert.NotEmpty(t, status[0].LastDuration)

	assert.Equal(t, "failing", status[1].Name)
	assert.Empty(t, status[1].Schedule)
	assert.Equal(t, 1, status[1].Runs)
	assert.Equal(t, 1, status[1].Failures)
	assert.Equal(t, "disk full", status[1].LastError)
	assert.False(t, status[1].Running)
}

func TestScheduler_RunNowRejectsOverlap(t *testing.T) {
	s := New(zerolog.Nop())
	job := &blockingJob{started: make(chan struct{}), release: make(chan struct{})}

	done := make(chan error, 1)
	go func() { done <- s.RunNow(job) }()
	<-job.started

	assert.ErrorIs(t, s.RunNow(job), ErrJobRunning)
	assert.True(t, s.Status()[0].Running)

	close(job.release)
	require.NoError(t, <-done)
	assert.False(t, s.Status()[0].Running)
	assert.Equal(t, 1, s.Status()[0].Runs)
}
