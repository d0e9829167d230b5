package jobs

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RedWaffle007/sic-data-software/internal/resilience"
)

func TestLifecycle(t *testing.T) {
	s := NewStore(time.Hour)

	job := s.Create("pipeline")
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, StatusPending, job.Status)

	s.Start(job.ID)
	s.SetProgress(job.ID, 5, 10)

	got, err := s.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)
	assert.Equal(t, 5, got.Done)
	assert.Equal(t, 10, got.Total)

	s.Complete(job.ID, map[string]int{"rows": 10})
	got, err = s.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.NotNil(t, got.Result)
}

func TestFail(t *testing.T) {
	s := NewStore(time.Hour)
	job := s.Create("enrich")
	s.Fail(job.ID, errors.New("snapshot missing"))

	got, err := s.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "snapshot missing", got.Error)
}

func TestGet_Unknown(t *testing.T) {
	s := NewStore(time.Hour)
	_, err := s.Get("nope")
	require.Error(t, err)
	assert.True(t, resilience.IsNotFound(err))
}

func TestList_NewestFirst(t *testing.T) {
	s := NewStore(time.Hour)
	a := s.Create("pipeline")
	time.Sleep(2 * time.Millisecond)
	b := s.Create("enrich")

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, a.ID, list[1].ID)
}

func TestConcurrentUpdates(t *testing.T) {
	s := NewStore(time.Hour)
	job := s.Create("enrich")
	s.Start(job.ID)

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.SetProgress(job.ID, n, 50)
		}(i)
	}
	wg.Wait()

	got, err := s.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, got.Total)
	assert.Equal(t, StatusRunning, got.Status)
}
