package view

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRemote_States(t *testing.T) {
	loading := Loading[int]()
	assert.True(t, loading.IsLoading())
	assert.Equal(t, "loading", loading.Status().String())

	loaded := Loaded(42)
	assert.True(t, loaded.IsLoaded())
	assert.Equal(t, 42, loaded.Value())
	assert.NoError(t, loaded.Err())

	boom := errors.New("boom")
	failed := Failed[int](boom)
	assert.True(t, failed.IsFailed())
	assert.Zero(t, failed.Value())
	assert.ErrorIs(t, failed.Err(), boom)
}

func TestLoader_FetchesOncePerMount(t *testing.T) {
	var calls atomic.Int32
	l := NewLoader[string]()
	fetch := func(context.Context) (string, error) {
		calls.Add(1)
		return "pizzaPocket", nil
	}

	l.Mount(context.Background(), fetch)
	l.Mount(context.Background(), fetch)

	state := l.Wait(context.Background())
	require.True(t, state.IsLoaded())
	assert.Equal(t, "pizzaPocket", state.Value())

	// Reading the state again is side-effect free.
	for range 3 {
		assert.Equal(t, state, l.State())
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestLoader_Failure(t *testing.T) {
	l := NewLoader[int]()
	l.Mount(context.Background(), func(context.Context) (int, error) {
		return 0, errors.New("service unavailable")
	})

	state := l.Wait(context.Background())
	require.True(t, state.IsFailed())
	assert.EqualError(t, state.Err(), "service unavailable")
}

func TestLoader_PanicBecomesFailure(t *testing.T) {
	l := NewLoader[int]()
	l.Mount(context.Background(), func(context.Context) (int, error) {
		panic("oven on fire")
	})

	state := l.Wait(context.Background())
	require.True(t, state.IsFailed())
	assert.Contains(t, state.Err().Error(), "oven on fire")
}

func TestLoader_UnmountDropsLateResult(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	l := NewLoader[int]()
	l.Mount(context.Background(), func(ctx context.Context) (int, error) {
		close(started)
		<-release
		return 7, nil
	})

	<-started
	l.Unmount()
	close(release)
	<-l.Done()

	assert.True(t, l.State().IsLoading(), "state changed after unmount")
}

func TestLoader_UnmountCancelsFetch(t *testing.T) {
	l := NewLoader[int]()
	l.Mount(context.Background(), func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})

	l.Unmount()

	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("fetch was not cancelled")
	}
	assert.True(t, l.State().IsLoading())
}

func TestLoader_WaitReturnsWhenContextEnds(t *testing.T) {
	l := NewLoader[int]()
	mountCtx, cancel := context.WithCancel(context.Background())
	l.Mount(mountCtx, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer waitCancel()
	assert.True(t, l.Wait(waitCtx).IsLoading())

	cancel()
	<-l.Done()
}

func TestLoader_UnmountBeforeMount(t *testing.T) {
	l := NewLoader[int]()
	l.Unmount()
	l.Mount(context.Background(), func(context.Context) (int, error) {
		t.Error("fetch ran after unmount")
		return 0, nil
	})

	<-l.Done()
	assert.True(t, l.Wait(context.Background()).IsLoading())
}
