package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/TheNaotagrey/Asgaria/typedef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	kind   JobKind
	id     int64
	pixels typedef.PixelData
}

type fakeBackend struct {
	mu    sync.Mutex
	calls []call
	fail  map[JobKind]error
	gate  chan struct{}
	rev   int64
}

func (f *fakeBackend) record(c call) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return f.fail[c.kind]
}

func (f *fakeBackend) setFail(kind JobKind, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail == nil {
		f.fail = make(map[JobKind]error)
	}
	f.fail[kind] = err
}

func (f *fakeBackend) PutPixels(ctx context.Context, data typedef.PixelData) (SaveResult, error) {
	if err := f.record(call{kind: JobSavePixels, pixels: data}); err != nil {
		return SaveResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rev++
	return SaveResult{Saved: len(data), Revision: f.rev}, nil
}

func (f *fakeBackend) PutBarony(ctx context.Context, id int64, fields typedef.BaronyFields) (int64, error) {
	return 1, f.record(call{kind: JobPutBarony, id: id})
}

func (f *fakeBackend) DeleteBarony(ctx context.Context, id int64) (int64, error) {
	return 1, f.record(call{kind: JobDeleteBarony, id: id})
}

func (f *fakeBackend) CreateBarony(ctx context.Context, b typedef.Barony) (int64, error) {
	return b.ID, f.record(call{kind: JobCreateBarony, id: b.ID})
}

func (f *fakeBackend) kinds() []JobKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]JobKind, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.kind
	}
	return out
}

func startDispatcher(t *testing.T, backend Backend) *Dispatcher {
	t.Helper()
	d := NewDispatcher(backend, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go d.Run(ctx)
	return d
}

func queued(d *Dispatcher) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

func waitResult(t *testing.T, d *Dispatcher) Result {
	t.Helper()
	select {
	case res := <-d.Results():
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a result")
		return Result{}
	}
}

func TestDispatcherRunsInOrder(t *testing.T) {
	backend := &fakeBackend{}
	d := startDispatcher(t, backend)

	d.Submit(PutBaronyJob(1, typedef.BaronyFields{Name: "a"}))
	d.Submit(DeleteBaronyJob(2))
	d.Submit(CreateBaronyJob(typedef.Barony{ID: 3}))

	assert.Equal(t, JobPutBarony, waitResult(t, d).Job.Kind)
	assert.Equal(t, JobDeleteBarony, waitResult(t, d).Job.Kind)
	res := waitResult(t, d)
	assert.Equal(t, JobCreateBarony, res.Job.Kind)
	assert.EqualValues(t, 3, res.CreatedID)
	assert.Equal(t, []JobKind{JobPutBarony, JobDeleteBarony, JobCreateBarony}, backend.kinds())
}

func TestDispatcherSnapshotsPixels(t *testing.T) {
	backend := &fakeBackend{gate: make(chan struct{})}
	d := startDispatcher(t, backend)

	data := typedef.PixelData{"1": {{X: 1, Y: 1}}}
	d.Submit(SavePixelsJob(data))
	data["1"][0] = typedef.Coord{X: 9, Y: 9}
	data["2"] = []typedef.Coord{{X: 0, Y: 0}}
	close(backend.gate)

	res := waitResult(t, d)
	require.NoError(t, res.Err)
	assert.EqualValues(t, 1, res.Revision)
	assert.Equal(t, typedef.PixelData{"1": {{X: 1, Y: 1}}}, backend.calls[0].pixels)
}

func TestDispatcherCoalescesPendingSaves(t *testing.T) {
	backend := &fakeBackend{gate: make(chan struct{})}
	d := startDispatcher(t, backend)

	d.Submit(SavePixelsJob(typedef.PixelData{"1": nil}))
	require.Eventually(t, func() bool { return d.Pending() == 1 && queued(d) == 0 }, time.Second, time.Millisecond)

	d.Submit(SavePixelsJob(typedef.PixelData{"2": nil}))
	d.Submit(PutBaronyJob(7, typedef.BaronyFields{}))
	d.Submit(SavePixelsJob(typedef.PixelData{"3": nil}))
	assert.Equal(t, 3, d.Pending())
	close(backend.gate)

	first := waitResult(t, d)
	second := waitResult(t, d)
	third := waitResult(t, d)
	assert.Contains(t, first.Job.Pixels, typedef.RegionID("1"))
	assert.Equal(t, JobPutBarony, second.Job.Kind)
	assert.Contains(t, third.Job.Pixels, typedef.RegionID("3"))
	assert.Equal(t, []JobKind{JobSavePixels, JobPutBarony, JobSavePixels}, backend.kinds())
}

func TestDispatcherRetry(t *testing.T) {
	backend := &fakeBackend{}
	backend.setFail(JobDeleteBarony, errors.New("offline"))
	backend.setFail(JobSavePixels, errors.New("offline"))
	d := startDispatcher(t, backend)

	d.Submit(DeleteBaronyJob(4))
	d.Submit(SavePixelsJob(typedef.PixelData{"1": nil}))
	assert.Error(t, waitResult(t, d).Err)
	assert.Error(t, waitResult(t, d).Err)
	assert.Equal(t, 2, d.Failed())

	backend.setFail(JobDeleteBarony, nil)
	backend.setFail(JobSavePixels, nil)
	assert.Equal(t, 2, d.Retry())
	assert.NoError(t, waitResult(t, d).Err)
	assert.NoError(t, waitResult(t, d).Err)
	assert.Equal(t, 0, d.Failed())
	assert.Equal(t, 0, d.Retry())
}

func TestDispatcherNewSaveSupersedesFailedSave(t *testing.T) {
	backend := &fakeBackend{}
	backend.setFail(JobSavePixels, errors.New("offline"))
	d := startDispatcher(t, backend)

	d.Submit(SavePixelsJob(typedef.PixelData{"old": nil}))
	require.Error(t, waitResult(t, d).Err)
	require.Equal(t, 1, d.Failed())

	backend.setFail(JobSavePixels, nil)
	d.Submit(SavePixelsJob(typedef.PixelData{"new": nil}))
	require.NoError(t, waitResult(t, d).Err)
	assert.Equal(t, 0, d.Failed())
	assert.Equal(t, 0, d.Retry())
}
