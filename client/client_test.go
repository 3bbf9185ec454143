package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/TheNaotagrey/Asgaria/api"
	"github.com/TheNaotagrey/Asgaria/storage/sqlite"
	"github.com/TheNaotagrey/Asgaria/typedef"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "asgaria.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	hub := api.NewHub()
	srv := api.NewServer(ctx, store, hub, api.Options{})
	go hub.Run(ctx)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		cancel()
		ts.Close()
	})
	return ts
}

func fastOptions(id string) Options {
	return Options{ClientID: id, MaxTries: 3, InitialInterval: time.Millisecond, Timeout: 5 * time.Second}
}

func TestClientRoundTrip(t *testing.T) {
	ts := newBackend(t)
	c := New(ts.URL+"/", fastOptions("editor"))
	ctx := context.Background()

	data, rev, err := c.GetPixels(ctx)
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.EqualValues(t, 0, rev)

	pixels := typedef.PixelData{"1": {{X: 1, Y: 1}, {X: 2, Y: 1}}, "2": {{X: 9, Y: 9}}}
	res, err := c.PutPixels(ctx, pixels)
	require.NoError(t, err)
	assert.Equal(t, SaveResult{Saved: 2, Revision: 1}, res)

	data, rev, err = c.GetPixels(ctx)
	require.NoError(t, err)
	assert.Equal(t, pixels, data)
	assert.EqualValues(t, 1, rev)

	changes, err := c.PutBarony(ctx, 1, typedef.BaronyFields{Name: "North", DuchyID: typedef.Int64(2)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, changes)

	b, ok, err := c.GetBarony(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "North", b.Name)

	_, ok, err = c.GetBarony(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	id, err := c.CreateBarony(ctx, typedef.Barony{Name: "South"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, id)

	list, err := c.ListBaronies(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	deleted, err := c.DeleteBarony(ctx, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	_, err = c.CreateBarony(ctx, typedef.Barony{ID: 1})
	assert.True(t, IsStatus(err, http.StatusConflict), "got %v", err)

	status, err := c.Status(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, status.Revision)
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "editor", r.Header.Get(api.ClientHeader))
		if calls.Add(1) < 3 {
			http.Error(w, `{"error":"busy"}`, http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"changes":1}`))
	}))
	defer ts.Close()

	c := New(ts.URL, fastOptions("editor"))
	n, err := c.PutBarony(context.Background(), 5, typedef.BaronyFields{Name: "x"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.EqualValues(t, 3, calls.Load())
}

func TestClientGivesUpAfterMaxTries(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := New(ts.URL, fastOptions("editor"))
	_, err := c.DeleteBarony(context.Background(), 5)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusInternalServerError))
	assert.EqualValues(t, 3, calls.Load())
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid pixel data"}`))
	}))
	defer ts.Close()

	c := New(ts.URL, fastOptions("editor"))
	_, err := c.PutPixels(context.Background(), typedef.PixelData{"1": {{X: 0, Y: 0}}})
	require.Error(t, err)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Equal(t, "invalid pixel data", se.Message)
	assert.EqualValues(t, 1, calls.Load())
}

func TestClientRejectsUndecodableBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>`))
	}))
	defer ts.Close()

	c := New(ts.URL, fastOptions("editor"))
	_, err := c.ListBaronies(context.Background())
	assert.ErrorIs(t, err, ErrUnexpectedResponse)
}

func TestSubscribeSkipsOwnEvents(t *testing.T) {
	ts := newBackend(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	viewer := New(ts.URL, fastOptions("viewer"))
	editor := New(ts.URL, fastOptions("editor"))
	events := viewer.Subscribe(ctx)

	// The subscription is asynchronous; keep saving until the first event arrives.
	var ev Event
	require.Eventually(t, func() bool {
		if _, err := editor.PutPixels(ctx, typedef.PixelData{"1": {{X: 0, Y: 0}}}); err != nil {
			return false
		}
		select {
		case ev = <-events:
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	require.Equal(t, api.MessageTypePixelsSaved, ev.Type)
	saved, err := ev.PixelsSaved()
	require.NoError(t, err)
	assert.Equal(t, "editor", saved.Origin)

	_, err = viewer.PutBarony(ctx, 3, typedef.BaronyFields{Name: "own"})
	require.NoError(t, err)
	_, err = editor.DeleteBarony(ctx, 3)
	require.NoError(t, err)

	select {
	case ev = <-events:
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}
	for ev.Type == api.MessageTypePixelsSaved {
		ev = <-events
	}
	assert.Equal(t, api.MessageTypeBaronyDeleted, ev.Type, "own barony_updated must be filtered")
	d, err := ev.Barony()
	require.NoError(t, err)
	assert.EqualValues(t, 3, d.ID)

	cancel()
	for range events {
	}
}
