package api

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/TheNaotagrey/Asgaria/storage/sqlite"
	"github.com/TheNaotagrey/Asgaria/typedef"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	srv    *Server
	router *gin.Engine
	hub    *Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, Options{MapWidth: 100, MapHeight: 100})
}

func newTestServerWith(t *testing.T, opts Options) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "asgaria.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub()
	srv := NewServer(ctx, store, hub, opts)
	go hub.Run(ctx)
	return &testServer{srv: srv, router: srv.Router(), hub: hub}
}

func (ts *testServer) do(t *testing.T, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func TestGetPixelsEmpty(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/barony_pixels", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{}`, w.Body.String())
	assert.Equal(t, "0", w.Header().Get(RevisionHeader))
}

func TestPutThenGetPixels(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPut, "/api/barony_pixels", `{"1":[[1,2],[3,4]],"7":[[0,0]]}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"saved":2,"revision":1}`, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/barony_pixels", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "1", w.Header().Get(RevisionHeader))
	assert.JSONEq(t, `{"1":[[1,2],[3,4]],"7":[[0,0]]}`, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/barony_pixels", "", map[string]string{"Accept-Encoding": "gzip, deflate"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	raw, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.JSONEq(t, `{"1":[[1,2],[3,4]],"7":[[0,0]]}`, string(raw))

	w = ts.do(t, http.MethodPut, "/api/barony_pixels", `{}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"saved":0,"revision":2}`, w.Body.String())
	assert.EqualValues(t, 2, ts.srv.Status().Revision)
}

func TestPutPixelsAcceptsGzipBody(t *testing.T) {
	ts := newTestServer(t)

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(`{"3":[[5,5]]}`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	req := httptest.NewRequest(http.MethodPut, "/api/barony_pixels", &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/barony_pixels", "", nil)
	assert.JSONEq(t, `{"3":[[5,5]]}`, w.Body.String())
}

func gzipBody(t *testing.T, raw []byte) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return &buf
}

func TestPutPixelsCapsInflatedBody(t *testing.T) {
	ts := newTestServerWith(t, Options{MaxBodyBytes: 4 << 10, MaxInflatedBytes: 16 << 10})

	raw := []byte(`{"1":[` + strings.Repeat(`[0,0],`, 20000) + `[0,0]]}`)
	body := gzipBody(t, raw)
	require.Less(t, body.Len(), 4<<10, "compressed body must pass the wire limit")

	req := httptest.NewRequest(http.MethodPut, "/api/barony_pixels", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/barony_pixels", "", nil)
	assert.JSONEq(t, `{}`, w.Body.String())

	small := gzipBody(t, []byte(`{"2":[[1,1]]}`))
	req = httptest.NewRequest(http.MethodPut, "/api/barony_pixels", small)
	req.Header.Set("Content-Encoding", "gzip")
	w = httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestPutPixelsRejectsOversizedBody(t *testing.T) {
	ts := newTestServerWith(t, Options{MaxBodyBytes: 64})

	body := `{"1":[` + strings.Repeat(`[0,0],`, 50) + `[0,0]]}`
	w := ts.do(t, http.MethodPut, "/api/barony_pixels", body, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
}

func TestReplyAfterDropIsNoop(t *testing.T) {
	hub := NewHub()
	client := &WSClient{send: make(chan WSMessage, 1), hub: hub, id: "c1"}
	hub.clients[client] = true

	client.reply(WSMessage{Type: MessageTypeAck})
	hub.drop(client)

	assert.NotPanics(t, func() {
		client.reply(WSMessage{Type: MessageTypeAck})
		client.closeSend()
	})
	msg, ok := <-client.send
	assert.True(t, ok)
	assert.Equal(t, MessageTypeAck, msg.Type)
	_, ok = <-client.send
	assert.False(t, ok)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestPutPixelsRejectsMalformed(t *testing.T) {
	ts := newTestServer(t)

	bodies := map[string]string{
		"not json":        `{"1":`,
		"array":           `[1,2]`,
		"null":            `null`,
		"short pair":      `{"1":[[1]]}`,
		"string coords":   `{"1":[["a","b"]]}`,
		"empty id":        `{"":[[1,1]]}`,
		"negative coord":  `{"1":[[-1,0]]}`,
		"outside the map": `{"1":[[100,0]]}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			w := ts.do(t, http.MethodPut, "/api/barony_pixels", body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	w := ts.do(t, http.MethodGet, "/api/barony_pixels", "", nil)
	assert.JSONEq(t, `{}`, w.Body.String())
}

func TestBaronyEndpoints(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/baronies", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/baronies", `{"id":12,"name":"Aldmoor","county_id":3}`, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.JSONEq(t, `{"id":12}`, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/baronies", `{"id":12,"name":"again"}`, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodGet, "/api/baronies?id=12", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got []typedef.Barony
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Aldmoor", got[0].Name)
	require.NotNil(t, got[0].CountyID)
	assert.EqualValues(t, 3, *got[0].CountyID)
	assert.Nil(t, got[0].SeigneurID)

	w = ts.do(t, http.MethodGet, "/api/baronies?id=99", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/baronies?id=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPut, "/api/baronies/12", `{"name":"Aldmoor Vale","seigneur_id":4,"county_id":3}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"changes":1}`, w.Body.String())

	w = ts.do(t, http.MethodPut, "/api/baronies/40", `{"name":"Fresh"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"changes":1}`, w.Body.String())

	w = ts.do(t, http.MethodPut, "/api/baronies/12", `{"name":`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/baronies", "", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Aldmoor Vale", got[0].Name)
	assert.EqualValues(t, 40, got[1].ID)

	w = ts.do(t, http.MethodDelete, "/api/baronies/40", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deleted":1}`, w.Body.String())

	w = ts.do(t, http.MethodDelete, "/api/baronies/40", "", nil)
	assert.JSONEq(t, `{"deleted":0}`, w.Body.String())

	w = ts.do(t, http.MethodDelete, "/api/baronies/x", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusEndpoint(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/status", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status StatusData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, 0, status.Clients)
	assert.EqualValues(t, 0, status.Revision)
	assert.Positive(t, status.Goroutines)
}

func dialWS(t *testing.T, url, clientID string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	header.Set(ClientHeader, clientID)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http")+"/ws", header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var ack WSMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&ack))
	require.Equal(t, MessageTypeAck, ack.Type)
	return conn
}

type rawMessage struct {
	Type      MessageType     `json:"type"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
}

func readMessage(t *testing.T, conn *websocket.Conn) rawMessage {
	t.Helper()
	var msg rawMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebsocketEvents(t *testing.T) {
	ts := newTestServer(t)
	httpSrv := httptest.NewServer(ts.router)
	defer httpSrv.Close()

	conn := dialWS(t, httpSrv.URL, "viewer")
	assert.Eventually(t, func() bool { return ts.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	w := ts.do(t, http.MethodPut, "/api/barony_pixels", `{"1":[[1,1]]}`, map[string]string{ClientHeader: "editor-a"})
	require.Equal(t, http.StatusOK, w.Code)

	msg := readMessage(t, conn)
	require.Equal(t, MessageTypePixelsSaved, msg.Type)
	var saved PixelsSavedData
	require.NoError(t, json.Unmarshal(msg.Data, &saved))
	assert.Equal(t, PixelsSavedData{Regions: 1, Revision: 1, Origin: "editor-a"}, saved)

	w = ts.do(t, http.MethodPut, "/api/baronies/1", `{"name":"North"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	msg = readMessage(t, conn)
	require.Equal(t, MessageTypeBaronyUpdated, msg.Type)
	var updated BaronyEventData
	require.NoError(t, json.Unmarshal(msg.Data, &updated))
	assert.EqualValues(t, 1, updated.ID)
	require.NotNil(t, updated.Barony)
	assert.Equal(t, "North", updated.Barony.Name)

	w = ts.do(t, http.MethodDelete, "/api/baronies/1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	msg = readMessage(t, conn)
	assert.Equal(t, MessageTypeBaronyDeleted, msg.Type)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: MessageTypeGetStatus, RequestID: "r1"}))
	msg = readMessage(t, conn)
	require.Equal(t, MessageTypeStatus, msg.Type)
	assert.Equal(t, "r1", msg.RequestID)
	var status StatusData
	require.NoError(t, json.Unmarshal(msg.Data, &status))
	assert.Equal(t, 1, status.Clients)
	assert.EqualValues(t, 1, status.Revision)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: "bogus", RequestID: "r2"}))
	msg = readMessage(t, conn)
	assert.Equal(t, MessageTypeError, msg.Type)
	assert.Equal(t, "r2", msg.RequestID)
	assert.Contains(t, msg.Error, "unknown message type")

	conn.Close()
	assert.Eventually(t, func() bool { return ts.hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
