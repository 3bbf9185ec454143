// Package client talks to the barony backend on behalf of the editor.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/TheNaotagrey/Asgaria/api"
	"github.com/TheNaotagrey/Asgaria/storage"
	"github.com/TheNaotagrey/Asgaria/typedef"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxTries        = 4
	DefaultTimeout         = 30 * time.Second
	DefaultInitialInterval = 250 * time.Millisecond
)

// Options configure a Client. Zero values pick the defaults.
type Options struct {
	// ClientID is sent with every request so the editor can recognise its own events.
	ClientID        string
	MaxTries        uint
	Timeout         time.Duration
	InitialInterval time.Duration
	HTTPClient      *http.Client
}

// Client is the REST client for the barony backend.
type Client struct {
	base string
	id   string
	http *http.Client

	maxTries        uint
	initialInterval time.Duration
	log             *logrus.Entry
}

// SaveResult is the body of a successful PUT /api/barony_pixels.
type SaveResult struct {
	Saved    int   `json:"saved"`
	Revision int64 `json:"revision"`
}

// New creates a client for the backend at base, e.g. http://localhost:3000.
func New(base string, opts Options) *Client {
	if opts.MaxTries == 0 {
		opts.MaxTries = DefaultMaxTries
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = DefaultInitialInterval
	}
	if opts.ClientID == "" {
		opts.ClientID = strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		base:            strings.TrimRight(base, "/"),
		id:              opts.ClientID,
		http:            httpClient,
		maxTries:        opts.MaxTries,
		initialInterval: opts.InitialInterval,
		log:             logrus.WithFields(logrus.Fields{"component": "client", "client": opts.ClientID}),
	}
}

// ID returns the id sent in the client header.
func (c *Client) ID() string { return c.id }

type request struct {
	method string
	path   string
	body   []byte
	gzip   bool
}

// do sends req with retries and decodes a JSON response into out when non-nil.
// Network errors and 5xx responses are retried; other statuses fail at once.
func (c *Client) do(ctx context.Context, req request, out any) (http.Header, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialInterval

	attempt := 0
	op := func() (http.Header, error) {
		attempt++
		header, err := c.once(ctx, req, out)
		if err == nil {
			return header, nil
		}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		var se *StatusError
		if errors.As(err, &se) && !se.Temporary() {
			return nil, backoff.Permanent(err)
		}
		if errors.Is(err, ErrUnexpectedResponse) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.log.WithError(err).WithFields(logrus.Fields{
				"method":  req.method,
				"path":    req.path,
				"attempt": attempt,
				"retry":   next,
			}).Warn("request failed, retrying")
		}),
	)
}

func (c *Client) once(ctx context.Context, req request, out any) (http.Header, error) {
	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.base+req.path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set(api.ClientHeader, c.id)
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
		if req.gzip {
			httpReq.Header.Set("Content-Encoding", "gzip")
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", req.method, req.path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Method: req.method, Path: req.path, StatusCode: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &payload) == nil {
			se.Message = payload.Error
		}
		return nil, se
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, fmt.Errorf("%w: %s %s: %v", ErrUnexpectedResponse, req.method, req.path, err)
		}
	}
	return resp.Header, nil
}

// GetPixels fetches the pixel map and its revision.
func (c *Client) GetPixels(ctx context.Context) (typedef.PixelData, int64, error) {
	var data typedef.PixelData
	header, err := c.do(ctx, request{method: http.MethodGet, path: "/api/barony_pixels"}, &data)
	if err != nil {
		return nil, 0, err
	}
	if data == nil {
		data = typedef.PixelData{}
	}
	rev, _ := strconv.ParseInt(header.Get(api.RevisionHeader), 10, 64)
	return data, rev, nil
}

// PutPixels replaces the pixel map. The body is sent gzip-compressed.
func (c *Client) PutPixels(ctx context.Context, data typedef.PixelData) (SaveResult, error) {
	gz, err := storage.EncodePixels(data)
	if err != nil {
		return SaveResult{}, err
	}
	var res SaveResult
	if _, err := c.do(ctx, request{method: http.MethodPut, path: "/api/barony_pixels", body: gz, gzip: true}, &res); err != nil {
		return SaveResult{}, err
	}
	c.log.WithFields(logrus.Fields{"regions": res.Saved, "revision": res.Revision}).Info("pixels saved")
	return res, nil
}

// ListBaronies returns every barony record.
func (c *Client) ListBaronies(ctx context.Context) ([]typedef.Barony, error) {
	var list []typedef.Barony
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/api/baronies"}, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetBarony returns one record. The bool is false when the id is unknown.
func (c *Client) GetBarony(ctx context.Context, id int64) (typedef.Barony, bool, error) {
	var list []typedef.Barony
	path := "/api/baronies?" + url.Values{"id": {strconv.FormatInt(id, 10)}}.Encode()
	if _, err := c.do(ctx, request{method: http.MethodGet, path: path}, &list); err != nil {
		return typedef.Barony{}, false, err
	}
	if len(list) == 0 {
		return typedef.Barony{}, false, nil
	}
	return list[0], true, nil
}

// CreateBarony inserts a record and returns its id.
func (c *Client) CreateBarony(ctx context.Context, b typedef.Barony) (int64, error) {
	body, err := json.Marshal(b)
	if err != nil {
		return 0, fmt.Errorf("marshal barony: %w", err)
	}
	var res struct {
		ID int64 `json:"id"`
	}
	if _, err := c.do(ctx, request{method: http.MethodPost, path: "/api/baronies", body: body}, &res); err != nil {
		return 0, err
	}
	return res.ID, nil
}

// PutBarony writes the metadata of id and returns the number of rows changed.
func (c *Client) PutBarony(ctx context.Context, id int64, fields typedef.BaronyFields) (int64, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return 0, fmt.Errorf("marshal barony: %w", err)
	}
	var res struct {
		Changes int64 `json:"changes"`
	}
	path := "/api/baronies/" + strconv.FormatInt(id, 10)
	if _, err := c.do(ctx, request{method: http.MethodPut, path: path, body: body}, &res); err != nil {
		return 0, err
	}
	return res.Changes, nil
}

// DeleteBarony removes the record of id and returns the number of rows deleted.
func (c *Client) DeleteBarony(ctx context.Context, id int64) (int64, error) {
	var res struct {
		Deleted int64 `json:"deleted"`
	}
	path := "/api/baronies/" + strconv.FormatInt(id, 10)
	if _, err := c.do(ctx, request{method: http.MethodDelete, path: path}, &res); err != nil {
		return 0, err
	}
	return res.Deleted, nil
}

// Status fetches the backend status.
func (c *Client) Status(ctx context.Context) (api.StatusData, error) {
	var status api.StatusData
	_, err := c.do(ctx, request{method: http.MethodGet, path: "/api/status"}, &status)
	return status, err
}
