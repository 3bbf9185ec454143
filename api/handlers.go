package api

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/TheNaotagrey/Asgaria/storage"
	"github.com/TheNaotagrey/Asgaria/typedef"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const jsonContentType = "application/json; charset=utf-8"

func acceptsGzip(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		if strings.TrimSpace(strings.SplitN(part, ";", 2)[0]) == "gzip" {
			return true
		}
	}
	return false
}

func (s *Server) getPixels(c *gin.Context) {
	gz, rev, err := s.store.GetPixels(c.Request.Context())
	if errors.Is(err, storage.ErrNotFound) {
		c.Header(RevisionHeader, "0")
		c.Data(http.StatusOK, jsonContentType, []byte("{}"))
		return
	}
	if err != nil {
		handleError(c, err)
		return
	}

	c.Header(RevisionHeader, strconv.FormatInt(rev, 10))
	c.Header("Vary", "Accept-Encoding")
	if acceptsGzip(c.Request) {
		c.Header("Content-Encoding", "gzip")
		c.Data(http.StatusOK, jsonContentType, gz)
		return
	}
	raw, err := storage.DecompressJSON(gz)
	if err != nil {
		handleError(c, err)
		return
	}
	c.Data(http.StatusOK, jsonContentType, raw)
}

// cappedReader fails with ErrBodyTooLarge once more than max bytes were read.
type cappedReader struct {
	r    io.Reader
	max  int64
	read int64
}

func (c *cappedReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read += int64(n)
	if c.read > c.max {
		return n, ErrBodyTooLarge
	}
	return n, err
}

func (s *Server) readPixels(c *gin.Context) (typedef.PixelData, error) {
	var body io.Reader = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxBodyBytes)
	if strings.EqualFold(c.GetHeader("Content-Encoding"), "gzip") {
		zr, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPixels, err)
		}
		defer zr.Close()
		body = &cappedReader{r: zr, max: s.opts.MaxInflatedBytes}
	}

	var data typedef.PixelData
	if err := json.NewDecoder(body).Decode(&data); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.Is(err, ErrBodyTooLarge) || errors.As(err, &tooLarge) {
			return nil, ErrBodyTooLarge
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidPixels, err)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: expected an object", ErrInvalidPixels)
	}
	for id, coords := range data {
		if id == typedef.NoRegion {
			return nil, fmt.Errorf("%w: empty region id", ErrInvalidPixels)
		}
		for _, p := range coords {
			if p.X < 0 || p.Y < 0 ||
				(s.opts.MapWidth > 0 && p.X >= s.opts.MapWidth) ||
				(s.opts.MapHeight > 0 && p.Y >= s.opts.MapHeight) {
				return nil, fmt.Errorf("%w: region %s has out-of-bounds pixel [%d,%d]", ErrInvalidPixels, id, p.X, p.Y)
			}
		}
	}
	return data, nil
}

func (s *Server) putPixels(c *gin.Context) {
	data, err := s.readPixels(c)
	if err != nil {
		handleError(c, err)
		return
	}
	gz, err := storage.EncodePixels(data)
	if err != nil {
		handleError(c, err)
		return
	}
	rev, err := s.store.PutPixels(c.Request.Context(), gz)
	if err != nil {
		handleError(c, err)
		return
	}
	s.revision.Store(rev)

	s.log.WithFields(logrus.Fields{"regions": len(data), "pixels": data.PixelCount(), "revision": rev}).Info("pixels saved")
	s.hub.Publish(MessageTypePixelsSaved, PixelsSavedData{
		Regions:  len(data),
		Revision: rev,
		Origin:   c.GetHeader(ClientHeader),
	})
	c.Header(RevisionHeader, strconv.FormatInt(rev, 10))
	c.JSON(http.StatusOK, gin.H{"saved": len(data), "revision": rev})
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}
	return id, nil
}

func (s *Server) listBaronies(c *gin.Context) {
	ctx := c.Request.Context()
	raw, ok := c.GetQuery("id")
	if !ok {
		list, err := s.store.ListBaronies(ctx)
		if err != nil {
			handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
		return
	}

	id, err := parseID(raw)
	if err != nil {
		handleError(c, err)
		return
	}
	b, err := s.store.GetBarony(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusOK, []typedef.Barony{})
		return
	}
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, []typedef.Barony{b})
}

func (s *Server) createBarony(c *gin.Context) {
	var b typedef.Barony
	if err := c.ShouldBindJSON(&b); err != nil {
		handleError(c, fmt.Errorf("%w: %v", ErrInvalidBody, err))
		return
	}
	id, err := s.store.CreateBarony(c.Request.Context(), b)
	if err != nil {
		handleError(c, err)
		return
	}
	b.ID = id
	s.hub.Publish(MessageTypeBaronyCreated, BaronyEventData{ID: id, Barony: &b, Origin: c.GetHeader(ClientHeader)})
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) putBarony(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	var fields typedef.BaronyFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		handleError(c, fmt.Errorf("%w: %v", ErrInvalidBody, err))
		return
	}
	n, err := s.store.PutBarony(c.Request.Context(), id, fields)
	if err != nil {
		handleError(c, err)
		return
	}

	b := typedef.Barony{ID: id}
	fields.Apply(&b)
	s.hub.Publish(MessageTypeBaronyUpdated, BaronyEventData{ID: id, Barony: &b, Origin: c.GetHeader(ClientHeader)})
	c.JSON(http.StatusOK, gin.H{"changes": n})
}

func (s *Server) deleteBarony(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	n, err := s.store.DeleteBarony(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	if n > 0 {
		s.hub.Publish(MessageTypeBaronyDeleted, BaronyEventData{ID: id, Origin: c.GetHeader(ClientHeader)})
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}
