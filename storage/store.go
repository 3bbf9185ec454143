package storage

import (
	"context"
	"errors"

	"github.com/TheNaotagrey/Asgaria/typedef"
)

var (
	// ErrNotFound indicates a requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a record with the same id exists.
	ErrAlreadyExists = errors.New("record already exists")
)

// BaronyStore persists barony metadata.
type BaronyStore interface {
	ListBaronies(ctx context.Context) ([]typedef.Barony, error)
	GetBarony(ctx context.Context, id int64) (typedef.Barony, error)
	// CreateBarony inserts b. A zero ID lets the store pick one.
	CreateBarony(ctx context.Context, b typedef.Barony) (int64, error)
	// PutBarony writes fields for id, inserting the row when it is missing.
	PutBarony(ctx context.Context, id int64, fields typedef.BaronyFields) (int64, error)
	DeleteBarony(ctx context.Context, id int64) (int64, error)
}

// PixelStore persists the whole barony pixel map as one gzip-compressed JSON document.
type PixelStore interface {
	// GetPixels returns the compressed document and its revision, or ErrNotFound.
	GetPixels(ctx context.Context) (gz []byte, revision int64, err error)
	// PutPixels replaces the document and returns the new revision.
	PutPixels(ctx context.Context, gz []byte) (int64, error)
}

// Store is everything the REST backend needs.
type Store interface {
	BaronyStore
	PixelStore
	Close() error
}
