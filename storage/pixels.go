package storage

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"

	"github.com/TheNaotagrey/Asgaria/typedef"
)

// EncodePixels serialises pixel data as gzip-compressed JSON.
func EncodePixels(data typedef.PixelData) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal pixels: %w", err)
	}
	return CompressJSON(raw)
}

// CompressJSON gzips an already-encoded JSON document.
func CompressJSON(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		zw.Close()
		return nil, fmt.Errorf("compress pixels: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress pixels: %w", err)
	}
	return buf.Bytes(), nil
}

// DecompressJSON returns the JSON document inside gz.
func DecompressJSON(gz []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(gz))
	if err != nil {
		return nil, fmt.Errorf("open gzip: %w", err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress pixels: %w", err)
	}
	return raw, nil
}

// DecodePixels reverses EncodePixels.
func DecodePixels(gz []byte) (typedef.PixelData, error) {
	raw, err := DecompressJSON(gz)
	if err != nil {
		return nil, err
	}
	var data typedef.PixelData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("unmarshal pixels: %w", err)
	}
	return data, nil
}
