// Package codec converts typed values to and from the byte payloads held
// by cache entries, compressing large payloads when it pays off.
package codec

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"

	"github.com/felixgeelhaar/cacheflow/domain/cache"
)

// Codec serializes values as JSON and gzips payloads at or above the
// threshold when the compressed form saves at least MinSavings.
type Codec struct {
	threshold  int
	minSavings float64
}

// Option configures the codec.
type Option func(*Codec)

// WithThreshold sets the minimum payload size considered for compression.
func WithThreshold(bytes int) Option {
	return func(c *Codec) {
		c.threshold = bytes
	}
}

// WithMinSavings sets the fraction of bytes compression must save for the
// compressed form to be kept (0.2 = at least 20% smaller).
func WithMinSavings(ratio float64) Option {
	return func(c *Codec) {
		c.minSavings = ratio
	}
}

// New creates a codec. Defaults: compress at 1 KiB, keep only if it saves
// at least 20%.
func New(opts ...Option) *Codec {
	c := &Codec{
		threshold:  1024,
		minSavings: 0.2,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EncodeValue serializes a value, returning the payload, whether it was
// compressed, and the bytes saved by compression (zero when uncompressed).
func (c *Codec) EncodeValue(v any) (payload []byte, compressed bool, saved int, err error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, false, 0, fmt.Errorf("%w: %v", cache.ErrSerialization, err)
	}

	if len(raw) < c.threshold {
		return raw, false, 0, nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, false, 0, fmt.Errorf("%w: %v", cache.ErrSerialization, err)
	}
	if err := zw.Close(); err != nil {
		return nil, false, 0, fmt.Errorf("%w: %v", cache.ErrSerialization, err)
	}

	gain := len(raw) - buf.Len()
	if float64(gain) < c.minSavings*float64(len(raw)) {
		// Not worth it: store uncompressed.
		return raw, false, 0, nil
	}
	return buf.Bytes(), true, gain, nil
}

// DecodeValue reverses EncodeValue into out, which must be a pointer.
func (c *Codec) DecodeValue(payload []byte, compressed bool, out any) error {
	raw := payload
	if compressed {
		zr, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("%w: %v", cache.ErrSerialization, err)
		}
		raw, err = io.ReadAll(zr)
		if err != nil {
			return fmt.Errorf("%w: %v", cache.ErrSerialization, err)
		}
		if err := zr.Close(); err != nil {
			return fmt.Errorf("%w: %v", cache.ErrSerialization, err)
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", cache.ErrSerialization, err)
	}
	return nil
}

// RawValue returns the decompressed payload bytes without decoding them,
// used by bulk reads where callers own the typed decode.
func (c *Codec) RawValue(payload []byte, compressed bool) (json.RawMessage, error) {
	if !compressed {
		return json.RawMessage(payload), nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cache.ErrSerialization, err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cache.ErrSerialization, err)
	}
	if err := zr.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", cache.ErrSerialization, err)
	}
	return json.RawMessage(raw), nil
}

// MarshalEntry renders an entry (payload plus header) for a backing store.
func (c *Codec) MarshalEntry(e *cache.Entry) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cache.ErrSerialization, err)
	}
	return data, nil
}

// UnmarshalEntry parses a stored entry. Corrupt data is a serialization
// error; the orchestrator treats it as a miss.
func (c *Codec) UnmarshalEntry(data []byte) (*cache.Entry, error) {
	var e cache.Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", cache.ErrSerialization, err)
	}
	return &e, nil
}
