// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/docqa/core"
)

// Writer appends MUS-encoded values to a growing buffer.
type Writer struct {
	buf []byte
}

func (w *Writer) grow(n int) []byte {
	l := len(w.buf)
	w.buf = slices.Grow(w.buf, n)[:l+n]
	return w.buf[l:]
}

// Uint64 writes a varint-encoded unsigned integer.
func (w *Writer) Uint64(v uint64) {
	varint.Uint64.Marshal(v, w.grow(varint.Uint64.Size(v)))
}

// Int writes a varint-encoded signed integer.
func (w *Writer) Int(v int) {
	varint.Int64.Marshal(int64(v), w.grow(varint.Int64.Size(int64(v))))
}

// Len writes a non-negative length prefix.
func (w *Writer) Len(n int) {
	varint.PositiveInt.Marshal(n, w.grow(varint.PositiveInt.Size(n)))
}

// String writes a length-prefixed string.
func (w *Writer) String(s string) {
	ord.String.Marshal(s, w.grow(ord.String.Size(s)))
}

// Time writes a timestamp with microsecond precision.
func (w *Writer) Time(t time.Time) {
	us := t.UnixMicro()
	varint.Int64.Marshal(us, w.grow(varint.Int64.Size(us)))
}

// Float32s writes a length-prefixed vector.
func (w *Writer) Float32s(v []float32) {
	w.Len(len(v))
	for _, f := range v {
		bits := math.Float32bits(f)
		varint.Uint32.Marshal(bits, w.grow(varint.Uint32.Size(bits)))
	}
}

// Ints writes a length-prefixed list of integers.
func (w *Writer) Ints(v []int) {
	w.Len(len(v))
	for _, i := range v {
		w.Int(i)
	}
}

// StringMap writes a map in sorted key order so equal maps encode identically.
func (w *Writer) StringMap(m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	w.Len(len(keys))
	for _, k := range keys {
		w.String(k)
		w.String(m[k])
	}
}

// Bytes returns the encoded buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Reader decodes values written by Writer. The first failure sticks and
// every later read returns a zero value; check Err once at the end.
type Reader struct {
	bs  []byte
	err error
}

// NewReader reads from data.
func NewReader(data []byte) *Reader {
	return &Reader{bs: data}
}

func (r *Reader) advance(n int, err error) bool {
	if err != nil {
		r.err = err
		return false
	}
	r.bs = r.bs[n:]
	return true
}

// Uint64 reads a varint-encoded unsigned integer.
func (r *Reader) Uint64() uint64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Uint64.Unmarshal(r.bs)
	if !r.advance(n, err) {
		return 0
	}
	return v
}

// Int reads a varint-encoded signed integer.
func (r *Reader) Int() int {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Int64.Unmarshal(r.bs)
	if !r.advance(n, err) {
		return 0
	}
	return int(v)
}

// Len reads a length prefix and rejects values larger than the remaining input.
func (r *Reader) Len() int {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.PositiveInt.Unmarshal(r.bs)
	if !r.advance(n, err) {
		return 0
	}
	if v < 0 || v > len(r.bs) {
		r.err = fmt.Errorf("%w: length %d exceeds %d remaining bytes", ErrTruncatedData, v, len(r.bs))
		return 0
	}
	return v
}

// String reads a length-prefixed string.
func (r *Reader) String() string {
	if r.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(r.bs)
	if !r.advance(n, err) {
		return ""
	}
	return v
}

// Time reads a timestamp written by Writer.Time, in UTC.
func (r *Reader) Time() time.Time {
	if r.err != nil {
		return time.Time{}
	}
	v, n, err := varint.Int64.Unmarshal(r.bs)
	if !r.advance(n, err) {
		return time.Time{}
	}
	return time.UnixMicro(v).UTC()
}

// Float32s reads a length-prefixed vector.
func (r *Reader) Float32s() []float32 {
	l := r.Len()
	if r.err != nil {
		return nil
	}
	out := make([]float32, l)
	for i := range out {
		bits, n, err := varint.Uint32.Unmarshal(r.bs)
		if !r.advance(n, err) {
			return nil
		}
		out[i] = math.Float32frombits(bits)
	}
	return out
}

// Ints reads a length-prefixed list of integers.
func (r *Reader) Ints() []int {
	l := r.Len()
	if r.err != nil {
		return nil
	}
	out := make([]int, l)
	for i := range out {
		out[i] = r.Int()
	}
	if r.err != nil {
		return nil
	}
	return out
}

// StringMap reads a map written by Writer.StringMap.
func (r *Reader) StringMap() map[string]string {
	l := r.Len()
	if r.err != nil {
		return nil
	}
	out := make(map[string]string, l)
	for range l {
		k := r.String()
		v := r.String()
		if r.err != nil {
			return nil
		}
		out[k] = v
	}
	return out
}

// Err reports the first decoding failure, wrapped in ErrSerializationFailed.
func (r *Reader) Err() error {
	if r.err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrSerializationFailed, r.err)
}

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	var w Writer
	w.Uint64(uint64(id))
	return w.Bytes()
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	r := NewReader(data)
	id := core.ID(r.Uint64())
	return id, r.Err()
}

// MarshalCollection serializes a Collection to bytes.
func MarshalCollection(c *core.Collection) []byte {
	var w Writer
	w.Uint64(uint64(c.ID))
	w.String(c.Name)
	w.String(c.Description)
	w.Time(c.CreatedAt)
	w.Time(c.UpdatedAt)
	return w.Bytes()
}

// UnmarshalCollection deserializes a Collection from bytes.
func UnmarshalCollection(data []byte) (*core.Collection, error) {
	r := NewReader(data)
	c := &core.Collection{
		ID:          core.ID(r.Uint64()),
		Name:        r.String(),
		Description: r.String(),
		CreatedAt:   r.Time(),
		UpdatedAt:   r.Time(),
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

// MarshalDocument serializes a Document to bytes.
func MarshalDocument(d *core.Document) []byte {
	var w Writer
	w.Uint64(uint64(d.ID))
	w.Uint64(uint64(d.CollectionID))
	w.String(d.Title)
	w.String(d.Filename)
	w.String(d.FilePath)
	w.String(string(d.Status))
	w.Time(d.CreatedAt)
	w.Time(d.UpdatedAt)
	return w.Bytes()
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	r := NewReader(data)
	d := &core.Document{
		ID:           core.ID(r.Uint64()),
		CollectionID: core.ID(r.Uint64()),
		Title:        r.String(),
		Filename:     r.String(),
		FilePath:     r.String(),
		Status:       core.DocumentStatus(r.String()),
		CreatedAt:    r.Time(),
		UpdatedAt:    r.Time(),
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return d, nil
}

// MarshalQueryRecord serializes a QueryRecord to bytes.
func MarshalQueryRecord(q *core.QueryRecord) []byte {
	var w Writer
	w.Uint64(uint64(q.ID))
	w.Uint64(uint64(q.CollectionID))
	w.String(q.Question)
	w.String(q.Answer)
	w.Int(q.SourcesCount)
	w.Time(q.Timestamp)
	return w.Bytes()
}

// UnmarshalQueryRecord deserializes a QueryRecord from bytes.
func UnmarshalQueryRecord(data []byte) (*core.QueryRecord, error) {
	r := NewReader(data)
	q := &core.QueryRecord{
		ID:           core.ID(r.Uint64()),
		CollectionID: core.ID(r.Uint64()),
		Question:     r.String(),
		Answer:       r.String(),
		SourcesCount: r.Int(),
		Timestamp:    r.Time(),
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return q, nil
}

// MarshalVector serializes an embedding vector to bytes.
func MarshalVector(v []float32) []byte {
	var w Writer
	w.Float32s(v)
	return w.Bytes()
}

// UnmarshalVector deserializes an embedding vector from bytes.
func UnmarshalVector(data []byte) ([]float32, error) {
	r := NewReader(data)
	v := r.Float32s()
	return v, r.Err()
}
