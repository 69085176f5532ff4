package models

import (
	"bytes"
	"encoding/json"
)

// GroupTotal is the accumulated amount and record count for one
// breakdown key.
type GroupTotal struct {
	Amount float64 `json:"amount"`
	Count  int     `json:"count"`
}

// Breakdown aggregates records by a grouping key. Keys keep first-seen
// order for iteration and JSON output, which also makes max-scans over
// the breakdown deterministic under ties.
type Breakdown struct {
	keys    []string
	entries map[string]*GroupTotal
}

func NewBreakdown() *Breakdown {
	return &Breakdown{entries: make(map[string]*GroupTotal)}
}

// Add accumulates amount under key and increments the key's count.
func (b *Breakdown) Add(key string, amount float64) {
	entry, ok := b.entries[key]
	if !ok {
		entry = &GroupTotal{}
		b.entries[key] = entry
		b.keys = append(b.keys, key)
	}
	entry.Amount += amount
	entry.Count++
}

func (b *Breakdown) Get(key string) (GroupTotal, bool) {
	entry, ok := b.entries[key]
	if !ok {
		return GroupTotal{}, false
	}
	return *entry, true
}

// Keys returns the grouping keys in first-seen order.
func (b *Breakdown) Keys() []string {
	return b.keys
}

func (b *Breakdown) Len() int {
	return len(b.keys)
}

func (b *Breakdown) MarshalJSON() ([]byte, error) {
	return marshalOrdered(b.keys, func(key string) any { return b.entries[key] })
}

// AmountByKey sums amounts per key, preserving first-seen key order.
type AmountByKey struct {
	keys   []string
	totals map[string]float64
}

func NewAmountByKey() *AmountByKey {
	return &AmountByKey{totals: make(map[string]float64)}
}

func (m *AmountByKey) Add(key string, amount float64) {
	if _, ok := m.totals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.totals[key] += amount
}

func (m *AmountByKey) Get(key string) float64 {
	return m.totals[key]
}

// Keys returns the keys in first-seen order.
func (m *AmountByKey) Keys() []string {
	return m.keys
}

func (m *AmountByKey) Len() int {
	return len(m.keys)
}

func (m *AmountByKey) MarshalJSON() ([]byte, error) {
	return marshalOrdered(m.keys, func(key string) any { return m.totals[key] })
}

func marshalOrdered(keys []string, value func(string) any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(value(key))
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
