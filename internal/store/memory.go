package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store used for development mode and tests. Data
// round-trips through JSON on write so documents hold exactly the value
// types the Postgres driver produces (string, float64, bool, []any,
// map[string]any).
type Memory struct {
	mu          sync.Mutex
	collections map[string]map[string]Document
	lastClock   time.Time
	reg         *registry
}

func NewMemory() *Memory {
	m := &Memory{collections: make(map[string]map[string]Document)}
	m.reg = newRegistry(m.eval)
	return m
}

// now returns a strictly increasing clock so document order under equal
// wall-clock reads stays deterministic.
func (m *Memory) now() time.Time {
	t := time.Now().UTC()
	if !t.After(m.lastClock) {
		t = m.lastClock.Add(time.Nanosecond)
	}
	m.lastClock = t
	return t
}

func (m *Memory) Add(ctx context.Context, collection string, data map[string]any) (Document, error) {
	m.mu.Lock()
	now := m.now()
	normalized, err := normalizeData(resolveTimestamps(data, now))
	if err != nil {
		m.mu.Unlock()
		return Document{}, err
	}

	doc := Document{
		ID:        uuid.NewString(),
		Data:      normalized,
		CreatedAt: now,
		UpdatedAt: now,
	}
	col, ok := m.collections[collection]
	if !ok {
		col = make(map[string]Document)
		m.collections[collection] = col
	}
	col[doc.ID] = doc
	m.mu.Unlock()

	m.reg.broadcast(collection)
	return doc, nil
}

func (m *Memory) Set(ctx context.Context, collection, id string, data map[string]any) error {
	m.mu.Lock()
	now := m.now()
	normalized, err := normalizeData(resolveTimestamps(data, now))
	if err != nil {
		m.mu.Unlock()
		return err
	}

	col, ok := m.collections[collection]
	if !ok {
		col = make(map[string]Document)
		m.collections[collection] = col
	}
	doc, exists := col[id]
	if !exists {
		doc = Document{ID: id, Data: make(map[string]any), CreatedAt: now}
	}
	merged := make(map[string]any, len(doc.Data)+len(normalized))
	for k, v := range doc.Data {
		merged[k] = v
	}
	for k, v := range normalized {
		merged[k] = v
	}
	doc.Data = merged
	doc.UpdatedAt = now
	col[id] = doc
	m.mu.Unlock()

	m.reg.broadcast(collection)
	return nil
}

func (m *Memory) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	col, ok := m.collections[collection]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	doc, exists := col[id]
	if !exists {
		m.mu.Unlock()
		return ErrNotFound
	}

	now := m.now()
	normalized, err := normalizeData(resolveTimestamps(fields, now))
	if err != nil {
		m.mu.Unlock()
		return err
	}
	merged := make(map[string]any, len(doc.Data)+len(normalized))
	for k, v := range doc.Data {
		merged[k] = v
	}
	for k, v := range normalized {
		merged[k] = v
	}
	doc.Data = merged
	doc.UpdatedAt = now
	col[id] = doc
	m.mu.Unlock()

	m.reg.broadcast(collection)
	return nil
}

func (m *Memory) Get(ctx context.Context, collection, id string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if col, ok := m.collections[collection]; ok {
		if doc, exists := col[id]; exists {
			return copyDocument(doc), nil
		}
	}
	return Document{}, ErrNotFound
}

func (m *Memory) GetAll(ctx context.Context, q Query) ([]Document, error) {
	return m.eval(q)
}

func (m *Memory) Subscribe(q Query, onSnapshot SnapshotFunc, onError ErrorFunc) func() {
	return m.reg.subscribe(q, onSnapshot, onError)
}

func (m *Memory) Close() error {
	return nil
}

func (m *Memory) eval(q Query) ([]Document, error) {
	m.mu.Lock()
	var docs []Document
	for _, doc := range m.collections[q.Collection] {
		if matches(doc, q.Filters) {
			docs = append(docs, copyDocument(doc))
		}
	}
	m.mu.Unlock()

	sortDocuments(docs, q)
	return docs, nil
}

func matches(doc Document, filters []Filter) bool {
	for _, f := range filters {
		val, ok := doc.Data[f.Field]
		if !ok {
			return false
		}
		switch f.Op {
		case OpEqual:
			if !jsonEqual(val, f.Value) {
				return false
			}
		case OpArrayContains:
			items, ok := val.([]any)
			if !ok {
				return false
			}
			found := false
			for _, item := range items {
				if jsonEqual(item, f.Value) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func sortDocuments(docs []Document, q Query) {
	sort.SliceStable(docs, func(i, j int) bool {
		var c int
		if q.OrderBy != "" {
			c = compareValues(docs[i].Data[q.OrderBy], docs[j].Data[q.OrderBy])
		} else {
			c = docs[i].CreatedAt.Compare(docs[j].CreatedAt)
		}
		if q.Descending {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		// Stable-but-arbitrary tie break, matching the Postgres driver.
		return docs[i].ID < docs[j].ID
	})
}

func compareValues(a, b any) int {
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs)
	}
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func jsonEqual(a, b any) bool {
	ab, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return string(ab) == string(bb)
}

func normalizeData(data map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return out, nil
}

func copyDocument(doc Document) Document {
	data := make(map[string]any, len(doc.Data))
	for k, v := range doc.Data {
		data[k] = v
	}
	doc.Data = data
	return doc
}
