// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package projection_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"testing"

	"github.com/sigil-dev/projector/internal/projection"
	"github.com/stretchr/testify/require"
)

// --- hashing ---

func testHash(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func testKeys() *projection.KeyResolver {
	return projection.NewKeyResolver(testHash)
}

// --- fake query and facts ---

type fakeQuery struct{ name string }

func (q *fakeQuery) QueryName() string { return q.name }

type fakeFact struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// --- fake collection ---

type fakeCollection struct {
	mu       sync.Mutex
	handlers []projection.ElementHandler
}

func (c *fakeCollection) OnAdded(h projection.ElementHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, h)
}

// Add delivers v to every registered handler and returns their removal funcs.
func (c *fakeCollection) Add(v projection.Value) []projection.RemoveFunc {
	c.mu.Lock()
	handlers := append([]projection.ElementHandler(nil), c.handlers...)
	c.mu.Unlock()

	removes := make([]projection.RemoveFunc, 0, len(handlers))
	for _, h := range handlers {
		removes = append(removes, h(v))
	}
	return removes
}

func (c *fakeCollection) HandlerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handlers)
}

// --- fake store ---

type fakeSubscription struct {
	handler projection.ElementHandler
	query   string
	given   []any
	cached  bool
	loaded  chan error

	mu     sync.Mutex
	closed bool
}

func (s *fakeSubscription) Cached(context.Context) (bool, error) { return s.cached, nil }

func (s *fakeSubscription) Loaded(ctx context.Context) error {
	select {
	case err := <-s.loaded:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *fakeSubscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSubscription) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Add delivers a top-level element.
func (s *fakeSubscription) Add(v projection.Value) projection.RemoveFunc {
	return s.handler(v)
}

type fakeStore struct {
	mu           sync.Mutex
	initial      []projection.Value
	cached       bool
	uncached     map[string]bool // query names that start loading regardless of cached
	subscribeErr error
	subs         []*fakeSubscription
}

func newFakeStore(cached bool, initial ...projection.Value) *fakeStore {
	return &fakeStore{cached: cached, initial: initial}
}

func (f *fakeStore) Subscribe(_ context.Context, q projection.Query, given []any, h projection.ElementHandler) (projection.Subscription, error) {
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	sub := &fakeSubscription{
		handler: h,
		query:   q.QueryName(),
		given:   given,
		cached:  f.cached && !f.uncached[q.QueryName()],
		loaded:  make(chan error, 1),
	}
	f.mu.Lock()
	f.subs = append(f.subs, sub)
	f.mu.Unlock()

	for _, v := range f.initial {
		h(v)
	}
	return sub, nil
}

func (f *fakeStore) HashOf(v any) string { return testHash(v) }

func (f *fakeStore) Subs() []*fakeSubscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeSubscription(nil), f.subs...)
}

func (f *fakeStore) Last(t *testing.T) *fakeSubscription {
	t.Helper()
	subs := f.Subs()
	require.NotEmpty(t, subs, "no subscription started")
	return subs[len(subs)-1]
}

// --- values ---

func itemValue(id string, subItems *fakeCollection) projection.Value {
	fields := []projection.Field{
		projection.NamedValue("id", projection.ScalarValue(id)),
	}
	if subItems != nil {
		fields = append(fields, projection.NamedValue("subItems", projection.CollectionValue(subItems)))
	}
	return projection.RecordValue("", fields...)
}

func factValue(hash, value string) projection.Value {
	return projection.RecordValue(hash,
		projection.NamedValue("type", projection.ScalarValue("Application.Item.Description")),
		projection.NamedValue("value", projection.ScalarValue(value)),
	)
}

func idsOf(list []projection.Snapshot) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		id, ok := s.Field("id")
		if !ok {
			out = append(out, s.Hash())
			continue
		}
		out = append(out, id.Scalar().(string))
	}
	return out
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

// SubFor returns the latest subscription started for the named query.
func (f *fakeStore) SubFor(t *testing.T, name string) *fakeSubscription {
	t.Helper()
	subs := f.Subs()
	for i := len(subs) - 1; i >= 0; i-- {
		if subs[i].query == name {
			return subs[i]
		}
	}
	require.FailNow(t, "no subscription for query", name)
	return nil
}
