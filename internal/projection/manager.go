// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package projection

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	projerr "github.com/sigil-dev/projector/pkg/errors"
)

// Result is the host-facing view of a subscription. Data is nil exactly when
// the subscription is not ready or Err is set.
type Result struct {
	Loading bool
	Data    []Snapshot
	Err     error
}

// Ready reports whether Data holds a settled result.
func (r Result) Ready() bool {
	return r.Data != nil
}

// Option configures a Manager or Compound.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	loadTimeout time.Duration
	hash        HashFunc
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithLoadTimeout bounds the wait for the store's fully-loaded signal. Zero
// waits until teardown.
func WithLoadTimeout(d time.Duration) Option {
	return func(o *options) { o.loadTimeout = d }
}

// WithHashFunc overrides the store's HashOf for identity keys.
func WithHashFunc(h HashFunc) Option {
	return func(o *options) { o.hash = h }
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// subscription is one started store watch. gen is the manager generation it
// belongs to; mutations tagged with an older generation are dropped.
type subscription struct {
	id     string
	gen    uint64
	sub    Subscription
	cancel context.CancelFunc
	done   chan struct{} // closed once no load wait is pending
}

// Manager owns the subscription for one (query, given) pair and the result
// list it materializes.
//
// Store callbacks may arrive on any goroutine. Every change is an updater
// applied to the current list under mu, so results are linearizable in
// arrival order. Watchers must not call Update or Close synchronously.
type Manager struct {
	store  Store
	keys   *KeyResolver
	binder *Binder
	logger *slog.Logger

	loadTimeout time.Duration

	updateMu sync.Mutex // serializes Update and Close
	notifyMu sync.Mutex // orders watcher notifications

	mu       sync.Mutex
	query    Query
	inputs   []string
	gen      uint64
	current  *subscription
	state    CacheState
	results  []Snapshot
	err      error
	watchers map[uint64]func(Result)
	nextID   uint64
	closed   bool
}

// NewManager creates an idle Manager over store.
func NewManager(store Store, opts ...Option) *Manager {
	o := buildOptions(opts)
	hash := o.hash
	if hash == nil {
		hash = store.HashOf
	}
	keys := NewKeyResolver(hash)
	return &Manager{
		store:       store,
		keys:        keys,
		binder:      NewBinder(keys),
		logger:      o.logger,
		loadTimeout: o.loadTimeout,
		watchers:    make(map[uint64]func(Result)),
	}
}

// Update points the manager at q with the given facts. A nil given withholds
// that input: the current subscription is torn down and none is started until
// every input is present. Calling Update with the same query and the same
// given identities is a no-op. Store failures are recorded on the Result, not
// returned.
func (m *Manager) Update(ctx context.Context, q Query, given ...any) error {
	if q == nil {
		return projerr.New(projerr.CodeProjectionInputInvalid, "query is required")
	}

	m.updateMu.Lock()
	defer m.updateMu.Unlock()

	inputs, known := m.identify(given)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return projerr.New(projerr.CodeProjectionStateInvalid, "manager is closed")
	}
	if sameQuery(m.query, q) && slices.Equal(m.inputs, inputs) {
		m.mu.Unlock()
		return nil
	}

	old := m.detachLocked()
	m.query = q
	m.inputs = inputs

	var cur *subscription
	var subCtx context.Context
	if known {
		m.gen++
		var cancel context.CancelFunc
		subCtx, cancel = context.WithCancel(context.WithoutCancel(ctx))
		cur = &subscription{
			id:     uuid.NewString(),
			gen:    m.gen,
			cancel: cancel,
			done:   make(chan struct{}),
		}
		m.current = cur
		m.results = []Snapshot{}
	}
	m.mu.Unlock()

	if err := m.release(old); err != nil {
		m.logger.Warn("closing previous subscription", "error", err)
	}
	if cur != nil {
		m.start(ctx, subCtx, cur, q, given)
	}
	m.notify()
	return nil
}

// sameQuery reports whether a and b are the same query. Queries of a type
// that is not comparable never match, so every Update with one resubscribes.
func sameQuery(a, b Query) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	t := reflect.TypeOf(a)
	if t != reflect.TypeOf(b) || !t.Comparable() {
		return false
	}
	return a == b
}

// identify hashes every given. known is false if any given is withheld.
func (m *Manager) identify(given []any) ([]string, bool) {
	ids := make([]string, len(given))
	known := true
	for i, g := range given {
		if isNil(g) {
			known = false
			continue
		}
		ids[i] = m.store.HashOf(g)
	}
	return ids, known
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

func (m *Manager) start(ctx, subCtx context.Context, cur *subscription, q Query, given []any) {
	log := m.logger.With("subscription_id", cur.id, "query", q.QueryName(), "generation", cur.gen)
	fields := []projerr.Attr{projerr.FieldSubscriptionID(cur.id), projerr.FieldQuery(q.QueryName())}

	mutate := func(at Path, fn ListUpdater) {
		m.apply(cur.gen, at, fn)
	}

	sub, err := m.store.Subscribe(subCtx, q, given, m.binder.Handler(nil, mutate))
	if err != nil {
		close(cur.done)
		err = projerr.Wrap(err, projerr.CodeProjectionSubscribeFailure, "subscribing", fields...)
		log.Warn("subscribe failed", "error", err)
		m.settle(cur.gen, err)
		return
	}
	cur.sub = sub
	log.Debug("subscription started")

	cached, err := sub.Cached(ctx)
	if err != nil {
		close(cur.done)
		err = projerr.Wrap(err, projerr.CodeProjectionLoadFailure, "checking cache", fields...)
		log.Warn("cache check failed", "error", err)
		m.settle(cur.gen, err)
		return
	}
	if cached {
		close(cur.done)
		m.settle(cur.gen, nil)
		return
	}

	m.mu.Lock()
	if m.current == cur {
		m.state, _ = transition(m.state, StateLoading)
	}
	m.mu.Unlock()

	go m.await(subCtx, cur, log, fields)
}

// await waits for the fully-loaded signal. A failure still settles the
// subscription as ready so loading never hangs.
func (m *Manager) await(ctx context.Context, cur *subscription, log *slog.Logger, fields []projerr.Attr) {
	defer close(cur.done)

	loadCtx := ctx
	if m.loadTimeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, m.loadTimeout)
		defer cancel()
	}

	err := cur.sub.Loaded(loadCtx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		code := projerr.CodeProjectionLoadFailure
		if errors.Is(loadCtx.Err(), context.DeadlineExceeded) {
			code = projerr.CodeProjectionLoadTimeout
		}
		err = projerr.Wrap(err, code, "loading query results", fields...)
		log.Warn("load failed", "error", err)
	} else {
		log.Debug("subscription loaded")
	}

	if m.settle(cur.gen, err) {
		m.notify()
	}
}

// settle moves the subscription of generation gen to ready, recording err.
func (m *Manager) settle(gen uint64, err error) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil || m.current.gen != gen {
		return false
	}
	next, terr := transition(m.state, StateReady)
	if terr != nil {
		return false
	}
	m.state = next
	if err != nil {
		m.err = err
	}
	return true
}

// apply runs fn against the current list if gen is still the live
// subscription. Events for a torn-down subscription are dropped here.
func (m *Manager) apply(gen uint64, at Path, fn ListUpdater) {
	m.mu.Lock()
	if m.closed || m.current == nil || m.current.gen != gen {
		m.mu.Unlock()
		return
	}
	next := UpdateAt(m.results, at, fn, m.keys.Key)
	if sameList(next, m.results) {
		m.mu.Unlock()
		return
	}
	m.results = next
	visible := m.state != StateUninitialized
	m.mu.Unlock()

	if visible {
		m.notify()
	}
}

// detachLocked resets the manager to uninitialized and returns the
// subscription to release.
func (m *Manager) detachLocked() *subscription {
	old := m.current
	m.current = nil
	m.state, _ = transition(m.state, StateUninitialized)
	m.results = nil
	m.err = nil
	return old
}

// release closes a detached subscription and waits for its load wait to end.
func (m *Manager) release(old *subscription) error {
	if old == nil {
		return nil
	}
	old.cancel()

	var err error
	if old.sub != nil {
		err = old.sub.Close()
	}
	<-old.done

	m.logger.Debug("subscription torn down", "subscription_id", old.id, "generation", old.gen)
	return err
}

// Result returns the current result. The returned slice is a private copy.
func (m *Manager) Result() Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resultLocked()
}

func (m *Manager) resultLocked() Result {
	r := Result{Loading: m.state == StateLoading, Err: m.err}
	if m.state == StateReady && m.err == nil {
		r.Data = slices.Clone(m.results)
		if r.Data == nil {
			r.Data = []Snapshot{}
		}
	}
	return r
}

// State returns the cache state of the current subscription.
func (m *Manager) State() CacheState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ClearError hides a surfaced error. It does not retry or touch the
// subscription state.
func (m *Manager) ClearError() {
	m.mu.Lock()
	if m.err == nil {
		m.mu.Unlock()
		return
	}
	m.err = nil
	m.mu.Unlock()
	m.notify()
}

// Watch registers fn to receive the result after every change, starting with
// the current one. The returned func unregisters it.
func (m *Manager) Watch(fn func(Result)) func() {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.watchers[id] = fn
	m.mu.Unlock()

	m.notifyMu.Lock()
	fn(m.Result())
	m.notifyMu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.watchers, id)
		m.mu.Unlock()
	}
}

func (m *Manager) notify() {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	res := m.resultLocked()
	ids := slices.Sorted(maps.Keys(m.watchers))
	fns := make([]func(Result), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, m.watchers[id])
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(res)
	}
}

// Close tears down the subscription. No mutation is observable afterwards.
func (m *Manager) Close() error {
	m.updateMu.Lock()
	defer m.updateMu.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	old := m.detachLocked()
	m.query = nil
	m.inputs = nil
	clear(m.watchers)
	m.mu.Unlock()

	return m.release(old)
}
