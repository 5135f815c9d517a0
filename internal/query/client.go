package query

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bassista/go_microassur/internal/logger"
	"github.com/containerd/errdefs"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	defaultStaleTime = 30 * time.Second
	defaultGCTime    = 5 * time.Minute
)

// FetchFunc loads the data of one key from the backend.
type FetchFunc func(ctx context.Context) (any, error)

// ErrorHandler observes every failed fetch and mutation.
type ErrorHandler func(op string, err error)

// Client is the process-wide query cache. Entries are written only by their own
// completed fetch and by invalidation; nothing else mutates them.
type Client struct {
	mu      sync.Mutex
	entries map[string]*entry
	nextSub uint64

	group singleflight.Group

	staleTime time.Duration
	gcTime    time.Duration
	baseCtx   context.Context
	now       func() time.Time
	metrics   *Metrics
	onError   ErrorHandler
}

type entry struct {
	key   Key
	hash  string
	parts []string

	fetch FetchFunc
	opts  Options

	data      any
	hasData   bool
	err       error
	updatedAt time.Time
	invalid   bool

	// seq is the number of the latest started fetch; only its result is stored.
	seq      uint64
	fetching bool

	lastUsed time.Time
	subs     map[uint64]*Subscription
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithStaleTime sets the default time fetched data stays fresh.
func WithStaleTime(d time.Duration) ClientOption {
	return func(c *Client) {
		if d >= 0 {
			c.staleTime = d
		}
	}
}

// WithGCTime sets how long an unused, unsubscribed entry is kept.
func WithGCTime(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.gcTime = d
		}
	}
}

// WithBaseContext sets the context fetches run on. Callers cancelling their own
// context only stop waiting; the request itself is bound to this context.
func WithBaseContext(ctx context.Context) ClientOption {
	return func(c *Client) {
		if ctx != nil {
			c.baseCtx = ctx
		}
	}
}

// WithMetrics records cache activity on m.
func WithMetrics(m *Metrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// WithErrorHandler sets the observer of failed fetches and mutations.
func WithErrorHandler(h ErrorHandler) ClientOption {
	return func(c *Client) { c.onError = h }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient creates an empty query cache.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		entries:   map[string]*entry{},
		staleTime: defaultStaleTime,
		gcTime:    defaultGCTime,
		baseCtx:   context.Background(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the cached data of key when fresh. Otherwise it joins the
// in-flight fetch for key, or starts one, and waits for it or for ctx.
func (c *Client) Fetch(ctx context.Context, key Key, fn FetchFunc, opts Options) (any, error) {
	e := c.ensure(key, fn, opts)
	c.metrics.request(key)
	return c.load(ctx, e)
}

// Get is the typed form of Fetch.
func Get[T any](ctx context.Context, c *Client, key Key, fn func(ctx context.Context) (T, error), opts Options) (T, error) {
	var zero T
	v, err := c.Fetch(ctx, key, func(ctx context.Context) (any, error) { return fn(ctx) }, opts)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("query %s: cached value has type %T", key, v)
	}
	return t, nil
}

// Peek returns the current state of key without fetching.
func (c *Client) Peek(key Key) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.hash()]
	if !ok {
		return State{}, false
	}
	return e.stateLocked(), true
}

// Invalidate marks every entry matching one of the prefixes stale. Entries
// without subscribers are dropped; subscribed entries are refetched once each.
// It returns when all refetches have completed.
func (c *Client) Invalidate(ctx context.Context, prefixes ...Key) error {
	if len(prefixes) == 0 {
		return nil
	}
	prefixParts := make([][]string, len(prefixes))
	for i, p := range prefixes {
		prefixParts[i] = p.parts()
	}

	c.mu.Lock()
	var refetch []*entry
	for hash, e := range c.entries {
		if !e.matchesAny(prefixParts) {
			continue
		}
		if len(e.subs) == 0 {
			delete(c.entries, hash)
			c.group.Forget(hash)
			c.metrics.invalidated(e.key, false)
			continue
		}
		e.invalid = true
		refetch = append(refetch, e)
		c.metrics.invalidated(e.key, true)
	}
	c.mu.Unlock()

	logger.WithComponent("query").Debugf("invalidate %v: refetching %d subscribed entries", prefixes, len(refetch))
	return c.refetchAll(ctx, refetch)
}

// Focus refetches subscribed entries that opted into RefetchOnFocus and are stale.
func (c *Client) Focus(ctx context.Context) error {
	c.mu.Lock()
	var refetch []*entry
	for _, e := range c.entries {
		if len(e.subs) > 0 && e.opts.RefetchOnFocus && !c.freshLocked(e) {
			refetch = append(refetch, e)
		}
	}
	c.mu.Unlock()
	return c.refetchAll(ctx, refetch)
}

// Remove drops matching entries whether or not they have subscribers.
func (c *Client) Remove(prefixes ...Key) int {
	prefixParts := make([][]string, len(prefixes))
	for i, p := range prefixes {
		prefixParts[i] = p.parts()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for hash, e := range c.entries {
		if e.matchesAny(prefixParts) {
			delete(c.entries, hash)
			c.group.Forget(hash)
			removed++
		}
	}
	return removed
}

// Clear drops the whole cache, e.g. when the session ends.
func (c *Client) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for hash := range c.entries {
		c.group.Forget(hash)
	}
	c.entries = map[string]*entry{}
	logger.WithComponent("query").Debugf("cache cleared")
}

// Collect evicts entries without subscribers that were unused for the GC time.
func (c *Client) Collect(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	evicted := 0
	for hash, e := range c.entries {
		if len(e.subs) > 0 || e.fetching {
			continue
		}
		if now.Sub(e.lastUsed) >= c.gcTime {
			delete(c.entries, hash)
			c.group.Forget(hash)
			c.metrics.evicted(e.key)
			evicted++
		}
	}
	return evicted
}

// Subscriptions is the number of active subscriptions across all entries.
func (c *Client) Subscriptions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.entries {
		n += len(e.subs)
	}
	return n
}

// Len is the number of cache entries.
func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Client) ensure(key Key, fn FetchFunc, opts Options) *entry {
	hash := key.hash()
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[hash]
	if !ok {
		e = &entry{
			key:   append(Key(nil), key...),
			hash:  hash,
			parts: key.parts(),
			subs:  map[uint64]*Subscription{},
		}
		c.entries[hash] = e
	}
	if fn != nil {
		e.fetch = fn
	}
	e.opts = opts
	e.lastUsed = c.now()
	return e
}

func (c *Client) freshLocked(e *entry) bool {
	if !e.hasData || e.err != nil || e.invalid {
		return false
	}
	stale := e.opts.StaleTime
	if stale == 0 {
		stale = c.staleTime
	}
	if stale < 0 {
		return false
	}
	return c.now().Sub(e.updatedAt) < stale
}

// load serves fresh data from e or waits for its fetch.
func (c *Client) load(ctx context.Context, e *entry) (any, error) {
	c.mu.Lock()
	if c.freshLocked(e) {
		data := e.data
		c.mu.Unlock()
		c.metrics.hit(e.key)
		return data, nil
	}
	c.mu.Unlock()
	return c.await(ctx, e)
}

// await joins or starts the single in-flight fetch of e.
func (c *Client) await(ctx context.Context, e *entry) (any, error) {
	ch := c.start(e)
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) start(e *entry) <-chan singleflight.Result {
	return c.group.DoChan(e.hash, func() (any, error) {
		return c.run(e)
	})
}

// refetch forces a new network call for e even if one is in flight.
func (c *Client) refetch(ctx context.Context, e *entry) (any, error) {
	c.group.Forget(e.hash)
	return c.await(ctx, e)
}

func (c *Client) refetchAll(ctx context.Context, entries []*entry) error {
	var g errgroup.Group
	for _, e := range entries {
		g.Go(func() error {
			// Refetch failures are stored on the entry; only lost interest is reported.
			_, _ = c.refetch(ctx, e)
			return ctx.Err()
		})
	}
	return g.Wait()
}

func (c *Client) run(e *entry) (any, error) {
	c.mu.Lock()
	e.seq++
	seq := e.seq
	e.fetching = true
	fn := e.fetch
	opts := e.opts
	subs := e.subscribersLocked()
	state := e.stateLocked()
	c.mu.Unlock()

	notify(subs, state)

	if fn == nil {
		return c.complete(e, seq, nil, fmt.Errorf("query %s: no fetch function registered", e.key))
	}

	c.metrics.fetch(e.key)
	data, err := c.callWithRetry(e.key, fn, opts)
	return c.complete(e, seq, data, err)
}

func (c *Client) complete(e *entry, seq uint64, data any, err error) (any, error) {
	c.mu.Lock()
	current := c.entries[e.hash] == e && seq == e.seq
	var subs []*Subscription
	var state State
	if current {
		e.fetching = false
		if err != nil {
			e.err = err
		} else {
			e.data, e.hasData, e.err = data, true, nil
			e.updatedAt = c.now()
			e.invalid = false
		}
		subs = e.subscribersLocked()
		state = e.stateLocked()
	}
	c.mu.Unlock()

	if current {
		notify(subs, state)
	}
	if err != nil {
		c.metrics.failure(e.key)
		c.reportError("query "+e.key.String(), err)
	}
	return data, err
}

func (c *Client) callWithRetry(key Key, fn FetchFunc, opts Options) (any, error) {
	for attempt := 0; ; attempt++ {
		data, err := fn(c.baseCtx)
		if err == nil || attempt >= opts.Retry || !retryable(err) {
			return data, err
		}
		logger.WithComponent("query").Debugf("fetch %s failed (attempt %d/%d): %v", key, attempt+1, opts.Retry+1, err)
		if opts.RetryDelay > 0 {
			select {
			case <-time.After(opts.RetryDelay):
			case <-c.baseCtx.Done():
				return nil, c.baseCtx.Err()
			}
		}
	}
}

// retryable excludes failures a new attempt cannot fix.
func retryable(err error) bool {
	return !(errdefs.IsUnauthorized(err) ||
		errdefs.IsPermissionDenied(err) ||
		errdefs.IsInvalidArgument(err) ||
		errdefs.IsNotFound(err) ||
		errdefs.IsConflict(err))
}

func (c *Client) reportError(op string, err error) {
	if c.onError != nil {
		c.onError(op, err)
		return
	}
	logger.WithComponent("query").Warnf("%s failed: %v", op, err)
}

func (e *entry) matchesAny(prefixes [][]string) bool {
	for _, p := range prefixes {
		if hasPrefixParts(e.parts, p) {
			return true
		}
	}
	return false
}

func (e *entry) stateLocked() State {
	s := State{Data: e.data, Err: e.err, UpdatedAt: e.updatedAt, Fetching: e.fetching}
	switch {
	case e.err != nil:
		s.Status = StatusError
	case e.hasData:
		s.Status = StatusSuccess
	default:
		s.Status = StatusPending
	}
	return s
}

func (e *entry) subscribersLocked() []*Subscription {
	subs := make([]*Subscription, 0, len(e.subs))
	for _, s := range e.subs {
		subs = append(subs, s)
	}
	return subs
}

func notify(subs []*Subscription, state State) {
	for _, s := range subs {
		if s.listener != nil {
			s.listener(state)
		}
	}
}
