package query

import "context"

// Subscription is an active reader of one key, typically a mounted page.
// While at least one subscription exists the entry is refetched on
// invalidation instead of being dropped, and is never garbage-collected.
type Subscription struct {
	id       uint64
	c        *Client
	e        *entry
	listener func(State)
}

// Subscribe registers listener on key and starts a background fetch when the
// cached data is not fresh. Listener runs after every write to the entry.
func (c *Client) Subscribe(key Key, fn FetchFunc, opts Options, listener func(State)) *Subscription {
	e := c.ensure(key, fn, opts)

	c.mu.Lock()
	c.nextSub++
	s := &Subscription{id: c.nextSub, c: c, e: e, listener: listener}
	e.subs[s.id] = s
	fresh := c.freshLocked(e)
	c.mu.Unlock()

	if !fresh {
		// DoChan registers the in-flight call before returning, so a Result
		// issued right after Subscribe joins it.
		c.start(e)
	}
	return s
}

// State is the current state of the subscribed entry.
func (s *Subscription) State() State {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	return s.e.stateLocked()
}

// Result waits for the current data, joining an in-flight fetch if any.
// Cancelling ctx only stops the wait.
func (s *Subscription) Result(ctx context.Context) (any, error) {
	return s.c.load(ctx, s.e)
}

// Refetch is the manual retry: it always issues a new request.
func (s *Subscription) Refetch(ctx context.Context) (any, error) {
	return s.c.refetch(ctx, s.e)
}

// Unsubscribe ends interest in the key. A pending fetch still completes and is
// cached, but the listener is no longer called.
func (s *Subscription) Unsubscribe() {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	delete(s.e.subs, s.id)
	s.e.lastUsed = s.c.now()
}
