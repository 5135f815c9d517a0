package controller

import (
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/bassista/go_microassur/internal/logger"
	"github.com/bassista/go_microassur/internal/query"
	"github.com/bassista/go_microassur/internal/resources"
	"github.com/bassista/go_microassur/internal/session"
	"github.com/gin-gonic/gin"
)

// ListWatcher follows a partner list (contracts, claims).
type ListWatcher interface {
	WatchList(scope resources.Scope, f resources.Filter, listener func(query.State)) (*query.Subscription, error)
}

// QueueWatcher follows one page of the installment queue.
type QueueWatcher interface {
	WatchQueue(status string, page int, listener func(query.State)) (*query.Subscription, error)
}

// StatsWatcher follows the statistics of one partner.
type StatsWatcher interface {
	WatchStats(scope resources.Scope, listener func(query.State)) (*query.Subscription, error)
}

// Watchers are the query units a mounted page can follow.
type Watchers struct {
	Contracts ListWatcher
	Claims    ListWatcher
	Queue     QueueWatcher
	Stats     StatsWatcher
}

// SessionEvents notifies session changes.
type SessionEvents interface {
	OnChange(fn func(session.Change)) (unsubscribe func())
}

// WatchController streams the state of one query to a mounted page as
// server-sent events. The page holds a cache subscription for as long as its
// stream is open, so invalidations and focus refetch it and push the result.
type WatchController struct {
	watchers Watchers
	sessions SessionEvents
	errors   *ErrorResponder
}

// NewWatchController creates a new WatchController.
func NewWatchController(watchers Watchers, sessions SessionEvents, errors *ErrorResponder) *WatchController {
	return &WatchController{watchers: watchers, sessions: sessions, errors: errors}
}

const watchComponent = "watch-controller"

// StateEvent is the payload of a "state" event.
type StateEvent struct {
	Status    query.Status `json:"status"`
	Data      any          `json:"data,omitempty"`
	Error     gin.H        `json:"error,omitempty"`
	UpdatedAt *time.Time   `json:"updated_at,omitempty"`
	Fetching  bool         `json:"fetching"`
}

// Contracts handles GET /api/watch/contracts/:partner.
func (wc *WatchController) Contracts(c *gin.Context) {
	logger.WithComponent(watchComponent).Debugf("GET /api/watch/contracts/%s handler called", c.Param("partner"))
	scope, ok := scopeFrom(c)
	if !ok {
		badRequest(c, "invalid partner id")
		return
	}
	f := filterFrom(c)
	wc.stream(c, func(listener func(query.State)) (*query.Subscription, error) {
		return wc.watchers.Contracts.WatchList(scope, f, listener)
	})
}

// Claims handles GET /api/watch/claims/:partner.
func (wc *WatchController) Claims(c *gin.Context) {
	logger.WithComponent(watchComponent).Debugf("GET /api/watch/claims/%s handler called", c.Param("partner"))
	scope, ok := scopeFrom(c)
	if !ok {
		badRequest(c, "invalid partner id")
		return
	}
	f := filterFrom(c)
	wc.stream(c, func(listener func(query.State)) (*query.Subscription, error) {
		return wc.watchers.Claims.WatchList(scope, f, listener)
	})
}

// Queue handles GET /api/watch/accounting/installments.
func (wc *WatchController) Queue(c *gin.Context) {
	logger.WithComponent(watchComponent).Debugf("GET /api/watch/accounting/installments handler called")
	status, page := c.Query("status"), pageFrom(c)
	wc.stream(c, func(listener func(query.State)) (*query.Subscription, error) {
		return wc.watchers.Queue.WatchQueue(status, page, listener)
	})
}

// Stats handles GET /api/watch/dashboard/:partner.
func (wc *WatchController) Stats(c *gin.Context) {
	logger.WithComponent(watchComponent).Debugf("GET /api/watch/dashboard/%s handler called", c.Param("partner"))
	scope, ok := scopeFrom(c)
	if !ok {
		badRequest(c, "invalid partner id")
		return
	}
	wc.stream(c, func(listener func(query.State)) (*query.Subscription, error) {
		return wc.watchers.Stats.WatchStats(scope, listener)
	})
}

// stream subscribes and writes the entry state after every change until the
// client goes away or the session ends or changes hands. A refused
// subscription is answered as a regular error response.
func (wc *WatchController) stream(c *gin.Context, subscribe func(listener func(query.State)) (*query.Subscription, error)) {
	log := logger.WithComponent(watchComponent)

	// Listeners only signal; the state is read when the event is written so a
	// slow client always receives the latest one.
	changed := make(chan struct{}, 1)
	signal := func(query.State) {
		select {
		case changed <- struct{}{}:
		default:
		}
	}

	sub, err := subscribe(signal)
	if err != nil {
		wc.errors.Respond(c, watchComponent, err)
		return
	}
	defer sub.Unsubscribe()

	ended := make(chan struct{})
	var once sync.Once
	stopFollowing := wc.sessions.OnChange(func(ch session.Change) {
		if ch.Ended() || ch.UserChanged() {
			once.Do(func() { close(ended) })
		}
	})
	defer stopFollowing()

	// The stream outlives the server write timeout.
	if err := http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{}); err != nil {
		log.Debugf("cannot lift write deadline: %v", err)
	}
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	signal(query.State{})
	ctx := c.Request.Context()
	gone := c.Stream(func(w io.Writer) bool {
		select {
		case <-changed:
			c.SSEvent("state", wc.eventOf(c, sub.State()))
			return true
		case <-ended:
			c.SSEvent("end", gin.H{"reason": "session_ended", "location": session.LoginPath})
			return false
		case <-ctx.Done():
			return false
		}
	})
	log.Debugf("stream %s closed (client gone: %t)", c.Request.URL.Path, gone)
}

func (wc *WatchController) eventOf(c *gin.Context, st query.State) StateEvent {
	ev := StateEvent{Status: st.Status, Data: st.Data, Fetching: st.Fetching}
	if st.Err != nil {
		ev.Error = wc.errors.Describe(c, st.Err)
	}
	if !st.UpdatedAt.IsZero() {
		at := st.UpdatedAt
		ev.UpdatedAt = &at
	}
	return ev
}
