package remote

import (
	"context"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"

	"github.com/five82/cohort/internal/docstore"
	"github.com/five82/cohort/internal/docstore/wire"
)

// stream is one live query. Each connection attempt runs in its own
// goroutine tagged with a generation; pausing or cancelling bumps the
// generation so an older goroutine exits without delivering anything.
type stream struct {
	id       uint64
	query    docstore.Query
	onUpdate func([]docstore.Record)
	onError  func(error)

	ctx    context.Context
	cancel context.CancelFunc
	ready  chan struct{}

	// guarded by Client.mu
	gen  uint64
	conn *websocket.Conn
}

// Subscribe implements docstore.Subscriber. While the network is disabled
// the stream is registered but not connected; it connects when the network
// is enabled again.
func (c *Client) Subscribe(q docstore.Query, onUpdate func([]docstore.Record), onError func(error)) (docstore.Handle, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &stream{
		query:    q,
		onUpdate: onUpdate,
		onError:  onError,
		ctx:      ctx,
		cancel:   cancel,
		ready:    make(chan struct{}),
	}

	c.mu.Lock()
	c.nextID++
	s.id = c.nextID
	c.streams[s.id] = s
	if c.enabled {
		c.startLocked(s)
	}
	c.mu.Unlock()

	close(s.ready)
	return docstore.OnceHandle(func() { c.cancelStream(s) }), nil
}

func (c *Client) cancelStream(s *stream) {
	s.cancel()
	c.mu.Lock()
	delete(c.streams, s.id)
	s.gen++
	conn := s.conn
	s.conn = nil
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (c *Client) startLocked(s *stream) {
	s.gen++
	go c.run(s, s.gen)
}

// current reports whether generation gen of s may still deliver events.
func (c *Client) current(s *stream, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled && s.gen == gen && s.ctx.Err() == nil
}

// run keeps generation gen of s connected. Transient failures are reported
// and the socket is dialled again after a growing delay, paced by the
// reconnect limiter; a permanent failure, cancellation or a newer generation
// ends the loop. A delivered snapshot resets the delay.
func (c *Client) run(s *stream, gen uint64) {
	<-s.ready
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = c.redialInitial
	retry.MaxInterval = c.redialMax

	for {
		if err := c.limiter.Wait(s.ctx); err != nil {
			return
		}
		if !c.current(s, gen) {
			return
		}
		err := c.listen(s, gen, retry.Reset)
		if err == nil || !c.current(s, gen) {
			return
		}
		s.onError(err)
		if docstore.Classify(err) == docstore.Permanent {
			return
		}

		wait := retry.NextBackOff()
		c.logger.Debug("listen stream lost, redialling", "stream", s.id, "in", wait, "err", err)
		timer := time.NewTimer(wait)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// listen runs one connection. It returns nil when the generation went stale
// and the failure to report otherwise.
func (c *Client) listen(s *stream, gen uint64, delivered func()) error {
	header := http.Header{}
	header.Set("User-Agent", c.userAgent)
	conn, resp, err := c.dialer.DialContext(s.ctx, c.listenURL(), header)
	if err != nil {
		if !c.current(s, gen) {
			return nil
		}
		return dialError(resp, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	c.mu.Lock()
	if !c.enabled || s.gen != gen || s.ctx.Err() != nil {
		c.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	s.conn = conn
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		if s.conn == conn {
			s.conn = nil
		}
		c.mu.Unlock()
		_ = conn.Close()
	}()

	if err := conn.WriteJSON(wire.ListenRequest{Query: s.query}); err != nil {
		return streamClosed(err)
	}

	for {
		var msg wire.ListenMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return streamClosed(err)
		}
		if !c.current(s, gen) {
			return nil
		}
		switch msg.Type {
		case wire.TypeSnapshot:
			records := decodeRecords(msg.Records)
			if records == nil {
				records = []docstore.Record{}
			}
			delivered()
			s.onUpdate(records)
		case wire.TypeError:
			return msg.Err()
		default:
			c.logger.Debug("ignoring listen frame", "type", msg.Type)
		}
	}
}

// dialError tags a failed handshake. An HTTP response carries a status;
// anything else is a connection failure worth retrying.
func dialError(resp *http.Response, err error) error {
	if resp != nil {
		defer func() { _ = resp.Body.Close() }()
		return &docstore.Error{Code: wire.CodeForStatus(resp.StatusCode), Message: "listen handshake failed", Err: err}
	}
	return &docstore.Error{Code: docstore.CodeAborted, Message: "listen connect failed", Err: err}
}

func streamClosed(err error) error {
	return &docstore.Error{Code: docstore.CodeAborted, Message: "listen stream closed", Err: err}
}

// SetNetworkEnabled implements docstore.NetworkToggler. Disabling closes
// every listen socket without reporting errors; enabling reconnects them,
// paced by the reconnect limiter.
func (c *Client) SetNetworkEnabled(_ context.Context, enabled bool) error {
	var closing []*websocket.Conn

	c.mu.Lock()
	if c.enabled == enabled {
		c.mu.Unlock()
		return nil
	}
	c.enabled = enabled
	for _, s := range c.streams {
		if enabled {
			c.startLocked(s)
			continue
		}
		s.gen++
		if s.conn != nil {
			closing = append(closing, s.conn)
			s.conn = nil
		}
	}
	c.mu.Unlock()

	for _, conn := range closing {
		_ = conn.Close()
	}
	c.logger.Debug("network toggled", "enabled", enabled)
	return nil
}

// NetworkEnabled reports the current network setting.
func (c *Client) NetworkEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Close cancels every live query.
func (c *Client) Close() {
	c.mu.Lock()
	streams := make([]*stream, 0, len(c.streams))
	for _, s := range c.streams {
		streams = append(streams, s)
	}
	c.mu.Unlock()
	for _, s := range streams {
		c.cancelStream(s)
	}
}

// Live returns the number of registered live queries.
func (c *Client) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.streams)
}
