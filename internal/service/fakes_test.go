package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kvanc/server/internal/dto"
	"github.com/kvanc/server/internal/repository"
)

var errConnClosed = errors.New("connection closed")

// fakeConn is an in-memory Conn. Writes block while block is non-nil and open.
type fakeConn struct {
	incoming  chan []byte
	closed    chan struct{}
	closeOnce sync.Once
	block     chan struct{}
	mutex     sync.Mutex
	written   [][]byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		incoming: make(chan []byte, 8),
		closed:   make(chan struct{}),
	}
}

func newBlockingConn() *fakeConn {
	c := newFakeConn()
	c.block = make(chan struct{})
	return c
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case message := <-c.incoming:
		return websocket.TextMessage, message, nil
	case <-c.closed:
		return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	if c.block != nil {
		select {
		case <-c.block:
		case <-c.closed:
			return errConnClosed
		}
	}

	select {
	case <-c.closed:
		return errConnClosed
	default:
	}

	if messageType == websocket.TextMessage {
		c.mutex.Lock()
		c.written = append(c.written, data)
		c.mutex.Unlock()
	}
	return nil
}

func (c *fakeConn) SetReadDeadline(time.Time) error           { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error          { return nil }
func (c *fakeConn) SetReadLimit(int64)                        {}
func (c *fakeConn) SetPongHandler(func(appData string) error) {}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) messages() []dto.PushMessage {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	messages := make([]dto.PushMessage, 0, len(c.written))
	for _, raw := range c.written {
		var message dto.PushMessage
		if err := json.Unmarshal(raw, &message); err == nil {
			messages = append(messages, message)
		}
	}
	return messages
}

func testHubConfig() HubConfig {
	return HubConfig{
		QueueSize:  4,
		WriteWait:  time.Second,
		PongWait:   time.Hour,
		PingPeriod: time.Hour,
	}
}

// callLog records the order in which reset operations run across stores.
type callLog struct {
	mutex sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) list() []string {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return append([]string(nil), l.calls...)
}

type loggingAdmission struct {
	repository.AdmissionRepository
	log *callLog
}

func (a *loggingAdmission) Reset() {
	a.log.add("admission.Reset")
	a.AdmissionRepository.Reset()
}

type loggingVotes struct {
	repository.VoteRepository
	log *callLog
}

func (v *loggingVotes) Reset() {
	v.log.add("votes.Reset")
	v.VoteRepository.Reset()
}

func (v *loggingVotes) ReOpenAll() {
	v.log.add("votes.ReOpenAll")
	v.VoteRepository.ReOpenAll()
}

type recordingHub struct {
	log    *callLog
	mutex  sync.Mutex
	pushed []string
	resets int
}

func (h *recordingHub) Register(Conn) *Subscriber      { return nil }
func (h *recordingHub) Unregister(*Subscriber)         {}
func (h *recordingHub) Send(*Subscriber, string) bool  { return false }
func (h *recordingHub) PushResults(dto.ResultSnapshot) {}
func (h *recordingHub) Bind(*Subscriber, string)       {}
func (h *recordingHub) Count() int                     { return 0 }
func (h *recordingHub) Bound() int                     { return 0 }
func (h *recordingHub) Close()                         {}

func (h *recordingHub) PushMessage(question string) {
	h.log.add("hub.PushMessage")
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.pushed = append(h.pushed, question)
}

func (h *recordingHub) Reset() {
	h.log.add("hub.Reset")
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.resets++
}

func (h *recordingHub) pushes() []string {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return append([]string(nil), h.pushed...)
}

type recordingPublisher struct {
	log       *callLog
	mutex     sync.Mutex
	published []dto.ResultSnapshot
	resets    []string
}

func (p *recordingPublisher) Publish(snapshot dto.ResultSnapshot) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.published = append(p.published, snapshot)
}

func (p *recordingPublisher) Reset(question string, _ int) {
	if p.log != nil {
		p.log.add("publisher.Reset")
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.resets = append(p.resets, question)
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) snapshots() []dto.ResultSnapshot {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return append([]dto.ResultSnapshot(nil), p.published...)
}

type pollResult struct {
	content string
	changed bool
	err     error
}

// fakeSource replays queued poll results, then reports no change.
type fakeSource struct {
	mutex   sync.Mutex
	results []pollResult
	polls   int
}

func (s *fakeSource) PollChange() (string, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.polls++
	if len(s.results) == 0 {
		return "", false, nil
	}
	next := s.results[0]
	s.results = s.results[1:]
	return next.content, next.changed, next.err
}

func (s *fakeSource) pollCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.polls
}

type recordingSink struct {
	name      string
	err       error
	mutex     sync.Mutex
	snapshots []dto.ResultSnapshot
}

func (s *recordingSink) Name() string {
	return s.name
}

func (s *recordingSink) PublishResults(_ context.Context, snapshot dto.ResultSnapshot) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.snapshots = append(s.snapshots, snapshot)
	return s.err
}

func (s *recordingSink) received() []dto.ResultSnapshot {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]dto.ResultSnapshot(nil), s.snapshots...)
}

type fakeResultClient struct {
	mutex    sync.Mutex
	messages [][]byte
	closed   bool
}

func (c *fakeResultClient) Name() string {
	return "fake"
}

func (c *fakeResultClient) PublishMessage(_ context.Context, message []byte) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.messages = append(c.messages, message)
	return nil
}

func (c *fakeResultClient) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.closed = true
	return nil
}

func (c *fakeResultClient) received() [][]byte {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return append([][]byte(nil), c.messages...)
}
