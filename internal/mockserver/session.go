package mockserver

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// session is one client connection, on either the command or the stream
// path. Pushes and replies share one writer lock.
type session struct {
	conn   *websocket.Conn
	stream bool

	writeMu sync.Mutex

	subsMu sync.Mutex
	subs   map[string]*subscription

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func newSession(conn *websocket.Conn, stream bool) *session {
	return &session{
		conn:   conn,
		stream: stream,
		subs:   make(map[string]*subscription),
		done:   make(chan struct{}),
	}
}

func (s *session) writeJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(v)
}

type subscription struct {
	stop   chan struct{}
	exited chan struct{}
}

// subscribe pushes next() every interval under key until unsubscribed.
// Subscribing twice to the same key is a no-op.
func (s *session) subscribe(key string, interval time.Duration, next func() any) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if _, ok := s.subs[key]; ok {
		return
	}
	sub := &subscription{stop: make(chan struct{}), exited: make(chan struct{})}
	s.subs[key] = sub

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(sub.exited)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-sub.stop:
				return
			case <-s.done:
				return
			case <-ticker.C:
				if err := s.writeJSON(next()); err != nil {
					return
				}
			}
		}
	}()
}

// unsubscribe returns once the push loop for key has exited, so nothing for
// key is written after it.
func (s *session) unsubscribe(key string) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if sub, ok := s.subs[key]; ok {
		close(sub.stop)
		<-sub.exited
		delete(s.subs, key)
	}
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
	s.wg.Wait()
}
