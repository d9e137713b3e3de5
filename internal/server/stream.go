package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// streamBacklog is the number of recent changes kept for Last-Event-ID
	// replay.
	streamBacklog = 512

	streamKeepalive = 15 * time.Second
)

// streamEvent is one committed change as sent to stream clients.
type streamEvent struct {
	ID    uint64
	Topic string
	Data  []byte
}

// streamHub fans committed changes out to connected Server-Sent Events
// clients and keeps a ring buffer for reconnecting ones.
type streamHub struct {
	mu      sync.RWMutex
	clients map[*streamClient]struct{}
	nextID  atomic.Uint64

	ringMu  sync.RWMutex
	ring    [streamBacklog]streamEvent
	ringPos int
	ringLen int
}

type streamClient struct {
	topics []string
	ch     chan *streamEvent
}

func newStreamHub() *streamHub {
	return &streamHub{clients: make(map[*streamClient]struct{})}
}

// broadcast records the change and hands it to every matching client.
// Slow clients miss events rather than block the request that caused them.
func (h *streamHub) broadcast(topic string, payload []byte) {
	evt := &streamEvent{
		ID:    h.nextID.Add(1),
		Topic: topic,
		Data:  payload,
	}

	h.ringMu.Lock()
	h.ring[h.ringPos] = *evt
	h.ringPos = (h.ringPos + 1) % streamBacklog
	if h.ringLen < streamBacklog {
		h.ringLen++
	}
	h.ringMu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.matches(topic) {
			continue
		}
		select {
		case c.ch <- evt:
		default:
		}
	}
}

func (h *streamHub) subscribe(topics []string) *streamClient {
	c := &streamClient{
		topics: topics,
		ch:     make(chan *streamEvent, 64),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *streamHub) unsubscribe(c *streamClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// eventsSince returns buffered events with ID > lastID, oldest first.
func (h *streamHub) eventsSince(lastID uint64) []*streamEvent {
	h.ringMu.RLock()
	defer h.ringMu.RUnlock()

	var out []*streamEvent
	start := h.ringPos - h.ringLen
	if start < 0 {
		start += streamBacklog
	}
	for i := range h.ringLen {
		evt := h.ring[(start+i)%streamBacklog]
		if evt.ID > lastID {
			out = append(out, &evt)
		}
	}
	return out
}

func (c *streamClient) matches(topic string) bool {
	if len(c.topics) == 0 {
		return true
	}
	for _, p := range c.topics {
		if matchTopicPattern(p, topic) {
			return true
		}
	}
	return false
}

// matchTopicPattern reports whether topic matches pattern. Segments are
// dot separated; "*" matches exactly one and a final ">" matches the rest,
// which must be non-empty.
func matchTopicPattern(pattern, topic string) bool {
	for {
		want, patRest, patMore := strings.Cut(pattern, ".")
		if want == ">" && !patMore {
			return topic != ""
		}
		got, topRest, topMore := strings.Cut(topic, ".")
		if want != "*" && want != got {
			return false
		}
		if !patMore || !topMore {
			return patMore == topMore
		}
		pattern, topic = patRest, topRest
	}
}

// parseTopics splits a comma-separated topics query parameter.
func parseTopics(q string) []string {
	var topics []string
	for _, t := range strings.Split(q, ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}

// handleStream handles GET /v1/stream.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	client := s.stream.subscribe(parseTopics(r.URL.Query().Get("topics")))
	defer s.stream.unsubscribe(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	if last := r.Header.Get("Last-Event-ID"); last != "" {
		if lastID, err := strconv.ParseUint(last, 10, 64); err == nil {
			for _, evt := range s.stream.eventsSince(lastID) {
				if client.matches(evt.Topic) {
					writeStreamEvent(w, evt)
				}
			}
			flusher.Flush()
		}
	}

	keepalive := time.NewTicker(streamKeepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-client.ch:
			writeStreamEvent(w, evt)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeStreamEvent(w http.ResponseWriter, evt *streamEvent) {
	fmt.Fprintf(w, "id:%d\nevent:%s\ndata:%s\n\n", evt.ID, evt.Topic, evt.Data)
}
