// Package sse streams dashboard activity to admin clients as Server-Sent
// Events.
package sse

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// StatsUpdated tells clients to refetch the dashboard totals.
const StatsUpdated = "stats.updated"

const (
	heartbeat     = 30 * time.Second
	retryMillis   = 3000
	replaySize    = 64
	clientBacklog = 64
)

// Event is one dashboard notification.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// frame is an encoded event with its sequence number.
type frame struct {
	id  uint64
	raw []byte
}

type publishReq struct {
	event Event
	stats bool
}

type subscribeReq struct {
	ch     chan []byte
	lastID uint64
}

// Broker fans events out to connected admin dashboards.
//
// The run loop owns the client set, the replay ring, the sequence counter
// and the stats throttle. Everything else reaches it through channels.
type Broker struct {
	statsEvery time.Duration

	in      chan publishReq
	join    chan subscribeReq
	leave   chan chan []byte
	countCh chan chan int

	quit    chan struct{}
	done    chan struct{}
	closing atomic.Bool
}

// NewBroker starts a broker that emits at most one stats.updated event
// per statsEvery. A non-positive interval means two seconds.
func NewBroker(statsEvery time.Duration) *Broker {
	if statsEvery <= 0 {
		statsEvery = 2 * time.Second
	}
	b := &Broker{
		statsEvery: statsEvery,
		in:         make(chan publishReq, 256),
		join:       make(chan subscribeReq),
		leave:      make(chan chan []byte),
		countCh:    make(chan chan int),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.done)

	var (
		seq       uint64
		lastStats time.Time
		ring      []frame
		clients   = make(map[chan []byte]struct{})
	)

	emit := func(ev Event) {
		f, ok := encode(seq+1, ev)
		if !ok {
			return
		}
		seq = f.id
		if len(ring) == replaySize {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, f)
		for ch := range clients {
			select {
			case ch <- f.raw:
			default:
			}
		}
	}

	for {
		select {
		case <-b.quit:
			for ch := range clients {
				close(ch)
			}
			return

		case req := <-b.join:
			clients[req.ch] = struct{}{}
			if req.lastID == 0 {
				continue
			}
			for _, f := range ring {
				if f.id <= req.lastID {
					continue
				}
				select {
				case req.ch <- f.raw:
				default:
				}
			}

		case ch := <-b.leave:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case req := <-b.in:
			emit(req.event)
			if req.stats && time.Since(lastStats) >= b.statsEvery {
				lastStats = time.Now()
				emit(Event{Type: StatsUpdated, Data: struct{}{}})
			}

		case resp := <-b.countCh:
			resp <- len(clients)
		}
	}
}

func encode(id uint64, ev Event) (frame, bool) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return frame{}, false
	}
	var buf bytes.Buffer
	buf.WriteString("id: ")
	buf.WriteString(strconv.FormatUint(id, 10))
	buf.WriteString("\nevent: ")
	buf.WriteString(ev.Type)
	buf.WriteString("\ndata: ")
	buf.Write(payload)
	buf.WriteString("\n\n")
	return frame{id: id, raw: buf.Bytes()}, true
}

// Close stops the loop and closes every client channel. Safe to call twice.
func (b *Broker) Close() {
	if b.closing.CompareAndSwap(false, true) {
		close(b.quit)
	}
	<-b.done
}

// Subscribe registers a client. Events newer than lastID still held in the
// replay ring are queued first; pass 0 for a fresh connection.
func (b *Broker) Subscribe(lastID uint64) chan []byte {
	ch := make(chan []byte, clientBacklog)
	if b.closing.Load() {
		close(ch)
		return ch
	}
	select {
	case b.join <- subscribeReq{ch: ch, lastID: lastID}:
	case <-b.done:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closing.Load() {
		return
	}
	select {
	case b.leave <- ch:
	case <-b.done:
	}
}

// ClientCount reports how many dashboards are connected.
func (b *Broker) ClientCount() int {
	if b.closing.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.countCh <- resp:
	case <-b.done:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.done:
		return 0
	}
}

func (b *Broker) send(req publishReq) {
	if b.closing.Load() {
		return
	}
	select {
	case b.in <- req:
	case <-b.done:
	}
}

// Publish broadcasts ev without touching the stats throttle.
func (b *Broker) Publish(ev Event) {
	b.send(publishReq{event: ev})
}

// PublishActivity broadcasts an activity event followed by a throttled
// stats.updated. Its signature matches community.NotifyFunc.
func (b *Broker) PublishActivity(kind string, data any) {
	b.send(publishReq{event: Event{Type: kind, Data: data}, stats: true})
}

// PublishPostEvent reports a post source change ("created", "updated" or
// "deleted") as post.<kind>.
func (b *Broker) PublishPostEvent(kind, slug string) {
	b.PublishActivity("post."+kind, map[string]string{"slug": slug})
}

// ServeHTTP streams events until the client goes away or the broker closes.
// A Last-Event-ID header resumes from the replay ring.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	lastID, _ := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("retry: " + strconv.Itoa(retryMillis) + "\n\n"))
	flusher.Flush()

	ch := b.Subscribe(lastID)
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(heartbeat)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
