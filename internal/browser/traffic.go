package browser

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
)

// RequestDescriptor is the controller's view of one outgoing request.
type RequestDescriptor struct {
	ID      string
	URL     string
	Method  string
	Headers map[string]string
	Time    time.Time
}

// Header looks up a header value by name, ignoring case. The DevTools
// protocol reports HTTP/2 header names in lower case.
func (r RequestDescriptor) Header(name string) (string, bool) {
	if v, ok := r.Headers[name]; ok {
		return v, true
	}
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// TrafficLog is an append-only, ordered record of the requests a page has
// issued. It is written from the DevTools event goroutine and read from the
// control flow.
type TrafficLog struct {
	mu       sync.RWMutex
	requests []RequestDescriptor
	index    map[string]int
	// pending holds extra-info headers that arrived before their request.
	pending map[string]map[string]string
}

// NewTrafficLog returns an empty log.
func NewTrafficLog() *TrafficLog {
	return &TrafficLog{
		index:   make(map[string]int),
		pending: make(map[string]map[string]string),
	}
}

// HandleEvent is the chromedp.ListenTarget callback.
func (t *TrafficLog) HandleEvent(ev interface{}) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.addRequest(e)
	case *network.EventRequestWillBeSentExtraInfo:
		t.mergeHeaders(string(e.RequestID), flattenHeaders(e.Headers))
	}
}

func (t *TrafficLog) addRequest(e *network.EventRequestWillBeSent) {
	if e.Request == nil {
		return
	}
	id := string(e.RequestID)
	headers := flattenHeaders(e.Request.Headers)
	ts := time.Now()
	if e.WallTime != nil {
		ts = e.WallTime.Time()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for k, v := range t.pending[id] {
		headers[k] = v
	}
	delete(t.pending, id)

	// Redirects reuse the request id; each hop is kept as its own entry.
	t.index[id] = len(t.requests)
	t.requests = append(t.requests, RequestDescriptor{
		ID:      id,
		URL:     e.Request.URL,
		Method:  e.Request.Method,
		Headers: headers,
		Time:    ts,
	})
}

func (t *TrafficLog) mergeHeaders(id string, headers map[string]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.index[id]
	if !ok {
		p := t.pending[id]
		if p == nil {
			p = make(map[string]string, len(headers))
			t.pending[id] = p
		}
		for k, v := range headers {
			p[k] = v
		}
		return
	}
	// Copy on write so snapshots handed out earlier never change.
	merged := make(map[string]string, len(t.requests[i].Headers)+len(headers))
	for k, v := range t.requests[i].Headers {
		merged[k] = v
	}
	for k, v := range headers {
		merged[k] = v
	}
	t.requests[i].Headers = merged
}

// Requests returns a snapshot of the log in issue order.
func (t *TrafficLog) Requests() []RequestDescriptor {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]RequestDescriptor, len(t.requests))
	copy(out, t.requests)
	return out
}

// Len returns the number of recorded requests.
func (t *TrafficLog) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.requests)
}

// FindRequest returns the most recent request whose URL equals url exactly.
//
// The latest match wins over the earliest. The portal's eligibility call is
// preceded by a CORS preflight to the same URL that carries no Authorization
// header, and each corrective resubmit issues a new call whose token
// supersedes the ones before it.
func (t *TrafficLog) FindRequest(url string) (RequestDescriptor, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i := len(t.requests) - 1; i >= 0; i-- {
		if t.requests[i].URL == url {
			return t.requests[i], true
		}
	}
	return RequestDescriptor{}, false
}

func flattenHeaders(h network.Headers) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		switch s := v.(type) {
		case string:
			out[k] = s
		default:
			out[k] = fmt.Sprint(s)
		}
	}
	return out
}
