package playback

import (
	"context"
	"sync"
	"time"
)

type stubEngine struct {
	mu      sync.Mutex
	loads   []string
	opts    []LoadOptions
	plays   int
	pauses  int
	seeks   []time.Duration
	loadErr error
	state   EngineState
}

func (e *stubEngine) LoadSource(_ context.Context, url string, opts LoadOptions) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loadErr != nil {
		return e.loadErr
	}
	e.loads = append(e.loads, url)
	e.opts = append(e.opts, opts)
	return nil
}

func (e *stubEngine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.plays++
	e.state.Paused = false
	return nil
}

func (e *stubEngine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pauses++
	e.state.Paused = true
	return nil
}

func (e *stubEngine) Seek(offset time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seeks = append(e.seeks, offset)
	return nil
}

func (e *stubEngine) State() EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *stubEngine) loadCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.loads)
}

type stubMonitor struct {
	mu       sync.Mutex
	sessions []Session
	stops    int
	state    HealthState
}

func (m *stubMonitor) Start(s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, s)
	m.state = HealthBuffering
}

func (m *stubMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	m.state = HealthIdle
}

func (m *stubMonitor) State() HealthState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == "" {
		return HealthIdle
	}
	return m.state
}

// scriptedVerifier accepts candidates by kind and records the call order.
type scriptedVerifier struct {
	mu     sync.Mutex
	accept map[CandidateKind]bool
	calls  []CandidateKind
}

func newScriptedVerifier(accept ...CandidateKind) *scriptedVerifier {
	v := &scriptedVerifier{accept: make(map[CandidateKind]bool)}
	for _, k := range accept {
		v.accept[k] = true
	}
	return v
}

func (v *scriptedVerifier) Verify(_ context.Context, c Candidate) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, c.Kind)
	if !c.RequiresVerification {
		return true
	}
	return v.accept[c.Kind]
}

func (v *scriptedVerifier) set(accept ...CandidateKind) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.accept = make(map[CandidateKind]bool)
	for _, k := range accept {
		v.accept[k] = true
	}
	v.calls = nil
}

func (v *scriptedVerifier) called() []CandidateKind {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]CandidateKind(nil), v.calls...)
}

func testBuilder() *CandidateBuilder {
	return NewCandidateBuilder(Account{
		BaseURL:  "http://primestreams.tv:826",
		Username: "alice",
		Password: "secret",
	}, "http://127.0.0.1:8080")
}

func drain(sub <-chan Event) []Event {
	var out []Event
	for {
		select {
		case e := <-sub:
			out = append(out, e)
		default:
			return out
		}
	}
}

func countType(evts []Event, t EventType) int {
	n := 0
	for _, e := range evts {
		if e.Type == t {
			n++
		}
	}
	return n
}
