package inspector

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/rvar/pkg/rvar"
)

// DefaultHistory is how many changes are kept per variable.
const DefaultHistory = 64

// VarState is the recorded state of a watched variable.
type VarState struct {
	Name         string          `json:"name"`
	ID           uint64          `json:"id"`
	Type         string          `json:"type"`
	Capabilities string          `json:"capabilities"`
	Value        string          `json:"value"`
	JSON         json.RawMessage `json:"json,omitempty"`
	LastUpdate   rvar.UpdateID   `json:"last_update"`
	Animating    bool            `json:"animating"`
	Importance   uint64          `json:"importance"`
}

// Change is one committed value of a watched variable.
type Change struct {
	Name       string          `json:"name"`
	Epoch      rvar.UpdateID   `json:"epoch"`
	Time       time.Time       `json:"time"`
	Value      string          `json:"value"`
	JSON       json.RawMessage `json:"json,omitempty"`
	Animating  bool            `json:"animating"`
	Importance uint64          `json:"importance"`
	Tags       int             `json:"tags,omitempty"`
}

type watched struct {
	state   VarState
	history []Change
}

// Inspector records watched variables of a runtime and serves them.
type Inspector struct {
	rt       *rvar.Runtime
	logger   *slog.Logger
	history  int
	gatherer prometheus.Gatherer
	store    SnapshotStore
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	vars    map[string]*watched
	clients map[*client]struct{}
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithLogger sets the logger. Default: the runtime logger.
func WithLogger(logger *slog.Logger) Option {
	return func(in *Inspector) {
		in.logger = logger
	}
}

// WithHistory sets how many changes are kept per variable.
func WithHistory(n int) Option {
	return func(in *Inspector) {
		in.history = n
	}
}

// WithGatherer sets the registry served on /metrics.
// Default: prometheus.DefaultGatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(in *Inspector) {
		in.gatherer = g
	}
}

// WithStore sets where POST /snapshot exports.
func WithStore(store SnapshotStore) Option {
	return func(in *Inspector) {
		in.store = store
	}
}

// New creates an inspector for rt.
func New(rt *rvar.Runtime, opts ...Option) *Inspector {
	in := &Inspector{
		rt:       rt,
		logger:   rt.Logger(),
		history:  DefaultHistory,
		gatherer: prometheus.DefaultGatherer,
		vars:     make(map[string]*watched),
		clients:  make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(in)
	}
	if in.history < 0 {
		in.history = 0
	}
	in.logger = in.logger.With("component", "inspector")
	return in
}

// Watch records v under name. A variable already watched under name is
// replaced. Dropping the returned handle stops recording, the last recorded
// state stays listed until Unwatch.
//
// Must be called on the update goroutine.
func (in *Inspector) Watch(name string, v rvar.AnyVar) rvar.VarHandle {
	value := v.GetAny()
	w := &watched{
		state: VarState{
			Name:         name,
			ID:           v.ID(),
			Type:         v.ValueType().String(),
			Capabilities: v.Capabilities().String(),
			Value:        value.String(),
			JSON:         encodeJSON(value),
			LastUpdate:   v.LastUpdate(),
			Animating:    v.IsAnimating(),
			Importance:   v.ModifyImportance(),
		},
	}

	rt := v.Runtime()
	h := v.Hook(func(args *rvar.HookArgs) bool {
		info := rt.CurrentModify()
		c := Change{
			Name:       name,
			Epoch:      rt.Epoch(),
			Time:       rt.Clock().Now(),
			Value:      args.Value().String(),
			JSON:       encodeJSON(args.Value()),
			Animating:  info.IsAnimating(),
			Importance: info.Importance(),
			Tags:       len(args.Tags()),
		}
		return in.record(w, c, v.Capabilities().String())
	})

	in.mu.Lock()
	in.vars[name] = w
	in.mu.Unlock()

	in.logger.Debug("watching variable", "name", name, "var", w.state.ID, "type", w.state.Type)
	return h
}

// Unwatch stops recording name and removes it. The hook of the variable is
// removed the next time it changes.
func (in *Inspector) Unwatch(name string) {
	in.mu.Lock()
	delete(in.vars, name)
	in.mu.Unlock()
}

// record stores c and broadcasts it. Returns false once w is no longer the
// variable watched under its name.
func (in *Inspector) record(w *watched, c Change, caps string) bool {
	in.mu.Lock()
	if in.vars[c.Name] != w {
		in.mu.Unlock()
		return false
	}
	w.state.Value = c.Value
	w.state.JSON = c.JSON
	w.state.LastUpdate = c.Epoch
	w.state.Animating = c.Animating
	w.state.Importance = c.Importance
	w.state.Capabilities = caps
	if in.history > 0 {
		if len(w.history) == in.history {
			copy(w.history, w.history[1:])
			w.history = w.history[:len(w.history)-1]
		}
		w.history = append(w.history, c)
	}
	in.mu.Unlock()

	in.broadcast(message{Type: messageChange, Change: &c})
	return true
}

// Vars returns the state of every watched variable sorted by name.
func (in *Inspector) Vars() []VarState {
	in.mu.RLock()
	defer in.mu.RUnlock()
	out := make([]VarState, 0, len(in.vars))
	for _, w := range in.vars {
		out = append(out, w.state)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Var returns the state of one watched variable.
func (in *Inspector) Var(name string) (VarState, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	w, ok := in.vars[name]
	if !ok {
		return VarState{}, false
	}
	return w.state, true
}

// History returns the recorded changes of name, oldest first.
func (in *Inspector) History(name string) ([]Change, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	w, ok := in.vars[name]
	if !ok {
		return nil, false
	}
	return append([]Change(nil), w.history...), true
}

// encodeJSON returns the value as JSON if it can be marshaled.
func encodeJSON(v rvar.AnyValue) json.RawMessage {
	data, err := json.Marshal(v.Any())
	if err != nil {
		return nil
	}
	return data
}
