package worker

import (
	"context"
	"sync"

	"vn-signal-engine/internal/logging"
	"vn-signal-engine/internal/model"
	"vn-signal-engine/internal/signalengine"
)

// HistoryLoader fetches seed bars for a symbol when its worker starts,
// mirroring `db.get_bars(symbol, timeframe, limit=200)` in the reference
// implementation.
type HistoryLoader interface {
	GetBars(ctx context.Context, symbol, timeframe string, limit int) ([]model.Bar, error)
}

// Manager owns the dynamic set of per-symbol workers. Adding a symbol spawns
// a worker seeded from history; removing one stops its worker and releases
// its state. The symbol set itself is the only thing guarded by a lock -
// everything else stays symbol-local.
type Manager struct {
	mu        sync.RWMutex
	workers   map[string]*Worker
	cancels   map[string]context.CancelFunc
	cfg       signalengine.Config
	timeframe string
	sink      Sink
	store     Persister
	history   HistoryLoader
}

// NewManager creates an empty watchlist manager.
func NewManager(cfg signalengine.Config, timeframe string, sink Sink, store Persister, history HistoryLoader) *Manager {
	return &Manager{
		workers:   make(map[string]*Worker),
		cancels:   make(map[string]context.CancelFunc),
		cfg:       cfg,
		timeframe: timeframe,
		sink:      sink,
		store:     store,
		history:   history,
	}
}

// Add spawns a worker for symbol if one doesn't already exist, seeding it
// from up to HistoryLimit historical bars.
func (m *Manager) Add(ctx context.Context, symbol string) {
	m.mu.Lock()
	if _, exists := m.workers[symbol]; exists {
		m.mu.Unlock()
		return
	}
	w := New(symbol, m.cfg, m.sink, m.store)
	workerCtx, cancel := context.WithCancel(ctx)
	m.workers[symbol] = w
	m.cancels[symbol] = cancel
	m.mu.Unlock()

	log := logging.WorkerContext(symbol)
	if bars, err := m.history.GetBars(ctx, symbol, m.timeframe, HistoryLimit); err != nil {
		log.WithError(err).Warn("failed to load historical bars, starting cold")
	} else if len(bars) > 0 {
		w.Seed(bars)
		log.Info("loaded historical bars", "count", len(bars))
	}

	go w.Start(workerCtx)
	log.Info("added to watchlist")
}

// Remove stops symbol's worker cooperatively and releases its state.
func (m *Manager) Remove(symbol string) {
	m.mu.Lock()
	w, exists := m.workers[symbol]
	if !exists {
		m.mu.Unlock()
		return
	}
	cancel := m.cancels[symbol]
	delete(m.workers, symbol)
	delete(m.cancels, symbol)
	m.mu.Unlock()

	w.Stop()
	cancel()
	logging.WorkerContext(symbol).Info("removed from watchlist")
}

// SetWatchlist reconciles the running worker set to exactly newSymbols,
// adding and removing workers as needed.
func (m *Manager) SetWatchlist(ctx context.Context, newSymbols []string) {
	want := make(map[string]struct{}, len(newSymbols))
	for _, s := range newSymbols {
		want[s] = struct{}{}
	}

	m.mu.RLock()
	var toRemove []string
	for s := range m.workers {
		if _, keep := want[s]; !keep {
			toRemove = append(toRemove, s)
		}
	}
	m.mu.RUnlock()

	for _, s := range toRemove {
		m.Remove(s)
	}
	for _, s := range newSymbols {
		m.Add(ctx, s)
	}
}

// Enqueue routes a bar to its symbol's worker, adding the worker first if
// the symbol isn't already tracked.
func (m *Manager) Enqueue(ctx context.Context, bar model.Bar) {
	m.mu.RLock()
	w, exists := m.workers[bar.Symbol]
	m.mu.RUnlock()
	if !exists {
		m.Add(ctx, bar.Symbol)
		m.mu.RLock()
		w = m.workers[bar.Symbol]
		m.mu.RUnlock()
	}
	if w != nil {
		w.Enqueue(bar)
	}
}

// Worker returns the worker for symbol, or nil if it isn't tracked.
func (m *Manager) Worker(symbol string) *Worker {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.workers[symbol]
}

// Symbols returns the currently tracked watchlist.
func (m *Manager) Symbols() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.workers))
	for s := range m.workers {
		out = append(out, s)
	}
	return out
}

// StopAll cooperatively stops every worker, e.g. on shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	symbols := make([]string, 0, len(m.workers))
	for s := range m.workers {
		symbols = append(symbols, s)
	}
	m.mu.Unlock()
	for _, s := range symbols {
		m.Remove(s)
	}
}
