package ml

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Registry publishes the current artifact set. Readers take one snapshot per request;
// a reload replaces the whole set at once.
type Registry struct {
	dir    string
	logger *zap.Logger

	current    atomic.Pointer[Artifacts]
	generation atomic.Uint64

	mu      sync.Mutex
	onSwap  []func(*Artifacts)
	loadDir func(string) (*Artifacts, error)
}

// NewRegistry loads the artifacts in dir. A failure here means the service must not start.
func NewRegistry(dir string, logger *zap.Logger) (*Registry, error) {
	r := newRegistry(dir, logger)
	artifacts, err := r.loadDir(dir)
	if err != nil {
		return nil, err
	}
	r.publish(artifacts)
	return r, nil
}

// NewStaticRegistry publishes an already built artifact set. A nil set leaves the registry empty.
func NewStaticRegistry(artifacts *Artifacts, logger *zap.Logger) *Registry {
	r := newRegistry("", logger)
	if artifacts != nil {
		r.publish(artifacts)
	}
	return r
}

func newRegistry(dir string, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{dir: dir, logger: logger, loadDir: LoadArtifacts}
}

// Current returns the published artifacts, or nil before the first load.
func (r *Registry) Current() *Artifacts {
	return r.current.Load()
}

// OnSwap registers fn to run after every successful swap.
func (r *Registry) OnSwap(fn func(*Artifacts)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onSwap = append(r.onSwap, fn)
}

// Reload loads a fresh set from the registry directory. On failure the current set stays published.
func (r *Registry) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	artifacts, err := r.loadDir(r.dir)
	if err != nil {
		r.logger.Error("artifact reload failed, keeping current set", zap.String("dir", r.dir), zap.Error(err))
		return err
	}
	r.publishLocked(artifacts)
	return nil
}

func (r *Registry) publish(artifacts *Artifacts) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publishLocked(artifacts)
}

func (r *Registry) publishLocked(artifacts *Artifacts) {
	artifacts.generation = r.generation.Add(1)
	r.current.Store(artifacts)
	r.logger.Info("artifacts published",
		zap.Uint64("generation", artifacts.generation),
		zap.String("model_type", artifacts.Info.Type),
		zap.String("model_version", artifacts.Info.Version),
		zap.Strings("labels", artifacts.Encoders.Label),
	)
	for _, fn := range r.onSwap {
		fn(artifacts)
	}
}
