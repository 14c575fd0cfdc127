package datastore

import (
	"path/filepath"
	"sync"

	"github.com/masvision/shelfsync/internal/errors"
	"github.com/masvision/shelfsync/internal/logger"
)

// Pool opens each catalog file once per run so scopes sharing a file share a handle.
type Pool struct {
	opts   Options
	log    logger.Logger
	mu     sync.Mutex
	stores map[string]*Store
}

// NewPool returns an empty pool.
func NewPool(opts Options, log logger.Logger) *Pool {
	return &Pool{opts: opts, log: log, stores: make(map[string]*Store)}
}

// Get returns the store for path, opening it on first use.
func (p *Pool) Get(path string) (*Store, error) {
	key := filepath.Clean(path)
	if abs, err := filepath.Abs(key); err == nil {
		key = abs
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.stores[key]; ok {
		return s, nil
	}
	s, err := Open(path, p.opts, p.log)
	if err != nil {
		return nil, err
	}
	p.stores[key] = s
	return s, nil
}

// Len returns the number of open stores.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.stores)
}

// Close closes every store opened through the pool.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for key, s := range p.stores {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(p.stores, key)
	}
	return errors.Join(errs...)
}
