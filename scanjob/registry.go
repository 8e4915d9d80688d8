package scanjob

import "sync"

// Registry tracks which scans are live and which have been asked to stop.
// It is the only mutable state shared between a running scan and the API
// goroutine that stops it.
type Registry struct {
	active sync.Map // search ID -> *stopFlag
}

type stopFlag struct {
	mu      sync.Mutex
	stopped bool
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register marks a scan as live. Call Unregister when the scan finishes.
func (r *Registry) Register(searchID int) {
	r.active.Store(searchID, &stopFlag{})
}

// Stop flags a live scan for cancellation. Returns false when the scan is
// unknown or already finished.
func (r *Registry) Stop(searchID int) bool {
	v, ok := r.active.Load(searchID)
	if !ok {
		return false
	}
	flag := v.(*stopFlag)
	flag.mu.Lock()
	flag.stopped = true
	flag.mu.Unlock()
	return true
}

// IsStopped reports whether a stop was requested for the scan
func (r *Registry) IsStopped(searchID int) bool {
	v, ok := r.active.Load(searchID)
	if !ok {
		return false
	}
	flag := v.(*stopFlag)
	flag.mu.Lock()
	defer flag.mu.Unlock()
	return flag.stopped
}

// Unregister removes a finished scan. Stop calls after this return false.
func (r *Registry) Unregister(searchID int) {
	r.active.Delete(searchID)
}
