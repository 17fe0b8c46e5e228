// Package health provides a generic health checking framework. Checks are
// registered against a Registry and reported as a JSON status document,
// giving load balancers and orchestrators a single poll target.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Registry is a collection of checks. Most applications need a single
// registry holding every check relevant to their readiness.
type Registry struct {
	mu               sync.RWMutex
	registeredChecks map[string]Checker
}

// NewRegistry creates a new registry.
func NewRegistry() *Registry {
	return &Registry{registeredChecks: make(map[string]Checker)}
}

// Checker is the interface for a Health Checker.
type Checker interface {
	// Check returns nil if the service is okay.
	Check() error
}

// CheckFunc is a convenience type to create functions that implement the
// Checker interface.
type CheckFunc func() error

// Check implements the Checker interface to allow for any func() error
// method to be passed as a Checker.
func (cf CheckFunc) Check() error {
	return cf()
}

// Updater implements a health check that is explicitly set.
type Updater interface {
	Checker

	// Update updates the current status of the health check.
	Update(status error)
}

// updater implements Checker and Updater, providing an asynchronous
// Update method. This allows a Checker to answer Check() immediately
// rather than blocking on a potentially expensive probe.
type updater struct {
	mu     sync.Mutex
	status error
}

func (u *updater) Check() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.status
}

func (u *updater) Update(status error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.status = status
}

// NewStatusUpdater returns a new updater.
func NewStatusUpdater() Updater {
	return &updater{}
}

// thresholdUpdater only reports an error after it has been observed a
// number of consecutive times, smoothing over transient probe failures.
type thresholdUpdater struct {
	mu        sync.Mutex
	status    error
	threshold int
	count     int
}

func (tu *thresholdUpdater) Check() error {
	tu.mu.Lock()
	defer tu.mu.Unlock()
	if tu.count >= tu.threshold {
		return tu.status
	}
	return nil
}

func (tu *thresholdUpdater) Update(status error) {
	tu.mu.Lock()
	defer tu.mu.Unlock()
	if status == nil {
		tu.count = 0
	} else if tu.count < tu.threshold {
		tu.count++
	}
	tu.status = status
}

// NewThresholdStatusUpdater returns a new thresholdUpdater.
func NewThresholdStatusUpdater(t int) Updater {
	return &thresholdUpdater{threshold: t}
}

// PeriodicChecker wraps an updater to provide a periodic checker. The
// checker stops when ctx is done.
func PeriodicChecker(ctx context.Context, check Checker, period time.Duration) Checker {
	u := NewStatusUpdater()
	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				u.Update(check.Check())
			}
		}
	}()
	return u
}

// PeriodicThresholdChecker wraps an updater to provide a periodic checker
// that only reports failure after threshold consecutive failed probes.
func PeriodicThresholdChecker(ctx context.Context, check Checker, period time.Duration, threshold int) Checker {
	tu := NewThresholdStatusUpdater(threshold)
	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				tu.Update(check.Check())
			}
		}
	}()
	return tu
}

// CheckStatus returns a map with all the current health check errors.
func (registry *Registry) CheckStatus() map[string]string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	statusKeys := make(map[string]string)
	for k, v := range registry.registeredChecks {
		if err := v.Check(); err != nil {
			statusKeys[k] = err.Error()
		}
	}
	return statusKeys
}

// Register associates the checker with the provided name. Registering the
// same name twice panics: two components claiming one check name is a
// wiring bug.
func (registry *Registry) Register(name string, check Checker) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, ok := registry.registeredChecks[name]; ok {
		panic("health check already exists: " + name)
	}
	registry.registeredChecks[name] = check
}

// RegisterFunc allows the convenience of registering a checker directly
// from an arbitrary func() error.
func (registry *Registry) RegisterFunc(name string, check func() error) {
	registry.Register(name, CheckFunc(check))
}

// Handler returns an http.Handler serving the registry's status: a JSON
// object of failing check names to messages, with status 503 when any
// check fails and 200 otherwise.
func Handler(registry *Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.NotFound(w, r)
			return
		}

		checksStatus := registry.CheckStatus()
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if len(checksStatus) != 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if r.Method == http.MethodHead {
			return
		}
		if err := json.NewEncoder(w).Encode(checksStatus); err != nil {
			http.Error(w, "could not encode health status", http.StatusInternalServerError)
		}
	})
}
