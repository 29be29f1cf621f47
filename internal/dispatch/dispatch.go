// Package dispatch implements the service registry and route
// dispatcher: services register a URL path prefix and an operation
// handler table at init, and the registry routes incoming requests by
// path then linearly scans the matched service's handler table by
// SOAP operation name.
package dispatch

import (
	"fmt"
	"sync"

	"github.com/onvifd/camera-onvif-daemon/internal/onviferr"
)

// Handler processes a decoded SOAP operation and returns the raw
// envelope-wrapped response bytes, or a domain error.
type Handler func(body []byte) ([]byte, error)

// HandlerEntry pairs an operation name with its handler.
type HandlerEntry struct {
	Operation string
	Handle    Handler
}

// ServiceEntry is what a service registers with the dispatcher.
type ServiceEntry struct {
	PathPrefix string
	Handlers   []HandlerEntry
}

func (s *ServiceEntry) lookup(operation string) (Handler, bool) {
	for _, h := range s.Handlers {
		if h.Operation == operation {
			return h.Handle, true
		}
	}
	return nil, false
}

// Registry is the process-wide service dispatcher. It is deliberately
// not torn down between per-service restarts; services call Register
// at init and Deregister at cleanup, but the registry itself persists
// for the life of the process.
type Registry struct {
	mu       sync.RWMutex
	services map[string]*ServiceEntry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{services: make(map[string]*ServiceEntry)}
}

// Register adds or replaces the entry for serviceType. Register and
// Deregister are serialized against each other and against Route.
func (r *Registry) Register(serviceType string, entry *ServiceEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[serviceType] = entry
}

// Deregister removes serviceType's entry, if present.
func (r *Registry) Deregister(serviceType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.services, serviceType)
}

// Route finds the service whose PathPrefix matches path, then looks up
// operation in its handler table. An unmatched path is a 404 at the
// HTTP layer (signaled by ErrNoSuchService); an unmatched operation
// within a matched service is a SOAP Sender fault.
func (r *Registry) Route(path, operation string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, svc := range r.services {
		if svc.PathPrefix == path {
			h, ok := svc.lookup(operation)
			if !ok {
				return nil, onviferr.InvalidArgument(fmt.Sprintf("unknown operation %q", operation))
			}
			return h, nil
		}
	}
	return nil, ErrNoSuchService
}

// ErrNoSuchService is returned by Route when no registered service
// matches the request path.
var ErrNoSuchService = fmt.Errorf("no service registered for path")
