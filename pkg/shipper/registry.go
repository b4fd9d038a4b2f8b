package shipper

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Registry manages the registered shipping methods.
type Registry struct {
	shippers map[string]Shipper
	mu       sync.RWMutex
}

// NewRegistry creates a new shipping method registry.
func NewRegistry() *Registry {
	return &Registry{
		shippers: make(map[string]Shipper),
	}
}

// Register adds a shipping method to the registry.
func (r *Registry) Register(s Shipper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shippers[s.Name()] = s
}

// Get returns a shipping method by name.
func (r *Registry) Get(name string) (Shipper, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.shippers[name]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrMethodNotFound, name)
}

// All returns all registered shipping methods ordered by name.
func (r *Registry) All() []Shipper {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Shipper, 0, len(r.shippers))
	for _, s := range r.shippers {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Names returns the sorted names of all registered shipping methods.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.shippers))
	for name := range r.shippers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered shipping methods.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.shippers)
}

// CalculateAll fetches rates from all registered methods in parallel.
// Errors from individual methods are collected but don't fail the entire
// request. Rates are concatenated in method name order.
func (r *Registry) CalculateAll(ctx context.Context, shipment *Shipment) (*RateResult, error) {
	shippers := r.All()
	if len(shippers) == 0 {
		return nil, ErrMethodNotFound
	}
	return calculate(ctx, shipment, shippers, nil), nil
}

// CalculateFor fetches rates from the named methods. An empty list means all
// methods. Unknown names are reported in the result errors.
func (r *Registry) CalculateFor(ctx context.Context, shipment *Shipment, names []string) (*RateResult, error) {
	if len(names) == 0 {
		return r.CalculateAll(ctx, shipment)
	}

	shippers := make([]Shipper, 0, len(names))
	var errs []error
	for _, name := range names {
		s, err := r.Get(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		shippers = append(shippers, s)
	}
	return calculate(ctx, shipment, shippers, errs), nil
}

// RefreshAll refreshes every registered method in parallel and returns the
// failures keyed by method name order.
func (r *Registry) RefreshAll(ctx context.Context) []error {
	shippers := r.All()
	errs := make([]error, len(shippers))

	g, ctx := errgroup.WithContext(ctx)
	for i, s := range shippers {
		g.Go(func() error {
			if err := s.Refresh(ctx); err != nil {
				errs[i] = fmt.Errorf("%s: %w", s.Name(), err)
			}
			return nil // Don't fail the group, continue with other methods
		})
	}
	g.Wait()

	return compact(errs)
}

func calculate(ctx context.Context, shipment *Shipment, shippers []Shipper, errs []error) *RateResult {
	results := make([]*RateResult, len(shippers))
	failures := make([]error, len(shippers))

	g, ctx := errgroup.WithContext(ctx)
	for i, s := range shippers {
		g.Go(func() error {
			res, err := s.CalculateRates(ctx, shipment)
			if err != nil {
				failures[i] = fmt.Errorf("%s: %w", s.Name(), err)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	g.Wait()

	out := Empty()
	out.Errors = append(out.Errors, errs...)
	for i, res := range results {
		if failures[i] != nil {
			out.Errors = append(out.Errors, failures[i])
			continue
		}
		if res == nil {
			continue
		}
		out.Rates = append(out.Rates, res.Rates...)
		out.Errors = append(out.Errors, res.Errors...)
	}
	return out
}

func compact(errs []error) []error {
	out := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}
