package operations

import (
	"fmt"
	"sync"
)

// Registry holds the pipeline steps in registration order
type Registry struct {
	mu    sync.RWMutex
	steps map[string]Step
	order []string
}

// NewRegistry creates an empty step registry
func NewRegistry() *Registry {
	return &Registry{
		steps: make(map[string]Step),
		order: make([]string, 0),
	}
}

// Register adds a step to the registry
func (r *Registry) Register(step Step) error {
	if step == nil {
		return fmt.Errorf("cannot register nil step")
	}

	id := step.ID()
	if id == "" {
		return fmt.Errorf("step ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.steps[id]; exists {
		return fmt.Errorf("step with ID %s already registered", id)
	}

	r.steps[id] = step
	r.order = append(r.order, id)
	return nil
}

// Get retrieves a step by ID
func (r *Registry) Get(id string) (Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	step, exists := r.steps[id]
	if !exists {
		return nil, fmt.Errorf("step with ID %s not found", id)
	}
	return step, nil
}

// Has checks if a step is registered
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.steps[id]
	return exists
}

// List returns all registered steps in registration order
func (r *Registry) List() []Step {
	r.mu.RLock()
	defer r.mu.RUnlock()

	steps := make([]Step, 0, len(r.order))
	for _, id := range r.order {
		steps = append(steps, r.steps[id])
	}
	return steps
}

// ListIDs returns all registered step IDs in registration order
func (r *Registry) ListIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Count returns the number of registered steps
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.steps)
}

// GetDependencyOrder returns steps topologically sorted by their
// dependencies. Ties are broken by registration order.
func (r *Registry) GetDependencyOrder() ([]Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dependents := make(map[string][]string, len(r.steps))
	inDegree := make(map[string]int, len(r.steps))

	for _, id := range r.order {
		for _, dep := range r.steps[id].GetDependencies() {
			if _, exists := r.steps[dep]; !exists {
				return nil, fmt.Errorf("step %s depends on non-existent step %s", id, dep)
			}
			dependents[dep] = append(dependents[dep], id)
			inDegree[id]++
		}
	}

	// Kahn's algorithm; scanning r.order each round keeps the output stable
	ordered := make([]Step, 0, len(r.steps))
	done := make(map[string]bool, len(r.steps))
	for len(ordered) < len(r.steps) {
		progressed := false
		for _, id := range r.order {
			if done[id] || inDegree[id] > 0 {
				continue
			}
			done[id] = true
			ordered = append(ordered, r.steps[id])
			for _, d := range dependents[id] {
				inDegree[d]--
			}
			progressed = true
			break
		}
		if !progressed {
			return nil, fmt.Errorf("dependency cycle detected")
		}
	}

	return ordered, nil
}

// ValidateDependencies checks that every dependency exists and the graph is acyclic
func (r *Registry) ValidateDependencies() error {
	_, err := r.GetDependencyOrder()
	return err
}

// GetDependents returns steps that directly depend on the given step
func (r *Registry) GetDependents(stepID string) []Step {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dependents := make([]Step, 0)
	for _, id := range r.order {
		for _, dep := range r.steps[id].GetDependencies() {
			if dep == stepID {
				dependents = append(dependents, r.steps[id])
				break
			}
		}
	}
	return dependents
}
