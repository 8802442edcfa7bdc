package cipher

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrDuplicateOperation is returned when a name is registered twice.
var ErrDuplicateOperation = errors.New("operation already registered")

// Registry maps operation names to implementations.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]Operation
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]Operation)}
}

// defaultRegistry holds every built-in operation, populated from init.
var defaultRegistry = NewRegistry()

// Register adds op to the registry.
func (r *Registry) Register(op Operation) error {
	if op == nil {
		return fmt.Errorf("cannot register nil operation")
	}

	name := op.Name()
	if name == "" {
		return fmt.Errorf("operation name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ops[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateOperation, name)
	}
	r.ops[name] = op
	return nil
}

// Get looks an operation up by name.
func (r *Registry) Get(name string) (Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	op, exists := r.ops[name]
	return op, exists
}

// List returns the registered operations sorted by name. A non-empty opType
// keeps only operations of that type.
func (r *Registry) List(opType OperationType) []Operation {
	r.mu.RLock()
	ops := make([]Operation, 0, len(r.ops))
	for _, op := range r.ops {
		if opType == "" || op.Type() == opType {
			ops = append(ops, op)
		}
	}
	r.mu.RUnlock()

	sort.Slice(ops, func(i, j int) bool {
		return ops[i].Name() < ops[j].Name()
	})
	return ops
}

// Unregister removes an operation.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ops, name)
}

// RegisterOperation adds an operation to the default registry.
func RegisterOperation(op Operation) error {
	return defaultRegistry.Register(op)
}

// GetOperation retrieves an operation from the default registry by name.
func GetOperation(name string) (Operation, bool) {
	return defaultRegistry.Get(name)
}

// ListOperations returns all operations of the default registry.
func ListOperations() []Operation {
	return defaultRegistry.List("")
}

// ListOperationsByType returns default registry operations filtered by type.
func ListOperationsByType(opType OperationType) []Operation {
	return defaultRegistry.List(opType)
}

func mustRegister(ops ...Operation) {
	for _, op := range ops {
		if err := RegisterOperation(op); err != nil {
			panic(err)
		}
	}
}
