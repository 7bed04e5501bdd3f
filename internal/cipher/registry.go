package cipher

import (
	"fmt"
	"sort"
	"sync"
)

var (
	operationsRegistry = make(map[string]Operation)
	registryMu         sync.RWMutex
)

// RegisterOperation adds an operation to the global registry
func RegisterOperation(op Operation) error {
	if op == nil {
		return fmt.Errorf("cannot register nil operation")
	}

	name := op.Name()
	if name == "" {
		return fmt.Errorf("operation name cannot be empty")
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := operationsRegistry[name]; exists {
		return fmt.Errorf("operation %s is already registered", name)
	}

	operationsRegistry[name] = op
	return nil
}

// GetOperation looks up an operation by name
func GetOperation(name string) (Operation, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	op, exists := operationsRegistry[name]
	return op, exists
}

// ListOperations returns all registered operations sorted by name
func ListOperations() []Operation {
	return filterOperations(func(Operation) bool { return true })
}

// ListOperationsByType returns the operations of one category sorted by name
func ListOperationsByType(opType OperationType) []Operation {
	return filterOperations(func(op Operation) bool { return op.Type() == opType })
}

func filterOperations(keep func(Operation) bool) []Operation {
	registryMu.RLock()
	defer registryMu.RUnlock()

	ops := make([]Operation, 0, len(operationsRegistry))
	for _, op := range operationsRegistry {
		if keep(op) {
			ops = append(ops, op)
		}
	}
	sort.Slice(ops, func(i, j int) bool {
		return ops[i].Name() < ops[j].Name()
	})
	return ops
}

// UnregisterOperation removes an operation (mainly for testing)
func UnregisterOperation(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()

	delete(operationsRegistry, name)
}

// ClearRegistry removes all operations (mainly for testing)
func ClearRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()

	operationsRegistry = make(map[string]Operation)
}

// RegisterBuiltins registers the codec, XOR and breaker operations. It fails
// if any of them is already registered.
func RegisterBuiltins() error {
	for _, op := range builtinOperations() {
		if err := RegisterOperation(op); err != nil {
			return err
		}
	}
	return nil
}

func builtinOperations() []Operation {
	return append(codecOperations(), xorOperations()...)
}

func init() {
	if err := RegisterBuiltins(); err != nil {
		panic(err)
	}
}
