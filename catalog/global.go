package catalog

import (
	"sync"

	"github.com/c360studio/protodb/protocol"
)

// Process-wide registry. It is written once at startup by Init (or by
// Replace when the catalog document is reloaded) and read afterwards.
var (
	globalMu       sync.RWMutex
	globalRegistry *Registry
)

// Init installs r as the process-wide registry. It fails with
// ErrAlreadyInitialized if one is installed; use Replace to swap it.
func Init(r *Registry) error {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalRegistry != nil {
		return ErrAlreadyInitialized
	}
	globalRegistry = r
	return nil
}

// Replace installs r as the process-wide registry. The previous registry is
// dropped, not merged.
func Replace(r *Registry) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalRegistry = r
}

// ResetGlobal clears the process-wide registry. Intended for tests.
func ResetGlobal() {
	Replace(nil)
}

// Global returns the process-wide registry.
func Global() (*Registry, error) {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalRegistry == nil {
		return nil, ErrNotInitialized
	}
	return globalRegistry, nil
}

// AddCustomProtocols registers the protocols of the catalog document and
// installs the result as the process-wide registry.
func AddCustomProtocols(opts Options) (*Registry, error) {
	reg, err := Register(opts)
	if err != nil {
		return nil, err
	}
	if err := Init(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// GetProtocol resolves "Database.Task.Protocol" in the process-wide registry.
func GetProtocol(name string) (*protocol.Protocol, error) {
	reg, err := Global()
	if err != nil {
		return nil, err
	}
	return reg.Protocol(name)
}

// GetDatabase instantiates a database from the process-wide registry.
func GetDatabase(name string) (*protocol.Database, error) {
	reg, err := Global()
	if err != nil {
		return nil, err
	}
	t, err := reg.Database(name)
	if err != nil {
		return nil, err
	}
	return t.New(), nil
}

// GetDatabases lists databases of the process-wide registry. A non-empty task
// restricts the list to databases declaring it.
func GetDatabases(task string) ([]string, error) {
	reg, err := Global()
	if err != nil {
		return nil, err
	}
	if task == "" {
		return reg.Databases(), nil
	}
	return reg.TaskDatabases(task), nil
}

// GetTasks lists tasks of the process-wide registry.
func GetTasks() ([]string, error) {
	reg, err := Global()
	if err != nil {
		return nil, err
	}
	return reg.Tasks(), nil
}
