package runtimes

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/shehryarbajwa/devtools-inspector/internal/launcher"
)

// Runtime names a Node.js release line
type Runtime string

const (
	RuntimeNode18 Runtime = "node18"
	RuntimeNode20 Runtime = "node20"
	RuntimeNode22 Runtime = "node22"
)

// RuntimePool wraps a launcher pool with runtime metadata
type RuntimePool struct {
	Runtime Runtime
	Image   string
	Pool    *launcher.Pool
}

// Manager manages launcher pools across Node runtimes
type Manager struct {
	pools          map[Runtime]*RuntimePool
	defaultRuntime Runtime
	containers     sync.Map // containerID -> Runtime
	mu             sync.RWMutex
}

// NewManager creates one pool per runtime -> image entry. defaultRuntime
// must be among them.
func NewManager(images map[string]string, defaultRuntime, scriptDir string) (*Manager, error) {
	manager := &Manager{
		pools:          make(map[Runtime]*RuntimePool),
		defaultRuntime: Runtime(defaultRuntime),
	}

	for name, img := range images {
		pool, err := launcher.NewPool(name, img, scriptDir)
		if err != nil {
			manager.Close()
			return nil, fmt.Errorf("failed to create pool for %s: %w", name, err)
		}

		manager.pools[Runtime(name)] = &RuntimePool{
			Runtime: Runtime(name),
			Image:   img,
			Pool:    pool,
		}
	}

	if _, ok := manager.pools[manager.defaultRuntime]; !ok {
		manager.Close()
		return nil, fmt.Errorf("default runtime %s has no image", defaultRuntime)
	}

	return manager, nil
}

// GetPool returns the launcher pool for a specific runtime
func (m *Manager) GetPool(runtime Runtime) (*launcher.Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runtimePool, exists := m.pools[runtime]
	if !exists {
		return nil, fmt.Errorf("unsupported runtime: %s", runtime)
	}

	return runtimePool.Pool, nil
}

// Route picks the runtime for a session, falling back to the default
func (m *Manager) Route(requested string) Runtime {
	runtime := Runtime(requested)

	m.mu.RLock()
	_, exists := m.pools[runtime]
	m.mu.RUnlock()

	if exists {
		return runtime
	}

	if requested != "" {
		log.Printf("⚠️  Unknown runtime %q, using %s", requested, m.defaultRuntime)
	}
	return m.defaultRuntime
}

// Launch starts a debuggee on the routed runtime
func (m *Manager) Launch(ctx context.Context, runtime string, opts launcher.LaunchOptions) (*launcher.Instance, error) {
	routed := m.Route(runtime)
	pool, err := m.GetPool(routed)
	if err != nil {
		return nil, err
	}

	instance, err := pool.Launch(ctx, opts)
	if err != nil {
		return nil, err
	}
	m.containers.Store(instance.ContainerID, routed)
	return instance, nil
}

// Stop stops a debuggee container launched by any pool
func (m *Manager) Stop(ctx context.Context, containerID string) error {
	if value, ok := m.containers.LoadAndDelete(containerID); ok {
		pool, err := m.GetPool(value.(Runtime))
		if err != nil {
			return err
		}
		return pool.Stop(ctx, containerID)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var lastErr error
	for _, runtimePool := range m.pools {
		err := runtimePool.Pool.Stop(ctx, containerID)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	return lastErr
}

// EnsureImages pulls the image of every runtime
func (m *Manager) EnsureImages(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for runtime, runtimePool := range m.pools {
		if err := runtimePool.Pool.EnsureImage(ctx); err != nil {
			return fmt.Errorf("failed to ensure image for %s: %w", runtime, err)
		}
	}

	return nil
}

// Runtimes returns all available runtimes, sorted
func (m *Manager) Runtimes() []Runtime {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runtimes := make([]Runtime, 0, len(m.pools))
	for runtime := range m.pools {
		runtimes = append(runtimes, runtime)
	}
	sort.Slice(runtimes, func(i, j int) bool { return runtimes[i] < runtimes[j] })

	return runtimes
}

// Default returns the fallback runtime
func (m *Manager) Default() Runtime {
	return m.defaultRuntime
}

// Close closes all launcher pools
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, runtimePool := range m.pools {
		if err := runtimePool.Pool.Close(); err != nil {
			return err
		}
	}

	return nil
}
