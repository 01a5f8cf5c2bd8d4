package tasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/xtxerr/spark/internal/errors"
	"github.com/xtxerr/spark/internal/logging"
)

type node struct {
	id          ID
	task        Task
	deps        []*node
	hasChildren bool

	// depth is the longest dependency path from any end task.
	depth int
	phase int

	// initialized is set by a successful Init and cleared by Deinit.
	initialized bool
}

// Manager holds the task graph and the phase queue built from it.
type Manager struct {
	nodes  map[ID]*node
	order  []*node
	phases [][]*node
	built  bool

	unpackers []*unpackerEntry

	logger *slog.Logger
}

// NewManager creates an empty task manager.
func NewManager() *Manager {
	return &Manager{
		nodes:  make(map[ID]*node),
		logger: logging.Component("tasks"),
	}
}

// AddTask adds task under id. Every dependency must have been added before.
func (m *Manager) AddTask(id ID, task Task, deps ...ID) error {
	if _, ok := m.nodes[id]; ok {
		return fmt.Errorf("task %s: %w", id, errors.ErrDuplicateTask)
	}

	n := &node{id: id, task: task}
	for _, d := range deps {
		dep, ok := m.nodes[d]
		if !ok {
			m.logger.Log(context.Background(), logging.LevelCritical, "task dependency not found",
				"task", id, "dependency", d)
			return fmt.Errorf("task %s depends on %s: %w", id, d, errors.ErrDependencyNotFound)
		}
		n.deps = append(n.deps, dep)
	}
	for _, dep := range n.deps {
		dep.hasChildren = true
	}

	m.nodes[id] = n
	m.order = append(m.order, n)
	m.built = false
	return nil
}

// Len returns the number of tasks.
func (m *Manager) Len() int { return len(m.order) }

// Task returns the task added under id.
func (m *Manager) Task(id ID) (Task, bool) {
	n, ok := m.nodes[id]
	if !ok {
		return nil, false
	}
	return n.task, true
}

// SetupFrom runs every collaborator's task setup against m.
func (m *Manager) SetupFrom(setups ...Setup) error {
	for _, s := range setups {
		if err := s.SetupTasks(m); err != nil {
			return err
		}
	}
	return nil
}

// BuildQueue assigns each task its phase: the maximum depth over all end
// tasks minus the task's own depth. Tasks in one phase keep the order in
// which they were added.
func (m *Manager) BuildQueue() error {
	for _, n := range m.order {
		n.depth = 0
		n.phase = 0
	}

	maxDepth := 0
	visited := make(map[*node]bool, len(m.order))
	for _, n := range m.order {
		if n.hasChildren {
			continue
		}
		d, err := enumerate(n, 0, make(map[*node]bool), visited)
		if err != nil {
			return err
		}
		maxDepth = max(maxDepth, d)
	}

	// A cycle without an end task is never reached from one.
	for _, n := range m.order {
		if !visited[n] {
			return fmt.Errorf("task %s unreachable from any end task: %w", n.id, errors.ErrCycleDetected)
		}
	}

	m.phases = nil
	if len(m.order) > 0 {
		m.phases = make([][]*node, maxDepth+1)
	}
	for _, n := range m.order {
		n.phase = maxDepth - n.depth
		m.phases[n.phase] = append(m.phases[n.phase], n)
	}
	m.built = true

	m.logger.Info("task queue built", "tasks", len(m.order), "phases", len(m.phases))
	return nil
}

// enumerate sets the depth of n to step and walks into every dependency
// whose depth would grow. It returns the largest depth reached.
func enumerate(n *node, step int, path, visited map[*node]bool) (int, error) {
	if path[n] {
		return 0, fmt.Errorf("task %s: %w", n.id, errors.ErrCycleDetected)
	}
	path[n] = true
	defer delete(path, n)

	visited[n] = true
	n.depth = step
	deepest := step
	for _, dep := range n.deps {
		if dep.depth > step {
			continue
		}
		d, err := enumerate(dep, step+1, path, visited)
		if err != nil {
			return 0, err
		}
		deepest = max(deepest, d)
	}
	return deepest, nil
}

// Phases returns the task ids per phase in execution order.
func (m *Manager) Phases() [][]ID {
	out := make([][]ID, len(m.phases))
	for i, phase := range m.phases {
		for _, n := range phase {
			out[i] = append(out[i], n.id)
		}
	}
	return out
}

// Phase returns the phase of id after BuildQueue.
func (m *Manager) Phase(id ID) (int, bool) {
	n, ok := m.nodes[id]
	if !ok || !m.built {
		return 0, false
	}
	return n.phase, true
}

// InitTasks calls Init on every task in phase order.
func (m *Manager) InitTasks(ctx context.Context) error {
	return m.run(ctx, "init", func(n *node) error {
		if n.initialized {
			return nil
		}
		if err := n.task.Init(ctx); err != nil {
			return err
		}
		n.initialized = true
		return nil
	})
}

// ExecuteTasks calls Execute on every task in phase order.
func (m *Manager) ExecuteTasks(ctx context.Context) error {
	return m.run(ctx, "execute", func(n *node) error { return n.task.Execute(ctx) })
}

// DeinitTasks calls Deinit in phase order on the tasks whose Init succeeded.
// Each such task is deinitialized at most once.
func (m *Manager) DeinitTasks(ctx context.Context) error {
	return m.run(ctx, "deinit", func(n *node) error {
		if !n.initialized {
			return nil
		}
		n.initialized = false
		return n.task.Deinit(ctx)
	})
}

// Initialized returns the ids of the tasks that completed Init and were not
// deinitialized since, in phase order.
func (m *Manager) Initialized() []ID {
	var ids []ID
	for _, phase := range m.phases {
		for _, n := range phase {
			if n.initialized {
				ids = append(ids, n.id)
			}
		}
	}
	return ids
}

// run stops at the first failing task.
func (m *Manager) run(ctx context.Context, stage string, call func(n *node) error) error {
	if !m.built {
		if err := m.BuildQueue(); err != nil {
			return err
		}
	}
	for i, phase := range m.phases {
		for _, n := range phase {
			if err := call(n); err != nil {
				return fmt.Errorf("%s task %s (phase %d): %w", stage, n.id, i, err)
			}
		}
	}
	return nil
}

// PrintQueue writes the phase queue.
func (m *Manager) PrintQueue(w io.Writer) {
	fmt.Fprintf(w, "Task queue: %d tasks in %d phases\n", len(m.order), len(m.phases))
	for i, phase := range m.phases {
		names := make([]string, len(phase))
		for j, n := range phase {
			names[j] = string(n.id)
		}
		fmt.Fprintf(w, "  phase %d: %s\n", i, strings.Join(names, " "))
	}
	for _, n := range m.order {
		if len(n.deps) == 0 {
			continue
		}
		deps := make([]string, len(n.deps))
		for j, d := range n.deps {
			deps[j] = string(d.id)
		}
		fmt.Fprintf(w, "  %s <- %s\n", n.id, strings.Join(deps, ", "))
	}
}
