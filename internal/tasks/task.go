// Package tasks orders per-event processing stages into execution phases.
//
// Tasks are added with the identifiers of the tasks they depend on, which
// must have been added before. BuildQueue assigns every task a phase such
// that each dependency runs in an earlier phase than its dependents:
//
//	m := tasks.NewManager()
//	m.AddTask("unpack", unpack)
//	m.AddTask("calibrate", cal, "unpack")
//	m.BuildQueue()
//	m.InitTasks(ctx)
//	for each event {
//	    m.ExecuteTasks(ctx)
//	}
//	m.DeinitTasks(ctx)
//
// All phases run sequentially on the calling goroutine.
package tasks

import "context"

// ID identifies a task in the dependency graph.
type ID string

// Task is one processing stage. Init runs once before the first event,
// Execute once per event and Deinit once after the last event.
type Task interface {
	Init(ctx context.Context) error
	Execute(ctx context.Context) error
	Deinit(ctx context.Context) error
}

// Setup is implemented by collaborators that declare tasks.
type Setup interface {
	SetupTasks(m *Manager) error
}

// Funcs adapts plain functions to Task. Nil functions do nothing.
type Funcs struct {
	InitFunc    func(ctx context.Context) error
	ExecuteFunc func(ctx context.Context) error
	DeinitFunc  func(ctx context.Context) error
}

func (f Funcs) Init(ctx context.Context) error {
	if f.InitFunc == nil {
		return nil
	}
	return f.InitFunc(ctx)
}

func (f Funcs) Execute(ctx context.Context) error {
	if f.ExecuteFunc == nil {
		return nil
	}
	return f.ExecuteFunc(ctx)
}

func (f Funcs) Deinit(ctx context.Context) error {
	if f.DeinitFunc == nil {
		return nil
	}
	return f.DeinitFunc(ctx)
}
