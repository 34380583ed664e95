package modules

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/odakahirokazu/ANLNext/internal/module"
	"github.com/odakahirokazu/ANLNext/internal/param"
	"github.com/odakahirokazu/ANLNext/internal/status"
)

// QuitAt ends the event loop at a given event index.
type QuitAt struct {
	module.Base

	index int64
	all   bool
}

func NewQuitAt() module.Module {
	m := &QuitAt{Base: module.NewBase("QuitAt", "1.0")}
	r := m.Parameters()
	r.MustDeclare("quit_index", param.Int(-1),
		param.WithDescription("Event index at which to quit; negative never quits"))
	r.MustDeclare("quit_all", param.Bool(false),
		param.WithDescription("Stop every parallel replica instead of this one"))
	return m
}

func (m *QuitAt) Clone() module.Module {
	return &QuitAt{Base: m.CloneBase()}
}

func (m *QuitAt) Initialize(context.Context) status.Status {
	m.index = intParam(m.Parameters(), "quit_index")
	m.all = boolParam(m.Parameters(), "quit_all")
	return status.OK
}

func (m *QuitAt) Analyze(ctx context.Context) status.Status {
	if m.index < 0 || module.EventIndex(ctx) != m.index {
		return status.OK
	}
	if m.all {
		return status.QuitAll
	}
	return status.Quit
}

// Recorder records every lifecycle callback it receives and can be told to
// answer one phase with a chosen status. Analyze calls are counted rather
// than recorded.
//
// fail_phase names the callback ("Define", "Analyze", ...) and fail_status
// the AS_* status to return. For Analyze, fail_index picks the event;
// a negative index fails every event.
type Recorder struct {
	module.Base

	mu     sync.Mutex
	calls  []string
	events int64
}

func NewRecorder() module.Module {
	m := &Recorder{Base: module.NewBase("Recorder", "1.0")}
	r := m.Parameters()
	r.MustDeclare("fail_phase", param.String(""))
	r.MustDeclare("fail_status", param.String(status.OK.String()))
	r.MustDeclare("fail_index", param.Int(-1))
	return m
}

func (m *Recorder) Clone() module.Module {
	return &Recorder{Base: m.CloneBase()}
}

// Calls returns the recorded callbacks in order.
func (m *Recorder) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Events returns the number of Analyze calls.
func (m *Recorder) Events() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events
}

func (m *Recorder) answer(phase string) status.Status {
	r := m.Parameters()
	if stringParam(r, "fail_phase") != phase {
		return status.OK
	}
	st, err := status.Parse(stringParam(r, "fail_status"))
	if err != nil {
		slog.Error(fmt.Sprintf("recorder: %v", err), "module", m.ModuleID())
		return status.CriticalErrorToFinalize
	}
	return st
}

func (m *Recorder) record(phase string) status.Status {
	m.mu.Lock()
	m.calls = append(m.calls, phase)
	m.mu.Unlock()
	return m.answer(phase)
}

func (m *Recorder) Define(context.Context) status.Status        { return m.record("Define") }
func (m *Recorder) PreInitialize(context.Context) status.Status { return m.record("PreInitialize") }
func (m *Recorder) Initialize(context.Context) status.Status    { return m.record("Initialize") }
func (m *Recorder) BeginRun(context.Context) status.Status      { return m.record("BeginRun") }
func (m *Recorder) EndRun(context.Context) status.Status        { return m.record("EndRun") }
func (m *Recorder) Finalize(context.Context) status.Status      { return m.record("Finalize") }

func (m *Recorder) Analyze(ctx context.Context) status.Status {
	m.mu.Lock()
	m.events++
	m.mu.Unlock()
	idx := intParam(m.Parameters(), "fail_index")
	if idx >= 0 && module.EventIndex(ctx) != idx {
		return status.OK
	}
	return m.answer("Analyze")
}
