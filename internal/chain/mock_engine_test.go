package chain

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/odakahirokazu/ANLNext/internal/module"
	"github.com/odakahirokazu/ANLNext/internal/status"
)

// mockEngine is a testify mock of Engine.
type mockEngine struct {
	mock.Mock
	modules []module.Module
}

func (m *mockEngine) SetModules(mods []module.Module) error {
	m.modules = mods
	return m.Called(mods).Error(0)
}

func (m *mockEngine) Define(ctx context.Context) (status.Status, error) {
	ret := m.Called(ctx)
	return ret.Get(0).(status.Status), ret.Error(1)
}

func (m *mockEngine) PreInitialize(ctx context.Context) (status.Status, error) {
	ret := m.Called(ctx)
	return ret.Get(0).(status.Status), ret.Error(1)
}

func (m *mockEngine) Initialize(ctx context.Context) (status.Status, error) {
	ret := m.Called(ctx)
	return ret.Get(0).(status.Status), ret.Error(1)
}

func (m *mockEngine) Analyze(ctx context.Context, numLoop int64, console bool) (status.Status, error) {
	ret := m.Called(ctx, numLoop, console)
	return ret.Get(0).(status.Status), ret.Error(1)
}

func (m *mockEngine) Finalize(ctx context.Context) (status.Status, error) {
	ret := m.Called(ctx)
	return ret.Get(0).(status.Status), ret.Error(1)
}

func (m *mockEngine) SetDisplayPeriod(n int64) {
	m.Called(n)
}

func (m *mockEngine) ParallelModule(index int, id string) (module.Module, bool) {
	ret := m.Called(index, id)
	mod, _ := ret.Get(0).(module.Module)
	return mod, ret.Bool(1)
}

// okEngine returns a mock whose phases all return OK.
func okEngine() *mockEngine {
	return engineWith(nil)
}

// engineWith returns a mock whose phases return OK unless overridden by
// name ("Define", "PreInitialize", "Initialize", "Analyze", "Finalize").
func engineWith(overrides map[string]status.Status) *mockEngine {
	st := func(name string) status.Status {
		if s, ok := overrides[name]; ok {
			return s
		}
		return status.OK
	}
	e := &mockEngine{}
	e.On("SetModules", mock.Anything).Return(nil)
	e.On("Define", mock.Anything).Return(st("Define"), nil)
	e.On("PreInitialize", mock.Anything).Return(st("PreInitialize"), nil)
	e.On("Initialize", mock.Anything).Return(st("Initialize"), nil)
	e.On("Analyze", mock.Anything, mock.Anything, mock.Anything).Return(st("Analyze"), nil)
	e.On("Finalize", mock.Anything).Return(st("Finalize"), nil)
	e.On("SetDisplayPeriod", mock.Anything).Return()
	return e
}
