package modules

import (
	"github.com/odakahirokazu/ANLNext/internal/module"
	"github.com/odakahirokazu/ANLNext/internal/param"
)

// MyModule declares one parameter of every scalar and vector kind.
type MyModule struct {
	module.Base
}

// NewMyModule returns a MyModule with its default parameters.
func NewMyModule() module.Module {
	m := &MyModule{Base: module.NewBase("MyModule", "1.0")}
	r := m.Parameters()
	r.MustDeclare("my_parameter1", param.Int(1))
	r.MustDeclare("my_parameter2", param.Real(2.0))
	r.MustDeclare("my_parameter3", param.String("test"))
	r.MustDeclare("my_vector1", param.IntVector{})
	r.MustDeclare("my_vector2", param.RealVector{})
	r.MustDeclare("my_vector3", param.StringVector{})
	return m
}

func (m *MyModule) Clone() module.Module {
	return &MyModule{Base: m.CloneBase()}
}

// elementSchema is the record shape shared by MyVectorModule and MyMapModule.
func elementSchema() param.Schema {
	return param.NewSchema(
		param.F("ID", param.Int(0)),
		param.F("type", param.String("pixel")),
		param.F("x", param.Real(0)),
		param.F("y", param.Real(0)),
	)
}

// MyVectorModule declares a vector of records.
type MyVectorModule struct {
	module.Base
}

func NewMyVectorModule() module.Module {
	m := &MyVectorModule{Base: module.NewBase("MyVectorModule", "1.0")}
	m.Parameters().MustDeclare("my_vector", param.NewRecordVector(elementSchema()),
		param.WithDescription("list of {ID, type, x, y}"))
	return m
}

func (m *MyVectorModule) Clone() module.Module {
	return &MyVectorModule{Base: m.CloneBase()}
}

// MyMapModule declares a map of records keyed by name.
type MyMapModule struct {
	module.Base
}

func NewMyMapModule() module.Module {
	m := &MyMapModule{Base: module.NewBase("MyMapModule", "1.0")}
	m.Parameters().MustDeclare("my_map", param.NewRecordMap(elementSchema()),
		param.WithDescription("name -> {ID, type, x, y}"))
	return m
}

func (m *MyMapModule) Clone() module.Module {
	return &MyMapModule{Base: m.CloneBase()}
}
