package container

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/clydemeng/yulvm/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Parameter is a named, typed method or event parameter.
type Parameter struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Method is one callable entry of the manifest.
type Method struct {
	Name       string      `json:"name"`
	Parameters []Parameter `json:"parameters"`
	ReturnType string      `json:"returntype"`
	Offset     int         `json:"offset"`
	Safe       bool        `json:"safe"`
}

// Event is an emitted event signature.
type Event struct {
	Name       string      `json:"name"`
	Parameters []Parameter `json:"parameters"`
}

// Permission allows calling methods of another contract. "*" is a wildcard
// for either field.
type Permission struct {
	Contract string   `json:"contract"`
	Methods  []string `json:"methods"`
}

// Manifest describes the public surface of a contract.
type Manifest struct {
	Name        string       `json:"name"`
	Methods     []Method     `json:"methods"`
	Events      []Event      `json:"events"`
	Permissions []Permission `json:"permissions"`
}

// NewManifest derives a manifest from compiler function descriptors. View
// and pure functions are marked safe. The manifest grants no permissions
// until some are added.
func NewManifest(name string, fns []abi.Function, events []Event) *Manifest {
	m := &Manifest{
		Name:        name,
		Methods:     make([]Method, 0, len(fns)),
		Events:      append([]Event{}, events...),
		Permissions: []Permission{},
	}
	for _, fn := range fns {
		method := Method{
			Name:       fn.Name,
			Parameters: make([]Parameter, len(fn.Inputs)),
			ReturnType: "void",
			Safe:       fn.ReadOnly(),
		}
		for i, in := range fn.Inputs {
			method.Parameters[i] = Parameter{Name: in.Name, Type: in.Type}
		}
		if len(fn.Outputs) > 0 {
			method.ReturnType = fn.Outputs[0].Type
		}
		m.Methods = append(m.Methods, method)
	}
	return m
}

// Method looks up a method by name.
func (m *Manifest) Method(name string) (*Method, bool) {
	for i := range m.Methods {
		if m.Methods[i].Name == name {
			return &m.Methods[i], true
		}
	}
	return nil, false
}

// SetOffset records the script offset of a method's entry point.
func (m *Manifest) SetOffset(name string, offset int) error {
	method, ok := m.Method(name)
	if !ok {
		return fmt.Errorf("manifest %s has no method %q", m.Name, name)
	}
	method.Offset = offset
	return nil
}

// Allow adds a permission entry.
func (m *Manifest) Allow(contract string, methods ...string) {
	m.Permissions = append(m.Permissions, Permission{Contract: contract, Methods: methods})
}

// WriteJSON writes the manifest as indented JSON.
func (m *Manifest) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// ReadManifest parses a JSON manifest.
func ReadManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}

// Artifact is the output of the compiler front end: bytecode, function
// descriptors and a gas estimate. Only the bytecode is needed to execute.
type Artifact struct {
	Bytecode    hexutil.Bytes  `json:"bytecode"`
	ABI         []abi.Function `json:"abi"`
	GasEstimate uint64         `json:"gasEstimate"`
}

// Container packages the artifact's bytecode.
func (a *Artifact) Container(compiler string, version Version) *Container {
	return &Container{Compiler: compiler, Version: version, Script: a.Bytecode}
}

// Manifest derives the artifact's manifest.
func (a *Artifact) Manifest(name string, events []Event) *Manifest {
	return NewManifest(name, a.ABI, events)
}
