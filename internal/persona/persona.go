// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package persona provides the catalog of named system instructions that
// bias the assistant toward a role.
//
// A built-in catalog of eleven personas is embedded in the binary. A user
// file with the same YAML layout replaces it entirely.
package persona

import (
	_ "embed"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed personas.yaml
var builtinYAML []byte

// ErrUnknownPersona is returned when a persona key is not in the catalog.
var ErrUnknownPersona = errors.New("unknown persona")

// Persona is a named seed instruction.
type Persona struct {
	Name        string `yaml:"name" json:"name"`
	Instruction string `yaml:"instruction" json:"instruction"`
}

// catalogFile is the on-disk layout of a persona file.
type catalogFile struct {
	Personas []Persona `yaml:"personas"`
}

// Catalog is an ordered, immutable mapping from persona name to instruction.
type Catalog struct {
	order  []string
	byName map[string]Persona
}

// Parse decodes a YAML persona catalog.
// Names must be unique and non-empty; every persona needs an instruction.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "failed to decode persona catalog")
	}
	if len(f.Personas) == 0 {
		return nil, errors.New("persona catalog is empty")
	}

	c := &Catalog{
		order:  make([]string, 0, len(f.Personas)),
		byName: make(map[string]Persona, len(f.Personas)),
	}
	for i, p := range f.Personas {
		p.Name = strings.TrimSpace(p.Name)
		p.Instruction = strings.TrimSpace(p.Instruction)
		if p.Name == "" {
			return nil, errors.Errorf("persona %d has no name", i)
		}
		if p.Instruction == "" {
			return nil, errors.Errorf("persona %q has no instruction", p.Name)
		}
		if _, dup := c.byName[p.Name]; dup {
			return nil, errors.Errorf("duplicate persona %q", p.Name)
		}
		c.order = append(c.order, p.Name)
		c.byName[p.Name] = p
	}
	return c, nil
}

// LoadFile reads a persona catalog from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read persona file %s", path)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid persona file %s", path)
	}
	return c, nil
}

// Builtin returns the embedded catalog.
// It panics if the embedded file is malformed, which a unit test guards.
func Builtin() *Catalog {
	c, err := Parse(builtinYAML)
	if err != nil {
		panic(err)
	}
	return c
}

// Load returns the catalog from path, or the built-in one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Builtin(), nil
	}
	return LoadFile(path)
}

// Names returns the persona names in catalog order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of personas.
func (c *Catalog) Len() int {
	return len(c.order)
}

// Get looks up a persona by exact name.
func (c *Catalog) Get(name string) (Persona, bool) {
	p, ok := c.byName[name]
	return p, ok
}

// Lookup resolves a persona name case-insensitively.
func (c *Catalog) Lookup(name string) (Persona, error) {
	if p, ok := c.byName[name]; ok {
		return p, nil
	}
	for _, n := range c.order {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return c.byName[n], nil
		}
	}
	return Persona{}, errors.Wrapf(ErrUnknownPersona, "%q", name)
}

// All returns every persona in catalog order.
func (c *Catalog) All() []Persona {
	out := make([]Persona, 0, len(c.order))
	for _, n := range c.order {
		out = append(out, c.byName[n])
	}
	return out
}
