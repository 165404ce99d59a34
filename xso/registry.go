// Copyright 2024 The Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xso

import (
	"encoding/xml"
	"errors"
	"fmt"
	"sync"
)

// ErrPayloadNotRegistered is returned by Registry.Lookup and Registry.New
// when no class has been registered for a given element name.
var ErrPayloadNotRegistered = errors.New("xso: payload class not registered")

// Class constructs a fresh, zero-valued xml.Unmarshaler instance for a
// registered payload. Extension packages register a Class alongside the
// element name they decode so that generic dispatchers (for example a
// disco feature list or an ad-hoc command payload) can decode a child
// element without a type switch over every known extension.
type Class func() xml.Unmarshaler

// Registry maps element names to the Class that knows how to decode them.
// The zero value is ready to use. A Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	classes map[xml.Name]Class
}

// Register associates name with class. Registering the same name twice
// replaces the previous registration.
func (reg *Registry) Register(name xml.Name, class Class) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.classes == nil {
		reg.classes = make(map[xml.Name]Class)
	}
	reg.classes[name] = class
}

// Lookup reports whether a class has been registered for name.
func (reg *Registry) Lookup(name xml.Name) (Class, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	class, ok := reg.classes[name]
	return class, ok
}

// Decode looks up the class registered for start.Name, constructs a fresh
// instance, and unmarshals start (and the rest of its element from d) into
// it. If no class is registered it returns ErrPayloadNotRegistered.
func (reg *Registry) Decode(d *xml.Decoder, start xml.StartElement) (xml.Unmarshaler, error) {
	class, ok := reg.Lookup(start.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrPayloadNotRegistered, start.Name.Space, start.Name.Local)
	}
	v := class()
	if err := v.UnmarshalXML(d, start); err != nil {
		return nil, err
	}
	return v, nil
}
