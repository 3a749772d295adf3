// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package plugin

import (
	"sort"
	"sync"
)

// Factory creates a new plugin instance.
type Factory func() Plugin

// registry holds registered plugin factories.
var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
)

// Register registers a plugin factory with the given ID.
// This is typically called from init() functions in plugin packages.
// If a plugin with the same ID is already registered, it will be replaced.
func Register(id string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[id] = factory
}

// Unregister removes a plugin from the registry.
// This is useful for testing.
func Unregister(id string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, id)
}

// Available returns the registered plugin IDs, sorted.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	ids := make([]string, 0, len(factories))
	for id := range factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsRegistered checks if a plugin with the given ID is registered.
func IsRegistered(id string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[id]
	return ok
}

// Get returns a new plugin instance by ID.
// Returns nil if the plugin is not registered.
func Get(id string) Plugin {
	registryMu.RLock()
	defer registryMu.RUnlock()

	factory, ok := factories[id]
	if !ok {
		return nil
	}
	return factory()
}
