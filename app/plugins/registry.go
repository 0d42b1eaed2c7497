// Package plugins maps configuration names to crew notifier
// implementations.
package plugins

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kilianp07/erdispatch/config"
	coremqtt "github.com/kilianp07/erdispatch/core/mqtt"
)

// NotifierFactory builds a crew notifier from the full configuration.
type NotifierFactory func(cfg config.Config) (coremqtt.Notifier, error)

var (
	mu        sync.RWMutex
	notifiers = map[string]NotifierFactory{}
)

// RegisterNotifier adds f under name, replacing any previous factory.
func RegisterNotifier(name string, f NotifierFactory) {
	mu.Lock()
	notifiers[name] = f
	mu.Unlock()
}

// NewNotifier builds the notifier registered under name.
func NewNotifier(name string, cfg config.Config) (coremqtt.Notifier, error) {
	mu.RLock()
	f, ok := notifiers[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("plugins: unknown notifier %q (have %v)", name, Notifiers())
	}
	return f(cfg)
}

// Notifiers lists the registered notifier names.
func Notifiers() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(notifiers))
	for n := range notifiers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
