// Package catalog holds the per-machine vulnerability records. Both the API's
// /machines routes and each agent runtime keep their state in a Catalog.
package catalog

import (
	"errors"
	"sync"

	"wincvex/internal/model"
)

var ErrNotFound = errors.New("vulnerability not found")

type machine struct {
	mu    sync.RWMutex
	order []string
	vulns map[string]*model.Vulnerability
}

// Catalog is safe for concurrent use. The set of machines and keys is fixed at
// construction; only the enabled flag changes.
type Catalog struct {
	order    []string
	machines map[string]*machine
}

// Entry is one machine's records in seed order.
type Entry struct {
	MachineID string
	Vulns     []model.Vulnerability
}

func New(seed []Entry) *Catalog {
	c := &Catalog{machines: make(map[string]*machine, len(seed))}
	for _, e := range seed {
		m, ok := c.machines[e.MachineID]
		if !ok {
			m = &machine{vulns: make(map[string]*model.Vulnerability, len(e.Vulns))}
			c.machines[e.MachineID] = m
			c.order = append(c.order, e.MachineID)
		}
		for _, v := range e.Vulns {
			if _, dup := m.vulns[v.Key]; dup {
				continue
			}
			m.vulns[v.Key] = &v
			m.order = append(m.order, v.Key)
		}
	}
	return c
}

// Machines returns machine ids in seed order.
func (c *Catalog) Machines() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// List returns copies of the machine's records. Unknown machines yield an
// empty, non-nil slice.
func (c *Catalog) List(machineID string) []model.Vulnerability {
	m, ok := c.machines[machineID]
	if !ok {
		return []model.Vulnerability{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Vulnerability, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, *m.vulns[k])
	}
	return out
}

func (c *Catalog) SetEnabled(machineID, key string, enabled bool) (model.Vulnerability, error) {
	m, ok := c.machines[machineID]
	if !ok {
		return model.Vulnerability{}, ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.vulns[key]
	if !ok {
		return model.Vulnerability{}, ErrNotFound
	}
	v.Enabled = enabled
	return *v, nil
}

// Status is the key -> enabled view an agent reports.
func (c *Catalog) Status(machineID string) (map[string]bool, bool) {
	m, ok := c.machines[machineID]
	if !ok {
		return nil, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]bool, len(m.vulns))
	for k, v := range m.vulns {
		out[k] = v.Enabled
	}
	return out, true
}
