package profile

import (
	"context"
	"sync"
)

// Memory is an in-process store used in tests and offline/dev mode.
type Memory struct {
	mu       sync.Mutex
	profiles map[string]Profile

	// FailWrites makes every write return this error when set.
	FailWrites error
	// OnRead runs at the start of every ReadProfile; tests use it to race
	// session resets against in-flight reads.
	OnRead func()
}

func NewMemory() *Memory {
	return &Memory{profiles: map[string]Profile{}}
}

func (m *Memory) Seed(p Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.PlayerID] = p
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) ReadProfile(ctx context.Context, playerID string) (Profile, error) {
	if m.OnRead != nil {
		m.OnRead()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[playerID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	p.Inventory = append([]string(nil), p.Inventory...)
	p.Equipment = append([]string(nil), p.Equipment...)
	return p, nil
}

func (m *Memory) WriteBalance(ctx context.Context, playerID string, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	p := m.profiles[playerID]
	p.PlayerID = playerID
	p.Balance = value
	m.profiles[playerID] = p
	return nil
}

func (m *Memory) WriteInventory(ctx context.Context, playerID string, items []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	p := m.profiles[playerID]
	p.PlayerID = playerID
	p.Inventory = append([]string(nil), items...)
	m.profiles[playerID] = p
	return nil
}

func (m *Memory) WriteEquipment(ctx context.Context, playerID string, items []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	p := m.profiles[playerID]
	p.PlayerID = playerID
	p.Equipment = append([]string(nil), items...)
	m.profiles[playerID] = p
	return nil
}
