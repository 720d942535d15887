// Package server runs the dispatch ingress servers side by side.
package server

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/rapidaid-io/rapidaid/pkg/log"
)

// Server is a long-running component that stops when ctx is done.
type Server interface {
	Start(ctx context.Context) error
}

// Manager manages the lifecycle of all protocol servers.
type Manager struct {
	servers []Server
}

// NewManager creates a manager. Nil servers are skipped.
func NewManager(servers ...Server) *Manager {
	m := &Manager{}
	for _, s := range servers {
		if s != nil {
			m.servers = append(m.servers, s)
		}
	}
	return m
}

// Start launches all servers in parallel. The first failure cancels the rest.
func (m *Manager) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, s := range m.servers {
		g.Go(func() error {
			return s.Start(ctx)
		})
	}

	log.Info("All servers starting", "count", len(m.servers))
	return g.Wait()
}
