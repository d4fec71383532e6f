// Package server exposes the approval broker over HTTP: JSON endpoints
// for hooks and devices, and an SSE stream for live listeners.
package server

import (
	"github.com/fotescodev/claude-watch/internal/broker"
	"github.com/fotescodev/claude-watch/internal/registry"
	"github.com/fotescodev/claude-watch/internal/store"
)

// WatchServer holds the wired components behind the HTTP surface.
type WatchServer struct {
	broker   *broker.Broker
	store    store.Store
	registry *registry.Registry
	notifier broker.Notifier
}

// NewWatchServer returns a WatchServer over the given broker. The
// registry must be the one the broker broadcasts to, so SSE listeners
// see the same stream of changes the broker announces.
func NewWatchServer(b *broker.Broker, st store.Store, reg *registry.Registry, n broker.Notifier) *WatchServer {
	return &WatchServer{
		broker:   b,
		store:    st,
		registry: reg,
		notifier: n,
	}
}
