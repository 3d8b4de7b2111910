package core

import (
	"github.com/aretw0/introspection"
)

// ServiceState exposes internal state for observability.
type ServiceState struct {
	Notes           int    `json:"notes"`
	Tags            int    `json:"tags"`
	Links           int    `json:"links"`
	Scratches       int    `json:"scratches"`
	LogDays         int    `json:"log_days"`
	PendingChanges  int    `json:"pending_mutations"`
	Dirty           bool   `json:"dirty"`
	EventBufferSize int    `json:"event_buffer_size"`
	RepositoryType  string `json:"repository_type"`
	Repository      any    `json:"repository,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Service) State() any {
	st := s.current()

	repoType := "none"
	var repoState any
	if s.repo != nil {
		repoType = "repository"
		// Try to get component type if repository implements introspection.Component
		if comp, ok := s.repo.(introspection.Component); ok {
			repoType = comp.ComponentType()
		}
		if in, ok := s.repo.(introspection.Introspectable); ok {
			repoState = in.State()
		}
	}

	return ServiceState{
		Notes:           st.Len(),
		Tags:            len(st.tags),
		Links:           st.graph.Len(),
		Scratches:       len(st.scratchpad),
		LogDays:         len(st.logbook),
		PendingChanges:  s.Pending(),
		Dirty:           s.Dirty(),
		EventBufferSize: s.eventBufferSize,
		RepositoryType:  repoType,
		Repository:      repoState,
	}
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "service"
}

var _ introspection.Introspectable = (*Service)(nil)
var _ introspection.Component = (*Service)(nil)
