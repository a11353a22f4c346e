// Package catalog aggregates the server's built-in tools with every
// registered agent's advertised tools under qualified names.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	domainagent "github.com/qwei/desk-mcp/internal/domain/agent"
	portregistry "github.com/qwei/desk-mcp/internal/port/registry"
)

// LocalHandler executes a built-in tool in-process.
type LocalHandler func(ctx context.Context, params json.RawMessage) (json.RawMessage, error)

// LocalTool pairs a descriptor with its handler.
type LocalTool struct {
	Tool    domainagent.Tool
	Handler LocalHandler
}

// Entry is one row of the aggregate listing. Agent is empty for local tools
// and the logical name for agent tools, whose Name carries the
// "logical_name.tool" qualification.
type Entry struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Agent       string         `json:"agent"`
}

type Service struct {
	reg portregistry.Registry

	mu    sync.RWMutex
	local map[string]LocalTool
}

func NewService(reg portregistry.Registry) *Service {
	return &Service{
		reg:   reg,
		local: make(map[string]LocalTool),
	}
}

// AddLocal registers a built-in tool. Local names must not contain the
// qualification separator, or dispatch would mistake them for agent tools.
func (s *Service) AddLocal(tool domainagent.Tool, handler LocalHandler) error {
	for _, r := range tool.Name {
		if r == '.' {
			return fmt.Errorf("local tool name %q must not contain '.'", tool.Name)
		}
	}
	s.mu.Lock()
	s.local[tool.Name] = LocalTool{Tool: tool, Handler: handler}
	s.mu.Unlock()
	return nil
}

// Local looks up a built-in tool by its unqualified name.
func (s *Service) Local(name string) (LocalTool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lt, ok := s.local[name]
	return lt, ok
}

// List merges local tools with every registered agent's declared tools.
// No reachability check happens here: appearing in the catalog does not
// guarantee the agent is currently online. Duplicate instances of one logical
// agent contribute their tool set once.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	entries := make([]Entry, 0, len(s.local))
	for _, lt := range s.local {
		entries = append(entries, Entry{
			Name:        lt.Tool.Name,
			Description: lt.Tool.Description,
			Parameters:  lt.Tool.Parameters,
			Agent:       "",
		})
	}
	s.mu.RUnlock()

	instances, err := s.reg.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list registered agents: %w", err)
	}

	seen := make(map[string]bool)
	for _, inst := range instances {
		if seen[inst.LogicalName] {
			continue
		}
		seen[inst.LogicalName] = true
		for _, t := range inst.Tools {
			entries = append(entries, Entry{
				Name:        inst.LogicalName + "." + t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
				Agent:       inst.LogicalName,
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}
