package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// Tool is a traffic source category that can be enabled or disabled
type Tool string

const (
	ToolProxy      Tool = "proxy"
	ToolRepeater   Tool = "repeater"
	ToolIntruder   Tool = "intruder"
	ToolScanner    Tool = "scanner"
	ToolExtensions Tool = "extensions"
	ToolCLI        Tool = "cli"
)

// AllTools lists every known tool category
var AllTools = []Tool{ToolProxy, ToolRepeater, ToolIntruder, ToolScanner, ToolExtensions, ToolCLI}

// ParseTool converts a tool name into a Tool
func ParseTool(name string) (Tool, error) {
	tool := Tool(strings.ToLower(strings.TrimSpace(name)))
	if !slices.Contains(AllTools, tool) {
		return "", fmt.Errorf("unknown tool %q", name)
	}
	return tool, nil
}

// Settings is the runtime gate deciding whether a message is processed.
// It is safe for concurrent use.
type Settings struct {
	mu         sync.RWMutex
	enabled    map[Tool]bool
	restricted bool
	hosts      []string
}

// NewSettings builds settings from a loaded configuration; unknown tool
// names are ignored.
func NewSettings(cfg *Config) *Settings {
	s := &Settings{}
	s.ResetToDefaults()
	if cfg == nil {
		return s
	}

	tools := make([]Tool, 0, len(cfg.Modules.Enabled))
	for _, name := range cfg.Modules.Enabled {
		if tool, err := ParseTool(name); err == nil {
			tools = append(tools, tool)
		}
	}
	s.SetEnabled(tools...)
	s.SetScopeRestricted(cfg.Scope.Restricted)
	s.SetScopeHosts(cfg.Scope.Hosts...)
	return s
}

// IsEnabled reports whether traffic from tool is processed
func (s *Settings) IsEnabled(tool Tool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled[tool]
}

// SetEnabled replaces the enabled tool set
func (s *Settings) SetEnabled(tools ...Tool) {
	enabled := make(map[Tool]bool, len(tools))
	for _, tool := range tools {
		enabled[tool] = true
	}
	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()
}

// EnableTool adds tool to the enabled set
func (s *Settings) EnableTool(tool Tool) {
	s.mu.Lock()
	if s.enabled == nil {
		s.enabled = make(map[Tool]bool)
	}
	s.enabled[tool] = true
	s.mu.Unlock()
}

// DisableTool removes tool from the enabled set
func (s *Settings) DisableTool(tool Tool) {
	s.mu.Lock()
	delete(s.enabled, tool)
	s.mu.Unlock()
}

// EnabledTools returns the enabled tools in AllTools order
func (s *Settings) EnabledTools() []Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tools := make([]Tool, 0, len(s.enabled))
	for _, tool := range AllTools {
		if s.enabled[tool] {
			tools = append(tools, tool)
		}
	}
	return tools
}

// IsScopeRestricted reports whether only in-scope hosts are processed
func (s *Settings) IsScopeRestricted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restricted
}

// SetScopeRestricted toggles the scope restriction
func (s *Settings) SetScopeRestricted(restricted bool) {
	s.mu.Lock()
	s.restricted = restricted
	s.mu.Unlock()
}

// SetScopeHosts replaces the in-scope host patterns
func (s *Settings) SetScopeHosts(patterns ...string) {
	hosts := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			hosts = append(hosts, p)
		}
	}
	s.mu.Lock()
	s.hosts = hosts
	s.mu.Unlock()
}

// InScope reports whether rawURL may be processed. Without a scope
// restriction every URL is in scope; a URL that cannot be parsed or
// carries no host is treated as in scope.
func (s *Settings) InScope(rawURL string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.restricted {
		return true
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return true
	}
	for _, pattern := range s.hosts {
		if ok, err := doublestar.Match(pattern, host); err == nil && ok {
			return true
		}
	}
	return false
}

// ShouldProcess is the gate: enabled(tool) AND (not restricted OR in scope)
func (s *Settings) ShouldProcess(tool Tool, rawURL string) bool {
	return s.IsEnabled(tool) && s.InScope(rawURL)
}

// ResetToDefaults restores the default tools and lifts the scope restriction
func (s *Settings) ResetToDefaults() {
	s.SetEnabled(DefaultTools...)
	s.mu.Lock()
	s.restricted = false
	s.hosts = nil
	s.mu.Unlock()
}

// Description summarizes the current settings for display
func (s *Settings) Description() string {
	tools := s.EnabledTools()
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, string(tool))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var sb strings.Builder
	sb.WriteString("tidyhttp settings:\n")
	fmt.Fprintf(&sb, "  enabled tools: %s\n", strings.Join(names, ", "))
	if s.restricted {
		fmt.Fprintf(&sb, "  scope: restricted to %s", strings.Join(s.hosts, ", "))
	} else {
		sb.WriteString("  scope: all hosts")
	}
	return sb.String()
}
