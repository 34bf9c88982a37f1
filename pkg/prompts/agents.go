package prompts

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// AgentInfo describes one subagent template under prompt/agents/. A template
// is either a flat <name>.md file or a directory holding index.md or
// <name>.md.
type AgentInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Path        string `json:"path"`
}

// ScanAgents enumerates available subagent templates, sorted by name.
func ScanAgents(dir string) []AgentInfo {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var agents []AgentInfo
	for _, entry := range entries {
		name := entry.Name()

		if !entry.IsDir() && strings.HasSuffix(name, ".md") {
			path := filepath.Join(dir, name)
			agentName := strings.TrimSuffix(name, ".md")
			agents = append(agents, AgentInfo{
				Name:        agentName,
				Description: agentDescription(path, agentName),
				Path:        path,
			})
			continue
		}

		if entry.IsDir() && !strings.HasPrefix(name, ".") {
			path := resolveAgentDir(dir, name)
			if path == "" {
				continue
			}
			agents = append(agents, AgentInfo{
				Name:        name,
				Description: agentDescription(path, name),
				Path:        path,
			})
		}
	}

	sort.Slice(agents, func(i, j int) bool { return agents[i].Name < agents[j].Name })
	return agents
}

// LoadAgentPrompt returns the template text for an agent, or "" when no
// template exists for that name.
func LoadAgentPrompt(dir, name string) string {
	path := filepath.Join(dir, name+".md")
	if data, err := os.ReadFile(path); err == nil {
		return string(data)
	}

	path = resolveAgentDir(dir, name)
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

// resolveAgentDir finds the template file inside a directory-style agent:
// index.md wins over <name>.md.
func resolveAgentDir(dir, name string) string {
	indexPath := filepath.Join(dir, name, "index.md")
	if info, err := os.Stat(indexPath); err == nil && !info.IsDir() {
		return indexPath
	}
	mainPath := filepath.Join(dir, name, name+".md")
	if info, err := os.Stat(mainPath); err == nil && !info.IsDir() {
		return mainPath
	}
	return ""
}

// agentDescription extracts the first non-heading lines of the template,
// capped at 200 characters.
func agentDescription(path, name string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "Agent: " + name
	}

	desc := synthesizeDescription(string(data))
	if desc == "" {
		return "Agent: " + name
	}
	return desc
}
