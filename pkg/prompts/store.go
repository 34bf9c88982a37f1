// Package prompts loads and formats the markdown assets that drive the
// scanner's agents: stage templates under prompt/system/, skill packages
// under prompt/skills/, and subagent templates under prompt/agents/.
// Templates are opaque text with {key} and ${key} placeholders; the store
// never generates prompt content itself.
package prompts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// NowTimeKey is substituted with the current wall-clock time when a template
// references it and the caller did not supply a value.
const NowTimeKey = "NOWTIME"

const nowTimeLayout = "2006-01-02 15:04:05"

// TemplateNotFoundError is returned when a named template has no backing
// file under the store root.
type TemplateNotFoundError struct {
	Name string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("prompt template '%s' not found", e.Name)
}

// Store caches prompt templates by name. It is immutable from the caller's
// perspective after construction; the internal cache is guarded for
// concurrent stage workers.
type Store struct {
	root string

	mu        sync.RWMutex
	templates map[string]string

	now func() time.Time
}

// NewStore returns a store rooted at dir. Templates resolve to
// <dir>/system/<name>.md.
func NewStore(dir string) *Store {
	return &Store{
		root:      dir,
		templates: make(map[string]string),
		now:       time.Now,
	}
}

// Root returns the directory the store resolves assets against.
func (s *Store) Root() string {
	return s.root
}

// SkillsDir returns the directory skill packages live in.
func (s *Store) SkillsDir() string {
	return filepath.Join(s.root, "skills")
}

// AgentsDir returns the directory subagent templates live in.
func (s *Store) AgentsDir() string {
	return filepath.Join(s.root, "agents")
}

// Load returns the raw template text for name, reading and caching it on
// first use.
func (s *Store) Load(name string) (string, error) {
	s.mu.RLock()
	cached, ok := s.templates[name]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	path := filepath.Join(s.root, "system", name+".md")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &TemplateNotFoundError{Name: name}
		}
		return "", fmt.Errorf("failed to read prompt template '%s': %w", name, err)
	}

	content := string(data)

	s.mu.Lock()
	s.templates[name] = content
	s.mu.Unlock()

	return content, nil
}

// Format loads name and substitutes {key} and ${key} placeholders from vars.
// ${NOWTIME} defaults to the current time when not supplied. Placeholders
// without a matching key are left untouched.
func (s *Store) Format(name string, vars map[string]string) (string, error) {
	template, err := s.Load(name)
	if err != nil {
		return "", err
	}

	if strings.Contains(template, "${"+NowTimeKey+"}") {
		if _, ok := vars[NowTimeKey]; !ok {
			withNow := make(map[string]string, len(vars)+1)
			for k, v := range vars {
				withNow[k] = v
			}
			withNow[NowTimeKey] = s.now().Format(nowTimeLayout)
			vars = withNow
		}
	}

	formatted := template
	for key, value := range vars {
		formatted = strings.ReplaceAll(formatted, "${"+key+"}", value)
		formatted = strings.ReplaceAll(formatted, "{"+key+"}", value)
	}

	return formatted, nil
}
