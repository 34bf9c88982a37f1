package prompts

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Skill is one skill package: a directory under prompt/skills/ holding a
// SKILL.md with optional YAML front-matter.
type Skill struct {
	Name        string // directory name, the skill's ID
	Title       string // front-matter name, falls back to the directory name
	Description string
	Path        string // path to the SKILL.md file
	Dir         string
}

// SkillFile is a parsed SKILL.md.
type SkillFile struct {
	Meta    map[string]any
	Content string // body with front-matter stripped
	Raw     string
}

var frontMatterPattern = regexp.MustCompile(`(?s)^---\s*\n(.*?)\n---\s*\n`)

// ParseSkillFile reads and parses a SKILL.md. Front-matter is optional; a
// missing description is synthesized from the first lines of the body.
func ParseSkillFile(path string) (*SkillFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read skill file: %w", err)
	}

	content := string(data)
	meta := map[string]any{}
	body := content

	if match := frontMatterPattern.FindStringSubmatchIndex(content); match != nil {
		yamlContent := content[match[2]:match[3]]
		if err := yaml.Unmarshal([]byte(yamlContent), &meta); err != nil {
			return nil, fmt.Errorf("invalid skill front-matter in %s: %w", path, err)
		}
		if meta == nil {
			meta = map[string]any{}
		}
		body = strings.TrimSpace(content[match[1]:])
	}

	if _, ok := meta["description"]; !ok {
		meta["description"] = synthesizeDescription(body)
	}

	return &SkillFile{
		Meta:    meta,
		Content: body,
		Raw:     content,
	}, nil
}

// synthesizeDescription joins the leading non-heading lines of body up to
// the first paragraph break, capped at 200 characters.
func synthesizeDescription(body string) string {
	lines := strings.Split(body, "\n")
	if len(lines) > 5 {
		lines = lines[:5]
	}

	var descLines []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if len(descLines) > 0 {
				break
			}
			continue
		}
		if !strings.HasPrefix(line, "#") {
			descLines = append(descLines, line)
		}
	}

	desc := strings.Join(descLines, " ")
	if len(desc) > 200 {
		desc = desc[:200]
	}
	return desc
}

// AllSkills enumerates the skill packages under dir. Directories without a
// SKILL.md (any case) are skipped.
func AllSkills(dir string) ([]Skill, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list skills directory: %w", err)
	}

	var skills []Skill
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || !entry.IsDir() {
			continue
		}

		skillDir := filepath.Join(dir, name)
		skillPath := findSkillFile(skillDir)
		if skillPath == "" {
			continue
		}

		parsed, err := ParseSkillFile(skillPath)
		if err != nil {
			return nil, err
		}

		title := name
		if v, ok := parsed.Meta["name"].(string); ok && v != "" {
			title = v
		}
		description := ""
		if v, ok := parsed.Meta["description"].(string); ok {
			description = v
		}

		skills = append(skills, Skill{
			Name:        name,
			Title:       title,
			Description: description,
			Path:        skillPath,
			Dir:         skillDir,
		})
	}

	return skills, nil
}

// FindSkill resolves a skill by its directory name and returns the path to
// its SKILL.md, or "" when absent.
func FindSkill(dir, name string) string {
	skillDir := filepath.Join(dir, name)
	info, err := os.Stat(skillDir)
	if err != nil || !info.IsDir() {
		return ""
	}
	return findSkillFile(skillDir)
}

func findSkillFile(skillDir string) string {
	entries, err := os.ReadDir(skillDir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if strings.EqualFold(entry.Name(), "SKILL.md") {
			return filepath.Join(skillDir, entry.Name())
		}
	}
	return ""
}
