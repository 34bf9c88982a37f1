package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentscan/agentscan/pkg/prompts"
)

// NewSearchSkillTool builds search_skill: enumerate skill packages under
// prompt/skills/, optionally filtered by a query over name, title, and
// description. A miss still lists the full catalog so the model can pick a
// valid name next turn.
func NewSearchSkillTool() Tool {
	return Tool{
		Manifest: Manifest{
			Name:        "search_skill",
			Description: "Search the available skill packages by keyword. Returns matching skills with their descriptions.",
			Parameters: []Parameter{
				{Name: "query", Type: "string", Description: "Search keyword matched against skill names and descriptions", Required: false},
			},
			NeedsContext: true,
		},
		Handler: func(ctx context.Context, args map[string]any, tc *Context) (any, error) {
			skills, err := prompts.AllSkills(tc.Prompts.SkillsDir())
			if err != nil {
				skills = nil
			}

			if query := strings.ToLower(stringArg(args, "query")); query != "" {
				var matched []prompts.Skill
				for _, s := range skills {
					if strings.Contains(strings.ToLower(s.Name), query) ||
						strings.Contains(strings.ToLower(s.Title), query) ||
						strings.Contains(strings.ToLower(s.Description), query) {
						matched = append(matched, s)
					}
				}
				skills = matched
			}

			lines := []string{fmt.Sprintf("Found %d skills:", len(skills))}
			if len(skills) == 0 {
				lines = append(lines, "No skills found.You can use follow skill:")
				skills, _ = prompts.AllSkills(tc.Prompts.SkillsDir())
			}
			for _, s := range skills {
				lines = append(lines, fmt.Sprintf("- %s: %s", s.Name, s.Description))
			}

			return NewFields().
				Set("success", true).
				Set("count", len(skills)).
				Set("skills", strings.Join(lines, "\n")), nil
		},
	}
}

// NewLoadSkillTool builds load_skill: return the raw SKILL.md (front-matter
// included) for one skill package.
func NewLoadSkillTool() Tool {
	return Tool{
		Manifest: Manifest{
			Name:        "load_skill",
			Description: "Load a skill package by name and return its full SKILL.md content.",
			Parameters: []Parameter{
				{Name: "name", Type: "string", Description: "Skill name (the directory name under prompt/skills/)", Required: true},
			},
			NeedsContext: true,
		},
		Handler: func(ctx context.Context, args map[string]any, tc *Context) (any, error) {
			name := stringArg(args, "name")

			path := prompts.FindSkill(tc.Prompts.SkillsDir(), name)
			if path == "" {
				return Failure(fmt.Sprintf("Skill '%s' not found.", name)), nil
			}

			file, err := prompts.ParseSkillFile(path)
			if err != nil {
				return Failure(fmt.Sprintf("Skill '%s' not found.", name)), nil
			}

			return NewFields().
				Set("success", true).
				Set("content", file.Raw), nil
		},
	}
}
