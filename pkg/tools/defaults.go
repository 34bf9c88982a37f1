package tools

import "time"

// DefaultRegistry returns the full built-in tool set in a stable order:
// target interaction first, then skills and sub-agents, then the workspace
// toolbox, then the scanners.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, t := range []Tool{
		NewDialogueTool(time.Sleep),
		NewFinishTool(),
		NewSearchSkillTool(),
		NewLoadSkillTool(),
		NewTaskTool(),
		NewListAgentsTool(),
		NewBashTool(),
		NewReadTool(),
		NewWriteTool(),
		NewEditTool(),
		NewGrepTool(),
		NewGlobTool(),
		NewLsTool(),
		NewBatchTool(),
		NewTodoReadTool(),
		NewTodoWriteTool(),
		NewTodoAddTool(),
		NewTodoUpdateTool(),
		NewScanTool(),
		NewDataLeakageScanTool(),
	} {
		r.MustRegister(t)
	}
	return r
}
