// Package scanlog emits the machine-readable scan event stream.
//
// Every pipeline step, tool invocation, and final report is published as one
// JSON line on the emitter's writer (stdout in the CLI), so UIs and CI
// wrappers can follow a scan in real time. Diagnostic logging goes through
// pkg/logger on stderr instead; the two streams never mix.
package scanlog

import (
	"encoding/json"
	"io"
	"os"
	"strconv"
	"sync"
	"time"
)

// StepStatus is the lifecycle state of a pipeline step.
type StepStatus string

const (
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// ToolStatus is the lifecycle state of a single tool invocation.
type ToolStatus string

const (
	ToolTodo  ToolStatus = "todo"
	ToolDoing ToolStatus = "doing"
	ToolDone  ToolStatus = "done"
)

type envelope struct {
	Type    string `json:"type"`
	Content any    `json:"content"`
}

type planStepContent struct {
	Timestamp string `json:"timestamp"`
	StepID    string `json:"stepId"`
	Title     string `json:"title"`
}

type statusUpdateContent struct {
	Timestamp   string     `json:"timestamp"`
	StepID      string     `json:"stepId"`
	Brief       string     `json:"brief"`
	Description string     `json:"description"`
	Status      StepStatus `json:"status"`
}

type toolUsedContent struct {
	Timestamp string     `json:"timestamp"`
	StepID    string     `json:"stepId"`
	ToolID    string     `json:"tool_id"`
	ToolName  string     `json:"tool_name"`
	Brief     string     `json:"brief"`
	Status    ToolStatus `json:"status"`
	Params    string     `json:"params"`
}

type actionLogContent struct {
	Timestamp string `json:"timestamp"`
	ToolID    string `json:"tool_id"`
	ToolName  string `json:"tool_name"`
	StepID    string `json:"stepId"`
	Log       string `json:"log"`
}

type errorContent struct {
	Timestamp string `json:"timestamp"`
	Msg       string `json:"msg"`
}

// Emitter serializes scan events as JSON lines. It is safe for concurrent
// use; parallel detection workers share one emitter.
type Emitter struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// New returns an emitter writing to w.
func New(w io.Writer) *Emitter {
	return &Emitter{w: w, now: time.Now}
}

// NewStdout returns an emitter on os.Stdout, the stream scan consumers read.
func NewStdout() *Emitter {
	return New(os.Stdout)
}

func (e *Emitter) emit(eventType string, content any) {
	line, err := json.Marshal(envelope{Type: eventType, Content: content})
	if err != nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.w.Write(line)
	e.w.Write([]byte("\n"))
}

// timestamp renders the current time as unix seconds with fractional part,
// e.g. "1756151829.028934".
func (e *Emitter) timestamp() string {
	seconds := float64(e.now().UnixNano()) / 1e9
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}

// NewPlanStep announces a pipeline step before it starts running.
func (e *Emitter) NewPlanStep(stepID, title string) {
	e.emit("newPlanStep", planStepContent{
		Timestamp: e.timestamp(),
		StepID:    stepID,
		Title:     title,
	})
}

// StatusUpdate reports step progress. brief is a short label, description
// the current activity.
func (e *Emitter) StatusUpdate(stepID, brief, description string, status StepStatus) {
	e.emit("statusUpdate", statusUpdateContent{
		Timestamp:   e.timestamp(),
		StepID:      stepID,
		Brief:       brief,
		Description: description,
		Status:      status,
	})
}

// ToolUsed records a tool invocation under the step that issued it.
func (e *Emitter) ToolUsed(stepID, toolID, toolName, brief string, status ToolStatus, params string) {
	e.emit("toolUsed", toolUsedContent{
		Timestamp: e.timestamp(),
		StepID:    stepID,
		ToolID:    toolID,
		ToolName:  toolName,
		Brief:     brief,
		Status:    status,
		Params:    params,
	})
}

// ActionLog records a tool's output, fenced by the agent loop.
func (e *Emitter) ActionLog(toolID, toolName, stepID, log string) {
	e.emit("actionLog", actionLogContent{
		Timestamp: e.timestamp(),
		ToolID:    toolID,
		ToolName:  toolName,
		StepID:    stepID,
		Log:       log,
	})
}

// ResultUpdate publishes the final report payload as-is.
func (e *Emitter) ResultUpdate(content any) {
	e.emit("resultUpdate", content)
}

// Error reports a fatal scan error.
func (e *Emitter) Error(msg string) {
	e.emit("error", errorContent{
		Timestamp: e.timestamp(),
		Msg:       msg,
	})
}
