package pipeline

import "fmt"

// Stages a task error can be attributed to.
const (
	StageLoad   = "load"
	StagePlan   = "plan"
	StageRender = "render"
	StageWrite  = "write"
)

// TemplateRenderError reports a failed render of one template against
// one context.
type TemplateRenderError struct {
	Template string
	Context  string
	Err      error
}

func (e *TemplateRenderError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("rendering template %s against %s: %v", e.Template, e.Context, e.Err)
	}
	return fmt.Sprintf("rendering template %s: %v", e.Template, e.Err)
}

func (e *TemplateRenderError) Unwrap() error { return e.Err }

// TaskError is the per-task failure record kept in job metrics so a
// job that continues past failures still reports what went wrong.
type TaskError struct {
	TaskID  string `json:"task_id,omitempty"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

func (e TaskError) Error() string {
	if e.TaskID == "" {
		return fmt.Sprintf("%s failed: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("task %s failed during %s: %s", e.TaskID, e.Stage, e.Message)
}
