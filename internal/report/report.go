// Package report collects per-node, per-stage outcomes during a run and
// renders them as a terminal table: enough detail to identify exactly
// which platform/engine combination failed, and at which stage.
package report

import (
	"fmt"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/vk/shipline/internal/pipeline"
)

// Entry is one recorded stage outcome within a node.
type Entry struct {
	Node  string
	Stage string
	Err   error
}

// Recorder is a thread-safe collector of stage outcomes. Cells record
// concurrently; rendering happens once, after the run.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends one stage outcome.
func (r *Recorder) Record(node, stage string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Node: node, Stage: stage, Err: err})
}

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// failedStage returns the name of the node's first failing recorded stage.
func failedStage(entries []Entry, node string) string {
	for _, e := range entries {
		if e.Node == node && e.Err != nil {
			return e.Stage
		}
	}
	return ""
}

// Render produces the run breakdown table plus an overall verdict line.
func Render(result *pipeline.RunResult, rec *Recorder) string {
	entries := rec.Entries()

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"NODE", "CELL", "STATUS", "FAILED STAGE", "ERROR"})

	for _, node := range result.Nodes {
		errText := ""
		if node.Err != nil {
			errText = node.Err.Error()
		}
		tw.AppendRow(table.Row{
			node.ID,
			node.Cell,
			node.Status.String(),
			failedStage(entries, node.ID),
			errText,
		})
	}

	verdict := "FAILURE"
	if result.Succeeded() {
		verdict = "SUCCESS"
	}
	return fmt.Sprintf("%s\nRun %s: %s\n", tw.Render(), result.RunID, verdict)
}
