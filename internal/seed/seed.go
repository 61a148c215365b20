// Package seed loads bulk records from YAML or CUE files and writes them
// through the tracker, so seeded rows obey the same rules as API writes.
package seed

import (
	"bytes"
	_ "embed"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/model"
	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/tracker"
)

//go:embed schema.cue
var schemaSource []byte

// Seed is the decoded content of a seed file.
type Seed struct {
	Tasks       []model.Task        `json:"tasks"`
	Feedback    []model.Feedback    `json:"feedback"`
	Behaviors   []model.Behavior    `json:"behaviors"`
	ChatHistory []model.ChatSummary `json:"chat_history"`
}

// Error reports a seed file that does not match the schema.
type Error struct {
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// Load reads a seed file. The format is chosen by extension: .yaml/.yml or .cue.
func Load(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(path, data)
	case ".cue":
		return ParseCUE(path, data)
	default:
		return Seed{}, fmt.Errorf("seed %s: unsupported extension (want .yaml, .yml or .cue)", path)
	}
}

// ParseYAML decodes YAML seed data and validates it against the schema.
func ParseYAML(name string, data []byte) (Seed, error) {
	var doc any
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return Seed{}, fmt.Errorf("parse seed %s: %w", name, err)
	}
	if doc == nil {
		return Seed{}, nil
	}

	// JSON is valid CUE, so the YAML document is checked by the same schema.
	asJSON, err := json.Marshal(doc)
	if err != nil {
		return Seed{}, fmt.Errorf("parse seed %s: %w", name, err)
	}
	return parse(name, asJSON)
}

// ParseCUE evaluates CUE seed source and validates it against the schema.
func ParseCUE(name string, data []byte) (Seed, error) {
	return parse(name, data)
}

func parse(name string, src []byte) (Seed, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Seed{}, fmt.Errorf("seed schema: %w", err)
	}

	v := ctx.CompileBytes(src, cue.Filename(name))
	if err := v.Err(); err != nil {
		return Seed{}, formatCUEError(err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Seed")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Seed{}, formatCUEError(err)
	}

	// Round-trip through JSON so model types apply their own decoding rules.
	out, err := unified.MarshalJSON()
	if err != nil {
		return Seed{}, formatCUEError(err)
	}

	var s Seed
	if err := json.Unmarshal(out, &s); err != nil {
		return Seed{}, fmt.Errorf("decode seed %s: %w", name, err)
	}
	return s, nil
}

// formatCUEError keeps the first error and its position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Message: err.Error()}
	}

	first := errs[0]
	seedErr := &Error{Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		seedErr.Pos = positions[0]
	}
	return seedErr
}

// Writer is the subset of *tracker.Tracker that Apply needs.
type Writer interface {
	UpsertTask(ctx context.Context, task model.Task) (tracker.UpsertResult, error)
	SubmitFeedback(ctx context.Context, f model.Feedback) (int64, error)
	AddBehavior(ctx context.Context, b model.Behavior) (int64, error)
	AddChatSummary(ctx context.Context, c model.ChatSummary) (int64, error)
}

// Summary counts what Apply wrote.
type Summary struct {
	TasksCreated  int `json:"tasks_created"`
	TasksUpdated  int `json:"tasks_updated"`
	Feedback      int `json:"feedback"`
	Behaviors     int `json:"behaviors"`
	ChatSummaries int `json:"chat_summaries"`
}

func (s Summary) String() string {
	return fmt.Sprintf("tasks: %d created, %d updated; feedback: %d; behaviors: %d; chat summaries: %d",
		s.TasksCreated, s.TasksUpdated, s.Feedback, s.Behaviors, s.ChatSummaries)
}

// Apply writes every record in file order. It stops at the first failure;
// records written before it stay written.
func Apply(ctx context.Context, w Writer, s Seed) (Summary, error) {
	var sum Summary

	for i, task := range s.Tasks {
		res, err := w.UpsertTask(ctx, task)
		if err != nil {
			return sum, fmt.Errorf("tasks[%d]: %w", i, err)
		}
		if res.Created {
			sum.TasksCreated++
		} else {
			sum.TasksUpdated++
		}
	}
	for i, f := range s.Feedback {
		if _, err := w.SubmitFeedback(ctx, f); err != nil {
			return sum, fmt.Errorf("feedback[%d]: %w", i, err)
		}
		sum.Feedback++
	}
	for i, b := range s.Behaviors {
		if _, err := w.AddBehavior(ctx, b); err != nil {
			return sum, fmt.Errorf("behaviors[%d]: %w", i, err)
		}
		sum.Behaviors++
	}
	for i, c := range s.ChatHistory {
		if _, err := w.AddChatSummary(ctx, c); err != nil {
			return sum, fmt.Errorf("chat_history[%d]: %w", i, err)
		}
		sum.ChatSummaries++
	}
	return sum, nil
}
