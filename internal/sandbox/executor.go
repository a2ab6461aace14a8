// Package sandbox builds and runs per-submission container images and
// grades a task's tests against them, implementing scheduler.Executor.
package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"autograder/internal/domain"
	"autograder/internal/scheduler"
	"autograder/pkg/circuitbreaker"
	"autograder/pkg/logger"
	"autograder/pkg/tracing"
)

// TaskProvider resolves a task's ordered test list. internal/store
// implements this; sandbox depends only on the interface to avoid an
// import cycle.
type TaskProvider interface {
	GetTaskTests(ctx context.Context, taskID int) ([]domain.Test, error)
}

// Executor builds a submission's image, runs every test against it, and
// reports an aggregate SubmissionResponse, implementing scheduler.Executor.
type Executor struct {
	dockerfilesDir string
	workdirRoot    string
	buildTool      string
	tasks          TaskProvider
	breaker        *circuitbreaker.CircuitBreaker
	log            *logger.Logger
}

func NewExecutor(dockerfilesDir, workdirRoot, buildTool string, tasks TaskProvider, log *logger.Logger) *Executor {
	return &Executor{
		dockerfilesDir: dockerfilesDir,
		workdirRoot:    workdirRoot,
		buildTool:      buildTool,
		tasks:          tasks,
		breaker:        circuitbreaker.NewDefaultCircuitBreaker("sandbox-build"),
		log:            log,
	}
}

// Run implements scheduler.Executor: stage the submission, build its
// image, exec every test, and tear down.
func (e *Executor) Run(ctx context.Context, entry scheduler.ContainerEntry) (resultsJSON []byte, score float64, err error) {
	ctx, span := tracing.StartSpan(ctx, "sandbox.run",
		attribute.Int("task_id", entry.TaskID),
		attribute.String("language", entry.Language),
	)
	defer func() { tracing.EndSpanWithError(span, &err) }()

	resultsJSON, score, err = e.run(ctx, entry)
	return
}

func (e *Executor) run(ctx context.Context, entry scheduler.ContainerEntry) ([]byte, float64, error) {
	dockerfile, err := e.dockerfileFor(entry.Language)
	if err != nil {
		return nil, 0, err
	}

	ws := newWorkspace(e.workdirRoot, entry.UserID, entry.TaskID)
	if err := ws.prepare(dockerfile, entry.Archive); err != nil {
		return nil, 0, err
	}

	image, err := e.build(ctx, ws.dir)
	if cleanupErr := ws.cleanup(); cleanupErr != nil {
		e.log.Warn().Err(cleanupErr).Str("dir", ws.dir).Msg("failed to clean up workspace")
	}
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		if closeErr := image.Close(context.Background()); closeErr != nil {
			e.log.Warn().Err(closeErr).Msg("failed to prune sandbox image")
		}
	}()

	tests, err := e.tasks.GetTaskTests(ctx, entry.TaskID)
	if err != nil {
		return nil, 0, fmt.Errorf("loading task tests: %w", err)
	}

	result := &domain.SubmissionResponse{}
	for _, test := range tests {
		stdout, timedOut, execErr := image.Exec(ctx, test.Input, test.Timeout)
		trimmed := test
		trimmed.Input = strings.TrimSpace(test.Input)
		trimmed.Output = strings.TrimSpace(test.Output)
		result.RecordOutcome(trimmed, entry.WasLate, strings.TrimSpace(stdout), timedOut, execErr)
	}

	resultsJSON, err := json.Marshal(result)
	if err != nil {
		return nil, 0, fmt.Errorf("marshaling results: %w", err)
	}

	return resultsJSON, result.Score(), nil
}

func (e *Executor) build(ctx context.Context, dir string) (*Image, error) {
	out, err := e.breaker.Execute(func() (interface{}, error) {
		return NewImageBuilder(e.buildTool, dir).Build(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("building sandbox image: %w", err)
	}
	return out.(*Image), nil
}

// dockerfileFor resolves the Dockerfile for a language directory under
// DockerfilesDir, mirroring the original's directory-per-language lookup.
func (e *Executor) dockerfileFor(lang string) (string, error) {
	dir := filepath.Join(e.dockerfilesDir, lang)
	path := filepath.Join(dir, "Dockerfile")
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("no dockerfile for language %q: %w", lang, err)
	}
	return path, nil
}
