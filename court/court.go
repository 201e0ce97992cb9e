// Package court assembles the Historical Court pipeline: two parallel
// research agents feeding a judge inside a bounded review loop, followed by
// a clerk that writes the final report under court_records/.
package court

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/veritaslab/tribunal/agent"
	"github.com/veritaslab/tribunal/internal/metrics"
	"github.com/veritaslab/tribunal/llm"
	"github.com/veritaslab/tribunal/session"
	"github.com/veritaslab/tribunal/tools"
	"github.com/veritaslab/tribunal/workflow"
)

const (
	// RecordsDir is the directory reports are written into, relative to the
	// configured base directory.
	RecordsDir = "court_records"

	// MaxTrialRounds caps the investigate-then-judge loop.
	MaxTrialRounds = 4

	// PromptField holds the trial subject in session state.
	PromptField = "PROMPT"
)

// Config describes one court instance.
type Config struct {
	// Model is the identifier passed to the provider for every agent.
	Model string
	// BaseDir anchors the court_records directory. Empty means the working
	// directory.
	BaseDir string
	// Wikipedia configures the research tool. Zero value uses live Wikipedia.
	Wikipedia tools.WikipediaConfig
}

// Court is the assembled pipeline. One Court can try many subjects; each Run
// gets a fresh session.
type Court struct {
	pipeline *workflow.Sequential
	baseDir  string
	logger   *zap.Logger
}

// New builds the court on top of a provider. collector may be nil.
func New(cfg Config, provider llm.Provider, collector *metrics.Collector, logger *zap.Logger) (*Court, error) {
	if provider == nil {
		return nil, fmt.Errorf("court requires a provider")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := tools.NewRegistry(logger)

	wikiClient := tools.NewWikipediaClient(cfg.Wikipedia, logger)
	wikiFn, wikiMeta := tools.NewWikipediaTool(wikiClient, logger)
	if err := registry.Register(tools.WikipediaName, wikiFn, wikiMeta); err != nil {
		return nil, err
	}
	appendFn, appendMeta := tools.NewAppendToStateTool(logger)
	if err := registry.Register(tools.AppendToStateName, appendFn, appendMeta); err != nil {
		return nil, err
	}
	exitFn, exitMeta := tools.NewExitLoopTool(logger)
	if err := registry.Register(tools.ExitLoopName, exitFn, exitMeta); err != nil {
		return nil, err
	}
	writeFn, writeMeta := tools.NewWriteFileTool(cfg.BaseDir, logger)
	if err := registry.Register(tools.WriteFileName, writeFn, writeMeta); err != nil {
		return nil, err
	}

	build := func(name, description, instruction string, toolNames ...string) (*agent.Agent, error) {
		return agent.New(agent.Config{
			Name:        name,
			Description: description,
			Instruction: instruction,
			Model:       cfg.Model,
			Tools:       toolNames,
		}, provider, registry, collector, logger)
	}

	admirer, err := build("admirer_agent",
		"Researches positive achievements and successes.",
		admirerInstruction, tools.WikipediaName, tools.AppendToStateName)
	if err != nil {
		return nil, err
	}
	critic, err := build("critic_agent",
		"Researches controversies, failures, and criticisms.",
		criticInstruction, tools.WikipediaName, tools.AppendToStateName)
	if err != nil {
		return nil, err
	}
	judge, err := build("judge_agent",
		"Reviews the evidence and decides if more research is needed.",
		judgeInstruction, tools.AppendToStateName, tools.ExitLoopName)
	if err != nil {
		return nil, err
	}
	clerk, err := build("verdict_writer",
		"Writes the final neutral report.",
		clerkInstruction, tools.WriteFileName)
	if err != nil {
		return nil, err
	}

	investigation := workflow.NewParallel("investigation_team", logger,
		workflow.NewAgentStep(admirer, logger),
		workflow.NewAgentStep(critic, logger),
	)
	trial, err := workflow.NewLoop("trial_process", MaxTrialRounds, collector, logger,
		investigation,
		workflow.NewAgentStep(judge, logger),
	)
	if err != nil {
		return nil, err
	}
	pipeline := workflow.NewSequential("court_system", logger,
		trial,
		workflow.NewAgentStep(clerk, logger),
	)

	return &Court{pipeline: pipeline, baseDir: cfg.BaseDir, logger: logger}, nil
}

// Run tries a subject. The subject is captured into the PROMPT field before
// the pipeline starts; the returned state carries the full evidence record.
func (c *Court) Run(ctx context.Context, subject string) (*session.State, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, fmt.Errorf("subject must not be empty")
	}

	state := session.New()
	state.Set(PromptField, subject)

	c.logger.Info("court session opened",
		zap.String("session_id", state.ID()),
		zap.String("subject", subject))

	if err := c.pipeline.Run(ctx, state); err != nil {
		return nil, fmt.Errorf("court session %s: %w", state.ID(), err)
	}

	c.logger.Info("court session closed",
		zap.String("session_id", state.ID()),
		zap.String("report", c.ReportPath(subject)))
	return state, nil
}

// ReportPath returns where the clerk is expected to write the subject's
// report, relative to the base directory.
func (c *Court) ReportPath(subject string) string {
	return filepath.Join(c.baseDir, RecordsDir, ReportFilename(subject))
}

// ReportFilename derives the report file name from a subject: spaces are
// removed, and path separators, NUL bytes and parent-directory sequences are
// stripped so the name cannot escape the records directory.
func ReportFilename(subject string) string {
	name := strings.NewReplacer(
		" ", "",
		"/", "",
		"\\", "",
		"\x00", "",
	).Replace(subject)
	name = strings.ReplaceAll(name, "..", "")
	return name + ".txt"
}
