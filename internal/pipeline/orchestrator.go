// Package pipeline drives an extraction run: one work unit at a time, in
// increasing order, consolidating the candidate records each unit yields
// and checkpointing after every unit so an interrupted run can resume.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/meridian-legal/casebook-cli/internal/dedupe"
	"github.com/meridian-legal/casebook-cli/internal/extract"
	"github.com/meridian-legal/casebook-cli/internal/merge"
	"github.com/meridian-legal/casebook-cli/internal/model"
	"github.com/meridian-legal/casebook-cli/internal/normalize"
	"github.com/meridian-legal/casebook-cli/internal/source"
)

const (
	// DefaultMinUnitChars is the shortest page text worth sending to the
	// extraction service; shorter pages are headers or blanks.
	DefaultMinUnitChars = 50
	// DefaultRewind re-processes one unit before the checkpoint on resume
	// to recover a continuation that crossed the interruption point.
	DefaultRewind = 1
)

// Extractor is the slice of the extraction gateway the orchestrator uses.
type Extractor interface {
	Extract(ctx context.Context, unit int, prompt string) []model.CandidateRecord
	Errors() []model.UnitError
}

// Config carries one run's settings.
type Config struct {
	Source         string
	OutputPath     string
	CheckpointPath string

	// StartUnit and EndUnit bound the run; zero means first and last.
	StartUnit int
	EndUnit   int

	// Resume loads the checkpoint and prior output before processing.
	// Both files must exist and parse; anything else is a setup error.
	Resume bool
	// Rewind is how many units before the checkpoint resume restarts at.
	Rewind int

	MinUnitChars   int
	FuzzyThreshold float64
}

func (c Config) withDefaults() Config {
	if c.StartUnit <= 0 {
		c.StartUnit = 1
	}
	if c.Rewind <= 0 {
		c.Rewind = DefaultRewind
	}
	if c.MinUnitChars <= 0 {
		c.MinUnitChars = DefaultMinUnitChars
	}
	return c
}

// Orchestrator owns all run state: the consolidated list, the duplicate
// index, the sliding-window context and the tracked current case. None of
// it is safe for concurrent use; a run is strictly sequential.
type Orchestrator struct {
	cfg   Config
	svc   Extractor
	state model.RunState

	cases      []*model.ConsolidatedCase
	index      *dedupe.Index
	current    *model.ConsolidatedCase
	currentPos int
	prevText   string

	lastUnit   int
	processed  int
	skipped    int
	duplicates int

	now func() time.Time
}

// New returns an idle orchestrator for one run.
func New(svc Extractor, cfg Config) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg.withDefaults(),
		svc:        svc,
		state:      model.RunStateIdle,
		index:      dedupe.NewIndex(cfg.FuzzyThreshold),
		currentPos: -1,
		now:        time.Now,
	}
}

// State reports the lifecycle state.
func (o *Orchestrator) State() model.RunState {
	return o.state
}

// Cases exposes the consolidated list, for callers that publish or export
// after a run.
func (o *Orchestrator) Cases() []*model.ConsolidatedCase {
	return o.cases
}

// Run processes every unit within the configured bounds. Per-unit
// extraction failures are recorded by the gateway and never abort the
// run; only setup and artifact-write errors do.
func (o *Orchestrator) Run(ctx context.Context, units []source.Unit) (*model.RunSummary, error) {
	started := o.now()

	if len(units) == 0 {
		o.state = model.RunStateFailed
		return nil, eris.New("pipeline: source yielded no work units")
	}

	start := o.cfg.StartUnit
	end := o.cfg.EndUnit
	if end <= 0 {
		end = units[len(units)-1].Index
	}

	if o.cfg.Resume {
		resumed, err := o.resume()
		if err != nil {
			o.state = model.RunStateFailed
			return nil, err
		}
		if resumed > start {
			start = resumed
		}
	}

	o.state = model.RunStateRunning
	zap.L().Info("pipeline: run starting",
		zap.String("source", o.cfg.Source),
		zap.Int("start_unit", start),
		zap.Int("end_unit", end),
		zap.Int("cases", len(o.cases)))

	for _, unit := range units {
		if unit.Index < start || unit.Index > end {
			continue
		}
		if err := ctx.Err(); err != nil {
			o.state = model.RunStateFailed
			return nil, eris.Wrap(err, "pipeline: run interrupted")
		}
		if err := o.processUnit(ctx, unit); err != nil {
			o.state = model.RunStateFailed
			return nil, err
		}
	}

	o.cases = CleanupCases(o.cases)
	if err := o.persist(); err != nil {
		o.state = model.RunStateFailed
		return nil, err
	}

	o.state = model.RunStateCompleted
	summary := &model.RunSummary{
		State:          model.RunStateCompleted,
		Source:         o.cfg.Source,
		StartUnit:      start,
		EndUnit:        end,
		UnitsProcessed: o.processed,
		UnitsSkipped:   o.skipped,
		CaseCount:      len(o.cases),
		DuplicateCount: o.duplicates,
		ErrorCount:     len(o.svc.Errors()),
		Elapsed:        o.now().Sub(started),
	}
	zap.L().Info("pipeline: run complete",
		zap.Int("units_processed", summary.UnitsProcessed),
		zap.Int("units_skipped", summary.UnitsSkipped),
		zap.Int("cases", summary.CaseCount),
		zap.Int("duplicates", summary.DuplicateCount),
		zap.Int("errors", summary.ErrorCount),
		zap.Duration("elapsed", summary.Elapsed))
	return summary, nil
}

// resume restores the consolidated list and indices from the prior run's
// artifacts and returns the unit to restart from.
func (o *Orchestrator) resume() (int, error) {
	o.state = model.RunStateResuming

	cp, err := LoadCheckpoint(o.cfg.CheckpointPath)
	if err != nil {
		return 0, eris.Wrap(err, "pipeline: resume")
	}
	cases, err := LoadCases(o.cfg.OutputPath)
	if err != nil {
		return 0, eris.Wrap(err, "pipeline: resume")
	}

	o.cases = cases
	for pos, c := range cases {
		o.index.Add(c, pos)
	}
	o.duplicates = cp.DuplicateCount
	o.lastUnit = cp.LastUnitProcessed

	start := cp.LastUnitProcessed - o.cfg.Rewind
	if start < 1 {
		start = 1
	}
	zap.L().Info("pipeline: resuming",
		zap.Int("from_unit", start),
		zap.Int("cases", len(cases)),
		zap.Int("duplicates", o.duplicates))
	return start, nil
}

func (o *Orchestrator) processUnit(ctx context.Context, unit source.Unit) error {
	o.lastUnit = unit.Index

	if !unit.IsRow() && len(strings.TrimSpace(unit.Text)) < o.cfg.MinUnitChars {
		// Too short to hold a case. The sliding window resets so the next
		// unit is not paired with stale context.
		o.skipped++
		o.prevText = ""
		zap.L().Info("pipeline: unit skipped", zap.Int("unit", unit.Index))
		return o.persist()
	}

	candidates := o.svc.Extract(ctx, unit.Index, o.prompt(unit))
	for i := range candidates {
		o.consume(&candidates[i])
	}
	if !unit.IsRow() {
		o.prevText = unit.Text
	}
	o.processed++

	zap.L().Info("pipeline: unit processed",
		zap.Int("unit", unit.Index),
		zap.Int("candidates", len(candidates)),
		zap.Int("cases", len(o.cases)),
		zap.Int("duplicates", o.duplicates))
	return o.persist()
}

func (o *Orchestrator) prompt(u source.Unit) string {
	if u.IsRow() {
		return extract.RowPrompt(u.Section, u.Headers, u.Cells)
	}
	return extract.PagePrompt(u.Text, o.prevText)
}

// consume folds one candidate into the consolidated list.
func (o *Orchestrator) consume(c *model.CandidateRecord) {
	normalize.Record(c)
	if c.CaseID == "" {
		c.CaseID = model.FlexString(model.GenerateCaseID(string(c.CaseName), c.Year))
	}

	incoming := model.NewConsolidatedCase(c)

	// No identifier and no citation means the fragment extends the case
	// the previous rows belonged to.
	if c.CaseID == "" && len(c.Citations) == 0 && o.current != nil {
		merge.Into(o.current, incoming)
		o.index.Add(o.current, o.currentPos)
		zap.L().Debug("pipeline: continuation merged",
			zap.Int("unit", c.SourceUnit),
			zap.String("case_id", o.current.CaseID))
		return
	}

	if pos, method, ok := o.index.Find(c); ok {
		merge.Into(o.cases[pos], incoming)
		o.index.Add(o.cases[pos], pos)
		o.duplicates++
		o.setCurrent(pos)
		zap.L().Debug("pipeline: duplicate merged",
			zap.Int("unit", c.SourceUnit),
			zap.String("case_id", o.cases[pos].CaseID),
			zap.String("match", string(method)))
		return
	}

	o.cases = append(o.cases, incoming)
	pos := len(o.cases) - 1
	o.index.Add(incoming, pos)
	o.setCurrent(pos)
	zap.L().Debug("pipeline: case added",
		zap.Int("unit", c.SourceUnit),
		zap.String("case_id", incoming.CaseID))
}

func (o *Orchestrator) setCurrent(pos int) {
	o.current = o.cases[pos]
	o.currentPos = pos
}

// persist rewrites the checkpoint and the whole output file.
func (o *Orchestrator) persist() error {
	cp := model.Checkpoint{
		LastUnitProcessed: o.lastUnit,
		CaseCount:         len(o.cases),
		DuplicateCount:    o.duplicates,
		Timestamp:         float64(o.now().UnixNano()) / 1e9,
	}
	if err := WriteCheckpoint(o.cfg.CheckpointPath, cp); err != nil {
		return err
	}
	return WriteCases(o.cfg.OutputPath, o.cases)
}
