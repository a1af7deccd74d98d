package chunker

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/reze83/Flynn-Project-sub000/internal/complexity"
	"github.com/reze83/Flynn-Project-sub000/pkg/models"
)

// Config controls the chunking decision and limits.
type Config struct {
	// ScoreThreshold is the complexity score at or above which a task is
	// chunked.
	ScoreThreshold int
	// TimeoutFraction chunks a task whose estimated duration exceeds this
	// fraction of the caller's timeout.
	TimeoutFraction float64
	// MinChunks is the minimum number of sub-tasks a split must produce.
	MinChunks int
	// MaxChunks caps the number of sub-tasks.
	MaxChunks int
}

// DefaultConfig returns the default chunking configuration.
func DefaultConfig() Config {
	return Config{
		ScoreThreshold:  60,
		TimeoutFraction: 0.8,
		MinChunks:       2,
		MaxChunks:       10,
	}
}

// normalized returns a copy with out-of-range values replaced by defaults.
func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.ScoreThreshold <= 0 || c.ScoreThreshold > 100 {
		c.ScoreThreshold = d.ScoreThreshold
	}
	if c.TimeoutFraction <= 0 || c.TimeoutFraction > 1 {
		c.TimeoutFraction = d.TimeoutFraction
	}
	if c.MinChunks < 2 {
		c.MinChunks = d.MinChunks
	}
	if c.MaxChunks < c.MinChunks {
		c.MaxChunks = d.MaxChunks
	}
	return c
}

// Chunker composes the analyzer, splitter, grapher, and scheduler into the
// chunking decision.
type Chunker struct {
	analyzer *complexity.Analyzer
	splitter *Splitter
	grapher  *Grapher
	cfg      Config
}

// New creates a Chunker with the given configuration.
func New(cfg Config) *Chunker {
	analyzer := complexity.New()
	return &Chunker{
		analyzer: analyzer,
		splitter: NewSplitter(analyzer),
		grapher:  NewGrapher(analyzer),
		cfg:      cfg.normalized(),
	}
}

// Chunk decides whether the task needs chunking for the given delegation
// timeout and, if so, splits it into scheduled chunks. Malformed or
// unsplittable input degrades to a single chunk; Chunk never fails.
func (c *Chunker) Chunk(task string, timeout time.Duration) models.ChunkingResult {
	analysis := c.analyzer.Analyze(task)

	required, reason := c.decide(analysis, timeout)
	if !required {
		return c.singleChunk(task, analysis, reason)
	}

	subtasks := c.splitter.Split(task, c.cfg.MinChunks, c.cfg.MaxChunks)
	if len(subtasks) < c.cfg.MinChunks {
		return c.singleChunk(task, analysis,
			fmt.Sprintf("%s, but the task could not be split into %d parts", reason, c.cfg.MinChunks))
	}

	chunks := make([]models.TaskChunk, len(subtasks))
	ids := make([]string, len(subtasks))
	total := 0.0
	for i, text := range subtasks {
		sub := c.analyzer.Analyze(text)
		id := uuid.New().String()
		ids[i] = id
		chunks[i] = models.TaskChunk{
			ID:               id,
			Index:            i,
			Description:      text,
			Complexity:       sub.Level,
			EstimatedMinutes: sub.Factors.EstimatedMinutes,
			Context: models.ChunkContext{
				Files:      c.analyzer.FileReferences(text),
				ParentTask: task,
			},
		}
		total += sub.Factors.EstimatedMinutes
	}

	indexDeps := c.grapher.Dependencies(subtasks)
	idDeps := make(map[string][]string, len(indexDeps))
	for i, dep := range indexDeps {
		for _, j := range dep {
			chunks[i].Dependencies = append(chunks[i].Dependencies, ids[j])
		}
		idDeps[ids[i]] = chunks[i].Dependencies
	}

	return models.ChunkingResult{
		OriginalTask:          task,
		RequiresChunking:      true,
		Reason:                reason,
		Chunks:                chunks,
		ExecutionOrder:        ScheduleGroups(ids, idDeps),
		TotalEstimatedMinutes: total,
		Complexity:            analysis,
	}
}

// decide applies the chunking thresholds.
func (c *Chunker) decide(analysis models.ComplexityAnalysis, timeout time.Duration) (bool, string) {
	if analysis.Score >= c.cfg.ScoreThreshold {
		return true, fmt.Sprintf("complexity score %d is at or above threshold %d",
			analysis.Score, c.cfg.ScoreThreshold)
	}
	if timeout > 0 {
		budget := c.cfg.TimeoutFraction * timeout.Minutes()
		if analysis.Factors.EstimatedMinutes > budget {
			return true, fmt.Sprintf("estimated %.1f minutes exceeds %.0f%% of the %.1f minute timeout",
				analysis.Factors.EstimatedMinutes, c.cfg.TimeoutFraction*100, timeout.Minutes())
		}
	}
	return false, fmt.Sprintf("complexity score %d is below threshold %d and the estimate fits the timeout",
		analysis.Score, c.cfg.ScoreThreshold)
}

// singleChunk wraps the whole task as one chunk with no dependencies.
func (c *Chunker) singleChunk(task string, analysis models.ComplexityAnalysis, reason string) models.ChunkingResult {
	id := uuid.New().String()
	chunk := models.TaskChunk{
		ID:               id,
		Index:            0,
		Description:      task,
		Complexity:       analysis.Level,
		EstimatedMinutes: analysis.Factors.EstimatedMinutes,
		Context: models.ChunkContext{
			Files:      c.analyzer.FileReferences(task),
			ParentTask: task,
		},
	}
	return models.ChunkingResult{
		OriginalTask:          task,
		RequiresChunking:      false,
		Reason:                reason,
		Chunks:                []models.TaskChunk{chunk},
		ExecutionOrder:        [][]string{{id}},
		TotalEstimatedMinutes: analysis.Factors.EstimatedMinutes,
		Complexity:            analysis,
	}
}
