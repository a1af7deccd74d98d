// Package complexity scores task descriptions to decide whether they are
// small enough for a single delegation or need to be chunked first.
package complexity

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/reze83/Flynn-Project-sub000/pkg/models"
)

// Scoring weights. Verbs dominate the score; duration contributes least.
const (
	pointsPerVerb    = 10
	maxVerbPoints    = 30
	pointsPerFile    = 7
	maxFilePoints    = 20
	pointsPerConcept = 5
	maxConceptPoints = 20
	multiStepPoints  = 10
	dependencyPoints = 10
	maxDurationPoints = 10

	minMinutes = 1.0
	maxMinutes = 30.0
)

// VerbMatch is an action verb found in a task description.
type VerbMatch struct {
	// Word is the lowercased verb.
	Word string
	// Category is the vocabulary category the verb belongs to.
	Category VerbCategory
	// Offset is the byte offset of the first occurrence in the text.
	Offset int
}

// Analyzer extracts complexity signals from task text. It owns its
// vocabulary indexes explicitly rather than relying on package globals, so
// callers control its lifetime and scope.
type Analyzer struct {
	verbIndex  map[string]VerbCategory
	concepts   []string
	separators []string
}

// New creates an Analyzer with the default vocabulary.
func New() *Analyzer {
	idx := make(map[string]VerbCategory)
	for category, words := range defaultVerbs {
		for _, w := range words {
			idx[w] = category
		}
	}
	return &Analyzer{
		verbIndex:  idx,
		concepts:   defaultConcepts,
		separators: defaultSeparators,
	}
}

// Separators returns the fixed multi-step separator list in split order.
func (a *Analyzer) Separators() []string {
	return a.separators
}

// Analyze scores a task description. Empty input yields score 0, level low.
func (a *Analyzer) Analyze(task string) models.ComplexityAnalysis {
	if strings.TrimSpace(task) == "" {
		return models.ComplexityAnalysis{Level: models.ComplexityLow}
	}

	verbs := a.Verbs(task)
	files := a.FileReferences(task)
	concepts := a.Concepts(task)
	multiStep := a.HasMultipleSteps(task)
	depLang := a.HasDependencyLanguage(task)

	minutes := estimateMinutes(len(verbs), len(files), len(concepts), multiStep)

	factors := models.ComplexityFactors{
		VerbCount:             len(verbs),
		FileCount:             len(files),
		ConceptCount:          len(concepts),
		HasMultipleSteps:      multiStep,
		HasDependencyLanguage: depLang,
		EstimatedMinutes:      minutes,
	}

	score := scoreFactors(factors)

	return models.ComplexityAnalysis{
		Level:           levelForScore(score),
		Score:           score,
		Factors:         factors,
		Recommendations: recommendations(score, factors),
	}
}

// Verbs returns the distinct action verbs found in the text, ordered by
// first occurrence.
func (a *Analyzer) Verbs(task string) []VerbMatch {
	lower := strings.ToLower(task)
	seen := make(map[string]bool)
	var matches []VerbMatch

	for _, loc := range wordRe.FindAllStringIndex(lower, -1) {
		word := lower[loc[0]:loc[1]]
		category, ok := a.verbIndex[word]
		if !ok || seen[word] {
			continue
		}
		seen[word] = true
		matches = append(matches, VerbMatch{Word: word, Category: category, Offset: loc[0]})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Offset < matches[j].Offset })
	return matches
}

// FileReferences returns the distinct file references found in the text,
// ordered by first occurrence. Matches extensions, "the X file" phrasing,
// and path-like tokens.
func (a *Analyzer) FileReferences(task string) []string {
	type ref struct {
		name   string
		offset int
	}
	seen := make(map[string]bool)
	var refs []ref

	record := func(name string, offset int) {
		key := strings.ToLower(name)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		refs = append(refs, ref{name: name, offset: offset})
	}

	for _, loc := range fileExtRe.FindAllStringIndex(task, -1) {
		record(task[loc[0]:loc[1]], loc[0])
	}
	for _, m := range filePhraseRe.FindAllStringSubmatchIndex(task, -1) {
		// Submatch 1 is the referenced name.
		record(task[m[2]:m[3]], m[2])
	}
	for _, loc := range pathTokenRe.FindAllStringIndex(task, -1) {
		record(task[loc[0]:loc[1]], loc[0])
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].offset < refs[j].offset })
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.name
	}
	return out
}

// Concepts returns the distinct domain concepts mentioned in the text.
func (a *Analyzer) Concepts(task string) []string {
	lower := strings.ToLower(task)
	words := make(map[string]bool)
	for _, loc := range wordRe.FindAllStringIndex(lower, -1) {
		words[lower[loc[0]:loc[1]]] = true
	}

	var found []string
	for _, concept := range a.concepts {
		if words[concept] {
			found = append(found, concept)
		}
	}
	return found
}

// HasMultipleSteps reports whether any multi-step separator appears.
func (a *Analyzer) HasMultipleSteps(task string) bool {
	lower := strings.ToLower(task)
	for _, sep := range a.separators {
		if strings.Contains(lower, sep) {
			return true
		}
	}
	return false
}

// HasDependencyLanguage reports whether ordering or requirement language
// appears in the text.
func (a *Analyzer) HasDependencyLanguage(task string) bool {
	return orderingWordsRe.MatchString(task) ||
		requirementWordsRe.MatchString(task) ||
		sequenceWordsRe.MatchString(task)
}

// estimateMinutes derives a duration estimate from the extracted counts.
// Multi-step tasks get a 1.3x multiplier; the result is clamped to [1, 30].
func estimateMinutes(verbs, files, concepts int, multiStep bool) float64 {
	minutes := 1.0 + 0.6*float64(verbs) + 1.2*float64(files) + 0.4*float64(concepts)
	if multiStep {
		minutes *= 1.3
	}
	return math.Min(maxMinutes, math.Max(minMinutes, minutes))
}

// scoreFactors combines the factors into a 0-100 score.
func scoreFactors(f models.ComplexityFactors) int {
	score := 0
	score += minInt(f.VerbCount*pointsPerVerb, maxVerbPoints)
	score += minInt(f.FileCount*pointsPerFile, maxFilePoints)
	score += minInt(f.ConceptCount*pointsPerConcept, maxConceptPoints)
	if f.HasMultipleSteps {
		score += multiStepPoints
	}
	if f.HasDependencyLanguage {
		score += dependencyPoints
	}
	score += minInt(int(f.EstimatedMinutes/3.0), maxDurationPoints)
	return minInt(score, 100)
}

// levelForScore maps a score to a level: <30 low, <60 medium, <80 high,
// otherwise very-high.
func levelForScore(score int) models.ComplexityLevel {
	switch {
	case score < 30:
		return models.ComplexityLow
	case score < 60:
		return models.ComplexityMedium
	case score < 80:
		return models.ComplexityHigh
	default:
		return models.ComplexityVeryHigh
	}
}

// recommendations produces human-readable guidance for the caller.
func recommendations(score int, f models.ComplexityFactors) []string {
	var recs []string
	if score >= 60 {
		recs = append(recs, "task is complex; consider chunking before delegation")
	}
	if f.FileCount > 3 {
		recs = append(recs, fmt.Sprintf("task touches %d files; consider one chunk per file", f.FileCount))
	}
	if f.HasDependencyLanguage {
		recs = append(recs, "task has ordering constraints; sub-tasks should run sequentially where indicated")
	}
	if f.EstimatedMinutes >= maxMinutes {
		recs = append(recs, "estimated duration hit the cap; the estimate is likely optimistic")
	}
	return recs
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
