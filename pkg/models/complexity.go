// Package models defines the shared data types for task chunking and
// delegated execution.
package models

// ComplexityLevel buckets a complexity score into a coarse level.
type ComplexityLevel string

const (
	// ComplexityLow indicates a trivial task (score < 30).
	ComplexityLow ComplexityLevel = "low"
	// ComplexityMedium indicates a moderate task (score < 60).
	ComplexityMedium ComplexityLevel = "medium"
	// ComplexityHigh indicates a complex task (score < 80).
	ComplexityHigh ComplexityLevel = "high"
	// ComplexityVeryHigh indicates a task that almost certainly needs chunking.
	ComplexityVeryHigh ComplexityLevel = "very-high"
)

// Valid returns true if the level is a known value.
func (l ComplexityLevel) Valid() bool {
	switch l {
	case ComplexityLow, ComplexityMedium, ComplexityHigh, ComplexityVeryHigh:
		return true
	default:
		return false
	}
}

// ComplexityFactors holds the raw signals extracted from a task description.
// Computed once per task string and never mutated afterwards.
type ComplexityFactors struct {
	// VerbCount is the number of distinct action verbs found.
	VerbCount int `json:"verb_count"`
	// FileCount is the number of distinct file references found.
	FileCount int `json:"file_count"`
	// ConceptCount is the number of distinct domain concepts mentioned.
	ConceptCount int `json:"concept_count"`
	// HasMultipleSteps reports whether multi-step separator language is present.
	HasMultipleSteps bool `json:"has_multiple_steps"`
	// HasDependencyLanguage reports whether ordering language is present.
	HasDependencyLanguage bool `json:"has_dependency_language"`
	// EstimatedMinutes is the derived duration estimate, clamped to [1, 30].
	EstimatedMinutes float64 `json:"estimated_minutes"`
}

// ComplexityAnalysis is the result of scoring a task description.
// It is derived purely from the task text and never persisted.
type ComplexityAnalysis struct {
	// Level is the coarse complexity bucket derived from Score.
	Level ComplexityLevel `json:"level"`
	// Score is the 0-100 complexity score.
	Score int `json:"score"`
	// Factors holds the raw signals behind the score.
	Factors ComplexityFactors `json:"factors"`
	// Recommendations are human-readable suggestions for handling the task.
	Recommendations []string `json:"recommendations,omitempty"`
}
