package chunker

import (
	"regexp"
	"sort"

	"github.com/reze83/Flynn-Project-sub000/internal/complexity"
)

// sequentialCueRe matches the words that make a sub-task depend on its
// immediate predecessor.
var sequentialCueRe = regexp.MustCompile(`(?i)\b(then|after|next)\b`)

// Grapher infers ordering constraints between sub-tasks.
type Grapher struct {
	analyzer *complexity.Analyzer
}

// NewGrapher creates a Grapher sharing the given analyzer's vocabulary.
func NewGrapher(analyzer *complexity.Analyzer) *Grapher {
	return &Grapher{analyzer: analyzer}
}

// Dependencies returns, for each sub-task index, the set of earlier indices
// it depends on. Two rules apply, mutually exclusive per sub-task:
//
// Rule A: a sub-task containing sequential language ("then", "after",
// "next") depends on the immediately preceding sub-task only.
//
// Rule B: otherwise, a sub-task depends on every earlier sub-task that
// references at least one file it also references.
//
// Rule B is computed through a file-to-indices reverse index built in a
// single pass, keeping the work linear in sub-tasks times references.
func (g *Grapher) Dependencies(subtasks []string) map[int][]int {
	deps := make(map[int][]int, len(subtasks))
	fileIndex := make(map[string][]int)

	for i, text := range subtasks {
		files := g.analyzer.FileReferences(text)

		if i > 0 && sequentialCueRe.MatchString(text) {
			deps[i] = []int{i - 1}
		} else {
			seen := make(map[int]bool)
			for _, f := range files {
				for _, earlier := range fileIndex[f] {
					if !seen[earlier] {
						seen[earlier] = true
						deps[i] = append(deps[i], earlier)
					}
				}
			}
		}

		for _, f := range files {
			fileIndex[f] = append(fileIndex[f], i)
		}
		sort.Ints(deps[i])
	}

	return deps
}
