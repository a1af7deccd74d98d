// Package chunker decides whether a task is too large for a single
// delegation and, if so, splits it into a dependency-ordered set of chunks
// grouped for parallel execution.
package chunker

import (
	"strings"

	"github.com/reze83/Flynn-Project-sub000/internal/complexity"
)

// Splitter turns a task string into candidate sub-task strings. Strategies
// are tried in order; each is only attempted when the previous one failed to
// produce enough parts.
type Splitter struct {
	analyzer *complexity.Analyzer
}

// NewSplitter creates a Splitter sharing the given analyzer's vocabulary.
func NewSplitter(analyzer *complexity.Analyzer) *Splitter {
	return &Splitter{analyzer: analyzer}
}

// Split returns sub-task strings for the given task. It escalates through
// separator, verb-span, per-file, and forced clause splitting until at
// least minParts sub-tasks exist, capped at maxParts. Callers decide
// whether the result is sufficient; a single-element result means the task
// resisted splitting.
func (s *Splitter) Split(task string, minParts, maxParts int) []string {
	task = strings.TrimSpace(task)
	if task == "" {
		return nil
	}
	if minParts < 2 {
		minParts = 2
	}
	if maxParts < minParts {
		maxParts = minParts
	}

	verbs := s.analyzer.Verbs(task)

	if len(verbs) >= 2 {
		if parts := s.splitOnSeparator(task); len(parts) >= minParts {
			return capParts(parts, maxParts)
		}
		if parts := s.splitOnVerbSpans(task, verbs); len(parts) >= minParts {
			return capParts(parts, maxParts)
		}
	}

	files := s.analyzer.FileReferences(task)
	if len(files) > len(verbs) {
		if parts := s.splitPerFile(task, files, verbs); len(parts) >= minParts {
			return capParts(parts, maxParts)
		}
	}

	if parts := s.forceSplit(task, maxParts); len(parts) >= minParts {
		return parts
	}

	return []string{task}
}

// splitOnSeparator splits on the first separator from the fixed list that
// appears in the text. When the separator carries a sequential cue ("then"),
// the cue is re-attached to the following parts so the dependency grapher
// still sees it.
func (s *Splitter) splitOnSeparator(task string) []string {
	lower := strings.ToLower(task)
	for _, sep := range s.analyzer.Separators() {
		if !strings.Contains(lower, sep) {
			continue
		}
		parts := splitCaseInsensitive(task, sep)
		cleaned := trimNonEmpty(parts)
		if len(cleaned) < 2 {
			return nil
		}
		if strings.Contains(sep, "then") {
			for i := 1; i < len(cleaned); i++ {
				cleaned[i] = "then " + cleaned[i]
			}
		}
		return cleaned
	}
	return nil
}

// splitOnVerbSpans isolates each verb's textual span between its occurrence
// and the next verb's occurrence.
func (s *Splitter) splitOnVerbSpans(task string, verbs []complexity.VerbMatch) []string {
	if len(verbs) < 2 {
		return nil
	}
	var parts []string
	for i, v := range verbs {
		end := len(task)
		if i+1 < len(verbs) {
			end = verbs[i+1].Offset
		}
		span := strings.Trim(task[v.Offset:end], " \t\n,.;")
		if span != "" {
			parts = append(parts, span)
		}
	}
	return parts
}

// splitPerFile produces one sub-task per referenced file, prefixed with the
// nearest preceding verb (or "process" when no verb precedes the file).
func (s *Splitter) splitPerFile(task string, files []string, verbs []complexity.VerbMatch) []string {
	lower := strings.ToLower(task)
	var parts []string
	for _, file := range files {
		offset := strings.Index(lower, strings.ToLower(file))
		verb := "process"
		for _, v := range verbs {
			if v.Offset < offset {
				verb = v.Word
			}
		}
		parts = append(parts, verb+" "+file)
	}
	return parts
}

// forceSplit breaks the task on sentence and clause boundaries, up to
// maxParts sub-tasks.
func (s *Splitter) forceSplit(task string, maxParts int) []string {
	boundaries := []string{". ", "; ", ", "}
	parts := []string{task}
	for _, b := range boundaries {
		var next []string
		for _, p := range parts {
			next = append(next, strings.Split(p, b)...)
		}
		parts = next
	}
	return capParts(trimNonEmpty(parts), maxParts)
}

// splitCaseInsensitive splits text on sep ignoring case, preserving the
// original casing of the parts.
func splitCaseInsensitive(text, sep string) []string {
	lower := strings.ToLower(text)
	var parts []string
	start := 0
	for {
		idx := strings.Index(lower[start:], sep)
		if idx < 0 {
			break
		}
		parts = append(parts, text[start:start+idx])
		start += idx + len(sep)
	}
	parts = append(parts, text[start:])
	return parts
}

// trimNonEmpty trims whitespace and punctuation and drops empty parts.
func trimNonEmpty(parts []string) []string {
	var out []string
	for _, p := range parts {
		p = strings.Trim(p, " \t\n.;,")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// capParts enforces the maximum chunk count by folding any excess parts
// into the final chunk, so no text is dropped.
func capParts(parts []string, maxParts int) []string {
	if len(parts) <= maxParts {
		return parts
	}
	capped := make([]string, maxParts)
	copy(capped, parts[:maxParts-1])
	capped[maxParts-1] = strings.Join(parts[maxParts-1:], "; ")
	return capped
}
