package complexity

import "regexp"

// VerbCategory groups action verbs by the kind of work they imply.
type VerbCategory string

const (
	VerbImplementation VerbCategory = "implementation"
	VerbModification   VerbCategory = "modification"
	VerbTesting        VerbCategory = "testing"
	VerbDocumentation  VerbCategory = "documentation"
	VerbAnalysis       VerbCategory = "analysis"
	VerbSetup          VerbCategory = "setup"
	VerbRemoval        VerbCategory = "removal"
)

// defaultVerbs is the fixed action-verb vocabulary, keyed by category.
var defaultVerbs = map[VerbCategory][]string{
	VerbImplementation: {"implement", "create", "build", "add", "write", "develop", "generate", "make"},
	VerbModification:   {"fix", "update", "modify", "change", "refactor", "improve", "optimize", "rename", "move", "migrate"},
	VerbTesting:        {"test", "verify", "validate", "check"},
	VerbDocumentation:  {"document", "describe", "explain", "annotate"},
	VerbAnalysis:       {"analyze", "investigate", "review", "audit", "debug", "inspect", "list", "find", "search"},
	VerbSetup:          {"setup", "install", "configure", "initialize", "deploy"},
	VerbRemoval:        {"remove", "delete", "drop", "clean", "deprecate"},
}

// defaultConcepts is the fixed domain-concept vocabulary.
var defaultConcepts = []string{
	"api", "component", "model", "service", "test", "config", "database",
	"auth", "endpoint", "schema", "migration", "interface", "route",
	"controller", "middleware", "cache", "queue", "ui", "cli", "server",
	"client", "login", "session", "token",
}

// defaultSeparators is the fixed multi-step separator list, in the order the
// splitter tries them. Separators containing "then" come first so the
// sequential cue is preserved on the clause that follows.
var defaultSeparators = []string{
	", then ",
	" and then ",
	" then ",
	" and ",
	"; ",
	". ",
}

// Dependency-language patterns.
var (
	orderingWordsRe   = regexp.MustCompile(`(?i)\b(after|before|once|when|then)\b`)
	requirementWordsRe = regexp.MustCompile(`(?i)\b(depends|requires|needs)\b`)
	sequenceWordsRe   = regexp.MustCompile(`(?i)\b(first|second|finally)\b`)
)

// File-reference patterns.
var (
	// fileExtRe matches tokens that end in a known source/config extension.
	fileExtRe = regexp.MustCompile(`\b[\w./-]+\.(?:ts|tsx|js|jsx|mjs|go|py|rs|java|kt|rb|c|cc|cpp|h|hpp|cs|php|sh|sql|json|yaml|yml|toml|md|css|html|proto|csv|tsv|txt)\b`)
	// filePhraseRe matches "in/to/from/the X file|module|component|class" phrasing.
	filePhraseRe = regexp.MustCompile(`(?i)\b(?:in|to|from|the)\s+([A-Za-z][\w.-]*)\s+(?:file|module|component|class)\b`)
	// pathTokenRe matches path-like tokens with at least one separator.
	pathTokenRe = regexp.MustCompile(`\b(?:[\w.-]+/)+[\w.-]+\b`)

	wordRe = regexp.MustCompile(`[A-Za-z][A-Za-z'-]*`)
)
