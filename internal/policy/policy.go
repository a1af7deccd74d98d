// Package policy is the security gate consulted before the executor spawns
// anything on the caller's behalf. A denial is a hard failure: callers
// surface it as a blocked outcome, never bypass it.
package policy

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// AccessMode distinguishes read from write path checks.
type AccessMode string

const (
	AccessRead  AccessMode = "read"
	AccessWrite AccessMode = "write"
)

// Result is a pass/fail verdict with an explanation when denied.
type Result struct {
	Allowed bool
	Reason  string
}

// Gate is the policy interface the executor consumes.
type Gate interface {
	ValidateCommand(command string) Result
	ValidatePath(path string, mode AccessMode) Result
	ValidateNetwork(host string) Result
}

// BlockedError marks an operation refused by policy. It is a distinct type
// so callers can separate "refused" from "tried and failed".
type BlockedError struct {
	Subject string
	Kind    string
	Reason  string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("blocked by policy (%s): %s: %s", e.Kind, e.Subject, e.Reason)
}

// Engine is the rule-backed Gate implementation.
type Engine struct {
	mu    sync.RWMutex
	rules RuleSet
}

// NewEngine creates an engine over a rule set.
func NewEngine(rules RuleSet) *Engine {
	return &Engine{rules: rules.normalized()}
}

// ValidateCommand denies commands matching any denied-command pattern.
// Matching is word-boundary aware on the command text.
func (e *Engine) ValidateCommand(command string) Result {
	e.mu.RLock()
	defer e.mu.RUnlock()

	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return Result{Allowed: false, Reason: "empty command"}
	}
	lower := strings.ToLower(trimmed)
	for _, pattern := range e.rules.DeniedCommands {
		if commandMatches(lower, pattern) {
			return Result{Allowed: false, Reason: "command matches denied pattern: " + pattern}
		}
	}
	return Result{Allowed: true}
}

// ValidatePath denies writes to protected paths. Reads are always allowed;
// protection guards modification, not inspection.
func (e *Engine) ValidatePath(path string, mode AccessMode) Result {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if mode == AccessRead {
		return Result{Allowed: true}
	}

	normalized := filepath.ToSlash(path)
	lower := strings.ToLower(normalized)

	for _, pattern := range e.rules.ProtectedPaths {
		if matchGlob(normalized, pattern) {
			return Result{Allowed: false, Reason: "path matches protected pattern: " + pattern}
		}
	}
	for _, keyword := range e.rules.ProtectedKeywords {
		if strings.Contains(lower, strings.ToLower(keyword)) {
			return Result{Allowed: false, Reason: "path contains protected keyword: " + keyword}
		}
	}
	return Result{Allowed: true}
}

// ValidateNetwork allows a host only when it, or a parent domain, appears
// in the allowed-host list. An empty list denies everything.
func (e *Engine) ValidateNetwork(host string) Result {
	e.mu.RLock()
	defer e.mu.RUnlock()

	h := strings.ToLower(strings.TrimSpace(host))
	if h == "" {
		return Result{Allowed: false, Reason: "empty host"}
	}
	for _, allowed := range e.rules.AllowedHosts {
		a := strings.ToLower(allowed)
		if h == a || strings.HasSuffix(h, "."+a) {
			return Result{Allowed: true}
		}
	}
	return Result{Allowed: false, Reason: "host not in allowed list: " + host}
}

// commandMatches reports whether the pattern occurs in the command at a
// word boundary. "rm -rf" matches "sudo rm -rf /" but not "firm -rf".
func commandMatches(command, pattern string) bool {
	p := strings.ToLower(strings.TrimSpace(pattern))
	if p == "" {
		return false
	}
	idx := 0
	for {
		i := strings.Index(command[idx:], p)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(p)
		beforeOK := start == 0 || !isWordChar(command[start-1])
		afterOK := end == len(command) || !isWordChar(command[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}
