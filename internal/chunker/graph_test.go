package chunker

import (
	"reflect"
	"testing"

	"github.com/reze83/Flynn-Project-sub000/internal/complexity"
)

func newTestGrapher() *Grapher {
	return NewGrapher(complexity.New())
}

func TestDependencies_SequentialLanguage(t *testing.T) {
	g := newTestGrapher()

	deps := g.Dependencies([]string{
		"implement login.ts",
		"then fix the auth bug",
		"next test everything",
	})

	if !reflect.DeepEqual(deps[1], []int{0}) {
		t.Errorf("deps[1] = %v, want [0]", deps[1])
	}
	if !reflect.DeepEqual(deps[2], []int{1}) {
		t.Errorf("deps[2] = %v, want [1]", deps[2])
	}
	if len(deps[0]) != 0 {
		t.Errorf("deps[0] = %v, want none", deps[0])
	}
}

func TestDependencies_SharedFiles(t *testing.T) {
	g := newTestGrapher()

	deps := g.Dependencies([]string{
		"create auth.go",
		"create server.go",
		"update auth.go with a session check",
	})

	if len(deps[0]) != 0 || len(deps[1]) != 0 {
		t.Errorf("deps[0]=%v deps[1]=%v, want independent first two", deps[0], deps[1])
	}
	if !reflect.DeepEqual(deps[2], []int{0}) {
		t.Errorf("deps[2] = %v, want [0] (shared auth.go)", deps[2])
	}
}

func TestDependencies_SharedFileMultipleEarlier(t *testing.T) {
	g := newTestGrapher()

	deps := g.Dependencies([]string{
		"create shared.go",
		"update shared.go",
		"test shared.go",
	})

	if !reflect.DeepEqual(deps[1], []int{0}) {
		t.Errorf("deps[1] = %v, want [0]", deps[1])
	}
	if !reflect.DeepEqual(deps[2], []int{0, 1}) {
		t.Errorf("deps[2] = %v, want [0 1]", deps[2])
	}
}

func TestDependencies_RuleAShortCircuitsRuleB(t *testing.T) {
	g := newTestGrapher()

	// The third sub-task shares a file with the first, but its sequential
	// cue means it depends only on its immediate predecessor.
	deps := g.Dependencies([]string{
		"create auth.go",
		"create server.go",
		"then update auth.go",
	})

	if !reflect.DeepEqual(deps[2], []int{1}) {
		t.Errorf("deps[2] = %v, want [1] (Rule A only)", deps[2])
	}
}

func TestDependencies_SequentialCueOnFirstSubtask(t *testing.T) {
	g := newTestGrapher()

	// "then" in the first sub-task has nothing to point at.
	deps := g.Dependencies([]string{"then fix auth.go", "create server.go"})
	if len(deps[0]) != 0 {
		t.Errorf("deps[0] = %v, want none", deps[0])
	}
}

func TestDependencies_NoSignals(t *testing.T) {
	g := newTestGrapher()

	deps := g.Dependencies([]string{"write docs", "clean the kitchen"})
	for i := 0; i < 2; i++ {
		if len(deps[i]) != 0 {
			t.Errorf("deps[%d] = %v, want none", i, deps[i])
		}
	}
}

func TestDependencies_EmptyInput(t *testing.T) {
	g := newTestGrapher()

	if deps := g.Dependencies(nil); len(deps) != 0 {
		t.Errorf("Dependencies(nil) = %v, want empty", deps)
	}
}
