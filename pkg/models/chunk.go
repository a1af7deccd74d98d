package models

// ChunkContext carries the context a chunk needs when delegated on its own.
type ChunkContext struct {
	// Files lists the file references extracted from the chunk description.
	Files []string `json:"files,omitempty"`
	// ParentTask is the full text of the original task being chunked.
	ParentTask string `json:"parent_task"`
}

// TaskChunk is a sub-unit of a larger task, independently delegable to a
// subprocess. Dependencies reference other chunk IDs from the same chunking
// run, never embedded chunk values, so a cycle is only a traversal concern.
type TaskChunk struct {
	// ID uniquely identifies the chunk within a chunking run.
	ID string `json:"id"`
	// Index is the chunk's position in the original split order.
	Index int `json:"index"`
	// Description is the chunk's task text.
	Description string `json:"description"`
	// Complexity is the chunk's own complexity level.
	Complexity ComplexityLevel `json:"complexity"`
	// EstimatedMinutes is the chunk's own duration estimate.
	EstimatedMinutes float64 `json:"estimated_minutes"`
	// Dependencies lists chunk IDs that must complete before this chunk.
	Dependencies []string `json:"dependencies,omitempty"`
	// Context carries supporting context for delegation.
	Context ChunkContext `json:"context"`
}

// DependsOn returns true if the chunk declares a dependency on the given ID.
func (c *TaskChunk) DependsOn(id string) bool {
	for _, dep := range c.Dependencies {
		if dep == id {
			return true
		}
	}
	return false
}

// ChunkingResult is the outcome of deciding whether and how to split a task.
type ChunkingResult struct {
	// OriginalTask is the task text that was analyzed.
	OriginalTask string `json:"original_task"`
	// RequiresChunking reports whether the task should be split.
	RequiresChunking bool `json:"requires_chunking"`
	// Reason explains the chunking decision.
	Reason string `json:"reason"`
	// Chunks is the ordered list of sub-tasks. When RequiresChunking is
	// false it contains a single chunk wrapping the whole task.
	Chunks []TaskChunk `json:"chunks"`
	// ExecutionOrder is the scheduled sequence of groups. Chunks within a
	// group have no dependency between them and may run concurrently.
	ExecutionOrder [][]string `json:"execution_order"`
	// TotalEstimatedMinutes is the sum of per-chunk duration estimates.
	TotalEstimatedMinutes float64 `json:"total_estimated_minutes"`
	// Complexity is the analysis of the original task.
	Complexity ComplexityAnalysis `json:"complexity"`
}

// Chunk returns the chunk with the given ID, or nil if not found.
func (r *ChunkingResult) Chunk(id string) *TaskChunk {
	for i := range r.Chunks {
		if r.Chunks[i].ID == id {
			return &r.Chunks[i]
		}
	}
	return nil
}

// GroupIndex returns the index of the execution group containing the given
// chunk ID, or -1 if the chunk is not scheduled.
func (r *ChunkingResult) GroupIndex(id string) int {
	for gi, group := range r.ExecutionOrder {
		for _, cid := range group {
			if cid == id {
				return gi
			}
		}
	}
	return -1
}
