package chunker

// ScheduleGroups converts a dependency map into an ordered sequence of
// execution groups by repeated topological layering: each step collects
// every unscheduled chunk whose dependencies are all already scheduled.
// Members of a group have no dependency between them and may run
// concurrently; groups must run strictly in order.
//
// If a step produces no candidates while chunks remain (a cycle, or a
// dependency on an unknown id), the remaining chunks are scheduled one per
// group in their original order. Scheduling degrades to fully sequential
// rather than failing.
func ScheduleGroups(chunkIDs []string, deps map[string][]string) [][]string {
	if len(chunkIDs) == 0 {
		return nil
	}

	known := make(map[string]bool, len(chunkIDs))
	for _, id := range chunkIDs {
		known[id] = true
	}

	scheduled := make(map[string]bool, len(chunkIDs))
	var groups [][]string

	remaining := len(chunkIDs)
	for remaining > 0 {
		var group []string
		for _, id := range chunkIDs {
			if scheduled[id] {
				continue
			}
			ready := true
			for _, dep := range deps[id] {
				// Dependencies outside the chunk set can never be
				// satisfied; treat them like a cycle.
				if !known[dep] || !scheduled[dep] {
					ready = false
					break
				}
			}
			if ready {
				group = append(group, id)
			}
		}

		if len(group) == 0 {
			// Cycle or unsatisfiable dependency: fall back to fully
			// sequential order for everything left.
			for _, id := range chunkIDs {
				if !scheduled[id] {
					groups = append(groups, []string{id})
					scheduled[id] = true
				}
			}
			return groups
		}

		for _, id := range group {
			scheduled[id] = true
		}
		groups = append(groups, group)
		remaining -= len(group)
	}

	return groups
}
