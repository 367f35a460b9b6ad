package session

import (
	"slices"

	"github.com/HendryAvila/ensemble/internal/project"
)

// transitions lists the phases reachable from each phase. Every phase may
// also return to idle, which is how a failed turn settles.
var transitions = map[project.Phase][]project.Phase{
	project.PhaseIdle:          {project.PhaseStreaming},
	project.PhaseStreaming:     {project.PhaseDocument},
	project.PhaseDocument:      {project.PhaseOrchestrating},
	project.PhaseOrchestrating: {},
}

func canTransition(from, to project.Phase) bool {
	if to == project.PhaseIdle || from == to {
		return true
	}
	return slices.Contains(transitions[from], to)
}
