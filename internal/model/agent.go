package model

import "time"

// AgentStatus represents the liveness classification of an agent.
type AgentStatus string

const (
	// AgentStatusActive indicates the agent has reported activity recently.
	AgentStatusActive AgentStatus = "active"
	// AgentStatusInactive indicates the agent's last activity is older than
	// the configured inactivity window. Derived at read time, there is no
	// background sweeper.
	AgentStatusInactive AgentStatus = "inactive"
	// AgentStatusTerminated indicates the agent's work was taken over by
	// another agent. Terminal.
	AgentStatusTerminated AgentStatus = "terminated"
)

// Agent represents a worker cooperating on the shared workflow.
type Agent struct {
	ID   string
	Name string
	// ClaimedTasks are the ids of the tasks currently assigned to the agent.
	ClaimedTasks []string
	SessionToken string
	Status       AgentStatus
	LastActive   time.Time
	CreatedAt    time.Time
}

// IdleSince reports whether the agent's last activity is older than the
// given window at the given instant.
func (a *Agent) IdleSince(now time.Time, window time.Duration) bool {
	return now.Sub(a.LastActive) > window
}

// RemoveClaimedTask removes a task id from the agent's claim set. Removing an
// id that is not claimed is a no-op.
func (a *Agent) RemoveClaimedTask(taskID string) {
	claimed := a.ClaimedTasks[:0]
	for _, id := range a.ClaimedTasks {
		if id != taskID {
			claimed = append(claimed, id)
		}
	}
	a.ClaimedTasks = claimed
}
