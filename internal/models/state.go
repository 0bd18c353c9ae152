package models

// RunState is the lifecycle tag of one resource. Only the launcher moves it.
type RunState string

const (
	StatePending  RunState = "pending"
	StateStarting RunState = "starting"
	StateRunning  RunState = "running"
	StateFailed   RunState = "failed"
	StateStopped  RunState = "stopped"
)

// HostState is the lifecycle of the whole composed topology.
type HostState string

const (
	HostIdle         HostState = "idle"
	HostRunning      HostState = "running"
	HostShuttingDown HostState = "shutting-down"
	HostStopped      HostState = "stopped"
)
