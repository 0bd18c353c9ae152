package models

import "time"

type RunStatus string

const (
	// Process is alive
	StatusRunning RunStatus = "running"
	// Process ended on its own, normally or not
	StatusExited RunStatus = "exited"
	// Process could not be started or died unexpectedly
	StatusError RunStatus = "error"
	// Process was stopped by the launcher
	StatusStopped RunStatus = "stopped"
)

type ProcessDetail struct {
	Title          string    `json:"title"`
	Command        string    `json:"command"`
	Args           []string  `json:"args"`
	WorkDir        string    `json:"workDir"`
	Pid            int       `json:"pid"`
	Status         RunStatus `json:"status"`
	StartTime      time.Time `json:"startTime"`
	LastExitTime   time.Time `json:"lastExitTime"`
	LastExitReason string    `json:"lastExitReason"`
}
