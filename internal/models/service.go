package models

import "time"

// ResourceStatus is the externally visible view of one resource.
type ResourceStatus struct {
	Name      string            `json:"name"`
	Kind      ResourceKind      `json:"kind"`
	State     RunState          `json:"state"`
	Pid       int               `json:"pid,omitempty"`
	Endpoint  string            `json:"endpoint,omitempty"`
	DependsOn []string          `json:"dependsOn,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	StartTime time.Time         `json:"startTime,omitempty"`
	StopTime  time.Time         `json:"stopTime,omitempty"`
	LastError string            `json:"lastError,omitempty"`
}

// HostStatus is the externally visible view of a launch.
type HostStatus struct {
	RunID     string           `json:"runId"`
	State     HostState        `json:"state"`
	StartTime time.Time        `json:"startTime"`
	Order     []string         `json:"order"`
	Resources []ResourceStatus `json:"resources"`
}
