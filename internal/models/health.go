package models

// HealthResponse 健康检查响应结构
// @Description 健康检查API响应数据结构
type HealthResponse struct {
	Version   string  `json:"version" example:"1.0.0"`
	RunID     string  `json:"runId" example:"6f1c2c1e-3b0a-4d59-9a0e-0c5f4b1e2d3a"`
	StartTime string  `json:"startTime" example:"2024-01-01T10:00:00Z"`
	Status    string  `json:"status" example:"UP"`
	Uptime    string  `json:"uptime" example:"1h30m45s"`
	Metrics   Metrics `json:"metrics"`
}

// Metrics 关键指标结构
type Metrics struct {
	TotalRequests    int64 `json:"totalRequests" example:"1000"`
	ErrorRequests    int64 `json:"errorRequests" example:"5"`
	RunningResources int   `json:"runningResources" example:"2"`
	TotalResources   int   `json:"totalResources" example:"2"`
}
