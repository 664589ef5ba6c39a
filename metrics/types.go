// Package metrics keeps in-memory statistics about generation requests and
// GPU utilization. Unlike the history store, nothing here survives a
// restart; this is the cheap view served by the stats endpoint.
package metrics

import "time"

// Sample is one completed generation request.
type Sample struct {
	// RequestID ties the sample to the request log and history row.
	RequestID string `json:"request_id"`

	// Operation is "generation", "edit" or "variation".
	Operation string `json:"operation"`

	// Status is "success" or "error".
	Status string `json:"status"`

	// BatchSize is the number of images produced by the request.
	BatchSize int `json:"batch_size"`

	// Duration is the total request execution time.
	Duration time.Duration `json:"duration"`

	// CompletedAt is when the request finished.
	CompletedAt time.Time `json:"completed_at"`

	// ErrorType holds the wire error type when Status is "error".
	ErrorType string `json:"error_type,omitempty"`
}

// Sample status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// OperationStats aggregates samples for one operation kind.
type OperationStats struct {
	Count       int64         `json:"count"`
	SuccessRate float64       `json:"success_rate"`
	AvgDuration time.Duration `json:"avg_duration"`
}

// Stats is the aggregated view served by the stats endpoint.
type Stats struct {
	TotalRequests  int64                      `json:"total_requests"`
	TotalSuccess   int64                      `json:"total_success"`
	TotalErrors    int64                      `json:"total_errors"`
	ImagesProduced int64                      `json:"images_produced"`
	ByOperation    map[string]*OperationStats `json:"by_operation"`
	Uptime         time.Duration              `json:"uptime"`
	GPU            *GPUMetrics                `json:"gpu,omitempty"`
}

// GPUMetrics is a snapshot of GPU utilization as reported by nvidia-smi.
type GPUMetrics struct {
	// Utilization is the GPU utilization percentage (0-100).
	Utilization float64 `json:"utilization"`

	// Temperature is the GPU temperature in Celsius.
	Temperature float64 `json:"temperature"`

	// MemoryTotal is the total GPU memory in bytes.
	MemoryTotal int64 `json:"memory_total"`

	// MemoryUsed is the GPU memory currently in use in bytes.
	MemoryUsed int64 `json:"memory_used"`

	// MemoryFree is the available GPU memory in bytes.
	MemoryFree int64 `json:"memory_free"`
}
