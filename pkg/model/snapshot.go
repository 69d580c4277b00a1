package model

// ClusterStatus is the lifecycle status of a managed cluster as reported
// by the control plane, normalized from provider-specific status strings.
type ClusterStatus string

// Cluster lifecycle statuses.
const (
	StatusCreating ClusterStatus = "creating"
	StatusActive   ClusterStatus = "active"
	StatusUpdating ClusterStatus = "updating"
	StatusDeleting ClusterStatus = "deleting"
	StatusFailed   ClusterStatus = "failed"
	StatusUnknown  ClusterStatus = "unknown"

	// StatusError marks a synthetic snapshot produced when collection itself
	// failed. It is never reported by the control plane.
	StatusError ClusterStatus = "error"
)

// IsActive reports whether the status represents a running cluster whose
// utilization and score fields are meaningful.
func (s ClusterStatus) IsActive() bool {
	return s == StatusActive
}

// Data source labels carried on every snapshot so downstream consumers can
// tell real telemetry from the synthetic estimator.
const (
	SourceControlPlane = "control_plane"
	SourceTelemetry    = "telemetry"
	SourceSynthetic    = "synthetic"
	SourceError        = "error_handler"
)

// ClusterSnapshot is one observation of one cluster at a point in time.
// All fields are always present; zero values mean "not applicable", never
// "missing". Snapshots are immutable after construction and are superseded,
// not mutated, by the next collection cycle.
type ClusterSnapshot struct {
	// Identity
	ClusterName  string `json:"cluster_name"`
	CollectionID string `json:"collection_id"`
	Timestamp    int64  `json:"timestamp"` // UnixMilli, shared by all snapshots of one cycle
	Cycle        uint64 `json:"cycle"`

	// Topology, from the control plane
	Status       ClusterStatus `json:"status"`
	HealthStatus string        `json:"health_status"`
	NodeCount    int           `json:"node_count"`
	MasterCount  int           `json:"master_count"`
	TemplateID   string        `json:"template_id"`
	APIAddress   string        `json:"api_address"`

	// Utilization (0-100 each)
	CPUUsage      float64 `json:"cpu_usage"`
	MemoryUsage   float64 `json:"memory_usage"`
	GPUUsage      float64 `json:"gpu_usage"`
	DiskUsage     float64 `json:"disk_usage"`
	NetworkIOMbps float64 `json:"network_io_mbps"`

	// Workloads
	RunningPods   int `json:"running_pods"`
	FailedPods    int `json:"failed_pods"`
	PendingPods   int `json:"pending_pods"`
	WorkloadCount int `json:"workload_count"`

	// Derived: power and cost
	PowerWatts  float64 `json:"power_consumption_watts"`
	CostPerHour float64 `json:"cost_per_hour"`
	MonthlyCost float64 `json:"estimated_monthly_cost"`

	// Derived: scores (0-100)
	HealthScore     float64 `json:"health_score"`
	EfficiencyScore float64 `json:"efficiency_score"`

	// Provenance
	DataSource       string  `json:"data_source"`
	ProcessingTimeMS float64 `json:"processing_time_ms"`
}

// GroupSnapshot is the rollup of the member ClusterSnapshots of one logical
// cluster group within a single collection cycle.
type GroupSnapshot struct {
	GroupID   string `json:"group_id"`
	Timestamp int64  `json:"timestamp"`
	Cycle     uint64 `json:"cycle"`

	TotalClusters  int `json:"total_clusters"`
	ActiveClusters int `json:"active_clusters"`
	TotalNodes     int `json:"total_nodes"`

	TotalCostPerHour float64 `json:"total_cost_per_hour"`
	TotalPowerWatts  float64 `json:"total_power_watts"`

	// Averages over Active members only. Zero with NoActiveMembers set when
	// the group has no Active cluster.
	AvgCPUUsage        float64 `json:"avg_cpu_usage"`
	AvgMemoryUsage     float64 `json:"avg_memory_usage"`
	AvgGPUUsage        float64 `json:"avg_gpu_usage"`
	AvgHealthScore     float64 `json:"avg_health_score"`
	AvgEfficiencyScore float64 `json:"avg_efficiency_score"`
	NoActiveMembers    bool    `json:"no_active_members"`

	Members []ClusterSnapshot `json:"members"`
}

// BatchResult reports the per-cluster outcome of one CollectMany call.
// Every requested cluster yields exactly one snapshot; failed clusters are
// represented by synthetic StatusError snapshots rather than omitted.
type BatchResult struct {
	Snapshots []ClusterSnapshot `json:"snapshots"`
	Succeeded int               `json:"succeeded"`
	Total     int               `json:"total"`
}
