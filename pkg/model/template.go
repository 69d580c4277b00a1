package model

// TemplateProfile is the cost and power metadata of a cluster template,
// used by the cost model to turn utilization into watts and dollars.
type TemplateProfile struct {
	TemplateID      string  `json:"template_id"`
	Name            string  `json:"name"`
	BaseCostPerHour float64 `json:"base_cost_per_hour"` // per worker node
	HasGPU          bool    `json:"has_gpu"`
	PowerPerNode    float64 `json:"power_per_node_watts"` // rated draw per node
}
