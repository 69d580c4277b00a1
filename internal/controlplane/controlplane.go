// Package controlplane defines the contract to the external cluster
// control plane and its Cluster API backed implementation. Lifecycle
// operations (create/resize/delete) belong to the control plane itself and
// are deliberately absent here.
package controlplane

import (
	"context"
	"errors"

	"github.com/kcloudops/kcloud-monitor/pkg/model"
)

// ErrNotFound is returned when the control plane has no cluster with the
// requested name.
var ErrNotFound = errors.New("controlplane: cluster not found")

// Cluster is the basic status and topology record of one managed cluster.
type Cluster struct {
	Name         string
	Status       model.ClusterStatus
	HealthStatus string
	NodeCount    int
	MasterCount  int
	TemplateID   string
	APIAddress   string
}

// ControlPlane is the read contract the collector depends on.
type ControlPlane interface {
	// GetCluster returns one cluster's record, or ErrNotFound.
	GetCluster(ctx context.Context, name string) (Cluster, error)
	// ListClusters returns every cluster the control plane manages.
	ListClusters(ctx context.Context) ([]Cluster, error)
}
