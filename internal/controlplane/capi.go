package controlplane

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"

	"github.com/kcloudops/kcloud-monitor/pkg/model"
)

var clusterGVR = schema.GroupVersionResource{
	Group:    "cluster.x-k8s.io",
	Version:  "v1beta1",
	Resource: "clusters",
}

// templateAnnotation names the cost template a Cluster object was provisioned
// from. Clusters without it fall back to the topology class, then to the
// default profile downstream.
const templateAnnotation = "kcloud.io/template"

// CAPIClient reads Cluster API Cluster objects through the dynamic client.
type CAPIClient struct {
	client    dynamic.Interface
	namespace string
}

// NewCAPIClient creates a control-plane client scoped to one namespace.
// An empty namespace reads clusters fleet-wide.
func NewCAPIClient(client dynamic.Interface, namespace string) *CAPIClient {
	return &CAPIClient{client: client, namespace: namespace}
}

// GetCluster implements ControlPlane.
func (c *CAPIClient) GetCluster(ctx context.Context, name string) (Cluster, error) {
	obj, err := c.client.Resource(clusterGVR).Namespace(c.namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return Cluster{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return Cluster{}, fmt.Errorf("controlplane: get cluster %s: %w", name, err)
	}
	return clusterFromObject(obj), nil
}

// ListClusters implements ControlPlane.
func (c *CAPIClient) ListClusters(ctx context.Context) ([]Cluster, error) {
	list, err := c.client.Resource(clusterGVR).Namespace(c.namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("controlplane: list clusters: %w", err)
	}
	clusters := make([]Cluster, 0, len(list.Items))
	for i := range list.Items {
		clusters = append(clusters, clusterFromObject(&list.Items[i]))
	}
	return clusters, nil
}

func clusterFromObject(obj *unstructured.Unstructured) Cluster {
	cl := Cluster{
		Name: obj.GetName(),
	}

	phase, _, _ := unstructured.NestedString(obj.Object, "status", "phase")
	cl.Status = statusFromPhase(phase)

	host, _, _ := unstructured.NestedString(obj.Object, "spec", "controlPlaneEndpoint", "host")
	port, _, _ := unstructured.NestedInt64(obj.Object, "spec", "controlPlaneEndpoint", "port")
	if host != "" {
		cl.APIAddress = fmt.Sprintf("https://%s:%d", host, port)
	}

	cl.TemplateID = obj.GetAnnotations()[templateAnnotation]
	if cl.TemplateID == "" {
		cl.TemplateID, _, _ = unstructured.NestedString(obj.Object, "spec", "topology", "class")
	}

	cpReplicas, _, _ := unstructured.NestedInt64(obj.Object, "spec", "topology", "controlPlane", "replicas")
	cl.MasterCount = int(cpReplicas)

	mds, _, _ := unstructured.NestedSlice(obj.Object, "spec", "topology", "workers", "machineDeployments")
	for _, md := range mds {
		m, ok := md.(map[string]interface{})
		if !ok {
			continue
		}
		replicas, _, _ := unstructured.NestedInt64(m, "replicas")
		cl.NodeCount += int(replicas)
	}

	cl.HealthStatus = healthFromConditions(obj)
	return cl
}

func statusFromPhase(phase string) model.ClusterStatus {
	switch phase {
	case "Provisioning", "Pending":
		return model.StatusCreating
	case "Provisioned":
		return model.StatusActive
	case "ScalingUp", "ScalingDown", "Updating":
		return model.StatusUpdating
	case "Deleting":
		return model.StatusDeleting
	case "Failed":
		return model.StatusFailed
	default:
		return model.StatusUnknown
	}
}

func healthFromConditions(obj *unstructured.Unstructured) string {
	conds, _, _ := unstructured.NestedSlice(obj.Object, "status", "conditions")
	for _, c := range conds {
		m, ok := c.(map[string]interface{})
		if !ok {
			continue
		}
		condType, _, _ := unstructured.NestedString(m, "type")
		if condType != "Ready" {
			continue
		}
		status, _, _ := unstructured.NestedString(m, "status")
		if status == "True" {
			return "HEALTHY"
		}
		return "UNHEALTHY"
	}
	return "UNKNOWN"
}
