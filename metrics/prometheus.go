package metrics

import "github.com/docker/go-metrics"

const (
	// NamespacePrefix is the namespace of prometheus metrics
	NamespacePrefix = "resourcex"
)

var (
	// StorageNamespace is the prometheus namespace of blob/manifest related operations
	StorageNamespace = metrics.NewNamespace(NamespacePrefix, "storage", nil)

	// ResolverNamespace is the prometheus namespace of resolution pipeline operations
	ResolverNamespace = metrics.NewNamespace(NamespacePrefix, "resolver", nil)
)
