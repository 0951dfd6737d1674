package k8s_client

import (
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// GVKFromKindAndApiVersion creates a GroupVersionKind from kind and apiVersion strings,
// e.g. ("TektonResult", "operator.tekton.dev/v1alpha1").
func GVKFromKindAndApiVersion(kind, apiVersion string) (schema.GroupVersionKind, error) {
	gv, err := schema.ParseGroupVersion(apiVersion)
	if err != nil {
		return schema.GroupVersionKind{}, err
	}

	return schema.GroupVersionKind{
		Group:   gv.Group,
		Version: gv.Version,
		Kind:    kind,
	}, nil
}
