package main

import (
	"encoding/json"
	"fmt"
	"io"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/yaml"
)

// Output formats
const (
	outputJSON = "json"
	outputYAML = "yaml"
)

// recordsOutput is what records prints
type recordsOutput struct {
	Items         []map[string]interface{} `json:"items"`
	NextPageToken string                   `json:"nextPageToken,omitempty"`
}

func newRecordsOutput(items []*unstructured.Unstructured, nextPageToken string) recordsOutput {
	out := recordsOutput{Items: make([]map[string]interface{}, 0, len(items)), NextPageToken: nextPageToken}
	for _, item := range items {
		if item == nil {
			continue
		}
		out.Items = append(out.Items, item.Object)
	}
	return out
}

// printDocument writes v as indented JSON or as YAML
func printDocument(w io.Writer, format string, v interface{}) error {
	switch format {
	case outputJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		raw, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to render yaml: %w", err)
		}
		_, err = w.Write(raw)
		return err
	default:
		return fmt.Errorf("unknown output format %q (supported: json, yaml)", format)
	}
}
