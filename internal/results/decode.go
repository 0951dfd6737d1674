package results

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/openshift-pipelines/tekton-results-reader/pkg/constants"
	apperrors "github.com/openshift-pipelines/tekton-results-reader/pkg/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	utiljson "k8s.io/apimachinery/pkg/util/json"
)

// DecodeValue base64-decodes a record value. Unpadded input is accepted.
func DecodeValue(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(value, "="))
	}
	if err != nil {
		return nil, apperrors.MalformedResponse([]byte(value), "record value is not valid base64: %v", err)
	}
	return decoded, nil
}

// DecodeValueJSON decodes a record value into an object. An empty value
// decodes to nil. A metadata.deletionTimestamp is replaced by the
// deleted-in-k8s annotation, and every object gets the loaded-from-results
// annotation.
func DecodeValueJSON(value string) (*unstructured.Unstructured, error) {
	if value == "" {
		return nil, nil
	}

	raw, err := DecodeValue(value)
	if err != nil {
		return nil, err
	}

	var object map[string]interface{}
	if err := utiljson.Unmarshal(raw, &object); err != nil {
		return nil, apperrors.MalformedResponse(raw, "record value is not a JSON object: %v", err)
	}
	if object == nil {
		return nil, nil
	}

	obj := &unstructured.Unstructured{Object: object}
	annotations := obj.GetAnnotations()
	if annotations == nil {
		annotations = make(map[string]string, 2)
	}

	if _, deleting, _ := unstructured.NestedFieldNoCopy(obj.Object, "metadata", "deletionTimestamp"); deleting {
		unstructured.RemoveNestedField(obj.Object, "metadata", "deletionTimestamp")
		annotations[constants.AnnotationDeletedInK8s] = "true"
	}
	annotations[constants.AnnotationLoadedFromResults] = "true"
	obj.SetAnnotations(annotations)

	return obj, nil
}

// DecodeRecords decodes every record of a page, in order. Records with an
// empty value yield nil entries.
func DecodeRecords(records []Record) ([]*unstructured.Unstructured, error) {
	items := make([]*unstructured.Unstructured, 0, len(records))
	for i := range records {
		obj, err := DecodeValueJSON(records[i].Data.Value)
		if err != nil {
			var svcErr *apperrors.ServiceError
			if errors.As(err, &svcErr) {
				svcErr.Reason = fmt.Sprintf("record %q: %s", records[i].Name, svcErr.Reason)
				return nil, svcErr
			}
			return nil, fmt.Errorf("failed to decode record %q: %w", records[i].Name, err)
		}
		items = append(items, obj)
	}
	return items, nil
}
