package coolfhir

import (
	"encoding/json"
	"fmt"

	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

// UnmarshalBundleEntries decodes every entry resource of a search bundle into
// T. Entries without a resource (e.g. outcome-only entries) are skipped. The
// result is never nil, so an empty bundle serializes as an empty array.
func UnmarshalBundleEntries[T any](bundle fhir.Bundle) ([]T, error) {
	results := make([]T, 0, len(bundle.Entry))
	for i, entry := range bundle.Entry {
		if len(entry.Resource) == 0 {
			continue
		}
		var resource T
		if err := json.Unmarshal(entry.Resource, &resource); err != nil {
			return nil, fmt.Errorf("unmarshal bundle entry %d: %w", i, err)
		}
		results = append(results, resource)
	}
	return results, nil
}
