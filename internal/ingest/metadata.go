package ingest

import "encoding/json"

// GuardMetadata bounds-checks an event's metadata payload. Payloads
// whose JSON serialization exceeds MaxMetadataBytes are replaced with a
// warning record carrying the original byte size; ingestion never fails
// solely because metadata is too large. Nil stays nil.
func GuardMetadata(metadata map[string]interface{}) map[string]interface{} {
	if metadata == nil {
		return nil
	}

	raw, err := json.Marshal(metadata)
	if err != nil {
		// Metadata arrives via JSON binding, so it always re-serializes;
		// pass through and let the event marshal surface any failure.
		return metadata
	}

	if len(raw) > MaxMetadataBytes {
		return map[string]interface{}{
			"warning":      metadataWarning,
			"originalSize": len(raw),
		}
	}
	return metadata
}
