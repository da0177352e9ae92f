package domain

import "fmt"

// Record is one row of a collection: id plus optional document text,
// structured metadata and embedding vector. Nil fields were either not
// stored or not requested.
type Record struct {
	ID        string
	Document  *string
	Metadata  map[string]any
	Embedding []float32
	Distance  *float64 // populated by similarity queries only
}

// MaxDocumentSize is the maximum document size in bytes.
const MaxDocumentSize = 163840 // 160KB

// ValidateID checks a caller-supplied record id.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: record id is required", ErrValidation)
	}
	if len(id) > 512 {
		return fmt.Errorf("%w: record id too long (max 512 bytes)", ErrValidation)
	}
	return nil
}

// ValidateIDs checks ids are present, valid and unique within a batch.
func ValidateIDs(ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one id is required", ErrValidation)
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if err := ValidateID(id); err != nil {
			return err
		}
		if seen[id] {
			return fmt.Errorf("%w: duplicate id %q in batch", ErrValidation, id)
		}
		seen[id] = true
	}
	return nil
}
