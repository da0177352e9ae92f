package domain

import (
	"fmt"
	"regexp"
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Distance identifies the vector distance metric of a collection.
type Distance string

const (
	// DistanceL2 is squared euclidean distance.
	DistanceL2 Distance = "l2"
	// DistanceCosine is cosine distance.
	DistanceCosine Distance = "cosine"
	// DistanceInnerProduct is (negated) inner product similarity.
	DistanceInnerProduct Distance = "inner_product"
)

// IsValid checks if the distance metric is supported.
func (d Distance) IsValid() bool {
	return d == DistanceL2 || d == DistanceCosine || d == DistanceInnerProduct
}

// Addressing distinguishes the two physical collection layouts.
type Addressing string

const (
	// AddressingLegacy is the older name-encoded table layout with no
	// catalog record.
	AddressingLegacy Addressing = "v1"
	// AddressingCatalog is the current catalog/id-encoded layout.
	AddressingCatalog Addressing = "v2"
)

// EmbedderDescriptor is the persisted form of an embedding function:
// a registry name plus plain-data construction properties.
type EmbedderDescriptor struct {
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Validate checks the descriptor is storable as plain structured data.
func (d EmbedderDescriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: embedding function name is required", ErrValidation)
	}
	for k, v := range d.Properties {
		switch v.(type) {
		case nil, bool, string, float64, int, int64:
		default:
			return fmt.Errorf("%w: embedding function property %q has non-scalar value", ErrValidation, k)
		}
	}
	return nil
}

// Descriptor is the resolved identity of one logical collection
// (immutable value object, rebuilt on every resolve).
type Descriptor struct {
	name       string
	addressing Addressing
	id         string // 32 hex chars; empty for legacy collections
	dimension  int
	distance   Distance
	embedder   *EmbedderDescriptor
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: collection name is required", ErrValidation)
	}
	if len(name) > 64 {
		return fmt.Errorf("%w: collection name too long (max 64)", ErrValidation)
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("%w: collection name must be alphanumeric with underscores and hyphens", ErrValidation)
	}
	return nil
}

// NewDescriptor validates and creates a catalog-addressed (v2) Descriptor.
// The id must be 32 lowercase hex characters and is immutable once minted.
func NewDescriptor(name, id string, dimension int, distance Distance, embedder *EmbedderDescriptor) (Descriptor, error) {
	if err := validateName(name); err != nil {
		return Descriptor{}, err
	}
	if !collectionIDRegex.MatchString(id) {
		return Descriptor{}, fmt.Errorf("%w: collection id must be 32 hex characters", ErrValidation)
	}
	if dimension <= 0 {
		return Descriptor{}, fmt.Errorf("%w: dimension must be positive", ErrValidation)
	}
	if !distance.IsValid() {
		return Descriptor{}, fmt.Errorf("%w: invalid distance metric %q", ErrValidation, distance)
	}
	if embedder != nil {
		if err := embedder.Validate(); err != nil {
			return Descriptor{}, err
		}
	}
	return Descriptor{
		name:       name,
		addressing: AddressingCatalog,
		id:         id,
		dimension:  dimension,
		distance:   distance,
		embedder:   embedder,
	}, nil
}

var collectionIDRegex = regexp.MustCompile(`^[0-9a-f]{32}$`)

// NewLegacyDescriptor creates a name-addressed (v1) Descriptor from
// values introspected out of an existing physical table.
func NewLegacyDescriptor(name string, dimension int, distance Distance) (Descriptor, error) {
	if err := validateName(name); err != nil {
		return Descriptor{}, err
	}
	if dimension <= 0 {
		return Descriptor{}, fmt.Errorf("%w: dimension must be positive", ErrValidation)
	}
	if !distance.IsValid() {
		return Descriptor{}, fmt.Errorf("%w: invalid distance metric %q", ErrValidation, distance)
	}
	return Descriptor{
		name:       name,
		addressing: AddressingLegacy,
		dimension:  dimension,
		distance:   distance,
	}, nil
}

// Name returns the logical collection name.
func (d Descriptor) Name() string { return d.name }

// Addressing returns the physical layout generation (v1 or v2).
func (d Descriptor) Addressing() Addressing { return d.addressing }

// ID returns the minted collection id, empty for legacy collections.
func (d Descriptor) ID() string { return d.id }

// Dimension returns the vector width.
func (d Descriptor) Dimension() int { return d.dimension }

// Distance returns the recorded distance metric.
func (d Descriptor) Distance() Distance { return d.distance }

// Embedder returns the persisted embedding-function descriptor, if any.
func (d Descriptor) Embedder() *EmbedderDescriptor { return d.embedder }

// TableName returns the physical table name for this descriptor.
// Legacy collections are addressed by name alone, catalog collections
// by name plus id.
func (d Descriptor) TableName() string {
	if d.addressing == AddressingLegacy {
		return "c_" + d.name
	}
	return "c_" + d.name + "_" + d.id
}

// ValidateName reports whether a caller-supplied collection name is usable.
func ValidateName(name string) error { return validateName(name) }

// MetadataRecord is one row of the shared collection catalog table.
type MetadataRecord struct {
	CollectionName string
	CollectionID   string
	Settings       Settings
}

// Settings is the JSON-encoded settings column of a MetadataRecord.
type Settings struct {
	Configuration Configuration       `json:"configuration"`
	Embedder      *EmbedderDescriptor `json:"embedding_function,omitempty"`
}

// Configuration holds the stored collection configuration.
type Configuration struct {
	Dimension int      `json:"dimension"`
	Distance  Distance `json:"distance"`
}
