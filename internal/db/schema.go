package db

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DistanceMetric used by FT.SEARCH vector similarity queries.
type DistanceMetric string

// Supported metrics.
const (
	DistanceCosine DistanceMetric = "COSINE"
	DistanceL2     DistanceMetric = "L2"
)

// IndexFieldType enumerates supported FT index field types.
type IndexFieldType int

// Field types.
const (
	IndexFieldTag IndexFieldType = iota
	IndexFieldVector
)

var identRe = regexp.MustCompile(`^[a-zA-Z0-9_:-]+$`)

// IndexField describes a single field in an FT index schema.
type IndexField struct {
	Name  string
	Alias string // AS alias in FT.CREATE SCHEMA
	Type  IndexFieldType

	TagSeparator     string
	TagCaseSensitive bool

	// HNSW over FLOAT32
	VectorDim         int
	VectorDistance    DistanceMetric
	VectorM           int
	VectorEFConstruct int
}

// attr is the name queries refer to.
func (f *IndexField) attr() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

func (f *IndexField) args() ([]string, error) {
	if f.Name == "" {
		return nil, fmt.Errorf("%w: field name is required", ErrInvalidIndex)
	}
	args := []string{f.Name}
	if f.Alias != "" {
		args = append(args, "AS", f.Alias)
	}

	switch f.Type {
	case IndexFieldTag:
		args = append(args, "TAG")
		if f.TagSeparator != "" {
			args = append(args, "SEPARATOR", f.TagSeparator)
		}
		if f.TagCaseSensitive {
			args = append(args, "CASESENSITIVE")
		}
	case IndexFieldVector:
		if f.VectorDim <= 0 {
			return nil, fmt.Errorf("%w: vector field %s needs a positive DIM", ErrInvalidIndex, f.Name)
		}
		args = append(args, f.hnswArgs()...)
	default:
		return nil, fmt.Errorf("%w: field %s has unknown type %d", ErrInvalidIndex, f.Name, f.Type)
	}
	return args, nil
}

func (f *IndexField) hnswArgs() []string {
	distance := f.VectorDistance
	if distance == "" {
		distance = DistanceCosine
	}
	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(f.VectorDim),
		"DISTANCE_METRIC", string(distance),
	}
	if f.VectorM > 0 {
		attrs = append(attrs, "M", strconv.Itoa(f.VectorM))
	}
	if f.VectorEFConstruct > 0 {
		attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(f.VectorEFConstruct))
	}
	// HNSW <nargs> считает пары ключ-значение поштучно
	return append([]string{"VECTOR", "HNSW", strconv.Itoa(len(attrs))}, attrs...)
}

// IndexDefinition is a HASH-backed FT index definition used by FT.CREATE.
type IndexDefinition struct {
	Name     string
	Prefixes []string
	Fields   []IndexField
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	_, err := idx.Args()
	return err
}

// Args renders the FT.CREATE arguments that follow the command name.
func (idx *IndexDefinition) Args() ([]string, error) {
	if !identRe.MatchString(idx.Name) {
		return nil, fmt.Errorf("%w: index name %q must match %s", ErrInvalidIndex, idx.Name, identRe)
	}
	if len(idx.Fields) == 0 {
		return nil, fmt.Errorf("%w: index %s has no fields", ErrInvalidIndex, idx.Name)
	}

	args := []string{idx.Name, "ON", "HASH"}
	if len(idx.Prefixes) > 0 {
		args = append(args, "PREFIX", strconv.Itoa(len(idx.Prefixes)))
		args = append(args, idx.Prefixes...)
	}
	args = append(args, "SCHEMA")

	seen := make(map[string]struct{}, len(idx.Fields))
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if _, dup := seen[f.attr()]; dup && f.Name != "" {
			return nil, fmt.Errorf("%w: duplicate field %s", ErrInvalidIndex, f.attr())
		}
		seen[f.attr()] = struct{}{}

		fa, err := f.args()
		if err != nil {
			return nil, err
		}
		args = append(args, fa...)
	}
	return args, nil
}

// String returns the FT.CREATE command for logs, or the validation error.
func (idx *IndexDefinition) String() string {
	args, err := idx.Args()
	if err != nil {
		return "invalid index: " + err.Error()
	}
	return "FT.CREATE " + strings.Join(args, " ")
}

// IsValidIdentifier reports whether s is usable as an index name.
func IsValidIdentifier(s string) bool {
	return identRe.MatchString(s)
}

// IndexBuilder is a fluent builder for FT index definitions.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts building an FT index definition.
func NewIndex(name string) *IndexBuilder {
	return &IndexBuilder{def: IndexDefinition{Name: name}}
}

// Prefix adds key prefixes to the index.
func (b *IndexBuilder) Prefix(prefixes ...string) *IndexBuilder {
	b.def.Prefixes = append(b.def.Prefixes, prefixes...)
	return b
}

// Tag adds a TAG field.
func (b *IndexBuilder) Tag(name, separator string, caseSensitive bool) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{
		Name:             name,
		Type:             IndexFieldTag,
		TagSeparator:     separator,
		TagCaseSensitive: caseSensitive,
	})
	return b
}

// VectorHNSW adds an HNSW VECTOR field stored under name and queried as alias.
func (b *IndexBuilder) VectorHNSW(
	name, alias string, dim int, distance DistanceMetric, m, efConstruct int,
) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{
		Name:              name,
		Alias:             alias,
		Type:              IndexFieldVector,
		VectorDim:         dim,
		VectorDistance:    distance,
		VectorM:           m,
		VectorEFConstruct: efConstruct,
	})
	return b
}

// Build validates and returns the index definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	return &b.def, nil
}
