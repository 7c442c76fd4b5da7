package db

import (
	"errors"
	"strings"
	"testing"
)

func TestIndexBuilder_ReviewSchema(t *testing.T) {
	idx, err := NewIndex("reviewdex:reviews:idx").
		Prefix("reviewdex:reviews:").
		Tag("tenant", "|", true).
		VectorHNSW("__vector", "vector", 1536, DistanceCosine, 16, 200).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(idx.Fields) != 2 {
		t.Fatalf("fields count = %d, want 2", len(idx.Fields))
	}
	tag := idx.Fields[0]
	if tag.Type != IndexFieldTag || tag.TagSeparator != "|" || !tag.TagCaseSensitive {
		t.Errorf("unexpected tag field: %+v", tag)
	}
	vec := idx.Fields[1]
	if vec.Alias != "vector" || vec.VectorDim != 1536 || vec.VectorM != 16 || vec.VectorEFConstruct != 200 {
		t.Errorf("unexpected vector field: %+v", vec)
	}
}

func TestIndexBuilder_Validation(t *testing.T) {
	tests := []struct {
		name string
		b    *IndexBuilder
	}{
		{"empty name", NewIndex("").Tag("t", "", false)},
		{"invalid name", NewIndex("bad name").Tag("t", "", false)},
		{"no fields", NewIndex("idx")},
		{"zero dim", NewIndex("idx").VectorHNSW("v", "", 0, DistanceCosine, 0, 0)},
		{"duplicate alias", NewIndex("idx").Tag("vector", "", false).VectorHNSW("__vector", "vector", 3, DistanceCosine, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.b.Build(); !errors.Is(err, ErrInvalidIndex) {
				t.Errorf("expected ErrInvalidIndex, got %v", err)
			}
		})
	}
}

func TestIndexDefinition_String(t *testing.T) {
	idx, err := NewIndex("idx").
		Prefix("doc:").
		Tag("tenant", "|", true).
		VectorHNSW("__vector", "vector", 4, DistanceCosine, 0, 0).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := idx.String()
	for _, want := range []string{"FT.CREATE idx ON HASH", "PREFIX 1 doc:", "tenant TAG", "__vector AS vector VECTOR HNSW"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}

func TestIsValidIdentifier(t *testing.T) {
	valid := []string{"reviews", "reviewdex:reviews:idx", "a-b_c"}
	for _, s := range valid {
		if !IsValidIdentifier(s) {
			t.Errorf("expected %q valid", s)
		}
	}
	invalid := []string{"", "a b", "a/b", "ключ"}
	for _, s := range invalid {
		if IsValidIdentifier(s) {
			t.Errorf("expected %q invalid", s)
		}
	}
}

func TestIndexDefinition_Args(t *testing.T) {
	idx := &IndexDefinition{
		Name:     "reviews:idx",
		Prefixes: []string{"reviews:"},
		Fields: []IndexField{
			{Name: "tenant", Type: IndexFieldTag, TagSeparator: "|", TagCaseSensitive: true},
			{Name: "__vector", Alias: "vector", Type: IndexFieldVector, VectorDim: 8, VectorM: 16, VectorEFConstruct: 200},
		},
	}
	args, err := idx.Args()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "reviews:idx ON HASH PREFIX 1 reviews: SCHEMA " +
		"tenant TAG SEPARATOR | CASESENSITIVE " +
		"__vector AS vector VECTOR HNSW 10 TYPE FLOAT32 DIM 8 DISTANCE_METRIC COSINE M 16 EF_CONSTRUCTION 200"
	if got := strings.Join(args, " "); got != want {
		t.Errorf("args:\n got %s\nwant %s", got, want)
	}
}

func TestIndexField_Errors(t *testing.T) {
	fields := []IndexField{
		{},
		{Name: "v", Type: IndexFieldVector},
		{Name: "x", Type: IndexFieldType(99)},
	}
	for _, f := range fields {
		if _, err := f.args(); !errors.Is(err, ErrInvalidIndex) {
			t.Errorf("field %+v: expected ErrInvalidIndex, got %v", f, err)
		}
	}
}

func TestIndexDefinition_StringInvalid(t *testing.T) {
	s := (&IndexDefinition{Name: "idx"}).String()
	if !strings.HasPrefix(s, "invalid index:") {
		t.Errorf("String() = %q", s)
	}
}
