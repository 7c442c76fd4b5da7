package place

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/reviewdex/internal/domain"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ID
		wantErr bool
	}{
		{
			name:  "raw id",
			input: "0x89c25090129c363d:0x40c6a5770d25022b",
			want:  "0x89c25090129c363d:0x40c6a5770d25022b",
		},
		{
			name:  "raw id with whitespace",
			input: "  0xABC:0xdef\n",
			want:  "0xABC:0xdef",
		},
		{
			name: "maps url",
			input: "https://www.google.com/maps/place/Joe's+Pizza/@40.73,-73.99,17z/" +
				"data=!3m1!4b1!4m6!3m5!1s0x89c25090129c363d:0x40c6a5770d25022b!8m2",
			want: "0x89c25090129c363d:0x40c6a5770d25022b",
		},
		{name: "not an id", input: "not-an-id", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "missing second half", input: "0x89c25090129c363d", wantErr: true},
		{name: "non hex", input: "0xZZ:0x11", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrValidation) {
					t.Fatalf("expected ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse() = %q, want %q", got, tt.want)
			}
		})
	}
}
