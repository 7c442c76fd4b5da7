// Package place parses place identifiers from user input.
package place

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kailas-cloud/reviewdex/internal/domain"
)

var (
	rawIDPattern = regexp.MustCompile(`^0x[a-fA-F0-9]+:0x[a-fA-F0-9]+$`)
	// map URLs carry the id in a "!1s<id>" data segment
	urlIDPattern = regexp.MustCompile(`1s(0x[a-fA-F0-9]+:0x[a-fA-F0-9]+)`)
)

// ID is a validated source place identifier of the form 0x<hex>:0x<hex>.
type ID string

func (id ID) String() string { return string(id) }

// Parse accepts a raw identifier or a URL containing one.
func Parse(input string) (ID, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("%w: place is required", domain.ErrValidation)
	}
	if rawIDPattern.MatchString(input) {
		return ID(input), nil
	}
	if m := urlIDPattern.FindStringSubmatch(input); m != nil {
		return ID(m[1]), nil
	}
	return "", fmt.Errorf("%w: cannot extract place identifier from %q", domain.ErrValidation, input)
}
