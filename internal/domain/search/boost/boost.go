package boost

import (
	"fmt"
	"math"
)

// MaxBoosts is the maximum number of functional boosts per query.
const MaxBoosts = 16

// Operation combines a boost factor with the document score.
type Operation string

// Boost operations.
const (
	Add      Operation = "ADD"
	Multiply Operation = "MULTIPLY"
)

// Spec adjusts the score of documents whose Field equals Value.
type Spec struct {
	Field     string
	Value     any
	Operation Operation
	Factor    float64
}

// Validate checks a single boost rule.
func (s Spec) Validate() error {
	if s.Field == "" {
		return fmt.Errorf("boost field is required")
	}
	if s.Value == nil {
		return fmt.Errorf("boost value is required for field %q", s.Field)
	}
	switch s.Operation {
	case Add, Multiply:
	default:
		return fmt.Errorf("unknown boost operation %q", s.Operation)
	}
	if math.IsNaN(s.Factor) || math.IsInf(s.Factor, 0) {
		return fmt.Errorf("boost factor for field %q must be finite", s.Field)
	}
	return nil
}

// ValidateAll checks a list of boost rules.
func ValidateAll(specs []Spec) error {
	if len(specs) > MaxBoosts {
		return fmt.Errorf("too many functional boosts (max %d)", MaxBoosts)
	}
	for i, s := range specs {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("boost [%d]: %w", i, err)
		}
	}
	return nil
}
