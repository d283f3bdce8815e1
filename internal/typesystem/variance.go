package typesystem

import "fmt"

// Variance of a declared type parameter.
type Variance int

const (
	// Invariant parameters must be equivalent: Array{Int} is not an Array{Real}.
	Invariant Variance = iota
	// Covariant parameters follow the subtype relation: Seq{Int} <: Seq{Real}.
	Covariant
)

func (v Variance) String() string {
	switch v {
	case Invariant:
		return "invariant"
	case Covariant:
		return "covariant"
	}
	return fmt.Sprintf("Variance(%d)", int(v))
}

// ParseVariance maps the declaration spelling to a Variance.
// An empty string is invariant.
func ParseVariance(s string) (Variance, error) {
	switch s {
	case "", "invariant", "inv":
		return Invariant, nil
	case "covariant", "co", "+":
		return Covariant, nil
	}
	return Invariant, fmt.Errorf("unknown variance %q", s)
}
