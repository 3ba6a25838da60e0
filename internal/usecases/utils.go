package usecases

import (
	"fmt"
	"math/big"
	"strings"
)

// validateDecimalAmount checks that s is a plain positive decimal number.
// The value itself is carried through the system as the exact string the
// merchant supplied; only its shape is checked here.
func validateDecimalAmount(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("amount is required")
	}
	for _, c := range s {
		if (c < '0' || c > '9') && c != '.' {
			return fmt.Errorf("amount %q is not a decimal number", s)
		}
	}
	if strings.Count(s, ".") > 1 {
		return fmt.Errorf("amount %q is not a decimal number", s)
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return fmt.Errorf("amount %q is not a decimal number", s)
	}
	if r.Sign() <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	return nil
}
