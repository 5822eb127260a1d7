package dbsp

import "fmt"

func newStateDecodeError(opName string, cause error) error {
	return fmt.Errorf("%s: state mismatch: %w", opName, cause)
}
