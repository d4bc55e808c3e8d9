package criteria

import "fmt"

// InvalidKeyError is returned when a caller pushes a standing criterion
// under one of the reserved settings keys. Those keys are owned by the
// settings sync and would be silently overwritten on the next settings
// change.
type InvalidKeyError struct {
	Key string
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("criteria key %q is reserved for repository settings", e.Key)
}
