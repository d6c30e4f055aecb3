package hook

import "fmt"

// ErrHookTypeEmpty is returned when a hook type is empty.
var ErrHookTypeEmpty = fmt.Errorf("hook type cannot be empty")

// ErrUnsupportedHookType is returned when an unknown hook type is used.
func ErrUnsupportedHookType(hookType string) error {
	return fmt.Errorf("unsupported hook type: %s", hookType)
}
