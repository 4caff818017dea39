package main

import (
	"errors"
	"fmt"
)

// errConfiguration marks every problem found in the run configuration, the
// mapping document or the inheritance mapping. These are reported before
// anything is written to the target.
var errConfiguration = errors.New("configuration error")

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errConfiguration, fmt.Sprintf(format, args...))
}
