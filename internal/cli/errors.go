package cli

import "errors"

// ErrUsage marks errors caused by how simserve was invoked, so main can
// print them plainly and exit with a distinct status code.
var ErrUsage = errors.New("simserve: invalid usage")

type usageError struct {
	msg string
}

func newUsageError(msg string) error {
	return usageError{msg: msg}
}

func (e usageError) Error() string {
	return e.msg
}

func (e usageError) Is(target error) bool {
	return target == ErrUsage
}
