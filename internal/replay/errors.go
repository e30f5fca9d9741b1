package replay

import "fmt"

// ConfigError marks a failure caused by invalid configuration or flags. The
// CLI maps it to its own exit status so operators can tell a bad invocation
// from bad input data.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("config: %v", e.Err) }
func (e *ConfigError) Unwrap() error { return e.Err }

// DataError marks a failure caused by the input dataset: unreadable files,
// missing columns, or a malformed-row rate above the ceiling.
type DataError struct {
	Err error
}

func (e *DataError) Error() string { return fmt.Sprintf("data: %v", e.Err) }
func (e *DataError) Unwrap() error { return e.Err }

func configErrorf(format string, args ...any) error {
	return &ConfigError{Err: fmt.Errorf(format, args...)}
}

func dataError(err error) error {
	return &DataError{Err: err}
}
