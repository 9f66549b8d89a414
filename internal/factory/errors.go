package factory

import (
	"fmt"

	"github.com/pkg/errors"
)

// MissingTypeDetail is the detail of the error FromConfig returns for a
// configuration without a "type" entry.
const MissingTypeDetail = "Configuration dictionary given does not have an implementation type specification."

// ConfigurationError reports an unusable factory configuration. Detail is
// meant for end users.
type ConfigurationError struct {
	Detail string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return e.Detail + ": " + e.Err.Error()
	}
	return e.Detail
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func configErrorf(format string, args ...any) error {
	return errors.WithStack(&ConfigurationError{Detail: fmt.Sprintf(format, args...)})
}

func configWrap(err error, detail string) error {
	return errors.WithStack(&ConfigurationError{Detail: detail, Err: err})
}
