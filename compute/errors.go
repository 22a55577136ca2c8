package compute

import (
	"errors"
	"fmt"
)

var (
	ErrUniformNotFound = errors.New("uniform not found")
	ErrHazard          = errors.New("compute: access to shader writes not made visible by a barrier")
	ErrOutOfBounds     = errors.New("compute: buffer access out of bounds")
	ErrNoComputeStage  = errors.New("compute: program has no compute stage")
	ErrForeignResource = errors.New("compute: resource belongs to another device")
)

// DriverError is a graphics driver error code observed after an operation.
type DriverError struct {
	Op   string
	Code uint32
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("compute: driver error %s (0x%04x) after %s", glErrorName(e.Code), e.Code, e.Op)
}

// UniformError is returned by uniform setters. Err is ErrUniformNotFound or a
// *DriverError.
type UniformError struct {
	Program string
	Name    string
	Err     error
}

func (e *UniformError) Error() string {
	return "compute: program " + e.Program + " uniform " + e.Name + ": " + e.Err.Error()
}

func (e *UniformError) Unwrap() error { return e.Err }

func glErrorName(code uint32) string {
	switch code {
	case 0x0500:
		return "INVALID_ENUM"
	case 0x0501:
		return "INVALID_VALUE"
	case 0x0502:
		return "INVALID_OPERATION"
	case 0x0505:
		return "OUT_OF_MEMORY"
	case 0x0506:
		return "INVALID_FRAMEBUFFER_OPERATION"
	}
	return "UNKNOWN"
}
