package block

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// A DuplicateSignalError is returned when adding a signal whose name is already taken.
type DuplicateSignalError struct {
	Name string
}

func (e *DuplicateSignalError) Error() string {
	return fmt.Sprintf("signal %q already exists", e.Name)
}

// A SignalInUseError is returned when removing a signal that a registered block still references.
type SignalInUseError struct {
	Name  string
	Kind  Kind
	Label string
}

func (e *SignalInUseError) Error() string {
	return fmt.Sprintf("signal %q is in use by %s %q", e.Name, e.Kind, e.Label)
}

// An UnknownSignalError is returned when operating on a signal that does not exist.
type UnknownSignalError struct {
	Name string
}

func (e *UnknownSignalError) Error() string {
	return fmt.Sprintf("signal %q does not exist", e.Name)
}

// An UnknownBlockError is returned when operating on a label that is not registered.
type UnknownBlockError struct {
	Kind  Kind
	Label string
}

func (e *UnknownBlockError) Error() string {
	return fmt.Sprintf("%s %q does not exist", e.Kind, e.Label)
}

// An UnsupportedOperationError is returned by Read on a block that only consumes values, or by
// Write on a block that only produces them.
type UnsupportedOperationError struct {
	Block     string
	Operation string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s does not support %s", e.Block, e.Operation)
}

// An UnsupportedPropertyError is returned by Set for keys the block does not know how to set.
type UnsupportedPropertyError struct {
	Keys []string
}

func (e *UnsupportedPropertyError) Error() string {
	return fmt.Sprintf("does not know how to set %s", strings.Join(e.Keys, ", "))
}

// An UnknownKeyError is returned when querying a property that a block does not expose.
type UnknownKeyError struct {
	Key string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown property %q", e.Key)
}

// A PortMismatchError is returned when a block produces a different number of values than it has
// outputs wired.
type PortMismatchError struct {
	Kind  Kind
	Label string
	Want  int
	Got   int
}

func (e *PortMismatchError) Error() string {
	return fmt.Sprintf("%s %q produced %d values for %d outputs", e.Kind, e.Label, e.Got, e.Want)
}

// IsDuplicateSignalError returns if the given error is a DuplicateSignalError.
func IsDuplicateSignalError(err error) bool {
	var target *DuplicateSignalError
	return errors.As(err, &target)
}

// IsSignalInUseError returns if the given error is a SignalInUseError.
func IsSignalInUseError(err error) bool {
	var target *SignalInUseError
	return errors.As(err, &target)
}

// IsUnknownSignalError returns if the given error is an UnknownSignalError.
func IsUnknownSignalError(err error) bool {
	var target *UnknownSignalError
	return errors.As(err, &target)
}

// IsUnknownBlockError returns if the given error is an UnknownBlockError.
func IsUnknownBlockError(err error) bool {
	var target *UnknownBlockError
	return errors.As(err, &target)
}

// IsUnsupportedOperationError returns if the given error is an UnsupportedOperationError.
func IsUnsupportedOperationError(err error) bool {
	var target *UnsupportedOperationError
	return errors.As(err, &target)
}

// IsUnsupportedPropertyError returns if the given error is an UnsupportedPropertyError.
func IsUnsupportedPropertyError(err error) bool {
	var target *UnsupportedPropertyError
	return errors.As(err, &target)
}

// IsUnknownKeyError returns if the given error is an UnknownKeyError.
func IsUnknownKeyError(err error) bool {
	var target *UnknownKeyError
	return errors.As(err, &target)
}

// IsPortMismatchError returns if the given error is a PortMismatchError.
func IsPortMismatchError(err error) bool {
	var target *PortMismatchError
	return errors.As(err, &target)
}
