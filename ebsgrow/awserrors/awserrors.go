package awserrors

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"go.uber.org/multierr"
)

type ErrorMessage struct {
	HTTPCode int
	Message  string
}

// StageError carries the workflow stage that failed, the volume it failed
// on and the underlying provider error.
type StageError struct {
	Code     string
	VolumeID string
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s. Exception: %v", Lookup(e.Code).Message, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewError creates a StageError for code.
func NewError(code, volumeID string, err error) *StageError {
	return &StageError{Code: code, VolumeID: volumeID, Err: err}
}

// NewErrorf creates a StageError with a formatted cause.
func NewErrorf(code, volumeID, format string, args ...any) *StageError {
	return &StageError{Code: code, VolumeID: volumeID, Err: fmt.Errorf(format, args...)}
}

var (
	ErrorFilterVolumes         = "FilterVolumes"
	ErrorCreateSnapshot        = "CreateSnapshot"
	ErrorSnapshotNotCompleted  = "SnapshotNotCompleted"
	ErrorSnapshotWait          = "SnapshotWait"
	ErrorTagSnapshot           = "TagSnapshot"
	ErrorVolumeSize            = "VolumeSize"
	ErrorExtendVolume          = "ExtendVolume"
	ErrorModificationTimedOut  = "ModificationTimedOut"
	ErrorMainDisk              = "MainDisk"
	ErrorExtendFilesystem      = "ExtendFilesystem"
	ErrorInvalidParameterValue = "InvalidParameterValue"
	ErrorInternalError         = "InternalError"
)

var ErrorLookup = map[string]ErrorMessage{
	ErrorFilterVolumes:         {HTTPCode: 400, Message: "Unable to filter volumes"},
	ErrorCreateSnapshot:        {HTTPCode: 400, Message: "Unable to create snapshot"},
	ErrorSnapshotNotCompleted:  {HTTPCode: 400, Message: "Snapshot not completed"},
	ErrorSnapshotWait:          {HTTPCode: 400, Message: "Unable to wait for snapshot"},
	ErrorTagSnapshot:           {HTTPCode: 400, Message: "Unable to tag snapshot"},
	ErrorVolumeSize:            {HTTPCode: 400, Message: "Unable to get volume size"},
	ErrorExtendVolume:          {HTTPCode: 400, Message: "Unable to extend volume"},
	ErrorModificationTimedOut:  {HTTPCode: 400, Message: "Volume modification timed out"},
	ErrorMainDisk:              {HTTPCode: 400, Message: "Unable to get main disk"},
	ErrorExtendFilesystem:      {HTTPCode: 400, Message: "Unable to extend filesystem"},
	ErrorInvalidParameterValue: {HTTPCode: 400, Message: "Invalid request parameter"},
	ErrorInternalError:         {HTTPCode: 500, Message: "The request processing has failed because of an unknown error"},
}

// Lookup returns the ErrorMessage for code, falling back to InternalError.
func Lookup(code string) ErrorMessage {
	if msg, ok := ErrorLookup[code]; ok {
		return msg
	}
	return ErrorLookup[ErrorInternalError]
}

// HTTPCode maps err to the status code returned to the caller. Errors that
// are not StageErrors are internal. Combined errors, from multierr or
// errors.Join, take the highest code of their parts, so a plain part makes the
// whole error internal. Add context with fmt.Errorf and %w to keep the stage
// code.
func HTTPCode(err error) int {
	if err == nil {
		return 200
	}

	code := 0
	for _, e := range multierr.Errors(err) {
		var stageErr *StageError
		c := ErrorLookup[ErrorInternalError].HTTPCode
		if errors.As(e, &stageErr) {
			c = Lookup(stageErr.Code).HTTPCode
		}
		if c > code {
			code = c
		}
	}
	return code
}

// Code returns the stage code of err, or InternalError.
func Code(err error) string {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Code
	}
	return ErrorInternalError
}

// AWSCode extracts the provider error code from an aws-sdk-go error.
func AWSCode(err error) string {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		return aerr.Code()
	}
	return ""
}

// IsTransient reports whether err is a throttling or retryable provider error
// that a later attempt may not hit.
func IsTransient(err error) bool {
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return false
	}
	return request.IsErrorThrottle(aerr) || request.IsErrorRetryable(aerr)
}

// WaiterMaxAttemptsMessage is the message aws-sdk-go uses when a waiter runs
// out of attempts. A failure acceptor shares the error code but not the message.
const WaiterMaxAttemptsMessage = "exceeded wait attempts"

// IsWaiterMaxAttempts reports whether err is the SDK waiter giving up after
// its maximum number of attempts.
func IsWaiterMaxAttempts(err error) bool {
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return false
	}
	return aerr.Code() == request.WaiterResourceNotReadyErrorCode && aerr.Message() == WaiterMaxAttemptsMessage
}
