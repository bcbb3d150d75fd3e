package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/mohitkumar/loanwizard/model"
)

type InvalidWizardTypeError struct {
	WizardType model.WizardType
}

func (e InvalidWizardTypeError) Error() string {
	return fmt.Sprintf("invalid wizard type %q", string(e.WizardType))
}

// StaleStepReferenceError is recoverable: the wizard state is left unchanged.
type StaleStepReferenceError struct {
	WizardType model.WizardType
	StepId     string
}

func (e StaleStepReferenceError) Error() string {
	return fmt.Sprintf("step %q does not exist in wizard %q", e.StepId, string(e.WizardType))
}

type RemoteUnavailableError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e RemoteUnavailableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("workflow service unavailable: %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("workflow service unavailable: %s: %v", e.Op, e.Err)
}

func (e RemoteUnavailableError) Unwrap() error {
	return e.Err
}

type RemoteRunFailedError struct {
	RunId  string
	Detail string
}

func (e RemoteRunFailedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("run %s failed", e.RunId)
	}
	return fmt.Sprintf("run %s failed: %s", e.RunId, e.Detail)
}

type RemoteRunTimeoutError struct {
	RunId    string
	Attempts int
}

func (e RemoteRunTimeoutError) Error() string {
	return fmt.Sprintf("run %s did not finish after %d polls", e.RunId, e.Attempts)
}

type RunInProgressError struct {
	ThreadId string
}

func (e RunInProgressError) Error() string {
	return fmt.Sprintf("thread %s already has a run in progress", e.ThreadId)
}

type InvalidPayloadError struct {
	Op  string
	Err error
}

func (e InvalidPayloadError) Error() string {
	return fmt.Sprintf("invalid payload from workflow service: %s: %v", e.Op, e.Err)
}

func (e InvalidPayloadError) Unwrap() error {
	return e.Err
}

type DefinitionValidationError struct {
	WizardType model.WizardType
	Message    string
}

func (e DefinitionValidationError) Error() string {
	return fmt.Sprintf("invalid wizard definition %q: %s", string(e.WizardType), e.Message)
}

// DisplayError converts an error into the single line shown to the user.
func DisplayError(err error) string {
	if err == nil {
		return ""
	}
	var (
		invalidType InvalidWizardTypeError
		unavailable RemoteUnavailableError
		failed      RemoteRunFailedError
		timeout     RemoteRunTimeoutError
		inProgress  RunInProgressError
		payload     InvalidPayloadError
	)
	switch {
	case errors.As(err, &invalidType):
		return fmt.Sprintf("Unknown application type %q.", string(invalidType.WizardType))
	case errors.As(err, &inProgress):
		return "Still working on your previous message, please wait."
	case errors.As(err, &timeout):
		return "The assistant is taking too long to respond. Please try again."
	case errors.As(err, &failed):
		if failed.Detail != "" {
			return fmt.Sprintf("The assistant could not process your request: %s", failed.Detail)
		}
		return "The assistant could not process your request."
	case errors.As(err, &payload):
		return "Received an unexpected response from the assistant."
	case errors.As(err, &unavailable):
		return "Unable to reach the application service. Please check your connection and try again."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "The request was cancelled."
	}
	return err.Error()
}
