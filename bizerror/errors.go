package bizerror

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrUnauthenticated = errors.New("unauthenticated")
var ErrForbidden = errors.New("forbidden")

var ErrUnknownState = errors.New("unknown state")
var ErrStateExisted = errors.New("state existed")
var ErrStateInvalid = errors.New("state invalid")
var ErrTemplateExisted = errors.New("workflow template existed")
var ErrTransitionExisted = errors.New("transition existed")
var ErrDuplicateInitialState = errors.New("only one initial state allowed per workflow template")
var ErrCrossTemplateState = errors.New("states must belong to the same workflow template")
var ErrInvalidTransition = errors.New("transition is not valid from the current state")
var ErrInvalidStatus = errors.New("unknown status value")

type BizError interface {
	Respond() *BizErrorDetail
}

type BizErrorDetail struct {
	Status  int
	Code    string
	Message string

	Data  interface{}
	Cause error
}

type ErrBadParam struct {
	Cause error
}

func (e *ErrBadParam) Unwrap() error {
	return e.Cause
}
func (e *ErrBadParam) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "common.bad_param"
}
func (e *ErrBadParam) Respond() *BizErrorDetail {
	message := "common.bad_param"
	if e.Cause != nil {
		message = e.Cause.Error()
	}
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: "common.bad_param", Message: message, Data: nil}
}

// guard identifiers carried by ErrGuardViolation
const (
	GuardCurrentState     = "current_state"
	GuardRole             = "role"
	GuardPermission       = "permission"
	GuardComment          = "comment"
	GuardSubtasksComplete = "subtasks_complete"
	GuardAssignee         = "assignee"
)

// ErrGuardViolation reports exactly which transition guard failed. The entity is unchanged.
type ErrGuardViolation struct {
	Guard   string
	Message string
}

func (e *ErrGuardViolation) Error() string {
	return fmt.Sprintf("guard violation [%s]: %s", e.Guard, e.Message)
}
func (e *ErrGuardViolation) Respond() *BizErrorDetail {
	return &BizErrorDetail{Status: http.StatusConflict, Code: "workflow.guard_violation." + e.Guard,
		Message: e.Message, Data: nil}
}

// ErrInvalidDates rejects a feature write whose dates break ordering or window rules.
type ErrInvalidDates struct {
	Field   string
	Message string
}

func (e *ErrInvalidDates) Error() string {
	return fmt.Sprintf("invalid dates [%s]: %s", e.Field, e.Message)
}
func (e *ErrInvalidDates) Respond() *BizErrorDetail {
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: "feature.invalid_dates",
		Message: e.Message, Data: e.Field}
}

// ErrInvalidDependency rejects a feature dependency update (scope rule or cycle).
type ErrInvalidDependency struct {
	Message string
}

func (e *ErrInvalidDependency) Error() string {
	return "invalid dependency: " + e.Message
}
func (e *ErrInvalidDependency) Respond() *BizErrorDetail {
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: "feature.invalid_dependency",
		Message: e.Message, Data: nil}
}

// ErrInvalidRule rejects a workflow rule whose action configuration does not match
// the schema of its action type.
type ErrInvalidRule struct {
	Message string
	Data    interface{}
}

func (e *ErrInvalidRule) Error() string {
	return "invalid rule: " + e.Message
}
func (e *ErrInvalidRule) Respond() *BizErrorDetail {
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: "workflow.invalid_rule",
		Message: e.Message, Data: e.Data}
}
