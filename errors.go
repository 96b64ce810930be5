package resultboard

import (
	"fmt"
	"time"
)

// ErrorCode classifies an operational error reported by a backend.
type ErrorCode string

const (
	CodeAnalysisError     ErrorCode = "ANALYSIS_ERROR"
	CodeAnalysisTimeout   ErrorCode = "ANALYSIS_TIMEOUT"
	CodeAnalysisCancelled ErrorCode = "ANALYSIS_CANCELLED"

	CodePythonExecution ErrorCode = "PYTHON_EXECUTION"
	CodePythonSyntax    ErrorCode = "PYTHON_SYNTAX"
	CodePythonImport    ErrorCode = "PYTHON_IMPORT"
	CodePythonMemory    ErrorCode = "PYTHON_MEMORY"

	CodeDataNotFound ErrorCode = "DATA_NOT_FOUND"
	CodeDataInvalid  ErrorCode = "DATA_INVALID"
	CodeDataEmpty    ErrorCode = "DATA_EMPTY"
	CodeDataTooLarge ErrorCode = "DATA_TOO_LARGE"

	CodeConnectionFailed  ErrorCode = "CONNECTION_FAILED"
	CodeConnectionTimeout ErrorCode = "CONNECTION_TIMEOUT"

	CodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	CodeResourceBusy     ErrorCode = "RESOURCE_BUSY"
	CodeResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"
)

type codeInfo struct {
	message     string
	suggestions []string
}

var codeTable = map[ErrorCode]codeInfo{
	CodeAnalysisError: {"An error occurred during analysis", []string{
		"Check that your question is clear and specific",
		"Try simplifying the query conditions",
		"If the problem persists, refresh the page and try again",
	}},
	CodeAnalysisTimeout: {"The analysis timed out, please try again later", []string{
		"Try simplifying the query or narrowing the data range",
		"Check that your network connection is stable",
		"Try again later, the system may be busy with other tasks",
	}},
	CodeAnalysisCancelled: {"The analysis was cancelled", []string{
		"You can start the analysis again",
		"If this was a mistake, submit the same query again",
	}},
	CodePythonExecution: {"Code execution failed", []string{
		"Check that the data format is correct",
		"Try a different analysis approach",
		"If the problem persists, contact support",
	}},
	CodePythonSyntax: {"The generated code has a syntax error", []string{
		"The generated code contains a syntax problem",
		"Try describing your analysis differently",
		"Use a simpler query",
	}},
	CodePythonImport: {"A required analysis library is missing", []string{
		"The required analysis library may not be installed",
		"Ask an administrator to check the system configuration",
		"Try a different analysis method",
	}},
	CodePythonMemory: {"Out of memory, the data set may be too large", []string{
		"Reduce the query range",
		"Try processing the data in batches",
		"Try again later, the system may be freeing resources",
	}},
	CodeDataNotFound: {"The requested data was not found", []string{
		"Check that the data source is configured correctly",
		"Confirm the table and field names in the query",
		"Check whether the data was deleted or moved",
	}},
	CodeDataInvalid: {"The data format is invalid", []string{
		"Check that the data format meets the requirements",
		"Confirm the data types are correct",
		"Try cleaning or re-importing the data",
	}},
	CodeDataEmpty: {"The query returned no data", []string{
		"There is no data for the current query conditions",
		"Try adjusting the filters",
		"Check that the data source contains the required data",
	}},
	CodeDataTooLarge: {"The data exceeds the size limit", []string{
		"Reduce the range of data queried",
		"Add more filter conditions",
		"Consider paging or querying in batches",
	}},
	CodeConnectionFailed: {"Connection failed, please check your network", []string{
		"Check your network connection",
		"Confirm the service is running",
		"Try again later",
	}},
	CodeConnectionTimeout: {"The connection timed out", []string{
		"The connection timed out, check your network status",
		"The service may be busy, try again later",
		"If the problem persists, contact support",
	}},
	CodePermissionDenied: {"Permission denied", []string{
		"You may not have access to this resource",
		"Ask an administrator for the required permissions",
		"Check your account status",
	}},
	CodeResourceBusy: {"The resource is busy, please try again later", []string{
		"The resource is in use by another task",
		"Try again later",
		"If the problem persists, contact support",
	}},
	CodeResourceNotFound: {"The resource was not found", []string{
		"Check that the resource path is correct",
		"Confirm the resource has not been deleted",
		"Ask an administrator to check the resource status",
	}},
}

var fallbackInfo = codeInfo{"An unknown error occurred", []string{
	"Try again later",
	"If the problem persists, contact support",
}}

// Known reports whether c is one of the defined codes.
func (c ErrorCode) Known() bool {
	_, ok := codeTable[c]
	return ok
}

// Message returns the user-facing message for c.
func (c ErrorCode) Message() string {
	if info, ok := codeTable[c]; ok {
		return info.message
	}
	return fallbackInfo.message
}

// Suggestions returns a fresh copy of the recovery suggestions for c.
// Unknown codes get a generic pair.
func (c ErrorCode) Suggestions() []string {
	info, ok := codeTable[c]
	if !ok {
		info = fallbackInfo
	}
	return append([]string(nil), info.suggestions...)
}

// ErrorInfo is a structured operational error shown to the user.
type ErrorInfo struct {
	Code                ErrorCode `json:"code"`
	Message             string    `json:"message"`
	Details             string    `json:"details,omitempty"`
	RecoverySuggestions []string  `json:"recoverySuggestions"`

	// Timestamp is in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// NewErrorInfo builds an ErrorInfo for code with its default message and
// suggestions. A non-empty message overrides the default one.
func NewErrorInfo(code ErrorCode, message, details string) ErrorInfo {
	if message == "" {
		message = code.Message()
	}
	return ErrorInfo{
		Code:                code,
		Message:             message,
		Details:             details,
		RecoverySuggestions: code.Suggestions(),
		Timestamp:           time.Now().UnixMilli(),
	}
}

// TimeoutError reports an analysis that exceeded d.
func TimeoutError(d time.Duration) ErrorInfo {
	return NewErrorInfo(CodeAnalysisTimeout, "",
		fmt.Sprintf("analysis exceeded %s", d))
}

// CancelledError reports an analysis cancelled by the user.
func CancelledError() ErrorInfo {
	return NewErrorInfo(CodeAnalysisCancelled, "", "")
}

// Error implements error so an ErrorInfo can travel through error returns.
func (e ErrorInfo) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ErrorInfo) clone() *ErrorInfo {
	if e == nil {
		return nil
	}
	cp := *e
	cp.RecoverySuggestions = append([]string(nil), e.RecoverySuggestions...)
	return &cp
}

// complete fills in anything left blank from the code table.
func (e ErrorInfo) complete(now time.Time) ErrorInfo {
	if e.Code == "" {
		e.Code = CodeAnalysisError
	}
	if e.Message == "" {
		e.Message = e.Code.Message()
	}
	if len(e.RecoverySuggestions) == 0 {
		e.RecoverySuggestions = e.Code.Suggestions()
	} else {
		e.RecoverySuggestions = append([]string(nil), e.RecoverySuggestions...)
	}
	if e.Timestamp == 0 {
		e.Timestamp = now.UnixMilli()
	}
	return e
}
