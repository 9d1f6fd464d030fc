package llm

import "fmt"

// FailureKind classifies why an annotation could not be produced
type FailureKind int

const (
	KindConfiguration FailureKind = iota + 1
	KindInputValidation
	KindConnection
	KindResponseParse
)

// Messages reported to users and recorded for failed runs
const (
	MsgConfiguration   = "Problems in API settings, please check."
	MsgInputValidation = "Input must be a Python function starting with 'def'"
	MsgConnection      = "Problems in API connection, please check."
	MsgResponseParse   = "Problems in API response, please check."
)

func (k FailureKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindInputValidation:
		return "input_validation"
	case KindConnection:
		return "connection"
	case KindResponseParse:
		return "response_parse"
	default:
		return "unknown"
	}
}

// Message returns the fixed user-facing message for the kind
func (k FailureKind) Message() string {
	switch k {
	case KindConfiguration:
		return MsgConfiguration
	case KindInputValidation:
		return MsgInputValidation
	case KindConnection:
		return MsgConnection
	case KindResponseParse:
		return MsgResponseParse
	default:
		return "unknown failure"
	}
}

// AnnotationFailure is the error variant of Result.
// Error returns the fixed message; Cause keeps the underlying error for logs.
type AnnotationFailure struct {
	Kind    FailureKind
	Message string
	Cause   error
}

// Sentinels for errors.Is checks
var (
	ErrConfiguration   = &AnnotationFailure{Kind: KindConfiguration, Message: MsgConfiguration}
	ErrInputValidation = &AnnotationFailure{Kind: KindInputValidation, Message: MsgInputValidation}
	ErrConnection      = &AnnotationFailure{Kind: KindConnection, Message: MsgConnection}
	ErrResponseParse   = &AnnotationFailure{Kind: KindResponseParse, Message: MsgResponseParse}
)

// Fail creates a failure of the given kind
func Fail(kind FailureKind, cause error) *AnnotationFailure {
	return &AnnotationFailure{Kind: kind, Message: kind.Message(), Cause: cause}
}

func (f *AnnotationFailure) Error() string {
	return f.Message
}

func (f *AnnotationFailure) Unwrap() error {
	return f.Cause
}

// Is matches any failure of the same kind
func (f *AnnotationFailure) Is(target error) bool {
	t, ok := target.(*AnnotationFailure)
	return ok && t.Kind == f.Kind
}

// Detail returns the message with the underlying cause, for logging
func (f *AnnotationFailure) Detail() string {
	if f.Cause == nil {
		return f.Message
	}
	return fmt.Sprintf("%s (%v)", f.Message, f.Cause)
}
