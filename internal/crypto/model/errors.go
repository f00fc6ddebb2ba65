package model

import "fmt"

// FetchCause classifies why a fetch failed.
type FetchCause string

const (
	FetchCauseStatus    FetchCause = "status"    // non-2xx response
	FetchCauseTransport FetchCause = "transport" // connection, DNS, timeout, cancellation
	FetchCauseDecode    FetchCause = "decode"    // 2xx response with an unusable body
)

// FetchError is returned by the price API client.
type FetchError struct {
	Cause      FetchCause
	StatusCode int    // set when Cause == FetchCauseStatus
	Endpoint   string // request URL without credentials
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Cause {
	case FetchCauseStatus:
		return fmt.Sprintf("fetch %s: unexpected status %d", e.Endpoint, e.StatusCode)
	default:
		if e.Err == nil {
			return fmt.Sprintf("fetch %s: %s failure", e.Endpoint, e.Cause)
		}
		return fmt.Sprintf("fetch %s: %s failure: %v", e.Endpoint, e.Cause, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// SchemaErrorKind classifies a payload shape violation.
type SchemaErrorKind string

const (
	SchemaMissing      SchemaErrorKind = "missing"
	SchemaInvalidType  SchemaErrorKind = "invalid_type"
	SchemaInvalidValue SchemaErrorKind = "invalid_value"
)

// SchemaError is returned by the transformer when the payload does not have the expected shape.
type SchemaError struct {
	Kind  SchemaErrorKind
	Field string
	Value any // offending value, nil for SchemaMissing
}

func (e *SchemaError) Error() string {
	if e.Kind == SchemaMissing {
		return fmt.Sprintf("schema: missing %q", e.Field)
	}
	return fmt.Sprintf("schema: %s for %q: %v (%T)", e.Kind, e.Field, e.Value, e.Value)
}

// LoadStage names the loader step that failed.
type LoadStage string

const (
	LoadStageBegin  LoadStage = "begin"
	LoadStageSchema LoadStage = "schema"
	LoadStageInsert LoadStage = "insert"
	LoadStageCommit LoadStage = "commit"
)

// LoadError is returned by the sink when the record could not be persisted.
// Nothing is committed when a LoadError is returned.
type LoadError struct {
	Stage LoadStage
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Stage, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
