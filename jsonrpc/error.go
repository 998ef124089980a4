package jsonrpc

// JSON-RPC 2.0 error codes used by the pipeline. CodeDecodeError is the
// one extension: it reports a payload rejected by the structural codec
// in front of the core.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeDecodeError    = -32800
)

// Kind names one entry of the pipeline's error taxonomy.
type Kind int

const (
	ParseError Kind = iota + 1
	InvalidRequest
	MethodNotFound
	InvalidParams
	InternalError
	DecodeError
)

var kindTable = map[Kind]struct {
	name    string
	code    int
	message string
}{
	ParseError:     {"ParseError", CodeParseError, "Parse error"},
	InvalidRequest: {"InvalidRequest", CodeInvalidRequest, "Invalid request"},
	MethodNotFound: {"MethodNotFound", CodeMethodNotFound, "Method not found"},
	InvalidParams:  {"InvalidParams", CodeInvalidParams, "Invalid params"},
	InternalError:  {"InternalError", CodeInternalError, "Internal error"},
	DecodeError:    {"DecodeError", CodeDecodeError, "Decode error"},
}

// Code returns the wire error code for the kind.
func (k Kind) Code() int { return kindTable[k].code }

// String returns the taxonomy name, e.g. "MethodNotFound".
func (k Kind) String() string {
	if e, ok := kindTable[k]; ok {
		return e.name
	}
	return "Unknown"
}

func (k Kind) message() string { return kindTable[k].message }

// Error is a typed pipeline failure: one of the taxonomy kinds plus an
// optional message override and data payload. Values are immutable;
// WithMessage and WithData return modified copies, so the package-level
// sentinels are safe to share.
type Error struct {
	kind    Kind
	message string
	data    any
}

// NewError returns a typed error of the given kind carrying the kind's
// standard message.
func NewError(kind Kind) *Error {
	return &Error{kind: kind, message: kind.message()}
}

// Kind returns the taxonomy entry this error belongs to.
func (e *Error) Kind() Kind { return e.kind }

// Code returns the wire error code.
func (e *Error) Code() int { return e.kind.Code() }

// Message returns the human-readable wire message.
func (e *Error) Message() string { return e.message }

// Data returns the structured payload attached to the error, if any.
func (e *Error) Data() any { return e.data }

// WithMessage returns a copy of e with the wire message replaced.
func (e *Error) WithMessage(message string) *Error {
	c := *e
	c.message = message
	return &c
}

// WithData returns a copy of e carrying data on the wire.
func (e *Error) WithData(data any) *Error {
	c := *e
	c.data = data
	return &c
}

func (e *Error) Error() string { return e.message }

// Is reports whether target is a typed error of the same kind, so
// errors.Is(err, jsonrpc.ErrMethodNotFound) matches any MethodNotFound
// error regardless of message or data.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.kind == e.kind
}

// Taxonomy sentinels. Handlers may return them directly or use them as
// errors.Is targets.
var (
	ErrParse          = NewError(ParseError)
	ErrInvalidRequest = NewError(InvalidRequest)
	ErrMethodNotFound = NewError(MethodNotFound)
	ErrInvalidParams  = NewError(InvalidParams)
	ErrInternal       = NewError(InternalError)
	ErrDecode         = NewError(DecodeError)
)
