package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	CodeInvalidCoordinate      Code = "INVALID_COORDINATE"
	CodeInvalidPosition        Code = "INVALID_POSITION"
	CodeMalformedQR            Code = "MALFORMED_QR_CODE"
	CodeUserNotFound           Code = "USER_NOT_FOUND"
	CodeCheckpointNotFound     Code = "CHECKPOINT_NOT_FOUND"
	CodeRouteNotFound          Code = "ROUTE_NOT_FOUND"
	CodeRouteInactive          Code = "ROUTE_INACTIVE"
	CodeOutOfRange             Code = "OUT_OF_RANGE"
	CodeCheckpointNotInRoute   Code = "CHECKPOINT_NOT_IN_ROUTE"
	CodeNoActiveAssignment     Code = "NO_ACTIVE_ASSIGNMENT"
	CodeAlreadyScanned         Code = "ALREADY_SCANNED"
	CodeRouteAlreadyAssigned   Code = "ROUTE_ALREADY_ASSIGNED"
	CodeDuplicateAssignment    Code = "DUPLICATE_USER_ROUTE_ASSIGNMENT"
	CodeMaxAssignments         Code = "MAX_ASSIGNMENTS_REACHED"
	CodeAlreadyCompleted       Code = "ALREADY_COMPLETED"
	CodeIncompleteCheckpoints  Code = "INCOMPLETE_CHECKPOINTS"
	CodeCannotDeleteInProgress Code = "CANNOT_DELETE_IN_PROGRESS"
	CodeMediaUpload            Code = "MEDIA_UPLOAD_FAILED"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:     http.StatusBadRequest,
		Retryable:      false,
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
	},
	CodeUnauthorized: {
		HTTPStatus:     http.StatusUnauthorized,
		Retryable:      false,
		PublicMessage:  "authentication required",
		DetailsAllowed: false,
	},
	CodeForbidden: {
		HTTPStatus:     http.StatusForbidden,
		Retryable:      false,
		PublicMessage:  "access denied",
		DetailsAllowed: false,
	},
	CodeNotFound: {
		HTTPStatus:     http.StatusNotFound,
		Retryable:      false,
		PublicMessage:  "resource not found",
		DetailsAllowed: false,
	},
	CodeConflict: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      false,
		PublicMessage:  "conflict detected",
		DetailsAllowed: false,
	},
	CodeStateConflict: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      false,
		PublicMessage:  "state transition disallowed",
		DetailsAllowed: true,
	},
	CodeIdempotency: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      false,
		PublicMessage:  "idempotency key reused",
		DetailsAllowed: true,
	},
	CodeRateLimit: {
		HTTPStatus:     http.StatusTooManyRequests,
		Retryable:      false,
		PublicMessage:  "rate limit exceeded",
		DetailsAllowed: false,
	},
	CodeInternal: {
		HTTPStatus:     http.StatusInternalServerError,
		Retryable:      true,
		PublicMessage:  "internal server error",
		DetailsAllowed: false,
	},
	CodeDependency: {
		HTTPStatus:     http.StatusBadGateway,
		Retryable:      true,
		PublicMessage:  "dependency unavailable",
		DetailsAllowed: true,
	},
	CodeInvalidCoordinate: {
		HTTPStatus:     http.StatusBadRequest,
		Retryable:      false,
		PublicMessage:  "coordinate out of bounds",
		DetailsAllowed: true,
	},
	CodeInvalidPosition: {
		HTTPStatus:     http.StatusBadRequest,
		Retryable:      false,
		PublicMessage:  "position missing or unparseable",
		DetailsAllowed: true,
	},
	CodeMalformedQR: {
		HTTPStatus:     http.StatusBadRequest,
		Retryable:      false,
		PublicMessage:  "qr payload malformed",
		DetailsAllowed: true,
	},
	CodeUserNotFound: {
		HTTPStatus:     http.StatusNotFound,
		Retryable:      false,
		PublicMessage:  "user not found",
		DetailsAllowed: false,
	},
	CodeCheckpointNotFound: {
		HTTPStatus:     http.StatusNotFound,
		Retryable:      false,
		PublicMessage:  "checkpoint not found",
		DetailsAllowed: true,
	},
	CodeRouteNotFound: {
		HTTPStatus:     http.StatusNotFound,
		Retryable:      false,
		PublicMessage:  "route not found",
		DetailsAllowed: true,
	},
	CodeRouteInactive: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		Retryable:      false,
		PublicMessage:  "route is not active",
		DetailsAllowed: true,
	},
	CodeOutOfRange: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		Retryable:      false,
		PublicMessage:  "scan position outside checkpoint radius",
		DetailsAllowed: true,
	},
	CodeCheckpointNotInRoute: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		Retryable:      false,
		PublicMessage:  "checkpoint does not belong to route",
		DetailsAllowed: true,
	},
	CodeNoActiveAssignment: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      false,
		PublicMessage:  "no active assignment for scan",
		DetailsAllowed: true,
	},
	CodeAlreadyScanned: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      false,
		PublicMessage:  "checkpoint already scanned",
		DetailsAllowed: true,
	},
	CodeRouteAlreadyAssigned: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      false,
		PublicMessage:  "route already has an active assignment",
		DetailsAllowed: true,
	},
	CodeDuplicateAssignment: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      false,
		PublicMessage:  "user already assigned to route",
		DetailsAllowed: true,
	},
	CodeMaxAssignments: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      false,
		PublicMessage:  "active assignment limit reached",
		DetailsAllowed: true,
	},
	CodeAlreadyCompleted: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      false,
		PublicMessage:  "assignment already completed",
		DetailsAllowed: true,
	},
	CodeIncompleteCheckpoints: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      false,
		PublicMessage:  "assignment has unscanned checkpoints",
		DetailsAllowed: true,
	},
	CodeCannotDeleteInProgress: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      false,
		PublicMessage:  "in-progress assignment cannot be deleted",
		DetailsAllowed: true,
	},
	CodeMediaUpload: {
		HTTPStatus:     http.StatusBadGateway,
		Retryable:      true,
		PublicMessage:  "media upload failed",
		DetailsAllowed: true,
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
