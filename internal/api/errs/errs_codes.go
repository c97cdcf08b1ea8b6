package errs

import "net/http"

var (
	// OK indicates the operation was successful.
	OK = ErrCode{value: 0}

	// Canceled indicates the operation was canceled (typically by the caller).
	Canceled = ErrCode{value: 1}

	// Unknown error.
	Unknown = ErrCode{value: 2}

	// InvalidArgument indicates client specified an invalid argument.
	InvalidArgument = ErrCode{value: 3}

	// DeadlineExceeded means operation expired before completion.
	DeadlineExceeded = ErrCode{value: 4}

	// NotFound means some requested entity was not found.
	NotFound = ErrCode{value: 5}

	// AlreadyExists means an attempt to create an entity failed because one
	// already exists.
	AlreadyExists = ErrCode{value: 6}

	// ResourceExhausted indicates some resource has been exhausted, such as
	// the request rate.
	ResourceExhausted = ErrCode{value: 8}

	// FailedPrecondition indicates operation was rejected because the
	// system is not in a state required for the operation's execution.
	FailedPrecondition = ErrCode{value: 9}

	// Aborted indicates the operation was aborted, typically due to a
	// concurrency issue like a lost conditional write.
	Aborted = ErrCode{value: 10}

	// Internal errors. Means some invariants expected by underlying
	// system has been broken.
	Internal = ErrCode{value: 13}

	// Unavailable indicates the service is currently unavailable.
	Unavailable = ErrCode{value: 14}
)

var codeNames = map[ErrCode]string{
	OK:                 "ok",
	Canceled:           "canceled",
	Unknown:            "unknown",
	InvalidArgument:    "invalid_argument",
	DeadlineExceeded:   "deadline_exceeded",
	NotFound:           "not_found",
	AlreadyExists:      "already_exists",
	ResourceExhausted:  "resource_exhausted",
	FailedPrecondition: "failed_precondition",
	Aborted:            "aborted",
	Internal:           "internal",
	Unavailable:        "unavailable",
}

var httpStatus = map[ErrCode]int{
	OK:                 http.StatusOK,
	Canceled:           http.StatusGatewayTimeout,
	Unknown:            http.StatusInternalServerError,
	InvalidArgument:    http.StatusBadRequest,
	DeadlineExceeded:   http.StatusGatewayTimeout,
	NotFound:           http.StatusNotFound,
	AlreadyExists:      http.StatusConflict,
	ResourceExhausted:  http.StatusTooManyRequests,
	FailedPrecondition: http.StatusConflict,
	Aborted:            http.StatusConflict,
	Internal:           http.StatusInternalServerError,
	Unavailable:        http.StatusServiceUnavailable,
}
