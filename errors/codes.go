package errors

// ErrorCode identifies an application error class.
type ErrorCode int

const (
	ErrorCode_UNKNOWN ErrorCode = iota
	ErrorCode_INTERNAL
	ErrorCode_INVALID_ARGUMENT
	ErrorCode_NOT_FOUND
	ErrorCode_CONFIG_MISSING_CREDENTIAL
	ErrorCode_REMOTE_TIMEOUT
	ErrorCode_REMOTE_STATUS
	ErrorCode_REMOTE_EMPTY_RESULT
	ErrorCode_REMOTE_UNREACHABLE
	ErrorCode_INVALID_RUN_STATE
	ErrorCode_STORAGE_FAILED
	ErrorCode_HTTP_OK
)

var codeNames = map[ErrorCode]string{
	ErrorCode_UNKNOWN:                   "UNKNOWN",
	ErrorCode_INTERNAL:                  "INTERNAL",
	ErrorCode_INVALID_ARGUMENT:          "INVALID_ARGUMENT",
	ErrorCode_NOT_FOUND:                 "NOT_FOUND",
	ErrorCode_CONFIG_MISSING_CREDENTIAL: "CONFIG_MISSING_CREDENTIAL",
	ErrorCode_REMOTE_TIMEOUT:            "REMOTE_TIMEOUT",
	ErrorCode_REMOTE_STATUS:             "REMOTE_STATUS",
	ErrorCode_REMOTE_EMPTY_RESULT:       "REMOTE_EMPTY_RESULT",
	ErrorCode_REMOTE_UNREACHABLE:        "REMOTE_UNREACHABLE",
	ErrorCode_INVALID_RUN_STATE:         "INVALID_RUN_STATE",
	ErrorCode_STORAGE_FAILED:            "STORAGE_FAILED",
	ErrorCode_HTTP_OK:                   "OK",
}

// String returns the symbolic name of the code.
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}
