package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument    = 1000
	ErrCodeInvalidJSON        = 1001
	ErrCodeRequestTooLarge    = 1002
	ErrCodeInvalidID          = 1004
	ErrCodeMissingRequired    = 1009
	ErrCodeInvalidMediaKind   = 1020
	ErrCodeUnsupportedMedia   = 1021
	ErrCodeTooManyFiles       = 1022
	ErrCodeFileTooLarge       = 1023
	ErrCodeInvalidMultipart   = 1024
	ErrCodeInvalidCredentials = 1030

	// Domain state (2xxx)
	ErrCodeLabNotFound   = 2001
	ErrCodeUserNotFound  = 2002
	ErrCodeAdminNotFound = 2003
	ErrCodeQRNotFound    = 2004
	ErrCodeConflict      = 2101

	// Auth (3xxx)
	ErrCodeUnauthorized = 3001
	ErrCodeForbidden    = 3002

	// Internal/system (4xxx)
	ErrCodeInternal       = 4001
	ErrCodeStoreFailure   = 4002
	ErrCodeNotImplemented = 4005
	ErrCodeStorageWrite   = 4006
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 401:
		return ErrCodeUnauthorized
	case 403:
		return ErrCodeForbidden
	case 404:
		return ErrCodeLabNotFound
	case 409:
		return ErrCodeConflict
	case 413:
		return ErrCodeRequestTooLarge
	case 500:
		return ErrCodeInternal
	case 501:
		return ErrCodeNotImplemented
	default:
		return 0
	}
}
