package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a PhotoKeep error code.
type ErrorCode string

const (
	ErrInvalidName         ErrorCode = "INVALID_NAME"          // 400
	ErrInvalidRequest      ErrorCode = "INVALID_REQUEST"       // 400
	ErrUserNotFound        ErrorCode = "USER_NOT_FOUND"        // 404
	ErrFolderNotFound      ErrorCode = "FOLDER_NOT_FOUND"      // 404
	ErrPhotoNotFound       ErrorCode = "PHOTO_NOT_FOUND"       // 404
	ErrRecordNotFound      ErrorCode = "RECORD_NOT_FOUND"      // 404 (durable store miss)
	ErrFileNotFound        ErrorCode = "FILE_NOT_FOUND"        // 404
	ErrFolderAlreadyExists ErrorCode = "FOLDER_ALREADY_EXISTS" // 409
	ErrPhotoAlreadyExists  ErrorCode = "PHOTO_ALREADY_EXISTS"  // 409
	ErrFolderEmpty         ErrorCode = "FOLDER_EMPTY"          // 409
	ErrFolderFull          ErrorCode = "FOLDER_FULL"           // 507
	ErrCancelled           ErrorCode = "CANCELLED"             // 499
	ErrStoreUnavailable    ErrorCode = "STORE_UNAVAILABLE"     // 503
	ErrInternal            ErrorCode = "INTERNAL"              // 500
)

// Capacity scopes reported in FOLDER_FULL details.
const (
	ScopeUser   = "user"
	ScopeFolder = "folder"
)

// KeepError represents a structured error with code, status, and details.
type KeepError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// Err is the underlying cause, if any. Never exposed to clients.
	Err error
}

// Error implements the error interface.
func (e *KeepError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *KeepError) Unwrap() error {
	return e.Err
}

// NewInvalidName creates a 400 error for folder or photo names that fail validation.
func NewInvalidName(kind, name string) *KeepError {
	return &KeepError{
		Code:    ErrInvalidName,
		Status:  400,
		Message: fmt.Sprintf("%s name %q must be 1-200 letters or digits", kind, name),
		Details: map[string]any{"kind": kind, "name": name},
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *KeepError {
	return &KeepError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewUserNotFound creates a 404 error for a user that was never registered.
func NewUserNotFound(userID string) *KeepError {
	return &KeepError{
		Code:    ErrUserNotFound,
		Status:  404,
		Message: fmt.Sprintf("user not registered: %s", userID),
		Details: map[string]any{"user_id": userID},
	}
}

// NewFolderNotFound creates a 404 error for a folder the user does not own.
func NewFolderNotFound(folder string) *KeepError {
	return &KeepError{
		Code:    ErrFolderNotFound,
		Status:  404,
		Message: fmt.Sprintf("folder does not exist: %s", folder),
		Details: map[string]any{"folder": folder},
	}
}

// NewPhotoNotFound creates a 404 error for a photo missing from a folder.
func NewPhotoNotFound(folder, photo string) *KeepError {
	return &KeepError{
		Code:    ErrPhotoNotFound,
		Status:  404,
		Message: fmt.Sprintf("photo %q does not exist in folder %q", photo, folder),
		Details: map[string]any{"folder": folder, "photo": photo},
	}
}

// NewRecordNotFound creates a 404 error for a durable store lookup miss.
func NewRecordNotFound(key string) *KeepError {
	return &KeepError{
		Code:    ErrRecordNotFound,
		Status:  404,
		Message: fmt.Sprintf("record not found: %s", key),
		Details: map[string]any{"key": key},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *KeepError {
	return &KeepError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewFolderAlreadyExists creates a 409 error for a duplicate folder name.
func NewFolderAlreadyExists(folder string) *KeepError {
	return &KeepError{
		Code:    ErrFolderAlreadyExists,
		Status:  409,
		Message: fmt.Sprintf("folder already exists: %s", folder),
		Details: map[string]any{"folder": folder},
	}
}

// NewPhotoAlreadyExists creates a 409 error for a duplicate photo name.
// The reference already stored under that name is returned in the details.
func NewPhotoAlreadyExists(folder, photo, existingRef string) *KeepError {
	return &KeepError{
		Code:    ErrPhotoAlreadyExists,
		Status:  409,
		Message: fmt.Sprintf("photo %q already exists in folder %q", photo, folder),
		Details: map[string]any{"folder": folder, "photo": photo, "existing_reference": existingRef},
	}
}

// NewFolderEmpty creates a 409 error for operations that need at least one photo.
func NewFolderEmpty(folder string) *KeepError {
	return &KeepError{
		Code:    ErrFolderEmpty,
		Status:  409,
		Message: fmt.Sprintf("folder is empty: %s", folder),
		Details: map[string]any{"folder": folder},
	}
}

// NewUserFull creates a FOLDER_FULL error for a user at the folder limit.
func NewUserFull(limit int) *KeepError {
	return &KeepError{
		Code:    ErrFolderFull,
		Status:  507,
		Message: fmt.Sprintf("user is at max folder capacity (%d)", limit),
		Details: map[string]any{"scope": ScopeUser, "limit": limit},
	}
}

// NewFolderFull creates a FOLDER_FULL error for a folder at the photo limit.
func NewFolderFull(folder string, limit int) *KeepError {
	return &KeepError{
		Code:    ErrFolderFull,
		Status:  507,
		Message: fmt.Sprintf("folder %q is full (%d photos)", folder, limit),
		Details: map[string]any{"scope": ScopeFolder, "folder": folder, "limit": limit},
	}
}

// NewCancelled creates an error for an operation aborted by its context.
func NewCancelled(op string) *KeepError {
	return &KeepError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", op),
	}
}

// NewStoreUnavailable wraps a durable store failure.
func NewStoreUnavailable(err error) *KeepError {
	msg := "durable store unavailable"
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &KeepError{
		Code:    ErrStoreUnavailable,
		Status:  503,
		Message: msg,
		Err:     err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *KeepError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &KeepError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Err:     err,
	}
}

// Is checks if err, or any error it wraps, is a KeepError with the given code.
func Is(err error, code ErrorCode) bool {
	var kErr *KeepError
	if stderrors.As(err, &kErr) {
		return kErr.Code == code
	}
	return false
}

// As extracts the KeepError from err's chain.
func As(err error) (*KeepError, bool) {
	var kErr *KeepError
	if stderrors.As(err, &kErr) {
		return kErr, true
	}
	return nil, false
}
