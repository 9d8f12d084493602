package service

import "errors"

// Auth error codes. The set follows the identity provider's codes so the
// console can keep showing the messages users already know.
const (
	CodeUserNotFound         = "user-not-found"
	CodeWrongPassword        = "wrong-password"
	CodeInvalidEmail         = "invalid-email"
	CodeWeakPassword         = "weak-password"
	CodeEmailAlreadyInUse    = "email-already-in-use"
	CodeTooManyRequests      = "too-many-requests"
	CodeNetworkRequestFailed = "network-request-failed"
	CodePopupClosedByUser    = "popup-closed-by-user"
	CodeOperationNotAllowed  = "operation-not-allowed"
	CodeUserDisabled         = "user-disabled"
	CodeInvalidCredential    = "invalid-credential"
	CodeInvalidActionCode    = "invalid-action-code"
	CodeSessionExpired       = "session-expired"
)

var authMessages = map[string]string{
	CodeUserNotFound:         "No account found with this email address",
	CodeWrongPassword:        "Incorrect password",
	CodeInvalidEmail:         "Invalid email address",
	CodeWeakPassword:         "Password should be at least 6 characters",
	CodeEmailAlreadyInUse:    "An account with this email already exists",
	CodeTooManyRequests:      "Too many failed attempts. Please try again later",
	CodeNetworkRequestFailed: "Network error. Please check your connection",
	CodePopupClosedByUser:    "Google sign-in was cancelled",
	CodeOperationNotAllowed:  "This sign-in method is not enabled. Please contact support",
	CodeUserDisabled:         "This account has been disabled. Please contact support",
	CodeInvalidCredential:    "The sign-in credential is invalid or has expired",
	CodeInvalidActionCode:    "This reset link is invalid or has expired",
	CodeSessionExpired:       "Your session has expired. Please sign in again",
}

const defaultAuthMessage = "An error occurred. Please try again"

// AuthMessage returns the user-facing message for an auth error code.
func AuthMessage(code string) string {
	if msg, ok := authMessages[code]; ok {
		return msg
	}
	return defaultAuthMessage
}

// AuthError is a sign-in, sign-up or session failure with a user-facing code.
type AuthError struct {
	Code string
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Message is safe to show to the user.
func (e *AuthError) Message() string {
	return AuthMessage(e.Code)
}

func authErr(code string) *AuthError {
	return &AuthError{Code: code}
}

// AuthErrorCode returns the code of an AuthError in err's chain, or "".
func AuthErrorCode(err error) string {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
