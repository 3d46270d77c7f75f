package goGate

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/goGate/dispatch"
)

var (
	// ErrInvalidCredentials is returned when a username/password pair does not verify.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned when the login attempt budget is exhausted.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountNotLocked is returned when an unlock is requested for an unlocked account.
	ErrAccountNotLocked = errors.New("account not locked")
	// ErrUserNotFound is returned when recovery names an unknown user.
	ErrUserNotFound = errors.New("user not found")
	// ErrSessionAlreadyActive is returned when login or recovery starts on an
	// authenticated session.
	ErrSessionAlreadyActive = errors.New("session already active")
	// ErrSessionNotFound is returned when an operation requires a session and none exists.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionCreationFailed is returned when a session cannot be minted.
	ErrSessionCreationFailed = errors.New("session creation failed")
	// ErrNoActiveChallenge is returned when a recovery step runs without its challenge.
	ErrNoActiveChallenge = errors.New("no active recovery challenge")
	// ErrNoQuestionsRegistered is returned when a user has fewer than two security questions.
	ErrNoQuestionsRegistered = errors.New("no security questions registered")
	// ErrAnswersIncorrect is returned when either security answer does not verify.
	ErrAnswersIncorrect = errors.New("security answers incorrect")
	// ErrRecoveryFailed is returned when the terminal recovery action fails after
	// the challenge was consumed.
	ErrRecoveryFailed = errors.New("recovery failed")
	// ErrRecoveryRateLimited is returned when the answer budget is spent.
	ErrRecoveryRateLimited = errors.New("recovery rate limited")
	// ErrLoginRateLimited is returned when a client exceeds its login budget.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrProfileRequired is returned when an operation needs a selected profile.
	ErrProfileRequired = errors.New("profile not selected")
	// ErrProfileInvalid is returned when the requested profile is not available to the user.
	ErrProfileInvalid = errors.New("profile not available")
	// ErrPasswordPolicy is returned when a new password is outside the length bounds.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrInvalidOperation is returned when an operation does not apply to the session.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrInternal wraps unexpected collaborator failures.
	ErrInternal = errors.New("internal error")
	// ErrEngineNotReady is returned by a zero or partially built Engine.
	ErrEngineNotReady = errors.New("engine not ready")

	// ErrMalformedRequest is returned for missing required inputs.
	ErrMalformedRequest = dispatch.ErrMalformedRequest
	// ErrPermissionDenied is returned when the current profile may not invoke an operation.
	ErrPermissionDenied = dispatch.ErrPermissionDenied
	// ErrOperationFailed is wrapped by every dispatched handler failure.
	ErrOperationFailed = dispatch.ErrOperationFailed
)

// ErrorKind is the stable, switchable category of an Engine error.
type ErrorKind string

const (
	KindNone                  ErrorKind = ""
	KindInvalidCredentials    ErrorKind = "InvalidCredentials"
	KindAccountLocked         ErrorKind = "AccountLocked"
	KindAccountNotLocked      ErrorKind = "AccountNotLocked"
	KindUserNotFound          ErrorKind = "UserNotFound"
	KindSessionAlreadyActive  ErrorKind = "SessionAlreadyActive"
	KindSessionNotFound       ErrorKind = "SessionNotFound"
	KindSessionCreationError  ErrorKind = "SessionCreationError"
	KindNoActiveChallenge     ErrorKind = "NoActiveChallenge"
	KindNoQuestionsRegistered ErrorKind = "NoQuestionsRegistered"
	KindAnswersIncorrect      ErrorKind = "AnswersIncorrect"
	KindRecoveryFailed        ErrorKind = "RecoveryFailed"
	KindRateLimited           ErrorKind = "RateLimited"
	KindProfileRequired       ErrorKind = "ProfileRequired"
	KindProfileInvalid        ErrorKind = "ProfileInvalid"
	KindPasswordPolicy        ErrorKind = "PasswordPolicy"
	KindMalformedRequest      ErrorKind = "MalformedRequest"
	KindPermissionDenied      ErrorKind = "PermissionDenied"
	KindOperationFailed       ErrorKind = "OperationFailed"
	KindInvalidOperation      ErrorKind = "InvalidOperation"
	KindInternalError         ErrorKind = "InternalError"
)

var kindTable = []struct {
	err  error
	kind ErrorKind
}{
	{ErrInvalidCredentials, KindInvalidCredentials},
	{ErrAccountLocked, KindAccountLocked},
	{ErrAccountNotLocked, KindAccountNotLocked},
	{ErrUserNotFound, KindUserNotFound},
	{ErrSessionAlreadyActive, KindSessionAlreadyActive},
	{ErrSessionNotFound, KindSessionNotFound},
	{ErrSessionCreationFailed, KindSessionCreationError},
	{ErrNoActiveChallenge, KindNoActiveChallenge},
	{ErrNoQuestionsRegistered, KindNoQuestionsRegistered},
	{ErrAnswersIncorrect, KindAnswersIncorrect},
	{ErrRecoveryFailed, KindRecoveryFailed},
	{ErrRecoveryRateLimited, KindRateLimited},
	{ErrLoginRateLimited, KindRateLimited},
	{ErrProfileRequired, KindProfileRequired},
	{ErrProfileInvalid, KindProfileInvalid},
	{ErrPasswordPolicy, KindPasswordPolicy},
	{ErrMalformedRequest, KindMalformedRequest},
	{ErrPermissionDenied, KindPermissionDenied},
	{ErrOperationFailed, KindOperationFailed},
	{ErrInvalidOperation, KindInvalidOperation},
}

// KindOf classifies err. Unrecognised non-nil errors are InternalError.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	for _, entry := range kindTable {
		if errors.Is(err, entry.err) {
			return entry.kind
		}
	}
	return KindInternalError
}

// CredentialsError is the failed-login error. It matches [ErrInvalidCredentials]
// and carries the attempts left before the account locks.
type CredentialsError struct {
	Remaining int
}

func (e *CredentialsError) Error() string {
	return fmt.Sprintf("invalid credentials (%d attempts remaining)", e.Remaining)
}

func (e *CredentialsError) Is(target error) bool {
	return target == ErrInvalidCredentials
}

// RemainingAttempts extracts the attempt count carried by a failed login, if any.
func RemainingAttempts(err error) (int, bool) {
	var ce *CredentialsError
	if errors.As(err, &ce) {
		return ce.Remaining, true
	}
	return 0, false
}

func internalError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrInternal, op, err)
}
