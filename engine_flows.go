package goGate

import (
	"context"
	"errors"

	"github.com/MrEthical07/goGate/internal"
	"github.com/MrEthical07/goGate/internal/flows"
	"github.com/MrEthical07/goGate/internal/limiters"
	"github.com/MrEthical07/goGate/internal/rate"
	"github.com/MrEthical07/goGate/password"
	"github.com/MrEthical07/goGate/session"
)

func (e *Engine) initFlowDeps() {
	e.flows = flows.Deps{
		Login:    e.loginDeps(),
		Recovery: e.recoveryDeps(),
		Password: e.passwordDeps(),
	}
}

func (e *Engine) observer() flows.Observer {
	return flows.Observer{
		MetricInc: func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit: e.emitAudit,
		Warn:      e.warn,
	}
}

func (e *Engine) sessionOps() flows.SessionOps {
	m := e.sessions
	return flows.SessionOps{
		Resolve:           m.Resolve,
		Create:            m.Create,
		Destroy:           m.Destroy,
		DestroyRecovery:   m.DestroyRecovery,
		DestroyAllForUser: m.DestroyAllForUser,
		SetProfile:        m.SetProfile,
		SetQuestions:      m.SetQuestions,
	}
}

func (e *Engine) flowUserByUsername(ctx context.Context, username string) (flows.FlowUser, error) {
	u, err := e.userProvider.GetUserByUsername(ctx, username)
	if err != nil {
		return flows.FlowUser{}, err
	}
	return toFlowUser(u), nil
}

func (e *Engine) flowUserByID(ctx context.Context, userID string) (flows.FlowUser, error) {
	u, err := e.userProvider.GetUserByID(ctx, userID)
	if err != nil {
		return flows.FlowUser{}, err
	}
	return toFlowUser(u), nil
}

func toFlowUser(u UserRecord) flows.FlowUser {
	return flows.FlowUser{
		UserID:       u.UserID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
	}
}

func (e *Engine) loginDeps() flows.LoginDeps {
	return flows.LoginDeps{
		PasswordUpgradeOnLogin: e.config.Password.UpgradeOnLogin,
		Sessions:               e.sessionOps(),
		CheckClientRate: func(ctx context.Context) error {
			return e.checkClientRate(ctx, rate.ActionLogin, ErrLoginRateLimited)
		},
		GetUserByUsername:    e.flowUserByUsername,
		IsNotFound:           isProviderNotFound,
		GetProfiles:          e.userProvider.GetProfiles,
		UpdatePassword:       e.userProvider.UpdatePasswordHash,
		CheckAllowed:         e.guard.CheckAllowed,
		RecordFailure:        e.guard.RecordFailure,
		RecordSuccess:        e.guard.RecordSuccess,
		VerifyPassword:       e.verifier.Verify,
		PasswordNeedsUpgrade: e.verifier.NeedsUpgrade,
		HashPassword:         e.verifier.Hash,
		Observer:             e.observer(),
		Metrics: flows.LoginMetrics{
			LoginSuccess:     int(MetricLoginSuccess),
			LoginFailure:     int(MetricLoginFailure),
			LoginLocked:      int(MetricLoginLocked),
			LoginRateLimited: int(MetricLoginRateLimited),
			AccountLocked:    int(MetricAccountLocked),
			SessionCreated:   int(MetricSessionCreated),
			PasswordUpgraded: int(MetricPasswordUpgraded),
			ProfileSelected:  int(MetricProfileSelected),
		},
		Events: flows.LoginEvents{
			LoginSuccess:     auditEventLoginSuccess,
			LoginFailure:     auditEventLoginFailure,
			LoginRateLimited: auditEventLoginRateLimited,
			AccountLocked:    auditEventAccountLocked,
		},
		Errors: flows.LoginErrors{
			EngineNotReady:        ErrEngineNotReady,
			MalformedRequest:      ErrMalformedRequest,
			InvalidCredentials:    ErrInvalidCredentials,
			AccountLocked:         ErrAccountLocked,
			SessionAlreadyActive:  ErrSessionAlreadyActive,
			SessionCreationFailed: ErrSessionCreationFailed,
			CredentialsError: func(remaining int) error {
				return &CredentialsError{Remaining: remaining}
			},
			Internal: internalError,
		},
	}
}

func (e *Engine) recoveryDeps() flows.RecoveryDeps {
	return flows.RecoveryDeps{
		NewSecretLength: e.config.Recovery.NewSecretLength,
		MailSubject:     e.config.Recovery.MailSubject,
		MailBody:        e.config.Recovery.MailBody,
		Sessions:        e.sessionOps(),
		CheckClientRate: func(ctx context.Context) error {
			return e.checkClientRate(ctx, rate.ActionRecoveryStart, ErrRecoveryRateLimited)
		},
		GetUserByUsername: e.flowUserByUsername,
		IsNotFound:        isProviderNotFound,
		IsLocked: func(ctx context.Context, userID string) (bool, error) {
			state, err := e.guard.State(ctx, userID)
			if err != nil {
				return false, err
			}
			return state.Locked || state.Remaining <= 0, nil
		},
		GetSecurityQuestions: func(ctx context.Context, userID string) ([]session.Question, error) {
			registered, err := e.userProvider.GetSecurityQuestions(ctx, userID)
			if err != nil {
				return nil, err
			}
			out := make([]session.Question, len(registered))
			for i, q := range registered {
				out[i] = session.Question{ID: q.ID, Text: q.Text}
			}
			return out, nil
		},
		GetAnswerHashes: e.userProvider.GetAnswerHashes,
		PickIndices:     internal.DistinctIndices,
		CheckAnswerBudget: func(ctx context.Context, userID string) error {
			err := e.recoveryLimiter.CheckAnswer(ctx, userID)
			if errors.Is(err, limiters.ErrRecoveryRateLimited) {
				return ErrRecoveryRateLimited
			}
			return err
		},
		IsBudgetExceeded: func(err error) bool {
			return errors.Is(err, ErrRecoveryRateLimited)
		},
		ResetAnswerBudget: e.recoveryLimiter.ResetAnswers,
		VerifySecret:      e.verifier.Verify,
		HashSecret:        e.verifier.Hash,
		RandomSecret:      password.RandomSecret,
		UpdatePassword:    e.userProvider.UpdatePasswordHash,
		Unlock:            e.guard.Unlock,
		SendMail:          e.sendMail(),
		Observer:          e.observer(),
		Metrics: flows.RecoveryMetrics{
			RecoveryStarted:  int(MetricRecoveryStarted),
			AnswersIncorrect: int(MetricRecoveryAnswersIncorrect),
			RateLimited:      int(MetricRecoveryRateLimited),
			RecoverySuccess:  int(MetricRecoverySuccess),
			RecoveryFailed:   int(MetricRecoveryFailed),
			AccountUnlocked:  int(MetricAccountUnlocked),
		},
		Events: flows.RecoveryEvents{
			Started:   auditEventRecoveryStarted,
			Answers:   auditEventRecoveryAnswers,
			Completed: auditEventRecoveryCompleted,
			Abandoned: auditEventRecoveryAbandoned,
		},
		Errors: flows.RecoveryErrors{
			EngineNotReady:        ErrEngineNotReady,
			MalformedRequest:      ErrMalformedRequest,
			UserNotFound:          ErrUserNotFound,
			AccountNotLocked:      ErrAccountNotLocked,
			SessionAlreadyActive:  ErrSessionAlreadyActive,
			SessionCreationFailed: ErrSessionCreationFailed,
			NoActiveChallenge:     ErrNoActiveChallenge,
			NoQuestionsRegistered: ErrNoQuestionsRegistered,
			AnswersIncorrect:      ErrAnswersIncorrect,
			RecoveryFailed:        ErrRecoveryFailed,
			Internal:              internalError,
		},
	}
}

func (e *Engine) sendMail() func(ctx context.Context, to, subject, body string) error {
	if e.mailer == nil {
		return nil
	}
	return e.mailer.Send
}

func (e *Engine) passwordDeps() flows.PasswordDeps {
	minLen, maxLen := e.config.Password.MinLength, e.config.Password.MaxLength
	return flows.PasswordDeps{
		Sessions:     e.sessionOps(),
		GetUserByID:  e.flowUserByID,
		VerifySecret: e.verifier.Verify,
		HashSecret:   e.verifier.Hash,
		CheckPolicy: func(secret string) error {
			return password.CheckLength(secret, minLen, maxLen)
		},
		UpdatePassword: e.userProvider.UpdatePasswordHash,
		Observer:       e.observer(),
		Metrics: flows.PasswordMetrics{
			ChangeSuccess:    int(MetricPasswordChangeSuccess),
			ChangeInvalidOld: int(MetricPasswordChangeInvalidOld),
		},
		Events: flows.PasswordEvents{
			ChangeSuccess: auditEventPasswordChangeSuccess,
			ChangeFailure: auditEventPasswordChangeFailure,
		},
		Errors: flows.PasswordErrors{
			EngineNotReady:     ErrEngineNotReady,
			MalformedRequest:   ErrMalformedRequest,
			SessionNotFound:    ErrSessionNotFound,
			InvalidOperation:   ErrInvalidOperation,
			InvalidCredentials: ErrInvalidCredentials,
			PasswordPolicy:     ErrPasswordPolicy,
			Internal:           internalError,
		},
	}
}
