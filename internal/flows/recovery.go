package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/goGate/session"
)

// challengeSize is the number of questions drawn per recovery.
const challengeSize = 2

// RecoveryOutcome is the flow-local result of a completed recovery.
type RecoveryOutcome struct {
	Mode     session.RecoveryMode
	UserID   string
	Notified bool
}

// RecoveryMetrics carries metric IDs needed by the recovery flows.
type RecoveryMetrics struct {
	RecoveryStarted  int
	AnswersIncorrect int
	RateLimited      int
	RecoverySuccess  int
	RecoveryFailed   int
	AccountUnlocked  int
}

// RecoveryEvents carries audit event names used by the recovery flows.
type RecoveryEvents struct {
	Started   string
	Answers   string
	Completed string
	Abandoned string
}

// RecoveryErrors carries host-level sentinel errors used by the recovery flows.
type RecoveryErrors struct {
	EngineNotReady        error
	MalformedRequest      error
	UserNotFound          error
	AccountNotLocked      error
	SessionAlreadyActive  error
	SessionCreationFailed error
	NoActiveChallenge     error
	NoQuestionsRegistered error
	AnswersIncorrect      error
	RecoveryFailed        error
	Internal              func(op string, err error) error
}

// RecoveryDeps captures recovery dependencies.
type RecoveryDeps struct {
	NewSecretLength int
	MailSubject     string
	// MailBody is a format with a single %s for the generated secret.
	MailBody string

	Sessions SessionOps

	CheckClientRate      func(ctx context.Context) error
	GetUserByUsername    func(ctx context.Context, username string) (FlowUser, error)
	IsNotFound           func(error) bool
	IsLocked             func(ctx context.Context, userID string) (bool, error)
	GetSecurityQuestions func(ctx context.Context, userID string) ([]session.Question, error)
	GetAnswerHashes      func(ctx context.Context, userID string, questionIDs []string) (map[string]string, error)
	PickIndices          func(n, k int) ([]int, error)

	CheckAnswerBudget func(ctx context.Context, userID string) error
	IsBudgetExceeded  func(error) bool
	ResetAnswerBudget func(ctx context.Context, userID string) error

	VerifySecret   func(secret, hash string) (bool, error)
	HashSecret     func(secret string) (string, error)
	RandomSecret   func(length int) (string, error)
	UpdatePassword func(ctx context.Context, userID, hash string) error
	Unlock         func(ctx context.Context, userID string) error
	SendMail       func(ctx context.Context, to, subject, body string) error

	Observer Observer
	Metrics  RecoveryMetrics
	Events   RecoveryEvents
	Errors   RecoveryErrors
}

// RunStartRecovery opens a Recovery session for username in the given mode.
// A Recovery session already bound to sessionID is abandoned first.
func RunStartRecovery(ctx context.Context, sessionID, username string, mode session.RecoveryMode, deps RecoveryDeps) (*session.Session, error) {
	if deps.GetUserByUsername == nil || deps.Sessions.Create == nil {
		return nil, deps.Errors.EngineNotReady
	}
	obs := deps.Observer

	if err := clearStale(ctx, sessionID, deps.Sessions, deps.Errors.SessionAlreadyActive, deps.Errors.Internal); err != nil {
		return nil, err
	}
	if username == "" {
		return nil, deps.Errors.MalformedRequest
	}
	if deps.CheckClientRate != nil {
		if err := deps.CheckClientRate(ctx); err != nil {
			obs.inc(deps.Metrics.RateLimited)
			return nil, err
		}
	}

	user, err := deps.GetUserByUsername(ctx, username)
	if err != nil {
		if deps.IsNotFound != nil && deps.IsNotFound(err) {
			obs.audit(ctx, deps.Events.Started, false, "", "", deps.Errors.UserNotFound, func() map[string]string {
				return map[string]string{"identifier": username, "mode": mode.String()}
			})
			return nil, deps.Errors.UserNotFound
		}
		return nil, deps.Errors.Internal("load user", err)
	}

	if mode == session.ModeUnlock {
		locked, err := deps.IsLocked(ctx, user.UserID)
		if err != nil {
			return nil, deps.Errors.Internal("load attempt state", err)
		}
		if !locked {
			obs.audit(ctx, deps.Events.Started, false, user.UserID, "", deps.Errors.AccountNotLocked, func() map[string]string {
				return map[string]string{"mode": mode.String()}
			})
			return nil, deps.Errors.AccountNotLocked
		}
	}

	sess, err := deps.Sessions.Create(ctx, session.KindRecovery, session.Payload{
		UserID:   user.UserID,
		Username: user.Username,
		Email:    user.Email,
		Mode:     mode,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", deps.Errors.SessionCreationFailed, err)
	}

	obs.inc(deps.Metrics.RecoveryStarted)
	obs.audit(ctx, deps.Events.Started, true, user.UserID, sess.SessionID, nil, func() map[string]string {
		return map[string]string{"mode": mode.String()}
	})
	return sess, nil
}

// RunLoadQuestions draws the challenge on first call and returns the question
// texts. Later calls return the same pair.
func RunLoadQuestions(ctx context.Context, sessionID string, deps RecoveryDeps) ([]string, error) {
	sess, err := resolveRecovery(ctx, sessionID, deps)
	if err != nil {
		return nil, err
	}
	if sess.Recovery.Issued() {
		return questionTexts(sess.Recovery.Questions), nil
	}

	all, err := deps.GetSecurityQuestions(ctx, sess.UserID)
	if err != nil {
		return nil, deps.Errors.Internal("load security questions", err)
	}
	if len(all) < challengeSize {
		return nil, deps.Errors.NoQuestionsRegistered
	}

	indices, err := deps.PickIndices(len(all), challengeSize)
	if err != nil {
		return nil, deps.Errors.Internal("draw questions", err)
	}
	drawn := make([]session.Question, 0, challengeSize)
	for _, idx := range indices {
		drawn = append(drawn, all[idx])
	}

	err = deps.Sessions.SetQuestions(ctx, sessionID, drawn)
	switch {
	case err == nil:
		return questionTexts(drawn), nil
	case errors.Is(err, session.ErrChallengeIssued):
		// A concurrent call drew first; return its pair.
		sess, err = resolveRecovery(ctx, sessionID, deps)
		if err != nil {
			return nil, err
		}
		return questionTexts(sess.Recovery.Questions), nil
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrInvalidOperation):
		return nil, deps.Errors.NoActiveChallenge
	default:
		return nil, deps.Errors.Internal("store challenge", err)
	}
}

// RunSubmitAnswers verifies the answers positionally and, when both match,
// consumes the challenge and performs the terminal action of the mode.
func RunSubmitAnswers(ctx context.Context, sessionID string, answers []string, deps RecoveryDeps) (*RecoveryOutcome, error) {
	sess, err := resolveRecovery(ctx, sessionID, deps)
	if err != nil {
		return nil, err
	}
	if !sess.Recovery.Issued() {
		return nil, deps.Errors.NoActiveChallenge
	}
	obs := deps.Observer
	mode := sess.Recovery.Mode

	// Malformed submissions are rejected before they can spend the answer budget.
	questions := sess.Recovery.Questions
	if len(answers) != len(questions) {
		return nil, deps.Errors.MalformedRequest
	}

	if deps.CheckAnswerBudget != nil {
		if err := deps.CheckAnswerBudget(ctx, sess.UserID); err != nil {
			if deps.IsBudgetExceeded != nil && deps.IsBudgetExceeded(err) {
				if destroyErr := deps.Sessions.DestroyRecovery(ctx, sessionID); destroyErr != nil && !errors.Is(destroyErr, session.ErrNotFound) {
					obs.warn("drop rate limited recovery failed", destroyErr)
				}
				obs.inc(deps.Metrics.RateLimited)
				obs.audit(ctx, deps.Events.Answers, false, sess.UserID, sessionID, err, func() map[string]string {
					return map[string]string{"mode": mode.String()}
				})
				return nil, err
			}
			return nil, deps.Errors.Internal("answer budget", err)
		}
	}

	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	hashes, err := deps.GetAnswerHashes(ctx, sess.UserID, ids)
	if err != nil {
		return nil, deps.Errors.Internal("load answer hashes", err)
	}

	matched := true
	for i, q := range questions {
		hash, ok := hashes[q.ID]
		if !ok {
			return nil, deps.Errors.Internal("load answer hashes", fmt.Errorf("missing hash for question %s", q.ID))
		}
		ok, err := deps.VerifySecret(strings.ToLower(answers[i]), hash)
		if err != nil {
			return nil, deps.Errors.Internal("verify answer", err)
		}
		matched = matched && ok
	}
	if !matched {
		obs.inc(deps.Metrics.AnswersIncorrect)
		obs.audit(ctx, deps.Events.Answers, false, sess.UserID, sessionID, deps.Errors.AnswersIncorrect, func() map[string]string {
			return map[string]string{"mode": mode.String()}
		})
		return nil, deps.Errors.AnswersIncorrect
	}

	// Consume the challenge before acting so a concurrent submit cannot
	// complete the same recovery twice.
	if err := deps.Sessions.DestroyRecovery(ctx, sessionID); err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrInvalidOperation) {
			return nil, deps.Errors.NoActiveChallenge
		}
		return nil, deps.Errors.Internal("consume challenge", err)
	}
	if deps.ResetAnswerBudget != nil {
		if err := deps.ResetAnswerBudget(ctx, sess.UserID); err != nil {
			obs.warn("reset answer budget failed", err)
		}
	}

	outcome := &RecoveryOutcome{Mode: mode, UserID: sess.UserID}
	var terminalErr error
	switch mode {
	case session.ModeForgotPassword:
		outcome.Notified, terminalErr = resetPassword(ctx, sess, deps)
	case session.ModeUnlock:
		terminalErr = deps.Unlock(ctx, sess.UserID)
		if terminalErr == nil {
			obs.inc(deps.Metrics.AccountUnlocked)
		}
	default:
		terminalErr = fmt.Errorf("unknown recovery mode %d", mode)
	}

	if terminalErr != nil {
		obs.inc(deps.Metrics.RecoveryFailed)
		obs.audit(ctx, deps.Events.Completed, false, sess.UserID, sessionID, deps.Errors.RecoveryFailed, func() map[string]string {
			return map[string]string{"mode": mode.String()}
		})
		return nil, fmt.Errorf("%w: %v", deps.Errors.RecoveryFailed, terminalErr)
	}

	obs.inc(deps.Metrics.RecoverySuccess)
	obs.audit(ctx, deps.Events.Completed, true, sess.UserID, sessionID, nil, func() map[string]string {
		return map[string]string{"mode": mode.String()}
	})
	return outcome, nil
}

// RunAbandonRecovery discards the Recovery session bound to sessionID.
func RunAbandonRecovery(ctx context.Context, sessionID string, deps RecoveryDeps) error {
	sess, err := resolveRecovery(ctx, sessionID, deps)
	if err != nil {
		return err
	}
	if err := deps.Sessions.DestroyRecovery(ctx, sessionID); err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrInvalidOperation) {
			return deps.Errors.NoActiveChallenge
		}
		return deps.Errors.Internal("abandon recovery", err)
	}
	deps.Observer.audit(ctx, deps.Events.Abandoned, true, sess.UserID, sessionID, nil, func() map[string]string {
		return map[string]string{"mode": sess.Recovery.Mode.String()}
	})
	return nil
}

func resetPassword(ctx context.Context, sess *session.Session, deps RecoveryDeps) (bool, error) {
	secret, err := deps.RandomSecret(deps.NewSecretLength)
	if err != nil {
		return false, err
	}
	hash, err := deps.HashSecret(secret)
	if err != nil {
		return false, err
	}
	if err := deps.UpdatePassword(ctx, sess.UserID, hash); err != nil {
		return false, err
	}
	if err := deps.Sessions.DestroyAllForUser(ctx, sess.UserID); err != nil {
		return false, err
	}
	if deps.SendMail == nil {
		return false, errors.New("no mailer configured")
	}
	body := fmt.Sprintf(deps.MailBody, secret)
	if err := deps.SendMail(ctx, sess.Email, deps.MailSubject, body); err != nil {
		return false, err
	}
	return true, nil
}

func resolveRecovery(ctx context.Context, sessionID string, deps RecoveryDeps) (*session.Session, error) {
	if deps.Sessions.Resolve == nil {
		return nil, deps.Errors.EngineNotReady
	}
	sess, err := deps.Sessions.Resolve(ctx, sessionID)
	if err != nil {
		return nil, deps.Errors.Internal("resolve session", err)
	}
	if sess == nil || sess.Kind != session.KindRecovery || sess.Recovery == nil {
		return nil, deps.Errors.NoActiveChallenge
	}
	return sess, nil
}

func questionTexts(questions []session.Question) []string {
	out := make([]string, len(questions))
	for i, q := range questions {
		out[i] = q.Text
	}
	return out
}
