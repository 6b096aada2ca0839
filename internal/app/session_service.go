package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"mindful-resolve/internal/ai"
	"mindful-resolve/internal/model"
	"mindful-resolve/internal/pkg/jwtutil"
	"mindful-resolve/internal/pkg/sessioncode"
	"mindful-resolve/internal/repository"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidSessionCode   = errors.New("session code must be 6 letters or digits")
	ErrPerspectiveEmpty     = errors.New("perspective is empty")
	ErrPerspectiveTooLong   = errors.New("perspective is too long")
	ErrNameTooLong          = errors.New("partner name is too long")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionComplete      = errors.New("session already has both perspectives")
	ErrSessionIncomplete    = errors.New("both partners must submit their perspectives first")
	ErrSessionCodeTaken     = errors.New("session code is already in use")
	ErrGeneratorUnavailable = errors.New("ai service not configured")
	ErrGenerationInProgress = errors.New("solution is already being generated")
	ErrSolutionGeneration   = errors.New("failed to generate solution")
	ErrSolutionPersist      = errors.New("failed to save solution")
)

type SessionStore interface {
	Create(ctx context.Context, session *model.Session) error
	GetByCode(ctx context.Context, code string) (*model.Session, error)
	UpdatePartner2(ctx context.Context, code, name, perspective string) error
	UpdateSolution(ctx context.Context, code, solution string) error
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type SessionCache interface {
	GetSession(ctx context.Context, code string) (*model.Session, bool, error)
	SetSession(ctx context.Context, session *model.Session) error
	DeleteSession(ctx context.Context, code string) error
	MarkDirty(ctx context.Context, code string) error
	IsDirty(ctx context.Context, code string) (bool, error)
	AcquireGenerationLock(ctx context.Context, code string) (token string, acquired bool, err error)
	ReleaseGenerationLock(ctx context.Context, code, token string) error
}

type SolutionJobPublisher interface {
	PublishGenerate(ctx context.Context, sessionCode string) error
}

type SessionSettings struct {
	MaxPerspectiveLength int
	MaxNameLength        int
	CodeAttempts         int
	Retention            time.Duration
	TokenSecret          string
	TokenTTL             time.Duration
}

type SessionService struct {
	store     SessionStore
	cache     SessionCache
	publisher SolutionJobPublisher
	generator ai.TextGenerator
	settings  SessionSettings
	logger    *zap.Logger

	newCode func() (string, error)
	now     func() time.Time
}

type CreateSessionInput struct {
	Code        string
	Name        string
	Perspective string
}

type SubmitPartner2Input struct {
	Code        string
	Name        string
	Perspective string
}

// SessionResult is a session plus the participant token for the seat just filled.
type SessionResult struct {
	Session *model.Session
	Token   string
}

// NewSessionService wires the session lifecycle. cache, publisher and
// generator may be nil.
func NewSessionService(
	store SessionStore,
	cache SessionCache,
	publisher SolutionJobPublisher,
	generator ai.TextGenerator,
	settings SessionSettings,
	logger *zap.Logger,
) *SessionService {
	if settings.MaxPerspectiveLength <= 0 {
		settings.MaxPerspectiveLength = 1000
	}
	if settings.MaxNameLength <= 0 {
		settings.MaxNameLength = 64
	}
	if settings.CodeAttempts <= 0 {
		settings.CodeAttempts = 5
	}
	if settings.TokenTTL <= 0 {
		settings.TokenTTL = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		store:     store,
		cache:     cache,
		publisher: publisher,
		generator: generator,
		settings:  settings,
		logger:    logger,
		newCode:   sessioncode.Generate,
		now:       time.Now,
	}
}

// CreateSession inserts a new session holding partner 1's fields. A blank code
// lets the service allocate one, retrying on collisions.
func (s *SessionService) CreateSession(ctx context.Context, input CreateSessionInput) (*SessionResult, error) {
	name, perspective, err := s.validateSubmission(input.Name, input.Perspective)
	if err != nil {
		return nil, err
	}

	session := &model.Session{
		Partner1Name:        name,
		Partner1Perspective: perspective,
	}

	if strings.TrimSpace(input.Code) != "" {
		code := sessioncode.Normalize(input.Code)
		if !sessioncode.Valid(code) {
			return nil, ErrInvalidSessionCode
		}
		session.SessionCode = code
		if err := s.store.Create(ctx, session); err != nil {
			if errors.Is(err, repository.ErrDuplicateCode) {
				return nil, ErrSessionCodeTaken
			}
			return nil, err
		}
	} else if err := s.createWithFreshCode(ctx, session); err != nil {
		return nil, err
	}

	token, err := jwtutil.GenerateToken(s.settings.TokenSecret, s.settings.TokenTTL, session.SessionCode, jwtutil.RolePartner1)
	if err != nil {
		return nil, err
	}

	s.logger.Info("session created", zap.String("session_code", session.SessionCode))
	return &SessionResult{Session: session, Token: token}, nil
}

func (s *SessionService) createWithFreshCode(ctx context.Context, session *model.Session) error {
	for attempt := 0; attempt < s.settings.CodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return err
		}
		session.SessionCode = code
		err = s.store.Create(ctx, session)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicateCode) {
			return err
		}
		s.logger.Debug("session code collision", zap.String("session_code", code), zap.Int("attempt", attempt+1))
	}
	return ErrSessionCodeTaken
}

// CheckJoin verifies that a code names an open session. Malformed codes are
// rejected before the store is touched.
func (s *SessionService) CheckJoin(ctx context.Context, rawCode string) (*model.Session, error) {
	code := sessioncode.Normalize(rawCode)
	if !sessioncode.Valid(code) {
		return nil, ErrInvalidSessionCode
	}

	session, err := s.store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.HasPartner2() {
		return nil, ErrSessionComplete
	}
	return session, nil
}

// SubmitPartner2 fills the joiner's seat exactly once and queues solution generation.
func (s *SessionService) SubmitPartner2(ctx context.Context, input SubmitPartner2Input) (*SessionResult, error) {
	code := sessioncode.Normalize(input.Code)
	if !sessioncode.Valid(code) {
		return nil, ErrInvalidSessionCode
	}
	name, perspective, err := s.validateSubmission(input.Name, input.Perspective)
	if err != nil {
		return nil, err
	}

	session, err := s.CheckJoin(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdatePartner2(ctx, code, name, perspective); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrSessionComplete
		}
		return nil, err
	}
	s.invalidate(ctx, code)

	session.Partner2Name = name
	session.Partner2Perspective = perspective

	if s.publisher != nil {
		if err := s.publisher.PublishGenerate(ctx, code); err != nil {
			s.logger.Warn("enqueue solution job failed", zap.String("session_code", code), zap.Error(err))
		}
	}

	token, err := jwtutil.GenerateToken(s.settings.TokenSecret, s.settings.TokenTTL, code, jwtutil.RolePartner2)
	if err != nil {
		return nil, err
	}

	s.logger.Info("partner2 joined", zap.String("session_code", code))
	return &SessionResult{Session: session, Token: token}, nil
}

// GetSession returns the current record, served from the snapshot cache when
// no write is settling.
func (s *SessionService) GetSession(ctx context.Context, rawCode string) (*model.Session, error) {
	code := sessioncode.Normalize(rawCode)
	if !sessioncode.Valid(code) {
		return nil, ErrInvalidSessionCode
	}

	if s.cache != nil {
		dirty, err := s.cache.IsDirty(ctx, code)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.cache.GetSession(ctx, code); cacheErr == nil && hit {
				return cached, nil
			}
		}
	}

	session, err := s.store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if s.cache != nil {
		if dirty, dirtyErr := s.cache.IsDirty(ctx, code); dirtyErr == nil && !dirty {
			_ = s.cache.SetSession(ctx, session)
		}
	}
	return session, nil
}

// GenerateSolution returns the session's solution, generating and storing it
// on first use. A stored solution is returned without calling the provider.
func (s *SessionService) GenerateSolution(ctx context.Context, rawCode string) (string, error) {
	if strings.TrimSpace(rawCode) == "" {
		return "", ErrInvalidInput
	}
	code := sessioncode.Normalize(rawCode)
	if !sessioncode.Valid(code) {
		return "", ErrSessionNotFound
	}

	session, err := s.store.GetByCode(ctx, code)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", ErrSessionNotFound
	}
	if !session.Complete() {
		return "", ErrSessionIncomplete
	}
	if session.HasSolution() {
		return session.Solution, nil
	}
	if s.generator == nil {
		return "", ErrGeneratorUnavailable
	}

	if s.cache != nil {
		lockToken, acquired, lockErr := s.cache.AcquireGenerationLock(ctx, code)
		switch {
		case lockErr != nil:
			s.logger.Warn("generation lock unavailable, continuing without it", zap.String("session_code", code), zap.Error(lockErr))
		case !acquired:
			return "", ErrGenerationInProgress
		default:
			defer func() {
				if err := s.cache.ReleaseGenerationLock(context.WithoutCancel(ctx), code, lockToken); err != nil {
					s.logger.Warn("release generation lock failed", zap.String("session_code", code), zap.Error(err))
				}
			}()

			// a previous holder may have stored the solution after our first read
			current, err := s.store.GetByCode(ctx, code)
			if err != nil {
				return "", err
			}
			if current == nil {
				return "", ErrSessionNotFound
			}
			if current.HasSolution() {
				return current.Solution, nil
			}
			session = current
		}
	}

	prompt := ai.MediationPrompt(
		session.Partner1Name,
		session.Partner1Perspective,
		session.Partner2Name,
		session.Partner2Perspective,
	)

	started := s.now()
	solution, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		s.logger.Error("generate solution failed", zap.String("session_code", code), zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrSolutionGeneration, err)
	}
	solution = strings.TrimSpace(solution)
	if solution == "" {
		s.logger.Error("generate solution returned no text", zap.String("session_code", code))
		return "", ErrSolutionGeneration
	}

	if err := s.store.UpdateSolution(ctx, code, solution); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// another writer stored a solution first; that one is authoritative
			stored, getErr := s.store.GetByCode(ctx, code)
			if getErr == nil && stored != nil && stored.HasSolution() {
				return stored.Solution, nil
			}
		}
		s.logger.Error("save solution failed", zap.String("session_code", code), zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrSolutionPersist, err)
	}
	s.invalidate(ctx, code)

	s.logger.Info("solution generated",
		zap.String("session_code", code),
		zap.Int("length", len(solution)),
		zap.Duration("elapsed", s.now().Sub(started)),
	)
	return solution, nil
}

// PurgeExpired deletes sessions older than the retention window. A zero
// window disables purging.
func (s *SessionService) PurgeExpired(ctx context.Context) (int64, error) {
	if s.settings.Retention <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.settings.Retention)
	deleted, err := s.store.DeleteCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("expired sessions purged", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	}
	return deleted, nil
}

func (s *SessionService) validateSubmission(rawName, rawPerspective string) (string, string, error) {
	perspective := strings.TrimSpace(rawPerspective)
	if perspective == "" {
		return "", "", ErrPerspectiveEmpty
	}
	if utf8.RuneCountInString(perspective) > s.settings.MaxPerspectiveLength {
		return "", "", ErrPerspectiveTooLong
	}
	name := strings.TrimSpace(rawName)
	if utf8.RuneCountInString(name) > s.settings.MaxNameLength {
		return "", "", ErrNameTooLong
	}
	return name, perspective, nil
}

func (s *SessionService) invalidate(ctx context.Context, code string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.MarkDirty(ctx, code)
	_ = s.cache.DeleteSession(ctx, code)
}
