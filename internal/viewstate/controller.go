package viewstate

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"mindful-resolve/internal/pkg/sessioncode"
)

// SessionAPI is the remote session store as the client sees it. Errors that
// the screens distinguish must wrap ErrNotFound, ErrAlreadyComplete,
// ErrCodeTaken or ErrInProgress.
type SessionAPI interface {
	CheckJoin(ctx context.Context, code string) (partner1Name string, err error)
	CreateSession(ctx context.Context, code, name, perspective string) (sessionCode, token string, err error)
	SubmitPartner2(ctx context.Context, code, name, perspective string) (token string, err error)
	FetchSession(ctx context.Context, code, token string) (Snapshot, error)
	RequestSolution(ctx context.Context, code, token string) (string, error)
}

type Option func(*Controller)

func WithPollInterval(interval time.Duration) Option {
	return func(c *Controller) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

func WithCodeGenerator(fn func() (string, error)) Option {
	return func(c *Controller) {
		if fn != nil {
			c.newCode = fn
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Controller applies actions through Reduce, runs the resulting effects in
// the background and keeps a poller alive only while the waiting screen is
// polling. onChange may be called from any goroutine; State returns the
// latest value.
type Controller struct {
	api          SessionAPI
	onChange     func(State)
	pollInterval time.Duration
	newCode      func() (string, error)
	logger       *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	state  State
	poller *poller
	closed bool
}

func NewController(api SessionAPI, onChange func(State), opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		api:          api,
		onChange:     onChange,
		pollInterval: PollIntervalSeconds * time.Second,
		newCode:      sessioncode.Generate,
		logger:       zap.NewNop(),
		ctx:          ctx,
		cancel:       cancel,
		state:        Home{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Create opens the partner-1 form with a freshly proposed code.
func (c *Controller) Create() {
	code, err := c.newCode()
	if err != nil {
		c.logger.Warn("generate session code failed", zap.Error(err))
		code = ""
	}
	c.Dispatch(CreateRequested{Code: code})
}

// Dispatch applies action and starts any effect it produces. It is a no-op
// after Close.
func (c *Controller) Dispatch(action Action) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	prev := c.state
	next, eff := Reduce(c.state, action)
	c.state = next
	c.syncPollerLocked()
	if eff != nil {
		c.runLocked(eff)
	}
	c.mu.Unlock()

	if prev.Screen() != next.Screen() {
		c.logger.Debug("screen changed", zap.Stringer("from", prev.Screen()), zap.Stringer("to", next.Screen()))
	}
	if c.onChange != nil {
		c.onChange(next)
	}
}

// Close stops the poller, abandons in-flight effects and waits for every
// goroutine the controller started.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.poller.stop()
	c.poller = nil
	c.cancel()
	c.mu.Unlock()

	c.wg.Wait()
}

func (c *Controller) syncPollerLocked() {
	waiting, ok := c.state.(Waiting)
	if !ok || !waiting.Polling() {
		c.poller.stop()
		c.poller = nil
		return
	}

	key := waiting.Code + "|" + waiting.Token
	if c.poller != nil && c.poller.key == key {
		return
	}
	c.poller.stop()
	code, token := waiting.Code, waiting.Token
	c.poller = startPoller(c.ctx, &c.wg, key, c.pollInterval, func(ctx context.Context) {
		snapshot, err := c.api.FetchSession(ctx, code, token)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			c.logger.Debug("poll session failed", zap.String("session_code", code), zap.Error(err))
		}
		if snapshot.Code == "" {
			snapshot.Code = code
		}
		c.Dispatch(PollResult{Snapshot: snapshot, Err: err})
	})
}

func (c *Controller) runLocked(eff Effect) {
	ctx := c.ctx
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		action := c.perform(ctx, eff)
		if action == nil || ctx.Err() != nil {
			return
		}
		c.Dispatch(action)
	}()
}

func (c *Controller) perform(ctx context.Context, eff Effect) Action {
	switch e := eff.(type) {
	case CheckJoinEffect:
		name, err := c.api.CheckJoin(ctx, e.Code)
		return JoinChecked{Code: e.Code, Partner1Name: name, Err: err}
	case CreateSessionEffect:
		code, token, err := c.api.CreateSession(ctx, e.Code, e.Name, e.Perspective)
		result := Partner1Submitted{Code: code, Token: token, Err: err}
		if err != nil {
			c.logger.Debug("create session failed", zap.String("session_code", e.Code), zap.Error(err))
			if next, genErr := c.newCode(); genErr == nil {
				result.NextCode = next
			}
		}
		return result
	case SubmitPartner2Effect:
		token, err := c.api.SubmitPartner2(ctx, e.Code, e.Name, e.Perspective)
		if err != nil {
			c.logger.Debug("submit partner2 failed", zap.String("session_code", e.Code), zap.Error(err))
		}
		return Partner2Submitted{Token: token, Err: err}
	case RequestSolutionEffect:
		text, err := c.api.RequestSolution(ctx, e.Code, e.Token)
		if err != nil {
			c.logger.Debug("request solution failed", zap.String("session_code", e.Code), zap.Error(err))
		}
		return SolutionReceived{Code: e.Code, Text: text, Err: err}
	default:
		return nil
	}
}
