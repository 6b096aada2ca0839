// Package viewstate models the five client screens as a finite-state machine.
// Reduce is pure; Controller runs the effects it returns and owns the poller
// that lives exactly as long as the waiting screen.
package viewstate

import "errors"

type Screen int

const (
	ScreenHome Screen = iota
	ScreenPartner1Form
	ScreenPartner2Form
	ScreenWaiting
	ScreenSolution
)

func (s Screen) String() string {
	switch s {
	case ScreenHome:
		return "home"
	case ScreenPartner1Form:
		return "partner1-form"
	case ScreenPartner2Form:
		return "partner2-form"
	case ScreenWaiting:
		return "waiting"
	case ScreenSolution:
		return "solution"
	default:
		return "unknown"
	}
}

// State is one of Home, Partner1Form, Partner2Form, Waiting or Solution.
type State interface {
	Screen() Screen
}

type Home struct {
	JoinCode string
	Checking bool
	Err      string
}

type Partner1Form struct {
	Code        string
	Name        string
	Perspective string
	Submitting  bool
	Err         string
}

// Partner2Form stays on screen while the solution is requested; Token is set
// once the perspective is stored.
type Partner2Form struct {
	Code         string
	Partner1Name string
	Name         string
	Perspective  string
	Token        string
	Submitting   bool
	Generating   bool
	Err          string
}

func (f Partner2Form) Submitted() bool {
	return f.Token != ""
}

type WaitPhase int

const (
	// AwaitingPartner polls until partner 2 has submitted.
	AwaitingPartner WaitPhase = iota
	// Generating has one solution request in flight and does not poll.
	Generating
	// AwaitingSolution polls while another caller generates the solution and
	// asks again whenever a poll finds none stored.
	AwaitingSolution
	// Failed stops polling until the user retries.
	Failed
)

type Waiting struct {
	Code  string
	Token string
	Phase WaitPhase
	Err   string
}

// Polling reports whether the poller should run in this phase.
func (w Waiting) Polling() bool {
	return w.Phase == AwaitingPartner || w.Phase == AwaitingSolution
}

type Solution struct {
	Code string
	Text string
}

func (Home) Screen() Screen         { return ScreenHome }
func (Partner1Form) Screen() Screen { return ScreenPartner1Form }
func (Partner2Form) Screen() Screen { return ScreenPartner2Form }
func (Waiting) Screen() Screen      { return ScreenWaiting }
func (Solution) Screen() Screen     { return ScreenSolution }

// Snapshot is what a poll sees of the shared session.
type Snapshot struct {
	Code         string
	Partner1Name string
	HasPartner2  bool
	Solution     string
}

// Errors a SessionAPI reports for outcomes the screens distinguish. Anything
// else is shown as MsgGeneric.
var (
	ErrNotFound        = errors.New("session not found")
	ErrAlreadyComplete = errors.New("session already complete")
	ErrCodeTaken       = errors.New("session code already in use")
	ErrInProgress      = errors.New("solution is being generated")
)

const (
	CodeLength           = 6
	MaxPerspectiveLength = 1000
	PollIntervalSeconds  = 3
)

const (
	MsgGeneric            = "Something went wrong. Please try again."
	MsgCodeLength         = "Please enter a valid 6-character session code"
	MsgNotFound           = "Session not found. Please check the code and try again."
	MsgAlreadyComplete    = "This session already has both perspectives."
	MsgPerspectiveEmpty   = "Please share your perspective"
	MsgPerspectiveTooLong = "Please keep your perspective under 1000 characters"
	MsgCodeTaken          = "That code was just taken. A new code has been generated, please submit again."
	MsgSubmitFailed       = "Failed to submit perspective. Please try again."
	MsgSolutionFailed     = "Failed to generate solution. Please try again."
)
