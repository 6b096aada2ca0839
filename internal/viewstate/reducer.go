package viewstate

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// Action is an input to Reduce: a user intent or the result of an effect.
type Action interface {
	action()
}

type (
	// CreateRequested opens the partner-1 form with a proposed code.
	CreateRequested struct{ Code string }
	JoinCodeChanged struct{ Code string }
	JoinRequested   struct{}
	JoinChecked     struct {
		Code         string
		Partner1Name string
		Err          error
	}
	NameChanged        struct{ Name string }
	PerspectiveChanged struct{ Perspective string }
	SubmitRequested    struct{}
	// Partner1Submitted carries NextCode so a taken code can be replaced
	// without the reducer generating randomness.
	Partner1Submitted struct {
		Code     string
		Token    string
		Err      error
		NextCode string
	}
	Partner2Submitted struct {
		Token string
		Err   error
	}
	PollResult struct {
		Snapshot Snapshot
		Err      error
	}
	// SolutionReceived and PollResult carry the session code so results that
	// outlive their screen are dropped.
	SolutionReceived struct {
		Code string
		Text string
		Err  error
	}
	RetryRequested struct{}
	StartOver      struct{}
)

func (CreateRequested) action()    {}
func (JoinCodeChanged) action()    {}
func (JoinRequested) action()      {}
func (JoinChecked) action()        {}
func (NameChanged) action()        {}
func (PerspectiveChanged) action() {}
func (SubmitRequested) action()    {}
func (Partner1Submitted) action()  {}
func (Partner2Submitted) action()  {}
func (PollResult) action()         {}
func (SolutionReceived) action()   {}
func (RetryRequested) action()     {}
func (StartOver) action()          {}

// Effect is work the controller performs on behalf of the reducer. Its
// outcome comes back as an Action.
type Effect interface {
	effect()
}

type (
	CheckJoinEffect     struct{ Code string }
	CreateSessionEffect struct {
		Code        string
		Name        string
		Perspective string
	}
	SubmitPartner2Effect struct {
		Code        string
		Name        string
		Perspective string
	}
	RequestSolutionEffect struct {
		Code  string
		Token string
	}
)

func (CheckJoinEffect) effect()       {}
func (CreateSessionEffect) effect()   {}
func (SubmitPartner2Effect) effect()  {}
func (RequestSolutionEffect) effect() {}

// Reduce returns the next state and at most one effect. Actions that do not
// apply to the current screen leave it unchanged.
func Reduce(state State, action Action) (State, Effect) {
	if _, ok := action.(StartOver); ok {
		return Home{}, nil
	}
	if state == nil {
		state = Home{}
	}

	switch s := state.(type) {
	case Home:
		return reduceHome(s, action)
	case Partner1Form:
		return reducePartner1(s, action)
	case Partner2Form:
		return reducePartner2(s, action)
	case Waiting:
		return reduceWaiting(s, action)
	default:
		return state, nil
	}
}

func reduceHome(s Home, action Action) (State, Effect) {
	switch a := action.(type) {
	case CreateRequested:
		return Partner1Form{Code: a.Code}, nil
	case JoinCodeChanged:
		s.JoinCode = strings.ToUpper(strings.TrimSpace(a.Code))
		s.Err = ""
		return s, nil
	case JoinRequested:
		if s.Checking {
			return s, nil
		}
		code := strings.ToUpper(strings.TrimSpace(s.JoinCode))
		if utf8.RuneCountInString(code) != CodeLength {
			s.Err = MsgCodeLength
			return s, nil
		}
		s.JoinCode = code
		s.Checking = true
		s.Err = ""
		return s, CheckJoinEffect{Code: code}
	case JoinChecked:
		if !s.Checking {
			return s, nil
		}
		s.Checking = false
		if a.Err != nil {
			s.Err = joinMessage(a.Err)
			return s, nil
		}
		code := a.Code
		if code == "" {
			code = s.JoinCode
		}
		return Partner2Form{Code: code, Partner1Name: a.Partner1Name}, nil
	}
	return s, nil
}

func reducePartner1(s Partner1Form, action Action) (State, Effect) {
	switch a := action.(type) {
	case NameChanged:
		if !s.Submitting {
			s.Name = a.Name
		}
		return s, nil
	case PerspectiveChanged:
		if !s.Submitting {
			s.Perspective = a.Perspective
			s.Err = ""
		}
		return s, nil
	case SubmitRequested:
		if s.Submitting {
			return s, nil
		}
		perspective, msg := checkPerspective(s.Perspective)
		if msg != "" {
			s.Err = msg
			return s, nil
		}
		s.Submitting = true
		s.Err = ""
		return s, CreateSessionEffect{Code: s.Code, Name: strings.TrimSpace(s.Name), Perspective: perspective}
	case Partner1Submitted:
		if !s.Submitting {
			return s, nil
		}
		s.Submitting = false
		switch {
		case a.Err == nil:
			code := a.Code
			if code == "" {
				code = s.Code
			}
			return Waiting{Code: code, Token: a.Token, Phase: AwaitingPartner}, nil
		case errors.Is(a.Err, ErrCodeTaken) && a.NextCode != "":
			s.Code = a.NextCode
			s.Err = MsgCodeTaken
		default:
			s.Err = MsgSubmitFailed
		}
		return s, nil
	}
	return s, nil
}

func reducePartner2(s Partner2Form, action Action) (State, Effect) {
	switch a := action.(type) {
	case NameChanged:
		if !s.Submitting && !s.Submitted() {
			s.Name = a.Name
		}
		return s, nil
	case PerspectiveChanged:
		if !s.Submitting && !s.Submitted() {
			s.Perspective = a.Perspective
			s.Err = ""
		}
		return s, nil
	case SubmitRequested, RetryRequested:
		if s.Submitting || s.Generating {
			return s, nil
		}
		if s.Submitted() {
			// perspective is stored; only the solution request is repeated
			s.Generating = true
			s.Err = ""
			return s, RequestSolutionEffect{Code: s.Code, Token: s.Token}
		}
		perspective, msg := checkPerspective(s.Perspective)
		if msg != "" {
			s.Err = msg
			return s, nil
		}
		s.Submitting = true
		s.Err = ""
		return s, SubmitPartner2Effect{Code: s.Code, Name: strings.TrimSpace(s.Name), Perspective: perspective}
	case Partner2Submitted:
		if !s.Submitting {
			return s, nil
		}
		s.Submitting = false
		if a.Err != nil {
			s.Err = submitMessage(a.Err)
			return s, nil
		}
		s.Token = a.Token
		s.Generating = true
		return s, RequestSolutionEffect{Code: s.Code, Token: s.Token}
	case SolutionReceived:
		if !s.Generating || !sameSession(s.Code, a.Code) {
			return s, nil
		}
		s.Generating = false
		switch {
		case a.Err == nil:
			return Solution{Code: s.Code, Text: a.Text}, nil
		case errors.Is(a.Err, ErrInProgress):
			return Waiting{Code: s.Code, Token: s.Token, Phase: AwaitingSolution}, nil
		default:
			s.Err = MsgSolutionFailed
			return s, nil
		}
	}
	return s, nil
}

func reduceWaiting(s Waiting, action Action) (State, Effect) {
	switch a := action.(type) {
	case PollResult:
		if !s.Polling() || !sameSession(s.Code, a.Snapshot.Code) {
			return s, nil
		}
		if a.Err != nil {
			s.Err = MsgGeneric
			return s, nil
		}
		s.Err = ""
		if a.Snapshot.Solution != "" {
			return Solution{Code: s.Code, Text: a.Snapshot.Solution}, nil
		}
		if a.Snapshot.HasPartner2 {
			// awaiting a solution means the last holder of the generation
			// lock may have failed; asking again either waits or generates
			s.Phase = Generating
			return s, RequestSolutionEffect{Code: s.Code, Token: s.Token}
		}
		return s, nil
	case SolutionReceived:
		if s.Phase != Generating || !sameSession(s.Code, a.Code) {
			return s, nil
		}
		switch {
		case a.Err == nil:
			return Solution{Code: s.Code, Text: a.Text}, nil
		case errors.Is(a.Err, ErrInProgress):
			s.Phase = AwaitingSolution
			return s, nil
		default:
			s.Phase = Failed
			s.Err = MsgSolutionFailed
			return s, nil
		}
	case RetryRequested:
		if s.Phase != Failed && s.Phase != AwaitingSolution {
			return s, nil
		}
		s.Phase = Generating
		s.Err = ""
		return s, RequestSolutionEffect{Code: s.Code, Token: s.Token}
	}
	return s, nil
}

func sameSession(current, incoming string) bool {
	return incoming == "" || incoming == current
}

func checkPerspective(raw string) (string, string) {
	perspective := strings.TrimSpace(raw)
	if perspective == "" {
		return "", MsgPerspectiveEmpty
	}
	if utf8.RuneCountInString(perspective) > MaxPerspectiveLength {
		return "", MsgPerspectiveTooLong
	}
	return perspective, ""
}

func joinMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return MsgNotFound
	case errors.Is(err, ErrAlreadyComplete):
		return MsgAlreadyComplete
	default:
		return MsgGeneric
	}
}

func submitMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return MsgNotFound
	case errors.Is(err, ErrAlreadyComplete):
		return MsgAlreadyComplete
	default:
		return MsgSubmitFailed
	}
}
