package session

import "slices"

// State is the request-scoped view of a session. It is a value: every
// mutator returns a new State and leaves the receiver untouched.
type State struct {
	principalKey string
	returnTo     string
	flash        []string
}

// PrincipalKey is the identity key of the authenticated user, if any.
func (s State) PrincipalKey() string { return s.principalKey }

func (s State) Authenticated() bool { return s.principalKey != "" }

func (s State) ReturnTo() string { return s.returnTo }

// Flash returns pending flash messages without consuming them.
func (s State) Flash() []string { return slices.Clone(s.flash) }

func (s State) IsZero() bool {
	return s.principalKey == "" && s.returnTo == "" && len(s.flash) == 0
}

func (s State) WithPrincipal(key string) State {
	s.principalKey = key
	s.flash = slices.Clone(s.flash)
	return s
}

func (s State) WithoutPrincipal() State {
	return s.WithPrincipal("")
}

func (s State) WithReturnTo(url string) State {
	s.returnTo = url
	s.flash = slices.Clone(s.flash)
	return s
}

// TakeReturnTo consumes the return-to slot.
func (s State) TakeReturnTo() (string, State) {
	url := s.returnTo
	return url, s.WithReturnTo("")
}

func (s State) WithFlash(msg string) State {
	s.flash = append(slices.Clone(s.flash), msg)
	return s
}

// TakeFlash consumes all pending flash messages.
func (s State) TakeFlash() ([]string, State) {
	msgs := s.flash
	s.flash = nil
	return msgs, s
}

func stateFrom(sess *Session) State {
	if sess == nil {
		return State{}
	}
	return State{
		principalKey: sess.PrincipalKey,
		returnTo:     sess.ReturnTo,
		flash:        slices.Clone(sess.Flash),
	}
}
