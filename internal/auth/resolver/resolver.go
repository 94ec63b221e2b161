package resolver

import (
	"context"

	"github.com/clay/amphora-auth/internal/auth"
	"github.com/clay/amphora-auth/internal/site"
)

// Resolver turns a provider-verified profile into a local user record.
// It is the ONLY place where profile-to-user mapping logic lives.
type Resolver interface {
	// Resolve never returns an error directly: every outcome, including a
	// store failure, is carried by the Result. current is the user already
	// authenticated on the request, or nil on a first login.
	Resolve(
		ctx context.Context,
		s site.Site,
		fields FieldMap,
		profile Profile,
		current *auth.User,
	) Result
}

// Outcome discriminates a Result.
type Outcome int

const (
	OutcomeAuthenticated Outcome = iota + 1
	OutcomeRejected
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAuthenticated:
		return "authenticated"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of a verification. Rejected is a soft failure the
// user sees as a login page error; Failed is an infrastructure error.
type Result struct {
	Outcome Outcome
	User    *auth.User
	Reason  string
	Err     error
}

func Authenticated(u *auth.User) Result {
	return Result{Outcome: OutcomeAuthenticated, User: u}
}

func Rejected(reason string) Result {
	return Result{Outcome: OutcomeRejected, Reason: reason}
}

func Failed(err error) Result {
	return Result{Outcome: OutcomeFailed, Err: err}
}
