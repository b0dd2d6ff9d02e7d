// Package authz decides whether a user may act on a folder or document.
//
// The decision combines three sources in a fixed order: the user's admin
// flag, the user's own grant on the resource, and the grants of every group
// the user belongs to. A deny grant short-circuits wherever it is met.
package authz

import (
	"context"

	"go.uber.org/zap"

	"github.com/Doud-FR/Wiki/internal/apperr"
	"github.com/Doud-FR/Wiki/internal/models"
)

// Decision is the outcome of an authorization check.
type Decision int

const (
	// Deny means the action is not permitted.
	Deny Decision = iota

	// Allow means the action is permitted.
	Allow
)

// String returns "allow" or "deny".
func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Reason records which rule produced a decision.
type Reason int

const (
	// ReasonNoMatch means no direct or group grant was sufficient.
	ReasonNoMatch Reason = iota

	// ReasonAdmin means the user is a global admin.
	ReasonAdmin

	// ReasonDirectGrant means the user's own grant was sufficient.
	ReasonDirectGrant

	// ReasonGroupGrant means a grant held by one of the user's groups was
	// sufficient.
	ReasonGroupGrant

	// ReasonDirectDeny means the user holds a deny grant.
	ReasonDirectDeny

	// ReasonGroupDeny means one of the user's groups holds a deny grant.
	ReasonGroupDeny
)

// String returns a human-readable reason.
func (r Reason) String() string {
	switch r {
	case ReasonNoMatch:
		return "no matching permission"
	case ReasonAdmin:
		return "admin"
	case ReasonDirectGrant:
		return "direct grant"
	case ReasonGroupGrant:
		return "group grant"
	case ReasonDirectDeny:
		return "direct deny"
	case ReasonGroupDeny:
		return "group deny"
	default:
		return "unknown"
	}
}

// Result describes the outcome of a check and the grant that settled it.
type Result struct {
	Decision Decision
	Reason   Reason

	// MatchedGrant is the grant that produced the decision. Nil for the
	// admin bypass and for ReasonNoMatch.
	MatchedGrant *models.Permission
}

// Allowed reports whether the decision is Allow.
func (r Result) Allowed() bool { return r.Decision == Allow }

// GrantFinder looks up the single grant a subject holds on a resource. It
// returns nil and no error when there is none.
type GrantFinder interface {
	FindPermission(ctx context.Context, resource models.Resource, subject models.Subject) (*models.Permission, error)
}

// MembershipFinder lists the groups a user belongs to.
type MembershipFinder interface {
	GroupsForUser(ctx context.Context, userID int64) ([]models.Group, error)
}

// Engine evaluates authorization requests against the permission ledger.
// It never writes.
type Engine struct {
	grants   GrantFinder
	groups   MembershipFinder
	logger   *zap.Logger
	observer func(Result)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for decision tracing at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithObserver registers fn to be called with every decision reached.
// Lookup failures are not observed.
func WithObserver(fn func(Result)) Option {
	return func(e *Engine) { e.observer = fn }
}

func NewEngine(grants GrantFinder, groups MembershipFinder, opts ...Option) *Engine {
	e := &Engine{grants: grants, groups: groups, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Authorize decides whether user holds required on resource.
//
// Evaluation:
//  1. Admin users are allowed unconditionally.
//  2. The user's direct grant: deny → DENY, sufficient → ALLOW,
//     insufficient → continue.
//  3. Each group of the user in turn: deny → DENY, sufficient → ALLOW.
//  4. Otherwise DENY with ReasonNoMatch.
//
// A non-nil error means the decision could not be determined; the Result
// is then meaningless and must not be treated as a denial.
func (e *Engine) Authorize(ctx context.Context, user *models.User, resource models.Resource, required models.Level) (Result, error) {
	if user == nil {
		return Result{}, apperr.Invalidf("authorize: no user")
	}
	if required.Rank() == 0 {
		return Result{}, apperr.Invalidf("authorize: %q is not a requirable level", required)
	}
	if !resource.Type.Valid() {
		return Result{}, apperr.Invalidf("authorize: invalid resource type %q", resource.Type)
	}

	result, err := e.evaluate(ctx, user, resource, required)
	if err != nil {
		return Result{}, err
	}

	e.logger.Debug("authorization decision",
		zap.Int64("user_id", user.ID),
		zap.Stringer("resource", resource),
		zap.String("required", string(required)),
		zap.Stringer("decision", result.Decision),
		zap.Stringer("reason", result.Reason))
	if e.observer != nil {
		e.observer(result)
	}
	return result, nil
}

func (e *Engine) evaluate(ctx context.Context, user *models.User, resource models.Resource, required models.Level) (Result, error) {
	if user.IsAdmin {
		return Result{Decision: Allow, Reason: ReasonAdmin}, nil
	}

	direct, err := e.grants.FindPermission(ctx, resource, user.Subject())
	if err != nil {
		return Result{}, apperr.Wrap(err, "lookup direct grant")
	}
	if direct != nil {
		if direct.Level == models.LevelDeny {
			return Result{Decision: Deny, Reason: ReasonDirectDeny, MatchedGrant: direct}, nil
		}
		if direct.Level.Satisfies(required) {
			return Result{Decision: Allow, Reason: ReasonDirectGrant, MatchedGrant: direct}, nil
		}
	}

	groups, err := e.groups.GroupsForUser(ctx, user.ID)
	if err != nil {
		return Result{}, apperr.Wrap(err, "lookup group memberships")
	}
	for _, group := range groups {
		grant, err := e.grants.FindPermission(ctx, resource, group.Subject())
		if err != nil {
			return Result{}, apperr.Wrap(err, "lookup group grant")
		}
		if grant == nil {
			continue
		}
		if grant.Level == models.LevelDeny {
			return Result{Decision: Deny, Reason: ReasonGroupDeny, MatchedGrant: grant}, nil
		}
		if grant.Level.Satisfies(required) {
			return Result{Decision: Allow, Reason: ReasonGroupGrant, MatchedGrant: grant}, nil
		}
	}

	return Result{Decision: Deny, Reason: ReasonNoMatch}, nil
}

// Require is Authorize for callers that only proceed on Allow: a denial is
// returned as an apperr.Denied error.
func (e *Engine) Require(ctx context.Context, user *models.User, resource models.Resource, required models.Level) error {
	result, err := e.Authorize(ctx, user, resource, required)
	if err != nil {
		return err
	}
	if !result.Allowed() {
		return apperr.Deniedf("%s access to %s denied: %s", required, resource, result.Reason)
	}
	return nil
}
