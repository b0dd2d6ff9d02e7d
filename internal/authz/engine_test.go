package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Doud-FR/Wiki/internal/apperr"
	"github.com/Doud-FR/Wiki/internal/models"
)

type grantKey struct {
	resource models.Resource
	subject  models.Subject
}

// fakeLedger serves grants and memberships from maps and counts lookups.
type fakeLedger struct {
	grants      map[grantKey]models.Level
	memberships map[int64][]models.Group
	lookups     int
	failOn      *models.Subject
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{grants: map[grantKey]models.Level{}, memberships: map[int64][]models.Group{}}
}

func (f *fakeLedger) grant(resource models.Resource, subject models.Subject, level models.Level) {
	f.grants[grantKey{resource, subject}] = level
}

func (f *fakeLedger) join(userID int64, groups ...models.Group) {
	f.memberships[userID] = append(f.memberships[userID], groups...)
}

func (f *fakeLedger) FindPermission(_ context.Context, resource models.Resource, subject models.Subject) (*models.Permission, error) {
	f.lookups++
	if f.failOn != nil && *f.failOn == subject {
		return nil, errors.New("connection refused")
	}
	level, ok := f.grants[grantKey{resource, subject}]
	if !ok {
		return nil, nil
	}
	return &models.Permission{
		ResourceType: resource.Type,
		ResourceID:   resource.ID,
		SubjectType:  subject.Type,
		SubjectID:    subject.ID,
		Level:        level,
	}, nil
}

func (f *fakeLedger) GroupsForUser(_ context.Context, userID int64) ([]models.Group, error) {
	return f.memberships[userID], nil
}

var (
	folder42 = models.Resource{Type: models.ResourceFolder, ID: 42}
	doc7     = models.Resource{Type: models.ResourceDocument, ID: 7}
	alice    = &models.User{ID: 1, Email: "alice@example.com", IsActive: true}
	editors  = models.Group{ID: 10, Name: "editors"}
	readers  = models.Group{ID: 11, Name: "readers"}
)

var requirable = []models.Level{models.LevelRead, models.LevelWrite, models.LevelAdmin}

func TestAdminBypass(t *testing.T) {
	ledger := newFakeLedger()
	admin := &models.User{ID: 2, IsAdmin: true}
	ledger.grant(folder42, admin.Subject(), models.LevelDeny)
	engine := NewEngine(ledger, ledger)

	for _, level := range requirable {
		result, err := engine.Authorize(context.Background(), admin, folder42, level)
		require.NoError(t, err)
		assert.Equal(t, Allow, result.Decision, level)
		assert.Equal(t, ReasonAdmin, result.Reason)
	}
	assert.Zero(t, ledger.lookups)
}

func TestDirectDenyBeatsGroupGrant(t *testing.T) {
	ledger := newFakeLedger()
	ledger.join(alice.ID, editors)
	ledger.grant(folder42, editors.Subject(), models.LevelWrite)
	ledger.grant(folder42, alice.Subject(), models.LevelDeny)
	engine := NewEngine(ledger, ledger)

	result, err := engine.Authorize(context.Background(), alice, folder42, models.LevelRead)
	require.NoError(t, err)
	assert.Equal(t, Deny, result.Decision)
	assert.Equal(t, ReasonDirectDeny, result.Reason)
	require.NotNil(t, result.MatchedGrant)
	assert.Equal(t, models.LevelDeny, result.MatchedGrant.Level)
	assert.Equal(t, 1, ledger.lookups)
}

func TestDenyWinsForEveryLevel(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeLedger)
		want  Reason
	}{
		{
			name: "direct deny with admin group",
			setup: func(f *fakeLedger) {
				f.join(alice.ID, editors)
				f.grant(doc7, alice.Subject(), models.LevelDeny)
				f.grant(doc7, editors.Subject(), models.LevelAdmin)
			},
			want: ReasonDirectDeny,
		},
		{
			name: "group deny before satisfying group",
			setup: func(f *fakeLedger) {
				f.join(alice.ID, readers, editors)
				f.grant(doc7, readers.Subject(), models.LevelDeny)
				f.grant(doc7, editors.Subject(), models.LevelAdmin)
			},
			want: ReasonGroupDeny,
		},
		{
			name: "group deny after weak direct grant",
			setup: func(f *fakeLedger) {
				f.join(alice.ID, editors)
				f.grant(doc7, alice.Subject(), models.LevelRead)
				f.grant(doc7, editors.Subject(), models.LevelDeny)
			},
			want: ReasonGroupDeny,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := newFakeLedger()
			tt.setup(ledger)
			engine := NewEngine(ledger, ledger)

			for _, level := range []models.Level{models.LevelWrite, models.LevelAdmin} {
				result, err := engine.Authorize(context.Background(), alice, doc7, level)
				require.NoError(t, err)
				assert.Equal(t, Deny, result.Decision, level)
				assert.Equal(t, tt.want, result.Reason, level)
			}
		})
	}
}

func TestLevelSatisfaction(t *testing.T) {
	tests := []struct {
		granted models.Level
		allowed map[models.Level]bool
	}{
		{models.LevelRead, map[models.Level]bool{models.LevelRead: true}},
		{models.LevelWrite, map[models.Level]bool{models.LevelRead: true, models.LevelWrite: true}},
		{models.LevelAdmin, map[models.Level]bool{models.LevelRead: true, models.LevelWrite: true, models.LevelAdmin: true}},
	}

	for _, tt := range tests {
		t.Run(string(tt.granted), func(t *testing.T) {
			for _, via := range []string{"direct", "group"} {
				ledger := newFakeLedger()
				if via == "direct" {
					ledger.grant(folder42, alice.Subject(), tt.granted)
				} else {
					ledger.join(alice.ID, editors)
					ledger.grant(folder42, editors.Subject(), tt.granted)
				}
				engine := NewEngine(ledger, ledger)

				for _, required := range requirable {
					result, err := engine.Authorize(context.Background(), alice, folder42, required)
					require.NoError(t, err)
					assert.Equal(t, tt.allowed[required], result.Allowed(), "%s grant, %s required", via, required)
				}
			}
		})
	}
}

func TestMonotonic(t *testing.T) {
	ledger := newFakeLedger()
	ledger.join(alice.ID, editors)
	ledger.grant(doc7, editors.Subject(), models.LevelRead)
	engine := NewEngine(ledger, ledger)

	other := models.Resource{Type: models.ResourceDocument, ID: 8}
	for _, resource := range []models.Resource{doc7, other} {
		denied := false
		for _, level := range requirable {
			result, err := engine.Authorize(context.Background(), alice, resource, level)
			require.NoError(t, err)
			if denied {
				assert.False(t, result.Allowed(), "%s allowed after a weaker level was denied", level)
			}
			denied = !result.Allowed()
		}
	}
}

func TestWeakDirectGrantFallsThroughToGroups(t *testing.T) {
	ledger := newFakeLedger()
	ledger.join(alice.ID, readers, editors)
	ledger.grant(folder42, alice.Subject(), models.LevelRead)
	ledger.grant(folder42, editors.Subject(), models.LevelWrite)
	engine := NewEngine(ledger, ledger)

	result, err := engine.Authorize(context.Background(), alice, folder42, models.LevelWrite)
	require.NoError(t, err)
	assert.Equal(t, Allow, result.Decision)
	assert.Equal(t, ReasonGroupGrant, result.Reason)
	assert.Equal(t, editors.ID, result.MatchedGrant.SubjectID)
	assert.LessOrEqual(t, ledger.lookups, 3)
}

func TestNoMatchingPermission(t *testing.T) {
	ledger := newFakeLedger()
	ledger.join(alice.ID, readers)
	engine := NewEngine(ledger, ledger)

	result, err := engine.Authorize(context.Background(), alice, doc7, models.LevelRead)
	require.NoError(t, err)
	assert.Equal(t, Deny, result.Decision)
	assert.Equal(t, ReasonNoMatch, result.Reason)
	assert.Equal(t, "no matching permission", result.Reason.String())
	assert.Nil(t, result.MatchedGrant)
	assert.Equal(t, 2, ledger.lookups)
}

func TestLookupFailureIsNotDenial(t *testing.T) {
	ledger := newFakeLedger()
	ledger.join(alice.ID, editors)
	failing := editors.Subject()
	ledger.failOn = &failing

	var observed []Result
	engine := NewEngine(ledger, ledger, WithObserver(func(r Result) { observed = append(observed, r) }))

	_, err := engine.Authorize(context.Background(), alice, doc7, models.LevelRead)
	require.Error(t, err)
	assert.Equal(t, apperr.Infrastructure, apperr.KindOf(err))
	assert.Empty(t, observed)

	err = engine.Require(context.Background(), alice, doc7, models.LevelRead)
	assert.Equal(t, apperr.Infrastructure, apperr.KindOf(err))
}

func TestInvalidRequests(t *testing.T) {
	engine := NewEngine(newFakeLedger(), newFakeLedger())
	ctx := context.Background()

	_, err := engine.Authorize(ctx, nil, doc7, models.LevelRead)
	assert.True(t, apperr.Is(err, apperr.Invalid))

	_, err = engine.Authorize(ctx, alice, doc7, models.LevelDeny)
	assert.True(t, apperr.Is(err, apperr.Invalid))

	_, err = engine.Authorize(ctx, alice, models.Resource{Type: "page", ID: 1}, models.LevelRead)
	assert.True(t, apperr.Is(err, apperr.Invalid))
}

func TestRequireAndObserver(t *testing.T) {
	ledger := newFakeLedger()
	ledger.grant(doc7, alice.Subject(), models.LevelWrite)

	var observed []Result
	engine := NewEngine(ledger, ledger, WithObserver(func(r Result) { observed = append(observed, r) }))
	ctx := context.Background()

	assert.NoError(t, engine.Require(ctx, alice, doc7, models.LevelWrite))
	err := engine.Require(ctx, alice, doc7, models.LevelAdmin)
	assert.True(t, apperr.Is(err, apperr.Denied))

	require.Len(t, observed, 2)
	assert.Equal(t, Allow, observed[0].Decision)
	assert.Equal(t, ReasonDirectGrant, observed[0].Reason)
	assert.Equal(t, Deny, observed[1].Decision)
	assert.Equal(t, ReasonNoMatch, observed[1].Reason)
}
