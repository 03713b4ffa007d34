package directory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personalman/absence-server/calendar"
	"github.com/personalman/absence-server/directory"
	"github.com/personalman/absence-server/store/sqlite"
)

func newTestService(t *testing.T) *directory.Service {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := directory.NewService(store, nil)
	require.NoError(t, svc.RegisterCompany(context.Background(), directory.Company{
		Name: "Example Company", DefaultAnnualLeaveInDays: 25, Country: "Germany",
	}))
	return svc
}

func registration(username, password string) directory.Registration {
	return directory.Registration{
		User: directory.User{
			Company:     "Example Company",
			Username:    username,
			FirstName:   "Max",
			Surname:     "Mustermann",
			Position:    "Tester",
			WorkingDays: calendar.MondayToFriday(),
			StartDate:   calendar.NewDate(2014, time.January, 1),
		},
		Password: password,
	}
}

func TestRegisterUser_DefaultsEntitlementFromCompany(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, err := svc.RegisterUser(ctx, registration("max.mustermann", "secret"))
	require.NoError(t, err)
	assert.Equal(t, 25, u.LeaveEntitlementPerYear)
	assert.NotEqual(t, "secret", u.PasswordHash)

	stored, err := svc.User(ctx, "Example Company", "max.mustermann")
	require.NoError(t, err)
	assert.Equal(t, 25, stored.Employee().LeaveEntitlementPerYear)
	assert.True(t, stored.Employee().WorkingDays.Contains(time.Friday))
}

func TestRegisterUser_KeepsExplicitEntitlement(t *testing.T) {
	svc := newTestService(t)

	r := registration("erika", "secret")
	r.LeaveEntitlementPerYear = 30
	u, err := svc.RegisterUser(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, 30, u.LeaveEntitlementPerYear)
}

func TestRegisterUser_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.RegisterUser(ctx, registration("", "secret"))
	assert.ErrorIs(t, err, directory.ErrValidation)

	_, err = svc.RegisterUser(ctx, registration("max", ""))
	assert.ErrorIs(t, err, directory.ErrValidation)

	r := registration("max", "secret")
	r.Company = "Unknown Ltd"
	_, err = svc.RegisterUser(ctx, r)
	assert.ErrorIs(t, err, directory.ErrCompanyNotFound)
	assert.True(t, directory.IsNotFound(err))

	_, err = svc.RegisterUser(ctx, registration("max", "secret"))
	require.NoError(t, err)
	_, err = svc.RegisterUser(ctx, registration("max", "secret"))
	assert.True(t, directory.IsConflict(err))
}

func TestAuthenticate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.RegisterUser(ctx, registration("max.mustermann", "secret"))
	require.NoError(t, err)

	u, err := svc.Authenticate(ctx, "Example Company", "max.mustermann", "secret")
	require.NoError(t, err)
	assert.Equal(t, "max.mustermann", u.Username)

	_, err = svc.Authenticate(ctx, "Example Company", "max.mustermann", "wrong")
	assert.ErrorIs(t, err, directory.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "Example Company", "nobody", "secret")
	assert.ErrorIs(t, err, directory.ErrInvalidCredentials)
}

func TestRegisterCompany_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.RegisterCompany(ctx, directory.Company{Name: "  "}), directory.ErrValidation)
	assert.ErrorIs(t, svc.RegisterCompany(ctx, directory.Company{Name: "X", DefaultAnnualLeaveInDays: -1}), directory.ErrValidation)
	assert.ErrorIs(t, svc.RegisterCompany(ctx, directory.Company{Name: "Example Company"}), directory.ErrCompanyExists)

	all, err := svc.Companies(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDeleteCompany_RemovesUsers(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.RegisterUser(ctx, registration("max.mustermann", "secret"))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCompany(ctx, "Example Company"))

	users, err := svc.Users(ctx, "Example Company")
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.True(t, directory.IsNotFound(svc.DeleteCompany(ctx, "Example Company")))
}
