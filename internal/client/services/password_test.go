package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okatkov/mxkeeper/internal/common"
)

func newPasswordService(t *testing.T) *PasswordService {
	t.Helper()
	return NewPasswordService(setupDB(t), testLogger())
}

func TestValidateApplicationPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		reason   common.PasswordReason
	}{
		{"too short", "aB1", common.ReasonWrongLength},
		{"too long", "aB1!aB1!aB1!aB1!", common.ReasonWrongLength},
		{"no digit", "abc!De", common.ReasonNoDigit},
		{"no symbol", "abc1De", common.ReasonNoSymbol},
		{"no lowercase", "ABC1D!", common.ReasonNoLowercase},
		{"no uppercase", "abc1d!", common.ReasonNoUppercase},
		{"valid", "aB1!", ""},
		{"valid max length", "aaaaaaaaaaaB1!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateApplicationPassword(tt.password)
			if tt.reason == "" {
				assert.NoError(t, err)
				return
			}
			var ipe *common.InvalidPasswordError
			require.ErrorAs(t, err, &ipe)
			assert.Equal(t, tt.reason, ipe.Reason)
			assert.ErrorIs(t, err, common.ErrorValidation)
		})
	}
}

func TestSetAndLoginByApplicationPassword(t *testing.T) {
	svc := newPasswordService(t)
	ctx := context.Background()

	set, err := svc.CheckIsSet(ctx)
	require.NoError(t, err)
	assert.False(t, set)

	require.NoError(t, svc.SetApplicationPassword(ctx, "aB1!"))

	set, err = svc.CheckIsSet(ctx)
	require.NoError(t, err)
	assert.True(t, set)

	ok, err := svc.LoginByApplicationPassword(ctx, "aB1!")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.LoginByApplicationPassword(ctx, "wRong1!")
	assert.False(t, ok)
	se, isServer := common.AsServerError(err)
	require.True(t, isServer)
	assert.Equal(t, "M_FORBIDDEN", se.Code)
	assert.Equal(t, http.StatusForbidden, se.HTTPStatus)
}

func TestLoginByApplicationPassword_Unarmed(t *testing.T) {
	svc := newPasswordService(t)
	ctx := context.Background()

	ok, err := svc.LoginByApplicationPassword(ctx, "aB1!")
	assert.False(t, ok)
	_, isServer := common.AsServerError(err)
	assert.True(t, isServer)
}

func TestNukePassword_GeneratedOnceAndCheckedFirst(t *testing.T) {
	svc := newPasswordService(t)
	ctx := context.Background()

	_, err := svc.GetNukePassword(ctx)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, svc.SetApplicationPassword(ctx, "aB1!"))

	nuke, err := svc.GetNukePassword(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(nuke), 8)
	assert.Less(t, len(nuke), 13)
	for _, r := range nuke {
		assert.Contains(t, "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789", string(r))
	}

	ok, err := svc.LoginByApplicationPassword(ctx, nuke)
	assert.False(t, ok)
	assert.ErrorIs(t, err, common.ErrNukePasswordEntered)

	// re-arming keeps the same duress password
	require.NoError(t, svc.SetApplicationPassword(ctx, "cD2@"))
	again, err := svc.GetNukePassword(ctx)
	require.NoError(t, err)
	assert.Equal(t, nuke, again)

	// the gate password may never collide with it
	err = svc.SetApplicationPassword(ctx, nuke)
	assert.ErrorIs(t, err, common.ErrNukePasswordEntered)
}

func TestUpdateApplicationPassword(t *testing.T) {
	svc := newPasswordService(t)
	ctx := context.Background()
	require.NoError(t, svc.SetApplicationPassword(ctx, "aB1!"))

	err := svc.UpdateApplicationPassword(ctx, "wRong1!", "cD2@")
	_, isServer := common.AsServerError(err)
	assert.True(t, isServer)

	require.NoError(t, svc.UpdateApplicationPassword(ctx, "aB1!", "cD2@"))

	ok, err := svc.LoginByApplicationPassword(ctx, "cD2@")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.LoginByApplicationPassword(ctx, "aB1!")
	assert.Error(t, err)
}

func TestUpdateApplicationPassword_RejectsInvalidNext(t *testing.T) {
	svc := newPasswordService(t)
	ctx := context.Background()
	require.NoError(t, svc.SetApplicationPassword(ctx, "aB1!"))

	err := svc.UpdateApplicationPassword(ctx, "aB1!", "onlyletters")
	assert.ErrorIs(t, err, common.ErrorValidation)

	// the old password still works
	ok, err := svc.LoginByApplicationPassword(ctx, "aB1!")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeleteApplicationPassword_KeepsNuke(t *testing.T) {
	svc := newPasswordService(t)
	ctx := context.Background()
	require.NoError(t, svc.SetApplicationPassword(ctx, "aB1!"))

	nuke, err := svc.GetNukePassword(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteApplicationPassword(ctx))

	set, err := svc.CheckIsSet(ctx)
	require.NoError(t, err)
	assert.False(t, set)

	kept, err := svc.GetNukePassword(ctx)
	require.NoError(t, err)
	assert.Equal(t, nuke, kept)
}

func TestWatchArmed(t *testing.T) {
	svc := newPasswordService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	armed := svc.WatchArmed(ctx)
	assert.False(t, <-armed)

	require.NoError(t, svc.SetApplicationPassword(ctx, "aB1!"))
	assert.True(t, <-armed)

	require.NoError(t, svc.DeleteApplicationPassword(ctx))
	assert.False(t, <-armed)
}

func TestNukeNotifications_EmptyFeed(t *testing.T) {
	svc := newPasswordService(t)
	ctx := context.Background()

	list, err := svc.GetNukePasswordNotifications(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	marked, err := svc.SetNukePasswordNotificationViewed(ctx, "n1")
	require.NoError(t, err)
	assert.False(t, marked)
}
