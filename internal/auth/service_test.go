package auth

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testUsername     = "testuser"
	testPassword     = "testpass"
	testPasswordHash = "$2a$14$6Gmhg85si2etd3K9oB8nYu1cxfbrdmhkg6wI6OXsa88IF4L2r/L9i" // testpass
)

type testUsersRepo struct {
	users  map[string]*User
	nextID int
}

func newTestUsersRepo() *testUsersRepo {
	return &testUsersRepo{
		users:  map[string]*User{},
		nextID: 1,
	}
}

func (r *testUsersRepo) Create(_ context.Context, username, passwordHash string) (*User, error) {
	if _, ok := r.users[username]; ok {
		return nil, ErrUsernameTaken
	}
	user := &User{
		ID:           r.nextID,
		Username:     username,
		PasswordHash: passwordHash,
	}
	r.nextID++
	r.users[username] = user
	return user, nil
}

func (r *testUsersRepo) GetByUsername(_ context.Context, username string) (*User, error) {
	user, ok := r.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func TestService_Register(t *testing.T) {
	db, _ := redismock.NewClientMock()
	usersRepo := newTestUsersRepo()
	service := NewService(usersRepo, time.Hour, db)

	ctx := context.Background()

	user, err := service.Register(ctx, Credentials{Username: testUsername, Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, 1, user.ID)
	assert.Equal(t, testUsername, user.Username)
	assert.NotEqual(t, testPassword, user.PasswordHash)

	// same username again
	_, err = service.Register(ctx, Credentials{Username: testUsername, Password: "other"})
	require.ErrorIs(t, err, ErrUsernameTaken)
}

func TestService_Login(t *testing.T) {
	db, mock := redismock.NewClientMock()
	usersRepo := newTestUsersRepo()
	usersRepo.users[testUsername] = &User{
		ID:           7,
		Username:     testUsername,
		PasswordHash: testPasswordHash,
	}

	service := NewService(usersRepo, time.Hour, db)
	service.RandStringFunc = func(s int) (string, error) {
		return "test-token", nil
	}

	ctx := context.Background()

	mock.ExpectSet(sessionKeyPrefix+"test-token", "7", time.Hour).SetVal("OK")
	mock.ExpectSAdd(tokensSetKey, "test-token").SetVal(1)

	token, userID, err := service.Login(ctx, Credentials{Username: testUsername, Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, "test-token", token)
	assert.Equal(t, 7, userID)
	require.NoError(t, mock.ExpectationsWereMet())

	// wrong password
	_, _, err = service.Login(ctx, Credentials{Username: testUsername, Password: "invalid"})
	require.ErrorIs(t, err, ErrWrongCredentials)

	// unknown user
	_, _, err = service.Login(ctx, Credentials{Username: "who-dis", Password: testPassword})
	require.ErrorIs(t, err, ErrWrongCredentials)
}

func TestService_Logout(t *testing.T) {
	db, mock := redismock.NewClientMock()
	service := NewService(newTestUsersRepo(), time.Hour, db)

	ctx := context.Background()

	sessionKey := sessionKeyPrefix + "test-token"
	mock.ExpectGet(sessionKey).SetVal("7")
	mock.ExpectDel(sessionKey).SetVal(1)
	mock.ExpectSRem(tokensSetKey, "test-token").SetVal(1)

	loggedOut, err := service.Logout(ctx, "test-token")
	require.NoError(t, err)
	assert.True(t, loggedOut)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_ScanAndClean(t *testing.T) {
	db, mock := redismock.NewClientMock()
	service := NewService(newTestUsersRepo(), time.Hour, db)

	mock.ExpectSMembers(tokensSetKey).SetVal([]string{"alive-token", "expired-token"})
	mock.ExpectExists(sessionKeyPrefix + "alive-token").SetVal(1)
	mock.ExpectExists(sessionKeyPrefix + "expired-token").SetVal(0)
	mock.ExpectSRem(tokensSetKey, "expired-token").SetVal(1)

	service.ScanAndClean(context.Background())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_RunPeriodicScanAndClean_stopsWhenCtxDone(t *testing.T) {
	db, _ := redismock.NewClientMock()
	service := NewService(newTestUsersRepo(), time.Hour, db)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		service.RunPeriodicScanAndClean(ctx, time.Hour)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("periodic scan and clean did not stop")
	}
}
