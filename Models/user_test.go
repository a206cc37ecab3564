package Models

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Aerofield/Ledger"
)

func TestAuthenticate(t *testing.T) {
	db := newTestDB(t)

	u, err := CreateUser(db, "Ana", " Ana@Example.com ", "hunter2", Ledger.RoleEmployee)
	require.NoError(t, err)
	assert.NotEqual(t, []byte("hunter2"), u.Password)

	got, err := Authenticate(db, "ana@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, Ledger.Actor{ID: u.ID, Name: "Ana", Role: Ledger.RoleEmployee}, got.Actor())

	_, err = Authenticate(db, "ana@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = Authenticate(db, "nobody@example.com", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = SetActive(db, u.ID, false)
	require.NoError(t, err)
	_, err = Authenticate(db, "ana@example.com", "hunter2")
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestCreateUser_Rejects(t *testing.T) {
	db := newTestDB(t)

	_, err := CreateUser(db, "Ana", "ana@example.com", "pw", "owner")
	assert.Error(t, err)

	_, err = CreateUser(db, "Ana", "ana@example.com", "pw", Ledger.RoleEmployee)
	require.NoError(t, err)
	_, err = CreateUser(db, "Ana 2", "ana@example.com", "pw", Ledger.RoleEmployee)
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestListWorkers_SkipsAdminsAndInactive(t *testing.T) {
	db := newTestDB(t)
	store := NewGormStore(db)

	a, _ := CreateUser(db, "A", "a@example.com", "pw", Ledger.RoleEmployee)
	b, _ := CreateUser(db, "B", "b@example.com", "pw", Ledger.RoleEmployee)
	_, _ = CreateUser(db, "Boss", "boss@example.com", "pw", Ledger.RoleAdmin)
	_, err := SetActive(db, b.ID, false)
	require.NoError(t, err)

	workers, err := store.ListWorkers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Ledger.Worker{{ID: a.ID, Name: "A"}}, workers)
}

func TestDeviceTokens(t *testing.T) {
	db := newTestDB(t)
	a, _ := CreateUser(db, "A", "a@example.com", "pw", Ledger.RoleEmployee)
	b, _ := CreateUser(db, "B", "b@example.com", "pw", Ledger.RoleEmployee)

	_, err := RegisterDevice(db, a.ID, "tok-1")
	require.NoError(t, err)
	_, err = RegisterDevice(db, a.ID, "tok-2")
	require.NoError(t, err)

	tokens, err := DeviceTokens(db, "A")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"tok-1", "tok-2"}, tokens)

	// the device changed hands
	_, err = RegisterDevice(db, b.ID, "tok-2")
	require.NoError(t, err)
	tokens, err = DeviceTokens(db, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"tok-1"}, tokens)
}
