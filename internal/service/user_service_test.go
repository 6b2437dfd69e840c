package service_test

import (
	"testing"

	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/policy"
	"github.com/straye-as/crm-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_Create(t *testing.T) {
	e := newEnv(t)
	req := &domain.CreateUserRequest{Username: "carol", FirstName: "Carol", LastName: "Jones", Role: domain.RoleSupport}

	user, err := e.users.Create(as(e.boss), req)
	require.NoError(t, err)
	assert.Equal(t, "carol", user.Username)
	assert.Equal(t, domain.RoleSupport, user.Role)

	_, err = e.users.Create(as(e.boss), req)
	assertRule(t, err, domain.KindConflict, "")

	_, err = e.users.Create(as(e.alice), &domain.CreateUserRequest{Username: "dave", FirstName: "D", LastName: "E", Role: domain.RoleSales})
	assertRule(t, err, domain.KindForbidden, "")

	_, err = e.users.Create(as(e.boss), &domain.CreateUserRequest{Username: "erin", FirstName: "E", LastName: "F", Role: "intern"})
	assertRule(t, err, domain.KindValidation, "")
}

func TestUserService_Update(t *testing.T) {
	e := newEnv(t)
	name := "Alicia"

	user, err := e.users.Update(as(e.boss), e.alice.ID, &domain.UpdateUserRequest{FirstName: &name})
	require.NoError(t, err)
	assert.Equal(t, name, user.FirstName)

	same := domain.RoleSales
	_, err = e.users.Update(as(e.boss), e.alice.ID, &domain.UpdateUserRequest{Role: &same})
	require.NoError(t, err)

	other := domain.RoleManagement
	_, err = e.users.Update(as(e.boss), e.alice.ID, &domain.UpdateUserRequest{Role: &other})
	assertRule(t, err, domain.KindValidation, policy.MsgRoleImmutable)
}

func TestUserService_Delete(t *testing.T) {
	e := newEnv(t)

	err := e.users.Delete(as(e.boss), e.boss.ID)
	assertRule(t, err, domain.KindValidation, policy.MsgDeleteSelf)

	require.NoError(t, e.users.Delete(as(e.boss), e.alice.ID))
	assert.Nil(t, e.reloadClient(t, e.acme.ID).SalesContactID)

	_, err = e.users.GetByID(as(e.boss), e.alice.ID)
	assertRule(t, err, domain.KindNotFound, "")
}

func TestUserService_List(t *testing.T) {
	e := newEnv(t)

	page, err := e.users.List(as(e.sam), domain.UserFilters{Role: domain.RoleSales}, repository.DefaultSortConfig(), 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
}
