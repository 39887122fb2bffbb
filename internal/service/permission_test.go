package service

import (
	"testing"

	"lifecycle-service/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestRolePermissions(t *testing.T) {
	p := NewRolePermissions()

	assert.True(t, p.Check("cust_1", models.RoleCustomer, "order.cancel", "cust_1"))
	assert.False(t, p.Check("cust_2", models.RoleCustomer, "order.cancel", "cust_1"))
	assert.False(t, p.Check("", models.RoleCustomer, "order.cancel", ""))

	assert.True(t, p.Check("staff_1", models.RoleStaff, "order.dispatch", "cust_1"))
	assert.True(t, p.Check("admin_1", models.RoleAdmin, "order.cancel", "cust_1"))
	assert.False(t, p.Check("admin_1", "superuser", "order.cancel", "cust_1"))
}
