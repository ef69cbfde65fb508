package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/academic-panel/internal/models"
)

func TestDefaultGrants(t *testing.T) {
	r := Default()

	assert.True(t, r.Can(models.RoleSuperAdmin, CapManageUsers))
	assert.True(t, r.Can(models.RoleRegistrar, CapApproveEnrollments))
	assert.False(t, r.Can(models.RoleRegistrar, CapManagePayments))
	assert.True(t, r.Can(models.RoleCashier, CapManagePayments))
	assert.False(t, r.Can(models.RoleCashier, CapApproveEnrollments))
	assert.True(t, r.Can(models.RoleAgent, CapTrackCalls))
	assert.False(t, r.Can(models.RoleAgent, CapSendBulkEmail))
	assert.False(t, r.Can(models.UserRole("GUEST"), CapReadStudents))
}

func TestTypesDeclareCapabilities(t *testing.T) {
	types := Default().Types()
	assert.Len(t, types, 5)
	for _, rt := range types {
		assert.NotEmpty(t, rt.Read, rt.Name)
		assert.NotEmpty(t, rt.Manage, rt.Name)
	}
}

func TestCapabilitiesSorted(t *testing.T) {
	caps := Default().Capabilities(models.RoleAgent)
	assert.Equal(t, []Capability{CapReadCourses, CapReadStudents, CapTrackCalls}, caps)
}
