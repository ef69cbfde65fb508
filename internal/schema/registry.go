// Package schema declares the panel record types, their capabilities and the role grants.
package schema

import (
	"sort"

	"github.com/noah-isme/academic-panel/internal/models"
)

// Capability names a permission checked by handlers.
type Capability string

const (
	CapReadStudents       Capability = "read_students"
	CapManageStudents     Capability = "manage_students"
	CapApproveEnrollments Capability = "approve_enrollments"
	CapTrackCalls         Capability = "track_calls"
	CapReadCourses        Capability = "read_courses"
	CapManageCourses      Capability = "manage_courses"
	CapReadPayments       Capability = "read_payments"
	CapManagePayments     Capability = "manage_payments"
	CapReadActivityLog    Capability = "read_activity_log"
	CapExportReports      Capability = "export_reports"
	CapSendBulkEmail      Capability = "send_bulk_email"
	CapManageUsers        Capability = "manage_users"
)

// RecordType describes a persisted record kind and the capabilities guarding it.
type RecordType struct {
	Name   string     `json:"name"`
	Label  string     `json:"label"`
	Table  string     `json:"table"`
	Read   Capability `json:"read_capability"`
	Manage Capability `json:"manage_capability"`
}

// Registry resolves capabilities for roles.
type Registry struct {
	types  []RecordType
	grants map[models.UserRole]map[Capability]struct{}
}

// Default returns the registry used by the panel.
func Default() *Registry {
	r := &Registry{grants: make(map[models.UserRole]map[Capability]struct{})}

	r.types = []RecordType{
		{Name: "student", Label: "Estudiantes", Table: "students", Read: CapReadStudents, Manage: CapManageStudents},
		{Name: "course", Label: "Cursos", Table: "courses", Read: CapReadCourses, Manage: CapManageCourses},
		{Name: "activity_log", Label: "Registro de actividad", Table: "activity_logs", Read: CapReadActivityLog, Manage: CapReadActivityLog},
		{Name: "payment", Label: "Pagos", Table: "payments", Read: CapReadPayments, Manage: CapManagePayments},
		{Name: "payment_concept", Label: "Conceptos de pago", Table: "payment_concepts", Read: CapReadPayments, Manage: CapManagePayments},
	}

	all := []Capability{
		CapReadStudents, CapManageStudents, CapApproveEnrollments, CapTrackCalls,
		CapReadCourses, CapManageCourses, CapReadPayments, CapManagePayments,
		CapReadActivityLog, CapExportReports, CapSendBulkEmail, CapManageUsers,
	}
	r.Grant(models.RoleSuperAdmin, all...)
	r.Grant(models.RoleAdmin, all...)
	r.Grant(models.RoleRegistrar,
		CapReadStudents, CapManageStudents, CapApproveEnrollments, CapTrackCalls,
		CapReadCourses, CapReadActivityLog, CapExportReports, CapSendBulkEmail,
	)
	r.Grant(models.RoleCashier, CapReadStudents, CapReadCourses, CapReadPayments, CapManagePayments)
	r.Grant(models.RoleAgent, CapReadStudents, CapReadCourses, CapTrackCalls)
	return r
}

// Grant adds capabilities to role.
func (r *Registry) Grant(role models.UserRole, caps ...Capability) {
	set, ok := r.grants[role]
	if !ok {
		set = make(map[Capability]struct{}, len(caps))
		r.grants[role] = set
	}
	for _, c := range caps {
		set[c] = struct{}{}
	}
}

// Can reports whether role holds capability.
func (r *Registry) Can(role models.UserRole, capability Capability) bool {
	if r == nil {
		return false
	}
	_, ok := r.grants[role][capability]
	return ok
}

// Types returns the declared record types.
func (r *Registry) Types() []RecordType {
	out := make([]RecordType, len(r.types))
	copy(out, r.types)
	return out
}

// Capabilities lists the capabilities of role in sorted order.
func (r *Registry) Capabilities(role models.UserRole) []Capability {
	set := r.grants[role]
	out := make([]Capability, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
