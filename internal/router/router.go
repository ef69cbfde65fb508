// Package router mounts the panel pages, the JSON API and the operational endpoints on a gin engine.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-panel/internal/handler"
	"github.com/noah-isme/academic-panel/internal/middleware"
	"github.com/noah-isme/academic-panel/internal/models"
	"github.com/noah-isme/academic-panel/internal/schema"
	"github.com/noah-isme/academic-panel/internal/service"
	"github.com/noah-isme/academic-panel/pkg/logger"
	corsmiddleware "github.com/noah-isme/academic-panel/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/academic-panel/pkg/middleware/requestid"
)

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

type nonceVerifier interface {
	Verify(token, userID, action string) error
}

// Deps carries every handler and guard the routes need.
type Deps struct {
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	AllowedOrigins []string
	APIPrefix      string
	EnableDocs     bool

	Tokens       tokenValidator
	Nonces       nonceVerifier
	Capabilities *schema.Registry

	Auth        *handler.AuthHandler
	Panel       *handler.PanelHandler
	Enrollments *handler.EnrollmentHandler
	Students    *handler.StudentHandler
	Courses     *handler.CourseHandler
	Payments    *handler.PaymentHandler
	Exports     *handler.ExportHandler
	Emails      *handler.EmailHandler
	Activity    *handler.ActivityHandler
	Reports     *handler.ReportHandler
	Schema      *handler.SchemaHandler
	Observe     *handler.MetricsHandler
}

// New builds the engine.
func New(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.APIPrefix == "" {
		d.APIPrefix = "/api/v1"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(d.Logger))
	r.Use(corsmiddleware.New(d.AllowedOrigins))
	r.Use(middleware.Metrics(d.Metrics))

	r.GET("/health", d.Observe.Health)
	r.GET("/ready", d.Observe.Ready)
	r.GET("/metrics", d.Observe.Prometheus)
	if d.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/panel") })
	r.GET("/invoice/:token", d.Payments.PublicInvoice)

	panelRoutes(r, d)
	apiRoutes(r.Group(d.APIPrefix), d)
	return r
}

func panelRoutes(r *gin.Engine, d Deps) {
	r.GET("/panel/login", d.Panel.LoginPage)
	r.POST("/panel/login", d.Panel.LoginSubmit)
	r.POST("/panel/logout", d.Panel.Logout)

	panel := r.Group("/panel", middleware.PanelSession(d.Tokens, "/panel/login"))
	panel.GET("", d.Panel.Shell)
	panel.GET("/fragments/:tab", d.Panel.Fragment)
}

func apiRoutes(api *gin.RouterGroup, d Deps) {
	can := func(caps ...schema.Capability) gin.HandlerFunc {
		return middleware.RequireCapability(d.Capabilities, caps...)
	}
	nonce := func(action string) gin.HandlerFunc {
		return middleware.RequireNonce(d.Nonces, action)
	}

	api.POST("/auth/login", d.Auth.Login)
	api.POST("/auth/logout", d.Auth.Logout)

	secured := api.Group("", middleware.JWT(d.Tokens), middleware.WithResponseMeta())
	secured.GET("/auth/me", d.Auth.Me)
	secured.GET("/auth/nonce", d.Auth.Nonce)
	secured.POST("/auth/change-password", d.Auth.ChangePassword)
	secured.POST("/users", can(schema.CapManageUsers), d.Auth.CreateUser)
	secured.GET("/schema", d.Schema.Describe)

	enrollments := secured.Group("/enrollments")
	enrollments.GET("", can(schema.CapReadStudents), d.Enrollments.List)
	enrollments.GET("/courses", can(schema.CapReadStudents), d.Enrollments.Courses)
	enrollments.POST("/approve", can(schema.CapApproveEnrollments), nonce(middleware.ActionApproveEnrollment), d.Enrollments.Approve)
	enrollments.POST("/approve-batch", can(schema.CapApproveEnrollments), nonce(middleware.ActionApproveBatch), d.Enrollments.ApproveBatch)
	enrollments.POST("/call-status", can(schema.CapTrackCalls), nonce(middleware.ActionUpdateCallStatus), d.Enrollments.CallStatus)

	students := secured.Group("/students")
	students.GET("", can(schema.CapReadStudents), d.Students.List)
	students.POST("", can(schema.CapManageStudents), nonce(middleware.ActionCreateStudent), d.Students.Create)
	students.GET("/:id/profile", can(schema.CapReadStudents), d.Students.Profile)
	students.POST("/:id/profile", can(schema.CapManageStudents), nonce(middleware.ActionUpdateProfile), d.Students.UpdateProfile)
	students.POST("/:id/enrollments", can(schema.CapManageStudents), nonce(middleware.ActionCreateEnrollment), d.Students.AddEnrollment)

	courses := secured.Group("/courses")
	courses.GET("", can(schema.CapReadCourses), d.Courses.List)
	courses.GET("/:id", can(schema.CapReadCourses), d.Courses.Get)
	courses.POST("", can(schema.CapManageCourses), nonce(middleware.ActionSaveCourse), d.Courses.Create)
	courses.PUT("/:id", can(schema.CapManageCourses), nonce(middleware.ActionSaveCourse), d.Courses.Update)

	payments := secured.Group("/payments")
	payments.GET("", can(schema.CapReadPayments), d.Payments.List)
	payments.POST("", can(schema.CapManagePayments), nonce(middleware.ActionRecordPayment), d.Payments.Create)
	payments.GET("/:id", can(schema.CapReadPayments), d.Payments.Get)
	payments.GET("/:id/invoice", can(schema.CapReadPayments), d.Payments.Invoice)
	secured.GET("/payment-concepts", can(schema.CapReadPayments), d.Payments.Concepts)
	secured.POST("/payment-concepts", can(schema.CapManagePayments), nonce(middleware.ActionSaveConcept), d.Payments.CreateConcept)

	exports := secured.Group("/exports", can(schema.CapExportReports), nonce(middleware.ActionExportReports))
	exports.GET("/enrollments.xlsx", d.Exports.XLSX)
	exports.GET("/enrollments.pdf", d.Exports.PDF)
	exports.GET("/lms.csv", d.Exports.LMS)

	secured.POST("/emails/bulk", can(schema.CapSendBulkEmail), nonce(middleware.ActionSendBulkEmail), d.Emails.Bulk)
	secured.GET("/activity", can(schema.CapReadActivityLog), d.Activity.List)
	secured.GET("/reports/summary", can(schema.CapExportReports), d.Reports.Summary)
	secured.GET("/metrics/snapshot", can(schema.CapManageUsers), d.Observe.Snapshot)
}
