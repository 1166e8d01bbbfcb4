package crm

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the CRM endpoints on an authenticated group.
func RegisterRoutes(rg *gin.RouterGroup, h *CRMHandler) {
	rg.GET("/dashboard", h.GetDashboard)
	rg.GET("/pipeline", h.GetPipeline)
	rg.GET("/tags", h.GetTags)

	customers := rg.Group("/customers")
	{
		customers.GET("", h.ListCustomers)
		customers.POST("", h.CreateCustomer)
		customers.POST("/reload", h.ReloadCustomers)
		customers.POST("/back", h.Back)
		customers.POST("/delete/cancel", h.CancelDelete)

		customers.GET("/:id", h.GetCustomer)
		customers.PUT("/:id", h.UpdateCustomer)
		customers.PUT("/:id/status", h.UpdateStatus)
		customers.POST("/:id/contacts", h.AddContact)
		customers.POST("/:id/appointments", h.AddAppointment)
		customers.POST("/:id/delete", h.RequestDelete)
		customers.POST("/:id/delete/confirm", h.ConfirmDelete)
	}
}
