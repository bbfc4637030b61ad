package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"raceportal/internal/delivery/http/controllers"
	"raceportal/internal/delivery/http/middleware"
	"raceportal/internal/domain"
)

// NewRouter initializes the HTTP router with all application routes.
func NewRouter(
	logger *slog.Logger,
	verifier domain.TokenVerifier,
	authController *controllers.AuthController,
	eventController *controllers.EventController,
	registrationController *controllers.RegistrationController,
	paymentController *controllers.PaymentController,
	adminController *controllers.AdminController,
) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier, logger)

	// Auth
	mux.HandleFunc("POST /auth/signup", authController.SignUp)
	mux.HandleFunc("POST /auth/login", authController.Login)

	// Public event catalog
	mux.HandleFunc("GET /events", eventController.ListEvents)
	mux.HandleFunc("GET /events/{slug}", eventController.GetEvent)
	mux.HandleFunc("GET /events/{slug}/categories", eventController.ListCategories)
	mux.HandleFunc("POST /events", auth(eventController.CreateEvent))

	// Athlete registrations
	mux.HandleFunc("POST /events/{eventID}/registrations", auth(registrationController.SignUp))
	mux.HandleFunc("GET /registrations", auth(registrationController.ListMine))
	mux.HandleFunc("GET /registrations/{registrationID}", auth(registrationController.Get))
	mux.HandleFunc("POST /registrations/{registrationID}/documents", auth(registrationController.SubmitDocuments))
	mux.HandleFunc("POST /registrations/{registrationID}/cancel", auth(registrationController.Cancel))

	// Payments
	mux.HandleFunc("POST /registrations/{registrationID}/payment", auth(paymentController.Start))
	mux.HandleFunc("GET /registrations/{registrationID}/payment", auth(paymentController.Check))
	mux.HandleFunc("POST /payments/webhook", paymentController.Webhook)

	// Organizer
	mux.HandleFunc("POST /admin/registrations/{registrationID}/review", auth(adminController.Review))
	mux.HandleFunc("POST /admin/registrations/{registrationID}/status", auth(adminController.OverrideStatus))
	mux.HandleFunc("PATCH /admin/categories/{categoryID}/capacity", auth(adminController.UpdateCapacity))
	mux.HandleFunc("GET /admin/events/{eventID}/registrations", auth(adminController.ListRegistrations))
	mux.HandleFunc("GET /admin/audit", auth(adminController.ListAudit))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
