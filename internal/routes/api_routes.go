package routes

import (
	"infinite-experiment/clubhouse/internal/api"
	"infinite-experiment/clubhouse/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// RegisterAPIRoutes registers the account endpoints under /api/v1/auth.
func RegisterAPIRoutes(r chi.Router, deps *api.Dependencies, limiter *middleware.RateLimiter) {
	accounts := deps.Services.Accounts
	signer := deps.Services.Signer

	r.Route("/api/v1/auth", func(authR chi.Router) {
		// Public routes, throttled per client IP
		authR.Group(func(public chi.Router) {
			public.Use(limiter.Middleware)

			public.Post("/signup", api.SignupHandler(accounts))
			public.Post("/login", api.LoginHandler(accounts))
			public.Post("/google/signup", api.GoogleSignupHandler(accounts))
			public.Post("/google/login", api.GoogleLoginHandler(accounts))
			public.Post("/activation", api.ActivateAccountHandler(accounts))
			public.Post("/activation/resend", api.ResendActivationHandler(accounts))
			public.Post("/password/forgot", api.ForgotPasswordHandler(accounts))
			public.Post("/otp/verify", api.VerifyCodeHandler(accounts))
			public.Post("/password/reset", api.ResetPasswordHandler(accounts))
		})

		authR.Group(func(refresh chi.Router) {
			refresh.Use(limiter.Middleware)
			refresh.Use(middleware.RefreshTokenMiddleware(signer))
			refresh.Post("/refresh", api.RefreshHandler(deps.Services.Rotator))
		})

		// Access token required
		authR.Group(func(private chi.Router) {
			private.Use(middleware.AccessTokenMiddleware(signer))
			private.Post("/password/change", api.ChangePasswordHandler(accounts))
			private.Post("/logout", api.LogoutHandler(accounts))
			private.Get("/me", api.MeHandler(accounts))
		})
	})
}
