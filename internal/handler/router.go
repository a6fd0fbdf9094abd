package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/DRAKEN-1974/product/internal/middleware"
	"github.com/DRAKEN-1974/product/internal/model"
)

func pathID(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// SetupRouter настраивает HTTP-маршруты и middleware сервиса мастерской.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
		})

		// Публичные страницы: магазин, запись, обратная связь
		r.Get("/products", h.GetProducts)
		r.Post("/bookings", h.CreateBooking)
		r.Post("/contact", h.CreateContactMessage)

		r.Route("/worker", func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)
			r.Use(custommiddleware.RequireRole(h.service, model.RoleWorker))

			r.Get("/profile", h.GetWorkerProfile)
			r.Get("/coupons", h.GetMyCoupons)
			r.Post("/coupons/redeem", h.RedeemCoupon)
			r.Get("/merchandise", h.GetMerchandise)
			r.Post("/merchandise/{merchID}/redeem", h.RedeemMerchandise)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)
			r.Use(custommiddleware.RequireRole(h.service, model.RoleAdmin))

			r.Get("/workers/pending", h.GetPendingWorkers)
			r.Get("/workers", h.GetWorkers)
			r.Post("/workers/{profileID}/approve", h.ApproveWorker)
			r.Delete("/workers/{profileID}", h.RejectWorker)
			r.Post("/workers/{profileID}/coins", h.AdjustWorkerCoins)

			r.Post("/products", h.AddProduct)
			r.Delete("/products/{productID}", h.DeleteProduct)

			r.Get("/coupons", h.GetCoupons)
			r.Post("/coupons", h.AddCoupon)
			r.Delete("/coupons/{couponID}", h.DeleteCoupon)

			r.Get("/merchandise", h.GetMerchandise)
			r.Post("/merchandise", h.AddMerchandise)
			r.Delete("/merchandise/{merchID}", h.DeleteMerchandise)

			r.Get("/bookings", h.GetBookings)
			r.Delete("/bookings/{bookingID}", h.DeleteBooking)

			r.Get("/messages", h.GetContactMessages)
			r.Delete("/messages/{messageID}", h.DeleteContactMessage)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
