// Package model содержит доменные сущности сервиса мастерской.
package model

import "time"

// Role описывает статус профиля, определяющий доступ к разделам сервиса.
type Role string

const (
	RolePending Role = "pending"
	RoleWorker  Role = "worker"
	RoleAdmin   Role = "admin"
)

// Profile представляет зарегистрированного пользователя и его баланс монет.
type Profile struct {
	ID           string
	Name         string
	Email        string
	PasswordHash []byte
	Role         Role
	Coins        int64
	CreatedAt    time.Time
}

// Product описывает товар или услугу, отображаемую в магазине.
type Product struct {
	ID          string
	Name        string
	PriceCents  int64
	ImageURL    string
	Description string
	Category    string
	CreatedAt   time.Time
}

// Booking описывает заявку клиента на запись в мастерскую.
type Booking struct {
	ID           string
	Service      string
	Name         string
	Email        string
	Phone        string
	Date         string
	Time         string
	VehicleModel string
	Message      string
	CreatedAt    time.Time
}

// ContactMessage описывает сообщение из формы обратной связи.
type ContactMessage struct {
	ID        string
	Name      string
	Email     string
	Subject   string
	Message   string
	CreatedAt time.Time
}

// Coupon описывает купон, начисляющий монеты при погашении.
type Coupon struct {
	ID          string
	Code        string
	Coins       int64
	Description string
	IsActive    bool
	ExpiresAt   *time.Time
	CreatedAt   time.Time
}

// Merchandise описывает товар, который работник может выкупить за монеты.
type Merchandise struct {
	ID          string
	Name        string
	ImageURL    string
	Description string
	Coins       int64
	CreatedAt   time.Time
}
