// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/DRAKEN-1974/product/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrProfileExists возвращается при попытке регистрации с уже занятым email.
var (
	ErrProfileExists = errors.New("profile already exists")
	// ErrProfileNotFound возвращается, если профиль не найден.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrCouponExists возвращается при попытке создать купон с уже существующим кодом.
	ErrCouponExists = errors.New("coupon code already exists")
	// ErrCouponNotFound возвращается, если активный купон с таким кодом не найден.
	ErrCouponNotFound = errors.New("coupon not found")
	// ErrMerchandiseNotFound возвращается, если товар за монеты не найден.
	ErrMerchandiseNotFound = errors.New("merchandise not found")
	// ErrNotFound возвращается, если запись с указанным идентификатором отсутствует.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyRedeemed возвращается при повторном погашении той же награды.
	ErrAlreadyRedeemed = errors.New("already redeemed")
	// ErrInsufficientBalance возвращается при попытке списания суммы, превышающей баланс.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidTransition возвращается при недопустимой смене роли профиля.
	ErrInvalidTransition = errors.New("invalid role transition")
	// ErrLedgerInconsistency возвращается, если внутри транзакции погашения
	// обновление баланса не затронуло ни одной строки. Транзакция откатывается,
	// реестр погашений остаётся согласованным с балансами.
	ErrLedgerInconsistency = errors.New("ledger inconsistency")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		// Если ошибка контекста — выходим сразу
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		// Ретраи полезны для Serialization Failure или Deadlocks.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		// Если это не pg-ошибка, но сетевая
		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

// Некорректный uuid в параметре запроса трактуется как отсутствие записи.
func isInvalidUUID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.InvalidTextRepresentation
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateProfile создаёт новый профиль с ролью pending и нулевым балансом.
func (r *PostgresRepository) CreateProfile(ctx context.Context, name, email string, passwordHash []byte) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO profiles (id, name, email, password_hash, role, coins) VALUES ($1, $2, $3, $4, $5, 0)`,
		id, name, email, passwordHash, string(model.RolePending),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return "", fmt.Errorf("%w: %s", ErrProfileExists, email)
		}
		return "", fmt.Errorf("create profile: %w", err)
	}
	return id, nil
}

// GetProfileByEmail возвращает профиль по адресу электронной почты.
func (r *PostgresRepository) GetProfileByEmail(ctx context.Context, email string) (*model.Profile, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, role, coins, created_at FROM profiles WHERE email = $1`,
		email,
	)
	return scanProfile(row)
}

// GetProfileByID возвращает профиль по идентификатору.
func (r *PostgresRepository) GetProfileByID(ctx context.Context, id string) (*model.Profile, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, role, coins, created_at FROM profiles WHERE id = $1`,
		id,
	)
	return scanProfile(row)
}

func scanProfile(row pgx.Row) (*model.Profile, error) {
	var p model.Profile
	var role string
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.PasswordHash, &role, &p.Coins, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	p.Role = model.Role(role)
	return &p, nil
}

// ListProfilesByRole возвращает профили с указанной ролью, новые первыми.
func (r *PostgresRepository) ListProfilesByRole(ctx context.Context, role model.Role) ([]model.Profile, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, email, password_hash, role, coins, created_at
		 FROM profiles
		 WHERE role = $1
		 ORDER BY created_at DESC`,
		string(role),
	)
	if err != nil {
		return nil, fmt.Errorf("select profiles: %w", err)
	}
	defer rows.Close()

	var res []model.Profile
	for rows.Next() {
		var p model.Profile
		var roleStr string
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.PasswordHash, &roleStr, &p.Coins, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		p.Role = model.Role(roleStr)
		res = append(res, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ApproveWorker переводит профиль из pending в worker.
// Любая другая исходная роль считается недопустимым переходом.
func (r *PostgresRepository) ApproveWorker(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var role string
	err = tx.QueryRow(ctx, `SELECT role FROM profiles WHERE id = $1 FOR UPDATE`, id).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return ErrProfileNotFound
		}
		return fmt.Errorf("lock profile: %w", err)
	}

	if model.Role(role) != model.RolePending {
		return fmt.Errorf("%w: %s -> worker", ErrInvalidTransition, role)
	}

	_, err = tx.Exec(ctx, `UPDATE profiles SET role = $2 WHERE id = $1`, id, string(model.RoleWorker))
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// RejectWorker полностью удаляет профиль, ожидающий подтверждения.
func (r *PostgresRepository) RejectWorker(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var role string
	err = tx.QueryRow(ctx, `SELECT role FROM profiles WHERE id = $1 FOR UPDATE`, id).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return ErrProfileNotFound
		}
		return fmt.Errorf("lock profile: %w", err)
	}

	if model.Role(role) != model.RolePending {
		return fmt.Errorf("%w: reject of %s profile", ErrInvalidTransition, role)
	}

	_, err = tx.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// AdjustCoins атомарно изменяет баланс профиля на delta.
// Блокирует строку профиля, чтобы параллельные изменения не увели баланс в минус.
func (r *PostgresRepository) AdjustCoins(ctx context.Context, id string, delta int64) (int64, error) {
	var balance int64

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var current int64
		err = tx.QueryRow(ctx, `SELECT coins FROM profiles WHERE id = $1 FOR UPDATE`, id).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
				return ErrProfileNotFound
			}
			return fmt.Errorf("lock profile: %w", err)
		}

		if current+delta < 0 {
			return ErrInsufficientBalance
		}

		err = tx.QueryRow(ctx,
			`UPDATE profiles SET coins = coins + $2 WHERE id = $1 RETURNING coins`,
			id, delta,
		).Scan(&balance)
		if err != nil {
			return fmt.Errorf("update coins: %w", err)
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return 0, err
	}

	return balance, nil
}

// CreateProduct добавляет товар в каталог магазина.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p model.Product) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO products (id, name, price_cents, imageurl, description, category)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, p.Name, p.PriceCents, p.ImageURL, p.Description, p.Category,
	)
	if err != nil {
		return "", fmt.Errorf("create product: %w", err)
	}
	return id, nil
}

// ListProducts возвращает все товары магазина, новые первыми.
func (r *PostgresRepository) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, price_cents, imageurl, description, category, created_at
		 FROM products
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var res []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.ImageURL, &p.Description, &p.Category, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		res = append(res, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// DeleteProduct удаляет товар по идентификатору.
func (r *PostgresRepository) DeleteProduct(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "products", id)
}

// CreateBooking сохраняет заявку на запись в мастерскую.
func (r *PostgresRepository) CreateBooking(ctx context.Context, b model.Booking) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO bookings (id, service, name, email, phone, booking_date, booking_time, vehicle_model, message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, b.Service, b.Name, b.Email, b.Phone, b.Date, b.Time, b.VehicleModel, b.Message,
	)
	if err != nil {
		return "", fmt.Errorf("create booking: %w", err)
	}
	return id, nil
}

// ListBookings возвращает все заявки, новые первыми.
func (r *PostgresRepository) ListBookings(ctx context.Context) ([]model.Booking, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, service, name, email, phone, booking_date, booking_time, vehicle_model, message, created_at
		 FROM bookings
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select bookings: %w", err)
	}
	defer rows.Close()

	var res []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(&b.ID, &b.Service, &b.Name, &b.Email, &b.Phone, &b.Date, &b.Time, &b.VehicleModel, &b.Message, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		res = append(res, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// DeleteBooking удаляет заявку по идентификатору.
func (r *PostgresRepository) DeleteBooking(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "bookings", id)
}

// CreateContactMessage сохраняет сообщение из формы обратной связи.
func (r *PostgresRepository) CreateContactMessage(ctx context.Context, m model.ContactMessage) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO contact_messages (id, name, email, subject, message) VALUES ($1, $2, $3, $4, $5)`,
		id, m.Name, m.Email, m.Subject, m.Message,
	)
	if err != nil {
		return "", fmt.Errorf("create contact message: %w", err)
	}
	return id, nil
}

// ListContactMessages возвращает все сообщения обратной связи, новые первыми.
func (r *PostgresRepository) ListContactMessages(ctx context.Context) ([]model.ContactMessage, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, email, subject, message, created_at
		 FROM contact_messages
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select contact messages: %w", err)
	}
	defer rows.Close()

	var res []model.ContactMessage
	for rows.Next() {
		var m model.ContactMessage
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Message, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contact message: %w", err)
		}
		res = append(res, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// DeleteContactMessage удаляет сообщение по идентификатору.
func (r *PostgresRepository) DeleteContactMessage(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "contact_messages", id)
}

// CreateCoupon добавляет купон в каталог наград.
func (r *PostgresRepository) CreateCoupon(ctx context.Context, c model.Coupon) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO coupons (id, code, coins, description, is_active, expires_at)
		 VALUES ($1, $2, $3, $4, TRUE, $5)`,
		id, c.Code, c.Coins, c.Description, c.ExpiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return "", fmt.Errorf("%w: %s", ErrCouponExists, c.Code)
		}
		return "", fmt.Errorf("create coupon: %w", err)
	}
	return id, nil
}

// ListCoupons возвращает все купоны, новые первыми.
func (r *PostgresRepository) ListCoupons(ctx context.Context) ([]model.Coupon, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, code, coins, description, is_active, expires_at, created_at
		 FROM coupons
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select coupons: %w", err)
	}
	defer rows.Close()

	return scanCoupons(rows)
}

// ListCouponsRedeemedBy возвращает купоны, погашенные указанным профилем.
func (r *PostgresRepository) ListCouponsRedeemedBy(ctx context.Context, profileID string) ([]model.Coupon, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.code, c.coins, c.description, c.is_active, c.expires_at, c.created_at
		 FROM coupons c
		 JOIN coupon_redemptions cr ON cr.coupon_id = c.id
		 WHERE cr.profile_id = $1
		 ORDER BY cr.redeemed_at DESC`,
		profileID,
	)
	if err != nil {
		return nil, fmt.Errorf("select redeemed coupons: %w", err)
	}
	defer rows.Close()

	return scanCoupons(rows)
}

func scanCoupons(rows pgx.Rows) ([]model.Coupon, error) {
	var res []model.Coupon
	for rows.Next() {
		var c model.Coupon
		if err := rows.Scan(&c.ID, &c.Code, &c.Coins, &c.Description, &c.IsActive, &c.ExpiresAt, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		res = append(res, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// DeleteCoupon удаляет купон по идентификатору.
func (r *PostgresRepository) DeleteCoupon(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "coupons", id)
}

// DeactivateExpiredCoupons снимает флаг is_active с купонов, срок действия которых истёк.
// Возвращает количество деактивированных купонов.
func (r *PostgresRepository) DeactivateExpiredCoupons(ctx context.Context) (int64, error) {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE coupons SET is_active = FALSE
		 WHERE is_active AND expires_at IS NOT NULL AND expires_at <= now()`,
	)
	if err != nil {
		return 0, fmt.Errorf("deactivate expired coupons: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}

// CreateMerchandise добавляет товар за монеты в каталог наград.
func (r *PostgresRepository) CreateMerchandise(ctx context.Context, m model.Merchandise) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO merchandise (id, name, imageurl, description, coins) VALUES ($1, $2, $3, $4, $5)`,
		id, m.Name, m.ImageURL, m.Description, m.Coins,
	)
	if err != nil {
		return "", fmt.Errorf("create merchandise: %w", err)
	}
	return id, nil
}

// ListMerchandise возвращает все товары за монеты, новые первыми.
func (r *PostgresRepository) ListMerchandise(ctx context.Context) ([]model.Merchandise, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, imageurl, description, coins, created_at
		 FROM merchandise
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select merchandise: %w", err)
	}
	defer rows.Close()

	var res []model.Merchandise
	for rows.Next() {
		var m model.Merchandise
		if err := rows.Scan(&m.ID, &m.Name, &m.ImageURL, &m.Description, &m.Coins, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan merchandise: %w", err)
		}
		res = append(res, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// DeleteMerchandise удаляет товар за монеты по идентификатору.
func (r *PostgresRepository) DeleteMerchandise(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "merchandise", id)
}

// RedeemedCoupon описывает результат успешного погашения купона.
type RedeemedCoupon struct {
	Code        string
	Description string
	Coins       int64
	Balance     int64
}

// RedeemCoupon выполняет погашение купона одной транзакцией:
// запись в реестр погашений и начисление монет либо применяются вместе,
// либо не применяются вовсе. Повторное погашение отсекает первичный ключ реестра.
func (r *PostgresRepository) RedeemCoupon(ctx context.Context, profileID, code string) (*RedeemedCoupon, error) {
	var res RedeemedCoupon

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var couponID string
		err = tx.QueryRow(ctx,
			`SELECT id, code, coins, description
			 FROM coupons
			 WHERE code = $1 AND is_active AND (expires_at IS NULL OR expires_at > now())`,
			code,
		).Scan(&couponID, &res.Code, &res.Coins, &res.Description)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrCouponNotFound
			}
			return fmt.Errorf("select coupon: %w", err)
		}

		// Блокируем строку профиля: параллельные погашения одним работником
		// выполняются строго по очереди.
		var dummy int
		err = tx.QueryRow(ctx, `SELECT 1 FROM profiles WHERE id = $1 FOR UPDATE`, profileID).Scan(&dummy)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
				return ErrProfileNotFound
			}
			return fmt.Errorf("lock profile: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO coupon_redemptions (coupon_id, profile_id) VALUES ($1, $2)`,
			couponID, profileID,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return ErrAlreadyRedeemed
			}
			return fmt.Errorf("insert redemption: %w", err)
		}

		err = tx.QueryRow(ctx,
			`UPDATE profiles SET coins = coins + $2 WHERE id = $1 RETURNING coins`,
			profileID, res.Coins,
		).Scan(&res.Balance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrLedgerInconsistency
			}
			return fmt.Errorf("update balance: %w", err)
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}

	return &res, nil
}

// RedeemMerchandise выполняет выкуп товара за монеты одной транзакцией.
// Баланс читается заново под блокировкой, клиентским копиям не доверяем.
// Возвращает баланс после списания.
func (r *PostgresRepository) RedeemMerchandise(ctx context.Context, profileID, merchID string) (int64, error) {
	var balance int64

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var cost int64
		err = tx.QueryRow(ctx, `SELECT coins FROM merchandise WHERE id = $1`, merchID).Scan(&cost)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
				return ErrMerchandiseNotFound
			}
			return fmt.Errorf("select merchandise: %w", err)
		}

		var current int64
		err = tx.QueryRow(ctx, `SELECT coins FROM profiles WHERE id = $1 FOR UPDATE`, profileID).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
				return ErrProfileNotFound
			}
			return fmt.Errorf("lock profile: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO merchandise_redemptions (merchandise_id, profile_id) VALUES ($1, $2)`,
			merchID, profileID,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return ErrAlreadyRedeemed
			}
			return fmt.Errorf("insert redemption: %w", err)
		}

		if current < cost {
			return ErrInsufficientBalance
		}

		err = tx.QueryRow(ctx,
			`UPDATE profiles SET coins = coins - $2 WHERE id = $1 RETURNING coins`,
			profileID, cost,
		).Scan(&balance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrLedgerInconsistency
			}
			return fmt.Errorf("update balance: %w", err)
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return 0, err
	}

	return balance, nil
}

func (r *PostgresRepository) deleteByID(ctx context.Context, table, id string) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		if isInvalidUUID(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
