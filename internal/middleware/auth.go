// Package middleware содержит HTTP middleware для сервиса мастерской.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/DRAKEN-1974/product/internal/model"
	"github.com/DRAKEN-1974/product/internal/repository"
)

type contextKey string

const profileIDKey contextKey = "profileID"

const (
	authCookieName = "auth_token"
	authCookieTTL  = 30 * 24 * time.Hour
)

// AuthMiddleware выполняет проверку аутентификации пользователя по подписанному cookie.
type AuthMiddleware struct {
	secretKey []byte
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware с указанным секретным ключом.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &AuthMiddleware{
		secretKey: key,
	}
}

// Middleware проверяет cookie авторизации и добавляет идентификатор профиля в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(authCookieName)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		profileID, ok := a.parseCookie(cookie.Value)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), profileIDKey, profileID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetAuthCookie устанавливает cookie авторизации для указанного идентификатора профиля.
func (a *AuthMiddleware) SetAuthCookie(w http.ResponseWriter, profileID string) {
	value := a.sign(profileID)

	cookie := &http.Cookie{
		Name:     authCookieName,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(authCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(w, cookie)
}

// ClearAuthCookie сбрасывает cookie авторизации при выходе из системы.
func (a *AuthMiddleware) ClearAuthCookie(w http.ResponseWriter) {
	cookie := &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(w, cookie)
}

// Значение cookie: "<id>.<hex(hmac-sha256(id))>". Идентификатор профиля —
// uuid, точек не содержит.
func (a *AuthMiddleware) sign(profileID string) string {
	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(profileID))
	signature := mac.Sum(nil)
	return profileID + "." + hex.EncodeToString(signature)
}

func (a *AuthMiddleware) parseCookie(cookieValue string) (string, bool) {
	parts := strings.Split(cookieValue, ".")
	if len(parts) != 2 {
		return "", false
	}

	profileID := parts[0]
	signature := parts[1]

	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(profileID))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return "", false
	}

	if profileID == "" {
		return "", false
	}

	return profileID, true
}

// GetProfileIDFromContext извлекает идентификатор профиля из контекста запроса.
func GetProfileIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(profileIDKey).(string)
	return id, ok
}

// ProfileSource возвращает профиль по идентификатору; используется ролевым middleware.
type ProfileSource interface {
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
}

// RequireRole пропускает запрос дальше, только если профиль из контекста имеет
// указанную роль. Роль перечитывается из хранилища при каждом запросе:
// одобрение или отклонение профиля действует немедленно.
func RequireRole(src ProfileSource, role model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profileID, ok := GetProfileIDFromContext(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			p, err := src.GetProfile(r.Context(), profileID)
			if err != nil {
				if errors.Is(err, repository.ErrProfileNotFound) {
					http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
					return
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			if p.Role != role {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
