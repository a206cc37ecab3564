package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"

	"Aerofield/Ledger"
	"Aerofield/Models"
)

const cookieName = "jwt"

// Claims is the token payload. Subject holds the user id.
type Claims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Auth issues and verifies session tokens.
type Auth struct {
	secret []byte
	ttl    time.Duration
	db     *gorm.DB
}

func NewAuth(secret string, ttl time.Duration, db *gorm.DB) *Auth {
	return &Auth{secret: []byte(secret), ttl: ttl, db: db}
}

// Issue signs a token for the user.
func (a *Auth) Issue(user Models.User, now time.Time) (string, time.Time, error) {
	expires := now.Add(a.ttl)
	claims := Claims{
		Name: user.Name,
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expires, nil
}

// Parse validates a token and returns its claims.
func (a *Auth) Parse(raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

func tokenFrom(c *fiber.Ctx) string {
	if h := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Cookies(cookieName)
}

// Verify authenticates the request and, when required is non-empty, demands
// that role. The account is reloaded so a deactivated user loses access
// before the token expires.
func (a *Auth) Verify(required Ledger.Role) fiber.Handler {
	check := RequireRole(required)
	return func(c *fiber.Ctx) error {
		raw := tokenFrom(c)
		if raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Not logged in",
			})
		}

		claims, err := a.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		user, err := Models.FindUser(a.db.WithContext(c.UserContext()), claims.Subject)
		if err != nil || !user.Active {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "User not found",
			})
		}

		c.Locals("user", user)
		c.Locals("actor", user.Actor())
		return check(c)
	}
}

// RequireRole checks the role of the account Verify already loaded. Use it on
// routes inside a group that verifies, so the account is not loaded twice.
func RequireRole(required Ledger.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := UserFrom(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Not logged in",
			})
		}
		if required != "" && Ledger.Role(user.Role) != required && !user.Actor().IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Insufficient permissions to access this resource",
			})
		}
		return c.Next()
	}
}

// RequireAdmin is Verify(Ledger.RoleAdmin).
func (a *Auth) RequireAdmin() fiber.Handler {
	return a.Verify(Ledger.RoleAdmin)
}

// SetCookie stores the token for browser clients.
func SetCookie(c *fiber.Ctx, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     cookieName,
		Value:    token,
		Expires:  expires,
		HTTPOnly: true,
		SameSite: "Lax",
	})
}

func ClearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     cookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	})
}

// ActorFrom returns the authenticated actor set by Verify.
func ActorFrom(c *fiber.Ctx) (Ledger.Actor, bool) {
	a, ok := c.Locals("actor").(Ledger.Actor)
	return a, ok
}

// UserFrom returns the authenticated account set by Verify.
func UserFrom(c *fiber.Ctx) (Models.User, bool) {
	u, ok := c.Locals("user").(Models.User)
	return u, ok
}
