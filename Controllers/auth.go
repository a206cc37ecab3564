package Controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"Aerofield/Ledger"
	"Aerofield/Models"
	"Aerofield/middleware"
)

// AuthController handles sessions, user accounts and push device tokens.
type AuthController struct {
	DB   *gorm.DB
	Auth *middleware.Auth
}

func NewAuthController(db *gorm.DB, auth *middleware.Auth) *AuthController {
	return &AuthController{DB: db, Auth: auth}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=admin employee"`
}

type activeRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type deviceRequest struct {
	Token string `json:"token" validate:"required,max=512"`
}

func (c *AuthController) Login(ctx *fiber.Ctx) error {
	var req loginRequest
	if err := bind(ctx, &req); err != nil {
		return fail(ctx, err)
	}
	user, err := Models.Authenticate(c.DB, req.Email, req.Password)
	if err != nil {
		log.WithField("email", req.Email).WithError(err).Warn("login rejected")
		return fail(ctx, err)
	}
	token, expires, err := c.Auth.Issue(user, time.Now())
	if err != nil {
		return fail(ctx, err)
	}
	middleware.SetCookie(ctx, token, expires)
	return ctx.JSON(fiber.Map{
		"token":      token,
		"expires_at": expires,
		"user":       user,
	})
}

func (c *AuthController) Logout(ctx *fiber.Ctx) error {
	middleware.ClearCookie(ctx)
	return ctx.JSON(fiber.Map{"message": "Logged out"})
}

func (c *AuthController) Me(ctx *fiber.Ctx) error {
	user, ok := middleware.UserFrom(ctx)
	if !ok {
		return fail(ctx, Ledger.ErrNotAuthorized)
	}
	return ctx.JSON(user)
}

// RegisterUser creates an account. Only admins reach this handler.
func (c *AuthController) RegisterUser(ctx *fiber.Ctx) error {
	var req registerRequest
	if err := bind(ctx, &req); err != nil {
		return fail(ctx, err)
	}
	user, err := Models.CreateUser(c.DB, req.Name, req.Email, req.Password, Ledger.Role(req.Role))
	if err != nil {
		return fail(ctx, err)
	}
	log.WithFields(log.Fields{"user": user.ID, "role": user.Role}).Info("user registered")
	return ctx.Status(fiber.StatusCreated).JSON(user)
}

func (c *AuthController) ListUsers(ctx *fiber.Ctx) error {
	users, err := Models.ListUsers(c.DB)
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(users)
}

func (c *AuthController) SetUserActive(ctx *fiber.Ctx) error {
	var req activeRequest
	if err := bind(ctx, &req); err != nil {
		return fail(ctx, err)
	}
	user, err := Models.SetActive(c.DB, ctx.Params("id"), *req.Active)
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(user)
}

// RegisterDevice stores the caller's push token.
func (c *AuthController) RegisterDevice(ctx *fiber.Ctx) error {
	var req deviceRequest
	if err := bind(ctx, &req); err != nil {
		return fail(ctx, err)
	}
	device, err := Models.RegisterDevice(c.DB, currentActor(ctx).ID, req.Token)
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(fiber.Map{"message": "Token updated successfully", "id": device.ID})
}
