package Controllers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"Aerofield/Ledger"
	"Aerofield/Models"
	"Aerofield/Photos"
	"Aerofield/middleware"
)

const dateLayout = "2006-01-02"

var (
	validate   = validator.New()
	translator ut.Translator
)

func init() {
	english := en.New()
	translator, _ = ut.New(english, english).GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(err)
	}
	// report json field names rather than Go field names
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// validationError carries translated messages keyed by json field.
type validationError struct {
	fields map[string]string
}

func (e validationError) Error() string {
	return fmt.Sprintf("invalid request: %v", e.fields)
}

var errBadBody = errors.New("invalid request body")

// bind parses the JSON body into dst and validates it.
func bind(ctx *fiber.Ctx, dst interface{}) error {
	if err := ctx.BodyParser(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Translate(translator)
			}
			return validationError{fields: fields}
		}
		return err
	}
	return nil
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, Ledger.ErrNotAuthorized), errors.Is(err, Models.ErrUserInactive):
		return fiber.StatusForbidden
	case errors.Is(err, Models.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, Ledger.ErrTaskNotFound),
		errors.Is(err, Ledger.ErrDebtNotFound),
		errors.Is(err, Ledger.ErrEntryNotFound),
		errors.Is(err, Ledger.ErrCashEntryNotFound),
		errors.Is(err, Models.ErrUserNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, Ledger.ErrInvalidTransition),
		errors.Is(err, Ledger.ErrTargetLocked),
		errors.Is(err, Ledger.ErrDuplicateDebt),
		errors.Is(err, Ledger.ErrNotBillable),
		errors.Is(err, Models.ErrUserExists):
		return fiber.StatusConflict
	case errors.Is(err, Ledger.ErrInvalidQuantity),
		errors.Is(err, Ledger.ErrInvalidAmount),
		errors.Is(err, Ledger.ErrInvalidEntryType),
		errors.Is(err, Photos.ErrNotAnImage),
		errors.Is(err, Photos.ErrBadPath),
		errors.Is(err, errBadBody):
		return fiber.StatusBadRequest
	}
	var verr validationError
	if errors.As(err, &verr) {
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

// fail writes err as {"error": ...} with the matching status. Internal
// errors are logged and hidden from the client.
func fail(ctx *fiber.Ctx, err error) error {
	status := statusOf(err)

	var verr validationError
	if errors.As(err, &verr) {
		return ctx.Status(status).JSON(fiber.Map{"error": "Validation failed", "fields": verr.fields})
	}
	if status == fiber.StatusInternalServerError {
		log.WithFields(log.Fields{"method": ctx.Method(), "path": ctx.Path()}).WithError(err).Error("request failed")
		return ctx.Status(status).JSON(fiber.Map{"error": "Internal server error"})
	}
	return ctx.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// parseWindow reads the optional from/to query dates (YYYY-MM-DD). The to
// date is inclusive.
func parseWindow(ctx *fiber.Ctx) (Ledger.Window, error) {
	var w Ledger.Window
	if v := ctx.Query("from"); v != "" {
		from, err := time.Parse(dateLayout, v)
		if err != nil {
			return w, fmt.Errorf("%w: from: %v", errBadBody, err)
		}
		w.From = from
	}
	if v := ctx.Query("to"); v != "" {
		to, err := time.Parse(dateLayout, v)
		if err != nil {
			return w, fmt.Errorf("%w: to: %v", errBadBody, err)
		}
		w.To = to.Add(24*time.Hour - time.Nanosecond)
	}
	return w, nil
}

func currentActor(ctx *fiber.Ctx) Ledger.Actor {
	a, _ := middleware.ActorFrom(ctx)
	return a
}

func sendWorkbook(ctx *fiber.Ctx, name string, body []byte) error {
	ctx.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s_%s.xlsx", name, time.Now().Format(dateLayout)))
	return ctx.Send(body)
}
