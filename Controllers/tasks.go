package Controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"Aerofield/Ledger"
	"Aerofield/Notifications"
	"Aerofield/Photos"
)

// TaskController handles tasks and their progress ledgers.
type TaskController struct {
	Service  *Ledger.Service
	Photos   *Photos.Store
	Notifier *Notifications.Dispatcher
}

func NewTaskController(service *Ledger.Service, photos *Photos.Store, notifier *Notifications.Dispatcher) *TaskController {
	return &TaskController{Service: service, Photos: photos, Notifier: notifier}
}

type createTaskRequest struct {
	Title          string    `json:"title" validate:"required,max=200"`
	Client         string    `json:"client" validate:"required,max=200"`
	Assignee       string    `json:"assignee" validate:"max=120"`
	Location       string    `json:"location" validate:"max=200"`
	TargetQuantity float64   `json:"target_quantity" validate:"gt=0"`
	ServiceValue   *float64  `json:"service_value" validate:"omitempty,gte=0"`
	DueDate        time.Time `json:"due_date"`
}

type progressRequest struct {
	Quantity  float64   `json:"quantity" validate:"gt=0"`
	Worker    string    `json:"worker" validate:"max=120"`
	Equipment []string  `json:"equipment" validate:"dive,max=120"`
	Notes     string    `json:"notes" validate:"max=2000"`
	Date      time.Time `json:"date"`
}

type targetRequest struct {
	TargetQuantity float64 `json:"target_quantity" validate:"gt=0"`
}

// ListTasks returns every task to admins and the assigned ones to employees.
func (c *TaskController) ListTasks(ctx *fiber.Ctx) error {
	tasks, err := c.Service.ListTasks(ctx.UserContext())
	if err != nil {
		return fail(ctx, err)
	}
	actor := currentActor(ctx)
	if actor.IsAdmin() {
		return ctx.JSON(tasks)
	}
	visible := make([]Ledger.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.CanBeMutatedBy(actor) {
			visible = append(visible, t)
		}
	}
	return ctx.JSON(visible)
}

func (c *TaskController) GetTask(ctx *fiber.Ctx) error {
	t, err := c.Service.GetTask(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return fail(ctx, err)
	}
	if !t.CanBeMutatedBy(currentActor(ctx)) {
		return fail(ctx, Ledger.ErrNotAuthorized)
	}
	return ctx.JSON(t)
}

func (c *TaskController) CreateTask(ctx *fiber.Ctx) error {
	var req createTaskRequest
	if err := bind(ctx, &req); err != nil {
		return fail(ctx, err)
	}
	t, err := c.Service.CreateTask(ctx.UserContext(), currentActor(ctx), Ledger.TaskInput{
		Title:          req.Title,
		Client:         req.Client,
		Assignee:       req.Assignee,
		Location:       req.Location,
		TargetQuantity: req.TargetQuantity,
		ServiceValue:   req.ServiceValue,
		DueDate:        req.DueDate,
	})
	if err != nil {
		return fail(ctx, err)
	}
	if t.Assignee != "" {
		c.Notifier.Notify(Notifications.TaskAssignedNotice(t))
	}
	return ctx.Status(fiber.StatusCreated).JSON(t)
}

func (c *TaskController) StartTask(ctx *fiber.Ctx) error {
	t, err := c.Service.StartTask(ctx.UserContext(), currentActor(ctx), ctx.Params("id"))
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(t)
}

// AppendProgress records work; reaching the target completes the task.
func (c *TaskController) AppendProgress(ctx *fiber.Ctx) error {
	var req progressRequest
	if err := bind(ctx, &req); err != nil {
		return fail(ctx, err)
	}
	t, err := c.Service.AppendProgress(ctx.UserContext(), currentActor(ctx), ctx.Params("id"), Ledger.ProgressInput{
		Quantity:  req.Quantity,
		Worker:    req.Worker,
		Equipment: req.Equipment,
		Notes:     req.Notes,
		Date:      req.Date,
	})
	if err != nil {
		return fail(ctx, err)
	}
	if t.Status == Ledger.StatusCompleted {
		c.completed(ctx, t)
	}
	return ctx.Status(fiber.StatusCreated).JSON(t)
}

func (c *TaskController) CompleteTask(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	before, err := c.Service.GetTask(ctx.UserContext(), id)
	if err != nil {
		return fail(ctx, err)
	}
	t, err := c.Service.CompleteTask(ctx.UserContext(), currentActor(ctx), id)
	if err != nil {
		return fail(ctx, err)
	}
	if before.Status != Ledger.StatusCompleted {
		c.completed(ctx, t)
	}
	return ctx.JSON(t)
}

// completed announces a task that just completed, and its debt when billable.
func (c *TaskController) completed(ctx *fiber.Ctx, t Ledger.Task) {
	c.Notifier.Notify(Notifications.TaskCompletedNotice(t))
	if !t.Billable() {
		return
	}
	d, err := c.Service.CreateDebtForTask(ctx.UserContext(), t.ID)
	if err != nil {
		log.WithField("task", t.ID).WithError(err).Warn("debt of completed task unavailable")
		return
	}
	c.Notifier.Notify(Notifications.DebtCreatedNotice(d))
}

func (c *TaskController) RemoveProgress(ctx *fiber.Ctx) error {
	t, err := c.Service.RemoveProgress(ctx.UserContext(), currentActor(ctx), ctx.Params("id"), ctx.Params("entry"))
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(t)
}

func (c *TaskController) ChangeTarget(ctx *fiber.Ctx) error {
	var req targetRequest
	if err := bind(ctx, &req); err != nil {
		return fail(ctx, err)
	}
	t, err := c.Service.ChangeTarget(ctx.UserContext(), currentActor(ctx), ctx.Params("id"), req.TargetQuantity)
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(t)
}

// UploadPhoto stores the multipart "photo" file and attaches it to a
// progress entry.
func (c *TaskController) UploadPhoto(ctx *fiber.Ctx) error {
	taskID, entryID := ctx.Params("id"), ctx.Params("entry")
	actor := currentActor(ctx)

	t, err := c.Service.GetTask(ctx.UserContext(), taskID)
	if err != nil {
		return fail(ctx, err)
	}
	if !t.CanBeMutatedBy(actor) {
		return fail(ctx, Ledger.ErrNotAuthorized)
	}

	header, err := ctx.FormFile("photo")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "photo file is required"})
	}
	file, err := header.Open()
	if err != nil {
		return fail(ctx, err)
	}
	defer file.Close()

	path, err := c.Photos.Save(taskID, entryID, file)
	if err != nil {
		return fail(ctx, err)
	}
	t, err = c.Service.AttachPhoto(ctx.UserContext(), actor, taskID, entryID, path)
	if err != nil {
		if rmErr := c.Photos.Remove(path); rmErr != nil {
			log.WithField("photo", path).WithError(rmErr).Warn("orphan photo not removed")
		}
		return fail(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{"path": path, "task": t})
}
