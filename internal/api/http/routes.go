package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/i474232898/greenhouse-monitor/internal/greenhouse"
	"github.com/i474232898/greenhouse-monitor/internal/scheduler"
	"github.com/i474232898/greenhouse-monitor/internal/store"
)

var validate = validator.New()

// ErrorHandler renders every error as {"error":true,"message":...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. metrics may be nil.
func RegisterRoutes(app *fiber.App, sched *scheduler.Scheduler, sim *greenhouse.Simulator, metrics http.Handler) {
	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics))
	}

	v1 := app.Group("/api/v1")

	v1.Get("/simulation", func(c *fiber.Ctx) error {
		return c.JSON(sched.Status())
	})

	v1.Post("/simulation/control", func(c *fiber.Ctx) error {
		var cmd scheduler.Command
		if err := c.BodyParser(&cmd); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
		}
		if err := validate.Struct(cmd); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		status, err := sched.Execute(cmd)
		if err != nil {
			if errors.Is(err, scheduler.ErrInvalidCommand) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to apply command")
		}
		return c.JSON(status)
	})

	v1.Get("/sensors/latest", func(c *fiber.Ctx) error {
		sample, err := sim.LatestSample(c.UserContext())
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no sensor data yet")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch sensor data")
		}
		return c.JSON(sample)
	})

	v1.Get("/sensors", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		samples, err := sim.SampleRange(c.UserContext(), req.From, req.To)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch sensor history")
		}
		if samples == nil {
			samples = []greenhouse.SensorSample{}
		}

		return c.JSON(fiber.Map{
			"from":    req.From,
			"to":      req.To,
			"count":   len(samples),
			"samples": samples,
		})
	})

	v1.Get("/sensors/stats/daily", func(c *fiber.Ctx) error {
		day := time.Now().In(sim.Location())
		if s := c.Query("date"); s != "" {
			d, err := time.ParseInLocation("2006-01-02", s, sim.Location())
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid date; use YYYY-MM-DD")
			}
			day = d
		}

		stats, err := sim.DailyStats(c.UserContext(), day)
		if err != nil {
			if errors.Is(err, greenhouse.ErrNoData) {
				return fiber.NewError(fiber.StatusNotFound, "no data for "+stats.Date)
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to compute daily stats")
		}
		return c.JSON(stats)
	})

	v1.Get("/devices/latest", func(c *fiber.Ctx) error {
		state, err := sim.LatestDevices(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch device state")
		}
		if state == nil {
			return fiber.NewError(fiber.StatusNotFound, "no device state recorded")
		}
		return c.JSON(state)
	})

	v1.Post("/devices", func(c *fiber.Ctx) error {
		var req deviceRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		saved, err := sim.SaveDevices(c.UserContext(), req.toState())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to save device state")
		}
		return c.Status(fiber.StatusCreated).JSON(saved)
	})
}

// deviceRequest is an actuation record posted by a controller.
type deviceRequest struct {
	Lampu      bool   `json:"lampu"`
	Ventilasi  string `json:"ventilasi" validate:"omitempty,oneof=buka tutup"`
	Humidifier bool   `json:"humidifier"`
	Kipas      bool   `json:"kipas"`
	Pemanas    bool   `json:"pemanas"`
}

func (r deviceRequest) toState() greenhouse.DeviceState {
	return greenhouse.DeviceState{
		Lampu:      r.Lampu,
		Ventilasi:  greenhouse.Vent(r.Ventilasi),
		Humidifier: r.Humidifier,
		Kipas:      r.Kipas,
		Pemanas:    r.Pemanas,
	}
}

// historyQuery holds query parameters for the sensor history endpoint.
type historyQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
