package diet

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const (
	msgBadNumbers = "Age must be integer and BMI must be numeric."
	rootMessage   = "Diet Predictor API (improved) is running."
)

type Handler struct {
	logger  zerolog.Logger
	once    sync.Once
	metrics Metrics
}

func NewHandler(logger zerolog.Logger) *Handler {
	return &Handler{logger: logger}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Root)
	e.GET("/classes", h.Classes)
	e.GET("/metrics", h.Metrics)
	e.POST("/predict", h.Predict)
}

func errorJSON(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
}

func (h *Handler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": rootMessage})
}

func (h *Handler) Classes(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string][]Plan{"diet_plans": Plans})
}

// Metrics evaluates the model once and serves the cached result.
func (h *Handler) Metrics(c echo.Context) error {
	h.once.Do(func() {
		h.metrics = DefaultMetrics()
		h.logger.Info().Float64("accuracy", h.metrics.Accuracy).Msg("diet model evaluated")
	})
	return c.JSON(http.StatusOK, h.metrics)
}

func asInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	}
	return 0, false
}

func asFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

func levelList() string {
	quoted := make([]string, len(ActivityLevels))
	for i, a := range ActivityLevels {
		quoted[i] = "'" + string(a) + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// ParseInput validates a raw predict request body. The returned message is
// suitable for a 400 response.
func ParseInput(body map[string]interface{}) (Input, string) {
	age, okAge := asInt(body["Age"])
	bmi, okBMI := asFloat(body["BMI"])
	if !okAge || !okBMI {
		return Input{}, msgBadNumbers
	}

	raw := body["ActivityLevel"]
	var activity Activity
	ok := false
	if raw != nil {
		activity, ok = NormalizeActivity(fmt.Sprint(raw))
	}
	if !ok {
		got := "None"
		if raw != nil {
			got = fmt.Sprint(raw)
		}
		return Input{}, fmt.Sprintf("ActivityLevel must be one of %s. Got: %s", levelList(), got)
	}

	return Input{
		Age:          age,
		BMI:          bmi,
		Activity:     activity,
		Diabetes:     Truthy(body["Diabetes"]),
		Hypertension: Truthy(body["Hypertension"]),
	}, ""
}

// Predict accepts a JSON body regardless of the declared content type.
func (h *Handler) Predict(c echo.Context) error {
	var body map[string]interface{}
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil || body == nil {
		return errorJSON(c, msgBadNumbers)
	}
	in, msg := ParseInput(body)
	if msg != "" {
		return errorJSON(c, msg)
	}
	return c.JSON(http.StatusOK, Predict(in))
}
