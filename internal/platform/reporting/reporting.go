package reporting

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/ehr/icurisk/internal/platform/auth"
)

// MeasureDefinition defines a ward measure with its SQL query.
type MeasureDefinition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SQL         string `json:"sql"`
}

// MeasureReport holds the results of evaluating a measure.
type MeasureReport struct {
	MeasureID   string                   `json:"measure_id"`
	MeasureName string                   `json:"measure_name"`
	GeneratedAt time.Time                `json:"generated_at"`
	Results     []map[string]interface{} `json:"results"`
}

// PredefinedMeasures is the list of available ward measures.
var PredefinedMeasures = []MeasureDefinition{
	{
		ID:          "census-by-status",
		Name:        "Census by Status",
		Description: "Number of admitted patients per recorded status",
		SQL: `SELECT COALESCE(ps.status_type, 'unknown') AS status_type, COUNT(*) AS total
			FROM patients p LEFT JOIN patient_status ps ON p.patient_id = ps.patient_id
			GROUP BY 1 ORDER BY total DESC`,
	},
	{
		ID:          "diagnosis-mix",
		Name:        "Diagnosis Mix",
		Description: "Admitted patients grouped by diagnosis with mean age",
		SQL: `SELECT COALESCE(diagnosis, 'unknown') AS diagnosis, COUNT(*) AS total, ROUND(AVG(age), 1)::float8 AS mean_age
			FROM patients GROUP BY 1 ORDER BY total DESC`,
	},
	{
		ID:          "days-admitted",
		Name:        "Days Admitted",
		Description: "Mean and maximum whole days since admission across the ward",
		SQL: `SELECT COUNT(*) AS total,
				COALESCE(ROUND(AVG(EXTRACT(DAY FROM now() - admission_date)), 1), 0)::float8 AS mean_days,
				COALESCE(MAX(EXTRACT(DAY FROM now() - admission_date)), 0)::int AS max_days
			FROM patients`,
	},
	{
		ID:          "lab-volume-24h",
		Name:        "Lab Volume (24h)",
		Description: "Lab results recorded in the last 24 hours by test",
		SQL: `SELECT test_name, COUNT(*) AS total FROM lab_results
			WHERE test_date >= now() - interval '24 hours' GROUP BY test_name ORDER BY total DESC`,
	},
}

// Handler provides HTTP handlers for the reporting API.
type Handler struct {
	pool *pgxpool.Pool
}

// NewHandler creates a new reporting handler.
func NewHandler(pool *pgxpool.Pool) *Handler {
	return &Handler{pool: pool}
}

// RegisterRoutes registers the reporting API routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	reportGroup := api.Group("/reports", auth.RequireRole("admin", "physician"))
	reportGroup.GET("/measures", h.ListMeasures)
	reportGroup.GET("/measures/:id/evaluate", h.EvaluateMeasure)
}

// ListMeasures returns all available measure definitions.
func (h *Handler) ListMeasures(c echo.Context) error {
	return c.JSON(http.StatusOK, PredefinedMeasures)
}

// EvaluateMeasure executes a measure's SQL and returns the results.
func (h *Handler) EvaluateMeasure(c echo.Context) error {
	measure := FindMeasure(c.Param("id"))
	if measure == nil {
		return echo.NewHTTPError(http.StatusNotFound, "measure not found")
	}

	results, err := h.executeSQL(c.Request().Context(), measure.SQL)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("query failed: %v", err))
	}

	return c.JSON(http.StatusOK, MeasureReport{
		MeasureID:   measure.ID,
		MeasureName: measure.Name,
		GeneratedAt: time.Now(),
		Results:     results,
	})
}

func (h *Handler) executeSQL(ctx context.Context, sql string) ([]map[string]interface{}, error) {
	rows, err := h.pool.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	results := []map[string]interface{}{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(fieldDescs))
		for i, fd := range fieldDescs {
			row[fd.Name] = values[i]
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// FindMeasure looks up a measure by ID.
func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}
