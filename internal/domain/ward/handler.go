package ward

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ehr/icurisk/internal/domain/bedstatus"
	"github.com/ehr/icurisk/internal/domain/sepsis"
	"github.com/ehr/icurisk/internal/domain/stay"
	"github.com/ehr/icurisk/internal/domain/vitals"
	"github.com/ehr/icurisk/internal/platform/auth"
	"github.com/ehr/icurisk/internal/platform/reporting"
	"github.com/ehr/icurisk/pkg/pagination"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Read endpoints – admin, physician, nurse
	readGroup := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RolePhysician, auth.RoleNurse))
	readGroup.GET("/ward/census", h.Census)
	readGroup.GET("/ward/stats", h.Stats)
	readGroup.GET("/ward/alerts", h.Alerts)
	readGroup.GET("/patients/:id", h.GetPatient)
	readGroup.GET("/patients/:id/vitals", h.VitalsHistory)
	readGroup.GET("/patients/:id/labs", h.LabResults)
	readGroup.GET("/patients/:id/report", h.PatientReport)
	readGroup.GET("/patients/:id/predictive-report", h.PredictiveReport)
	readGroup.GET("/patients/:id/risk-assessment", h.RiskAssessment)

	// Ad hoc scoring – admin, physician, nurse
	scoreGroup := api.Group("/scoring", auth.RequireRole(auth.RoleAdmin, auth.RolePhysician, auth.RoleNurse))
	scoreGroup.POST("/sepsis", h.ScoreSepsis)
	scoreGroup.POST("/onset", h.ScoreOnset)
	scoreGroup.POST("/length-of-stay", h.ScoreLengthOfStay)
	scoreGroup.POST("/discharge-readiness", h.ScoreDischargeReadiness)
	scoreGroup.POST("/bed-status", h.ScoreBedStatus)

	// Export and cache control – admin, physician
	adminGroup := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RolePhysician))
	adminGroup.GET("/ward/census/export", h.ExportCensus)
	adminGroup.DELETE("/ward/census/cache", h.InvalidateCensus)
}

// -- Ward Handlers --

func (h *Handler) Census(c echo.Context) error {
	pg := pagination.FromContext(c)
	entries, err := h.svc.Census(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	start, end := pg.Bounds(len(entries))
	return c.JSON(http.StatusOK, pagination.NewResponse(entries[start:end], len(entries), pg))
}

func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) Alerts(c echo.Context) error {
	alerts, err := h.svc.Alerts(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, alerts)
}

func (h *Handler) ExportCensus(c echo.Context) error {
	entries, err := h.svc.Census(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	rows := make([]reporting.CensusRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, reporting.CensusRow{
			BedNumber:        e.BedNumber,
			PatientName:      e.Name,
			Age:              e.Age,
			Diagnosis:        e.Diagnosis,
			DaysAdmitted:     e.DaysAdmitted,
			Status:           string(e.Bed.Status),
			Color:            e.Bed.Hex,
			Probability:      e.Bed.Probability,
			HeartRate:        e.Vitals.HeartRate,
			Systolic:         e.Vitals.BloodPressureSystolic,
			Temperature:      e.Vitals.Temperature,
			RespiratoryRate:  e.Vitals.RespiratoryRate,
			OxygenSaturation: e.Vitals.OxygenSaturation,
		})
	}

	now := h.svc.now()
	c.Response().Header().Set(echo.HeaderContentType, xlsxContentType)
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=\"icu-census-%s.xlsx\"", now.Format("20060102-1504")))
	c.Response().WriteHeader(http.StatusOK)
	return reporting.WriteCensus(c.Response(), rows, now)
}

func (h *Handler) InvalidateCensus(c echo.Context) error {
	if err := h.svc.InvalidateCensus(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Patient Handlers --

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := parsePatientID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) VitalsHistory(c echo.Context) error {
	id, err := parsePatientID(c)
	if err != nil {
		return err
	}
	hours := 0
	if raw := c.QueryParam("hours"); raw != "" {
		hours, err = strconv.Atoi(raw)
		if err != nil || hours <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "hours must be a positive integer")
		}
	}
	history, err := h.svc.VitalsHistory(c.Request().Context(), id, hours)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, history)
}

func (h *Handler) LabResults(c echo.Context) error {
	id, err := parsePatientID(c)
	if err != nil {
		return err
	}
	labs, err := h.svc.LabResults(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, labs)
}

func (h *Handler) PatientReport(c echo.Context) error {
	id, err := parsePatientID(c)
	if err != nil {
		return err
	}
	report, err := h.svc.PatientReport(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) PredictiveReport(c echo.Context) error {
	id, err := parsePatientID(c)
	if err != nil {
		return err
	}
	report, err := h.svc.PredictiveReport(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, report)
}

// RiskAssessment returns the sepsis assessment as a FHIR RiskAssessment.
func (h *Handler) RiskAssessment(c echo.Context) error {
	id, err := parsePatientID(c)
	if err != nil {
		return err
	}
	p, a, err := h.svc.SepsisAssessment(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	pid := strconv.FormatInt(p.ID, 10)
	return c.JSON(http.StatusOK, a.ToFHIR("sepsis-"+pid, pid, h.svc.now()))
}

// -- Scoring Handlers --

func (h *Handler) ScoreSepsis(c echo.Context) error {
	var req SepsisRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sepsis.Score(req.Vitals.Normalize(), req.Labs))
}

func (h *Handler) ScoreOnset(c echo.Context) error {
	var req OnsetRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	hours, level := sepsis.PredictOnset(*req.Probability, vitals.NormalizeAll(req.Trend))
	return c.JSON(http.StatusOK, OnsetResponse{PredictedOnsetHours: hours, RiskLevel: string(level)})
}

func (h *Handler) ScoreLengthOfStay(c echo.Context) error {
	var req StayRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK,
		stay.PredictLengthOfStay(req.Demographics, req.Vitals.Normalize(), req.Labs, req.CurrentDay))
}

func (h *Handler) ScoreDischargeReadiness(c echo.Context) error {
	var req DischargeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stay.DischargeReadiness(req.Demographics, req.Vitals.Normalize(), req.Labs))
}

func (h *Handler) ScoreBedStatus(c echo.Context) error {
	var req BedStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bedstatus.Classify(req.Vitals.Normalize()))
}

// -- Helpers --

func parsePatientID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validateRequest(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func httpError(err error) error {
	if errors.Is(err, ErrPatientNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if errors.Is(err, ErrInvalidInput) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
