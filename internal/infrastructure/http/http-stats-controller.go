package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"charity-admin/internal/application/query"
	"charity-admin/internal/domain/aggregate"
	"charity-admin/internal/infrastructure/export"
	"charity-admin/pkg/errors"
	"charity-admin/pkg/middleware"
	"charity-admin/pkg/payload"
	"charity-admin/pkg/response"
)

const (
	defaultRangeDays = 30
	modeWait         = "wait"
	modeSnapshot     = "snapshot"
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// statsParams are the query parameters shared by the stats routes.
type statsParams struct {
	From      string `validate:"omitempty,max=40"`
	To        string `validate:"omitempty,max=40"`
	TeamLimit int    `validate:"gte=0,lte=1000"`
	Mode      string `validate:"omitempty,oneof=wait snapshot"`
}

type listParams struct {
	Limit int `validate:"gte=0,lte=100"`
}

type HTTPStatsController struct {
	statsHandler    *query.AdminStatsHandler
	snapshotHandler *query.StatsSnapshotHandler
	failureHandler  *query.StatsFailureHandler
	validate        *validator.Validate
	loc             *time.Location
	now             func() time.Time
}

// NewHTTPStatsController wires the stats routes. snapshotHandler and
// failureHandler may be nil when the backing store is not configured.
func NewHTTPStatsController(statsHandler *query.AdminStatsHandler, snapshotHandler *query.StatsSnapshotHandler, failureHandler *query.StatsFailureHandler, loc *time.Location) *HTTPStatsController {
	if loc == nil {
		loc = time.Local
	}
	return &HTTPStatsController{
		statsHandler:    statsHandler,
		snapshotHandler: snapshotHandler,
		failureHandler:  failureHandler,
		validate:        validator.New(),
		loc:             loc,
		now:             time.Now,
	}
}

// Routes mounts the controller under /admin/stats.
func (c *HTTPStatsController) Routes(r chi.Router) {
	r.Get("/", c.GetStats)
	r.Post("/refetch", c.RefetchStats)
	r.Get("/export", c.ExportStats)
	r.Get("/snapshots", c.ListSnapshots)
	r.Get("/snapshots/{id}", c.GetSnapshot)
	r.Get("/failures", c.ListFailures)
}

// GetStats handles GET /admin/stats
// Query parameters: from, to (2006-01-02 or RFC3339), team_limit, mode (wait|snapshot)
func (c *HTTPStatsController) GetStats(w http.ResponseWriter, r *http.Request) {
	params, q, err := c.parseStatsQuery(r)
	if err != nil {
		c.fail(w, r, err)
		return
	}

	var result *aggregate.StatsResult
	if params.Mode == modeSnapshot {
		result, err = c.statsHandler.Snapshot(q)
	} else {
		result, err = c.statsHandler.Handle(r.Context(), q)
	}
	if err != nil {
		middleware.HandleError(w, r, err)
		return
	}

	c.sendReport(w, r, result, params)
}

// RefetchStats handles POST /admin/stats/refetch
func (c *HTTPStatsController) RefetchStats(w http.ResponseWriter, r *http.Request) {
	params, q, err := c.parseStatsQuery(r)
	if err != nil {
		c.fail(w, r, err)
		return
	}

	result, err := c.statsHandler.Refetch(r.Context(), q)
	if err != nil {
		middleware.HandleError(w, r, err)
		return
	}

	params.Mode = modeWait
	c.sendReport(w, r, result, params)
}

// ExportStats handles GET /admin/stats/export and streams an .xlsx workbook.
func (c *HTTPStatsController) ExportStats(w http.ResponseWriter, r *http.Request) {
	_, q, err := c.parseStatsQuery(r)
	if err != nil {
		c.fail(w, r, err)
		return
	}

	result, err := c.statsHandler.Handle(r.Context(), q)
	if err != nil {
		middleware.HandleError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteStatsWorkbook(&buf, result); err != nil {
		middleware.HandleError(w, r, fmt.Errorf("failed to export stats: %w", err))
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName(result)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// ListSnapshots handles GET /admin/stats/snapshots
func (c *HTTPStatsController) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	if c.snapshotHandler == nil {
		middleware.HandleError(w, r, errors.NewServiceUnavailableError("snapshot archive is not configured"))
		return
	}

	params, err := c.parseListParams(r)
	if err != nil {
		c.fail(w, r, err)
		return
	}

	snapshots, err := c.snapshotHandler.List(r.Context(), query.ListStatsSnapshots{Limit: params.Limit})
	if err != nil {
		middleware.HandleError(w, r, middleware.DatabaseErrorHandler(err))
		return
	}

	response.SendSuccessWithMeta(w, r, snapshots, &response.Meta{Limit: params.Limit, Total: len(snapshots)})
}

// GetSnapshot handles GET /admin/stats/snapshots/{id}
func (c *HTTPStatsController) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	if c.snapshotHandler == nil {
		middleware.HandleError(w, r, errors.NewServiceUnavailableError("snapshot archive is not configured"))
		return
	}

	snapshot, err := c.snapshotHandler.Get(r.Context(), query.GetStatsSnapshot{ID: chi.URLParam(r, "id")})
	if err != nil {
		middleware.HandleError(w, r, middleware.DatabaseErrorHandler(err))
		return
	}

	response.SendSuccess(w, r, snapshot)
}

// ListFailures handles GET /admin/stats/failures
// Query parameters: limit, range (a range key such as 2024-03-01..2024-03-31)
func (c *HTTPStatsController) ListFailures(w http.ResponseWriter, r *http.Request) {
	if c.failureHandler == nil {
		middleware.HandleError(w, r, errors.NewServiceUnavailableError("failure log is not configured"))
		return
	}

	params, err := c.parseListParams(r)
	if err != nil {
		c.fail(w, r, err)
		return
	}

	failures, err := c.failureHandler.Handle(r.Context(), query.ListStatsFailures{
		Limit:    params.Limit,
		RangeKey: strings.TrimSpace(r.URL.Query().Get("range")),
	})
	if err != nil {
		middleware.HandleError(w, r, err)
		return
	}

	response.SendSuccessWithMeta(w, r, failures, &response.Meta{Limit: params.Limit, Total: len(failures)})
}

func (c *HTTPStatsController) parseListParams(r *http.Request) (listParams, error) {
	params := listParams{}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return params, errors.NewValidationError("limit must be a number")
		}
		params.Limit = limit
	}
	if err := c.validate.Struct(params); err != nil {
		return params, fieldErrors(err)
	}
	return params, nil
}

func (c *HTTPStatsController) sendReport(w http.ResponseWriter, r *http.Request, result *aggregate.StatsResult, params statsParams) {
	report := *result
	report.TeamBreakdown = result.TopTeams(params.TeamLimit)
	if params.Mode == "" {
		params.Mode = modeWait
	}

	response.SendSuccessWithMeta(w, r, &report, &response.Meta{
		From:      report.From,
		To:        report.To,
		TeamLimit: params.TeamLimit,
		Mode:      params.Mode,
	})
}

// parseStatsQuery reads the shared parameters. A missing to is today and a
// missing from is 30 days before to, both in the configured location.
func (c *HTTPStatsController) parseStatsQuery(r *http.Request) (statsParams, query.GetAdminStats, error) {
	values := r.URL.Query()
	params := statsParams{
		From: strings.TrimSpace(values.Get("from")),
		To:   strings.TrimSpace(values.Get("to")),
		Mode: strings.ToLower(strings.TrimSpace(values.Get("mode"))),
	}
	if raw := strings.TrimSpace(values.Get("team_limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return params, query.GetAdminStats{}, errors.NewValidationError("team_limit must be a number")
		}
		params.TeamLimit = limit
	}
	if err := c.validate.Struct(params); err != nil {
		return params, query.GetAdminStats{}, fieldErrors(err)
	}

	to := c.now().In(c.loc)
	if params.To != "" {
		parsed, err := payload.ParseDate(params.To, c.loc)
		if err != nil {
			return params, query.GetAdminStats{}, errors.NewValidationError(fmt.Sprintf("invalid to: %v", err))
		}
		to = parsed
	}
	from := to.AddDate(0, 0, -defaultRangeDays)
	if params.From != "" {
		parsed, err := payload.ParseDate(params.From, c.loc)
		if err != nil {
			return params, query.GetAdminStats{}, errors.NewValidationError(fmt.Sprintf("invalid from: %v", err))
		}
		from = parsed
	}

	return params, query.GetAdminStats{From: from, To: to}, nil
}

// validationErrors carries per-parameter messages from the validator.
type validationErrors []response.ValidationError

func (v validationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Field + ": " + e.Message
	}
	return strings.Join(msgs, "; ")
}

var paramNames = map[string]string{
	"From":      "from",
	"To":        "to",
	"TeamLimit": "team_limit",
	"Mode":      "mode",
	"Limit":     "limit",
}

func fieldErrors(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.NewValidationError(err.Error())
	}
	out := make(validationErrors, 0, len(verrs))
	for _, fe := range verrs {
		name := paramNames[fe.Field()]
		if name == "" {
			name = strings.ToLower(fe.Field())
		}
		var msg string
		switch fe.Tag() {
		case "oneof":
			msg = fmt.Sprintf("must be one of: %s", fe.Param())
		case "gte", "lte":
			msg = fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param())
		case "max":
			msg = fmt.Sprintf("must be at most %s characters", fe.Param())
		default:
			msg = "is invalid"
		}
		out = append(out, response.ValidationError{Field: name, Message: msg})
	}
	return out
}

// fail renders parameter errors; validator failures list every bad field.
func (c *HTTPStatsController) fail(w http.ResponseWriter, r *http.Request, err error) {
	if verrs, ok := err.(validationErrors); ok {
		response.SendValidationError(w, r, verrs)
		return
	}
	middleware.HandleError(w, r, err)
}
