package query

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"charity-admin/internal/domain/aggregate"
	"charity-admin/internal/domain/event"
	"charity-admin/internal/infrastructure/bus"
	"charity-admin/internal/infrastructure/querycache"
	"charity-admin/pkg/errors"
	"charity-admin/pkg/logger"
	"charity-admin/pkg/payload"
)

// StatsFetcher loads the raw payload of one upstream statistics endpoint.
type StatsFetcher interface {
	Fetch(ctx context.Context, endpoint aggregate.StatsEndpoint, rng aggregate.DateRange) (any, error)
}

// rangeInvalidator is implemented by fetchers that keep their own cache.
type rangeInvalidator interface {
	Invalidate(ctx context.Context, rng aggregate.DateRange) error
}

// AdminStatsHandler combines the overall, team and daily statistics queries
// into one StatsResult.
type AdminStatsHandler struct {
	fetcher  StatsFetcher
	queries  *querycache.Client
	eventBus bus.EventBus
	mapper   *SeriesMapper
}

func NewAdminStatsHandler(fetcher StatsFetcher, queries *querycache.Client, eventBus bus.EventBus, mapper *SeriesMapper) *AdminStatsHandler {
	if mapper == nil {
		mapper = NewSeriesMapper(nil, nil)
	}
	return &AdminStatsHandler{
		fetcher:  fetcher,
		queries:  queries,
		eventBus: eventBus,
		mapper:   mapper,
	}
}

// Handle resolves the three queries, reusing fresh results, and builds the
// report. Upstream failures are reported inside the result, not returned.
func (h *AdminStatsHandler) Handle(ctx context.Context, q GetAdminStats) (*aggregate.StatsResult, error) {
	rng, err := aggregate.NewDateRange(q.From, q.To)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	states := h.resolve(ctx, rng, h.queries.Fetch)
	return h.finish(ctx, states), nil
}

// Refetch invalidates the range and reloads all three queries concurrently,
// returning once every one of them has settled.
func (h *AdminStatsHandler) Refetch(ctx context.Context, q GetAdminStats) (*aggregate.StatsResult, error) {
	rng, err := aggregate.NewDateRange(q.From, q.To)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	if inv, ok := h.fetcher.(rangeInvalidator); ok {
		if err := inv.Invalidate(ctx, rng); err != nil {
			logger.WithCtx(ctx, "AdminStatsHandler").WithError(err).Warn("failed to drop cached payloads")
		}
	}
	for _, endpoint := range aggregate.StatsEndpoints {
		h.queries.Invalidate(queryKey(endpoint, rng))
	}
	states := h.resolve(ctx, rng, h.queries.Refetch)
	return h.finish(ctx, states), nil
}

// Snapshot reports the current query states without waiting. Queries that
// are idle or stale are started in the background, so IsLoading and
// IsFetching describe what a polling dashboard would show right now.
func (h *AdminStatsHandler) Snapshot(q GetAdminStats) (*aggregate.StatsResult, error) {
	rng, err := aggregate.NewDateRange(q.From, q.To)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	for _, endpoint := range aggregate.StatsEndpoints {
		h.queries.Prefetch(queryKey(endpoint, rng), h.fetchFunc(endpoint, rng))
	}
	return BuildStatsResult(h.currentStates(rng), h.mapper), nil
}

type resolveFunc func(ctx context.Context, key string, fn querycache.FetchFunc) querycache.State

func (h *AdminStatsHandler) resolve(ctx context.Context, rng aggregate.DateRange, run resolveFunc) StatsStates {
	results := make([]querycache.State, len(aggregate.StatsEndpoints))

	// Query errors live in the returned states; the group never cancels siblings.
	var g errgroup.Group
	for i, endpoint := range aggregate.StatsEndpoints {
		g.Go(func() error {
			results[i] = run(ctx, queryKey(endpoint, rng), h.fetchFunc(endpoint, rng))
			return nil
		})
	}
	_ = g.Wait()

	return StatsStates{
		Range:   rng,
		Overall: results[0],
		Team:    results[1],
		Daily:   results[2],
	}
}

func (h *AdminStatsHandler) currentStates(rng aggregate.DateRange) StatsStates {
	return StatsStates{
		Range:   rng,
		Overall: h.queries.State(queryKey(aggregate.EndpointOverall, rng)),
		Team:    h.queries.State(queryKey(aggregate.EndpointTeam, rng)),
		Daily:   h.queries.State(queryKey(aggregate.EndpointDaily, rng)),
	}
}

func (h *AdminStatsHandler) fetchFunc(endpoint aggregate.StatsEndpoint, rng aggregate.DateRange) querycache.FetchFunc {
	return func(ctx context.Context) (any, error) {
		return h.fetcher.Fetch(ctx, endpoint, rng)
	}
}

func (h *AdminStatsHandler) finish(ctx context.Context, states StatsStates) *aggregate.StatsResult {
	log := logger.WithCtx(ctx, "AdminStatsHandler")
	result := BuildStatsResult(states, h.mapper)

	for _, failed := range states.failures() {
		log.WithError(failed.state.Err).WithField("endpoint", failed.endpoint).Warn("statistics query failed")
		h.publish(ctx, &event.StatsQueryFailed{
			RangeKey:  states.Range.Key(),
			Endpoint:  failed.endpoint,
			Reason:    failed.state.Err.Error(),
			Timestamp: result.GeneratedAt,
		})
	}
	h.publish(ctx, &event.StatsRefreshed{
		RangeKey:      states.Range.Key(),
		Result:        result,
		DataUpdatedAt: states.updatedAt(),
		Timestamp:     result.GeneratedAt,
	})

	log.WithFields(logrus.Fields{
		"range":         states.Range.Key(),
		"total_orders":  result.Overview.TotalOrders,
		"total_revenue": result.Overview.TotalRevenue,
		"days":          len(result.RevenueByDay),
		"teams":         len(result.TeamBreakdown),
		"is_error":      result.IsError,
	}).Info("statistics report built")
	return result
}

func (h *AdminStatsHandler) publish(ctx context.Context, evt event.DomainEvent) {
	if h.eventBus == nil {
		return
	}
	if err := h.eventBus.Publish(ctx, evt); err != nil {
		logger.WithCtx(ctx, "AdminStatsHandler").WithError(err).
			WithField("event", evt.EventType()).Warn("failed to publish event")
	}
}

func queryKey(endpoint aggregate.StatsEndpoint, rng aggregate.DateRange) string {
	return fmt.Sprintf("stats/%s/%s", endpoint, rng.Key())
}

// StatsStates are the three query states a report is built from.
type StatsStates struct {
	Range   aggregate.DateRange
	Overall querycache.State
	Team    querycache.State
	Daily   querycache.State
}

type endpointState struct {
	endpoint aggregate.StatsEndpoint
	state    querycache.State
}

// ordered follows aggregate.StatsEndpoints, which is also the error priority.
func (s StatsStates) ordered() []endpointState {
	return []endpointState{
		{aggregate.EndpointOverall, s.Overall},
		{aggregate.EndpointTeam, s.Team},
		{aggregate.EndpointDaily, s.Daily},
	}
}

// updatedAt is the time of the most recent settled fetch.
func (s StatsStates) updatedAt() time.Time {
	var latest time.Time
	for _, es := range s.ordered() {
		if es.state.UpdatedAt.After(latest) {
			latest = es.state.UpdatedAt
		}
	}
	return latest
}

func (s StatsStates) failures() []endpointState {
	var failed []endpointState
	for _, es := range s.ordered() {
		if es.state.IsError() && es.state.Err != nil {
			failed = append(failed, es)
		}
	}
	return failed
}

// BuildStatsResult derives the report from whatever combination of resolved,
// pending and failed states exists. It never fails on malformed payloads:
// missing or mistyped fields degrade to zero values and fallback labels.
func BuildStatsResult(states StatsStates, mapper *SeriesMapper) *aggregate.StatsResult {
	overallRoot := payload.UnwrapObject(states.Overall.Data)
	dailyRoot := payload.UnwrapObject(states.Daily.Data)

	summary, ok := payload.PickRecord(payload.Values(overallRoot, summaryKeys...)...)
	if !ok {
		summary = overallRoot
	}

	result := &aggregate.StatsResult{
		From:        states.Range.FromString(),
		To:          states.Range.ToString(),
		Overview:    buildOverview(summary, overallRoot),
		GeneratedAt: mapper.now(),
	}

	revenueSeries, orderSeries := dailySeries(states.Daily.Data, dailyRoot, overallRoot)
	result.RevenueByDay = MergeRevenueAndOrders(
		mapper.MapRevenuePoints(revenueSeries),
		mapper.MapOrderPoints(orderSeries),
	)

	breakdown, _ := payload.PickRecord(payload.Values(overallRoot, breakdownKeys...)...)

	payments, _ := payload.PickArray(append(
		payload.Values(breakdown, paymentNestedKeys...),
		payload.Values(overallRoot, paymentRootKeys...)...,
	)...)
	result.PaymentBreakdown = MapPaymentBreakdown(payments)

	preferredTeams, _ := payload.PickArray(append(
		payload.Values(breakdown, teamNestedKeys...),
		payload.Values(overallRoot, teamRootKeys...)...,
	)...)
	teamRows, _ := payload.UnwrapArray(states.Team.Data)
	teams, _ := payload.PreferArray(preferredTeams, teamRows)
	result.TeamBreakdown = MapTeamBreakdown(teams)

	for _, es := range states.ordered() {
		result.IsLoading = result.IsLoading || es.state.IsLoading()
		result.IsFetching = result.IsFetching || es.state.IsFetching
		result.IsError = result.IsError || es.state.IsError()
		if result.Err == nil && es.state.Err != nil {
			result.Err = es.state.Err
		}
	}
	if result.Err != nil {
		result.Error = result.Err.Error()
	}
	return result
}

func buildOverview(summary, root map[string]any) aggregate.StatsOverview {
	pick := func(keys []string) float64 {
		return payload.PickNumber(append(payload.Values(summary, keys...), payload.Values(root, keys...)...)...)
	}

	overview := aggregate.StatsOverview{
		TotalOrders:       count(pick(totalOrdersKeys)),
		TotalRevenue:      amount(pick(totalRevenueKeys)),
		AverageOrderValue: amount(pick(averageOrderKeys)),
		SuccessRate:       clampPercent(pick(successRateKeys)),
	}
	if overview.AverageOrderValue == 0 && overview.TotalOrders > 0 && overview.TotalRevenue > 0 {
		overview.AverageOrderValue = averageOrderValue(overview.TotalRevenue, overview.TotalOrders)
	}
	return overview
}

// averageOrderValue divides revenue by orders, rounded to whole VND.
func averageOrderValue(revenue float64, orders int) float64 {
	avg, _ := decimal.NewFromFloat(revenue).
		Div(decimal.NewFromInt(int64(orders))).
		Round(0).
		Float64()
	return avg
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// dailySeries picks the revenue and order arrays, preferring the daily
// endpoint over the chart data embedded in the overall response.
func dailySeries(dailyRaw any, dailyRoot, overallRoot map[string]any) ([]any, []any) {
	dailyRevenue, found := payload.PickArray(payload.Values(dailyRoot, dailyRevenueSeriesKeys...)...)
	if !found {
		// A bare or enveloped array carries revenue and orders per row.
		dailyRevenue, _ = payload.UnwrapArray(dailyRaw)
	}
	dailyOrders, _ := payload.PickArray(payload.Values(dailyRoot, dailyOrderSeriesKeys...)...)

	chart, _ := payload.PickRecord(payload.Values(overallRoot, chartKeys...)...)
	chartRevenue, _ := payload.PickArray(payload.Values(chart, dailyRevenueSeriesKeys...)...)
	chartOrders, _ := payload.PickArray(payload.Values(chart, dailyOrderSeriesKeys...)...)

	revenue, _ := payload.PreferArray(dailyRevenue, chartRevenue)
	orders, _ := payload.PreferArray(dailyOrders, chartOrders)
	return revenue, orders
}
