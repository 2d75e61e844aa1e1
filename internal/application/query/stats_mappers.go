package query

import (
	"math"
	"sort"
	"time"

	"charity-admin/internal/domain/aggregate"
	"charity-admin/pkg/payload"
)

// Fallback chains. The order is the precedence: the first usable value wins.
var (
	dateKeys = []string{"date", "day", "label", "period", "timestamp", "time", "bucket", "key"}

	revenueKeys = []string{
		"revenue", "revenue_vnd", "total_revenue_vnd", "totalRevenue", "total_revenue",
		"revenueVnd", "totalRevenueVnd", "amount", "amount_vnd", "total_amount", "totalAmount", "value", "sum",
	}
	orderKeys = []string{
		"orders", "order_count", "orderCount", "total_orders", "totalOrders",
		"orders_count", "ordersCount", "count", "quantity",
	}
	orderOnlyKeys = []string{
		"orders", "order_count", "orderCount", "total_orders", "totalOrders",
		"orders_count", "ordersCount", "count", "value", "total",
	}

	teamKeys = []string{
		"team", "team_name", "teamName", "team_code", "teamCode", "name", "code", "label",
		"team.name", "team.code", "team.label",
		"teamInfo.name", "teamInfo.code", "team_info.name", "team_info.code",
		"metadata.team_name", "metadata.teamName", "metadata.team_code", "metadata.teamCode", "metadata.team",
		"key",
	}
	methodKeys = []string{
		"method", "payment_method", "paymentMethod", "method_name", "methodName",
		"channel", "type", "name", "label", "key",
	}
)

// SeriesMapper turns raw arrays into typed points. Dates that are missing or
// unreadable land on today's date in loc.
type SeriesMapper struct {
	now func() time.Time
	loc *time.Location
}

func NewSeriesMapper(now func() time.Time, loc *time.Location) *SeriesMapper {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &SeriesMapper{now: now, loc: loc}
}

// MapRevenuePoints maps per-day revenue records, ascending by date.
func (m *SeriesMapper) MapRevenuePoints(raw any) []aggregate.RevenuePoint {
	items, ok := raw.([]any)
	if !ok {
		return []aggregate.RevenuePoint{}
	}
	points := make([]aggregate.RevenuePoint, 0, len(items))
	for _, item := range items {
		rec := record(item)
		points = append(points, aggregate.RevenuePoint{
			Date:    m.resolveDate(rec),
			Revenue: amount(payload.PickNumber(payload.Values(rec, revenueKeys...)...)),
			Orders:  count(payload.PickNumber(payload.Values(rec, orderKeys...)...)),
		})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}

// MapOrderPoints maps order-count-only series, ascending by date.
func (m *SeriesMapper) MapOrderPoints(raw any) []aggregate.OrderPoint {
	items, ok := raw.([]any)
	if !ok {
		return []aggregate.OrderPoint{}
	}
	points := make([]aggregate.OrderPoint, 0, len(items))
	for _, item := range items {
		rec := record(item)
		points = append(points, aggregate.OrderPoint{
			Date:   m.resolveDate(rec),
			Orders: count(payload.PickNumber(payload.Values(rec, orderOnlyKeys...)...)),
		})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}

// MapPaymentBreakdown keeps the source order; clients color slices by index.
func MapPaymentBreakdown(raw any) []aggregate.PaymentBreakdownPoint {
	items, ok := raw.([]any)
	if !ok {
		return []aggregate.PaymentBreakdownPoint{}
	}
	points := make([]aggregate.PaymentBreakdownPoint, 0, len(items))
	for _, item := range items {
		rec := record(item)
		method, ok := payload.PickString(payload.Values(rec, methodKeys...)...)
		if !ok {
			method = aggregate.OtherPaymentLabel
		}
		points = append(points, aggregate.PaymentBreakdownPoint{
			Method:  method,
			Orders:  count(payload.PickNumber(payload.Values(rec, orderKeys...)...)),
			Revenue: amount(payload.PickNumber(payload.Values(rec, revenueKeys...)...)),
		})
	}
	return points
}

// MapTeamBreakdown maps per-team aggregates, descending by revenue. Ties keep
// their input order.
func MapTeamBreakdown(raw any) []aggregate.TeamBreakdownPoint {
	items, ok := raw.([]any)
	if !ok {
		return []aggregate.TeamBreakdownPoint{}
	}
	points := make([]aggregate.TeamBreakdownPoint, 0, len(items))
	for _, item := range items {
		rec := record(item)
		team, ok := payload.PickString(payload.Values(rec, teamKeys...)...)
		if !ok {
			team = aggregate.UnknownTeamLabel
		}
		points = append(points, aggregate.TeamBreakdownPoint{
			Team:    team,
			Orders:  count(payload.PickNumber(payload.Values(rec, orderKeys...)...)),
			Revenue: amount(payload.PickNumber(payload.Values(rec, revenueKeys...)...)),
		})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Revenue > points[j].Revenue })
	return points
}

// MergeRevenueAndOrders aligns both series by date. Revenue points set revenue
// and a provisional order count; order points are applied second and win the
// orders field.
func MergeRevenueAndOrders(revenue []aggregate.RevenuePoint, orders []aggregate.OrderPoint) []aggregate.RevenuePoint {
	byDate := make(map[string]*aggregate.RevenuePoint, len(revenue)+len(orders))
	get := func(date string) *aggregate.RevenuePoint {
		p, ok := byDate[date]
		if !ok {
			p = &aggregate.RevenuePoint{Date: date}
			byDate[date] = p
		}
		return p
	}
	for _, rp := range revenue {
		p := get(rp.Date)
		p.Revenue = rp.Revenue
		p.Orders = rp.Orders
	}
	for _, op := range orders {
		get(op.Date).Orders = op.Orders
	}

	merged := make([]aggregate.RevenuePoint, 0, len(byDate))
	for _, p := range byDate {
		merged = append(merged, *p)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date < merged[j].Date })
	return merged
}

func (m *SeriesMapper) resolveDate(rec map[string]any) string {
	for _, v := range payload.Values(rec, dateKeys...) {
		if !present(v) {
			continue
		}
		if t, ok := payload.DateValue(v, m.loc); ok {
			return t.Format(aggregate.DateLayout)
		}
		break
	}
	return m.today()
}

func (m *SeriesMapper) today() string {
	return m.now().In(m.loc).Format(aggregate.DateLayout)
}

// present reports whether a date candidate carries a value at all; the first
// present one is used even when it cannot be parsed.
func present(v any) bool {
	switch typed := v.(type) {
	case nil:
		return false
	case string:
		return typed != ""
	default:
		return true
	}
}

func record(item any) map[string]any {
	if rec, ok := item.(map[string]any); ok {
		return rec
	}
	return map[string]any{}
}

func amount(n float64) float64 {
	if n < 0 {
		return 0
	}
	return n
}

func count(n float64) int {
	if n < 0 {
		return 0
	}
	if n >= math.MaxInt64 {
		return math.MaxInt
	}
	return int(math.Round(n))
}
