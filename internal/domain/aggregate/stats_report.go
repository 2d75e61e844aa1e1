package aggregate

import (
	"fmt"
	"time"
)

// DateLayout is the ISO-8601 calendar date used for series keys and ranges.
const DateLayout = "2006-01-02"

// Fallback labels shown when upstream records carry no usable name.
const (
	UnknownTeamLabel  = "Không rõ"
	OtherPaymentLabel = "KHÁC"
)

// DateRange is an inclusive reporting window expressed as calendar dates.
type DateRange struct {
	From time.Time
	To   time.Time
}

// NewDateRange validates and truncates both ends to midnight.
func NewDateRange(from, to time.Time) (DateRange, error) {
	from = startOfDay(from)
	to = startOfDay(to)
	if from.After(to) {
		return DateRange{}, fmt.Errorf("from (%s) must not be after to (%s)", from.Format(DateLayout), to.Format(DateLayout))
	}
	return DateRange{From: from, To: to}, nil
}

// Key identifies the range in caches and query keys.
func (r DateRange) Key() string {
	return r.FromString() + ".." + r.ToString()
}

func (r DateRange) FromString() string { return r.From.Format(DateLayout) }
func (r DateRange) ToString() string   { return r.To.Format(DateLayout) }

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StatsOverview holds the dashboard KPIs.
type StatsOverview struct {
	TotalOrders       int     `json:"totalOrders" bson:"total_orders"`
	TotalRevenue      float64 `json:"totalRevenue" bson:"total_revenue"`
	AverageOrderValue float64 `json:"averageOrderValue" bson:"average_order_value"`
	SuccessRate       float64 `json:"successRate" bson:"success_rate"`
}

// RevenuePoint is one day of the revenue chart.
type RevenuePoint struct {
	Date    string  `json:"date" bson:"date"`
	Revenue float64 `json:"revenue" bson:"revenue"`
	Orders  int     `json:"orders" bson:"orders"`
}

// OrderPoint is one day of an order-count-only series.
type OrderPoint struct {
	Date   string `json:"date" bson:"date"`
	Orders int    `json:"orders" bson:"orders"`
}

// TeamBreakdownPoint aggregates one team's orders.
type TeamBreakdownPoint struct {
	Team    string  `json:"team" bson:"team"`
	Orders  int     `json:"orders" bson:"orders"`
	Revenue float64 `json:"revenue" bson:"revenue"`
}

// PaymentBreakdownPoint aggregates one payment method.
type PaymentBreakdownPoint struct {
	Method  string  `json:"method" bson:"method"`
	Orders  int     `json:"orders" bson:"orders"`
	Revenue float64 `json:"revenue" bson:"revenue"`
}

// StatsResult is the normalized reporting model served to dashboards.
// It is rebuilt wholesale from the current query states and never mutated
// after construction.
type StatsResult struct {
	From             string                  `json:"from" bson:"from"`
	To               string                  `json:"to" bson:"to"`
	Overview         StatsOverview           `json:"overview" bson:"overview"`
	RevenueByDay     []RevenuePoint          `json:"revenueByDay" bson:"revenue_by_day"`
	TeamBreakdown    []TeamBreakdownPoint    `json:"teamBreakdown" bson:"team_breakdown"`
	PaymentBreakdown []PaymentBreakdownPoint `json:"paymentBreakdown" bson:"payment_breakdown"`
	IsLoading        bool                    `json:"isLoading" bson:"is_loading"`
	IsFetching       bool                    `json:"isFetching" bson:"is_fetching"`
	IsError          bool                    `json:"isError" bson:"is_error"`
	Err              error                   `json:"-" bson:"-"`
	Error            string                  `json:"error,omitempty" bson:"error,omitempty"`
	GeneratedAt      time.Time               `json:"generatedAt" bson:"generated_at"`
}

// TopTeams returns at most n teams; n <= 0 keeps the full list.
func (r *StatsResult) TopTeams(n int) []TeamBreakdownPoint {
	if n <= 0 || n >= len(r.TeamBreakdown) {
		return r.TeamBreakdown
	}
	return r.TeamBreakdown[:n]
}

// StatsEndpoint names one of the three upstream statistics sources.
type StatsEndpoint string

const (
	EndpointOverall StatsEndpoint = "overall"
	EndpointTeam    StatsEndpoint = "team"
	EndpointDaily   StatsEndpoint = "daily"
)

// StatsEndpoints lists the sources in error-priority order.
var StatsEndpoints = []StatsEndpoint{EndpointOverall, EndpointTeam, EndpointDaily}
