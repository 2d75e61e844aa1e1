package query

import "time"

// GetAdminStats query for the admin statistics dashboard
type GetAdminStats struct {
	From time.Time
	To   time.Time
}

// ListStatsSnapshots query for archived reports, newest first
type ListStatsSnapshots struct {
	Limit int
}

// GetStatsSnapshot query for one archived report
type GetStatsSnapshot struct {
	ID string
}

// Candidate field names per concept, in precedence order.
var (
	summaryKeys = []string{"overview", "summary", "metrics", "stats", "statistics", "totals", "meta"}

	totalOrdersKeys = []string{
		"totalOrders", "total_orders", "orders", "order_count", "orderCount", "orders_count", "ordersCount",
	}
	totalRevenueKeys = []string{
		"totalRevenue", "total_revenue", "total_revenue_vnd", "totalRevenueVnd", "revenue", "revenue_vnd", "revenueVnd",
	}
	averageOrderKeys = []string{
		"averageOrderValue", "average_order_value", "average_order_value_vnd", "avgOrderValue", "avg_order_value", "aov",
	}
	successRateKeys = []string{
		"successRate", "success_rate", "paymentSuccessRate", "payment_success_rate", "successPercentage", "success_percentage",
	}

	dailyRevenueSeriesKeys = []string{
		"revenueByDay", "revenue_by_day", "dailyRevenue", "daily_revenue", "revenueSeries", "revenue_series",
		"revenue", "days", "daily", "series",
	}
	dailyOrderSeriesKeys = []string{
		"ordersByDay", "orders_by_day", "dailyOrders", "daily_orders", "orderSeries", "order_series", "orders",
	}
	chartKeys = []string{"chart", "charts", "trend", "trends", "timeseries"}

	breakdownKeys     = []string{"breakdown", "breakdowns", "distribution", "distributions"}
	paymentNestedKeys = []string{"payment", "payments", "paymentMethods", "payment_methods", "byPaymentMethod", "by_payment_method", "methods"}
	paymentRootKeys   = []string{"paymentBreakdown", "payment_breakdown", "paymentMethods", "payment_methods", "paymentDistribution", "payment_distribution"}
	teamNestedKeys    = []string{"team", "teams", "byTeam", "by_team"}
	teamRootKeys      = []string{"teamBreakdown", "team_breakdown", "teams", "topTeams", "top_teams"}
)
