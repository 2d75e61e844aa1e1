package query

import (
	"math"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"charity-admin/internal/domain/aggregate"
)

var fixedNow = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

func testMapper() *SeriesMapper {
	return NewSeriesMapper(func() time.Time { return fixedNow }, time.UTC)
}

func TestMergeRevenueAndOrders(t *testing.T) {
	tests := []struct {
		name    string
		revenue []aggregate.RevenuePoint
		orders  []aggregate.OrderPoint
		want    []aggregate.RevenuePoint
	}{
		{
			name:    "order series wins the orders field",
			revenue: []aggregate.RevenuePoint{{Date: "2024-01-01", Revenue: 100, Orders: 1}},
			orders:  []aggregate.OrderPoint{{Date: "2024-01-01", Orders: 5}},
			want:    []aggregate.RevenuePoint{{Date: "2024-01-01", Revenue: 100, Orders: 5}},
		},
		{
			name:    "order-only day gets zero revenue",
			revenue: []aggregate.RevenuePoint{{Date: "2024-01-02", Revenue: 50, Orders: 2}},
			orders:  []aggregate.OrderPoint{{Date: "2024-01-01", Orders: 3}},
			want: []aggregate.RevenuePoint{
				{Date: "2024-01-01", Revenue: 0, Orders: 3},
				{Date: "2024-01-02", Revenue: 50, Orders: 2},
			},
		},
		{
			name: "later revenue point for the same day replaces the earlier one",
			revenue: []aggregate.RevenuePoint{
				{Date: "2024-01-01", Revenue: 10, Orders: 1},
				{Date: "2024-01-01", Revenue: 30, Orders: 4},
			},
			want: []aggregate.RevenuePoint{{Date: "2024-01-01", Revenue: 30, Orders: 4}},
		},
		{
			name: "empty inputs",
			want: []aggregate.RevenuePoint{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeRevenueAndOrders(tt.revenue, tt.orders))
		})
	}
}

func TestMapRevenuePoints_SortedByDate(t *testing.T) {
	raw := []any{
		map[string]any{"date": "2024-03-03", "revenue": 30.0},
		map[string]any{"day": "2024-03-01", "amount": "10", "order_count": 2.0},
		map[string]any{"period": "2024-03-02T10:00:00Z", "total_revenue_vnd": 20.0, "orders": 1.4},
	}

	points := testMapper().MapRevenuePoints(raw)

	require.Len(t, points, 3)
	assert.True(t, sort.SliceIsSorted(points, func(i, j int) bool { return points[i].Date < points[j].Date }))
	assert.Equal(t, aggregate.RevenuePoint{Date: "2024-03-01", Revenue: 10, Orders: 2}, points[0])
	assert.Equal(t, aggregate.RevenuePoint{Date: "2024-03-02", Revenue: 20, Orders: 1}, points[1])
	assert.Equal(t, aggregate.RevenuePoint{Date: "2024-03-03", Revenue: 30, Orders: 0}, points[2])
}

func TestMapRevenuePoints_DateFallbacks(t *testing.T) {
	tests := []struct {
		name string
		rec  any
		want string
	}{
		{name: "missing date lands on today", rec: map[string]any{"revenue": 1.0}, want: "2024-03-15"},
		{name: "unparseable date lands on today", rec: map[string]any{"date": "Tháng 3"}, want: "2024-03-15"},
		{name: "first present candidate is used", rec: map[string]any{"date": "bad", "day": "2024-01-01"}, want: "2024-03-15"},
		{name: "blank date skips to next key", rec: map[string]any{"date": "", "day": "2024-01-01"}, want: "2024-01-01"},
		{name: "epoch seconds", rec: map[string]any{"timestamp": 1709251200.0}, want: "2024-03-01"},
		{name: "epoch milliseconds", rec: map[string]any{"timestamp": 1709251200000.0}, want: "2024-03-01"},
		{name: "day-first layout", rec: map[string]any{"label": "05/03/2024"}, want: "2024-03-05"},
		{name: "timestamp beyond int64 lands on today", rec: map[string]any{"timestamp": 1e25}, want: "2024-03-15"},
		{name: "timestamp past year 9999 lands on today", rec: map[string]any{"timestamp": 4e14}, want: "2024-03-15"},
		{name: "non-object record", rec: "2024-01-01", want: "2024-03-15"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points := testMapper().MapRevenuePoints([]any{tt.rec})
			require.Len(t, points, 1)
			assert.Equal(t, tt.want, points[0].Date)
		})
	}
}

func TestMapRevenuePoints_ClampsAndRounds(t *testing.T) {
	points := testMapper().MapRevenuePoints([]any{
		map[string]any{"date": "2024-03-01", "revenue": -500.0, "orders": 2.6},
		map[string]any{"timestamp": 1e25, "revenue": 10.0, "orders": 1e20},
		map[string]any{"date": "2024-03-02", "revenue": "abc", "orders": -3.0},
	})
	assert.Equal(t, []aggregate.RevenuePoint{
		{Date: "2024-03-01", Revenue: 0, Orders: 3},
		{Date: "2024-03-02", Revenue: 0, Orders: 0},
		{Date: "2024-03-15", Revenue: 10, Orders: math.MaxInt},
	}, points)
}

func TestMapOrderPoints(t *testing.T) {
	points := testMapper().MapOrderPoints([]any{
		map[string]any{"date": "2024-03-02", "value": 4.0},
		map[string]any{"date": "2024-03-01", "total": "7"},
	})
	assert.Equal(t, []aggregate.OrderPoint{
		{Date: "2024-03-01", Orders: 7},
		{Date: "2024-03-02", Orders: 4},
	}, points)
}

func TestMappers_NonArrayInput(t *testing.T) {
	m := testMapper()
	for _, raw := range []any{nil, map[string]any{"items": []any{}}, "rows", 12.0} {
		assert.Empty(t, m.MapRevenuePoints(raw))
		assert.NotNil(t, m.MapRevenuePoints(raw))
		assert.NotNil(t, m.MapOrderPoints(raw))
		assert.NotNil(t, MapTeamBreakdown(raw))
		assert.NotNil(t, MapPaymentBreakdown(raw))
	}
}

func TestMapTeamBreakdown(t *testing.T) {
	t.Run("empty record gets the unknown label", func(t *testing.T) {
		assert.Equal(t,
			[]aggregate.TeamBreakdownPoint{{Team: aggregate.UnknownTeamLabel, Orders: 0, Revenue: 0}},
			MapTeamBreakdown([]any{map[string]any{}}),
		)
	})

	t.Run("descending by revenue with stable ties", func(t *testing.T) {
		points := MapTeamBreakdown([]any{
			map[string]any{"team_name": "A", "revenue": 100.0},
			map[string]any{"team": map[string]any{"name": "B"}, "revenue": 300.0},
			map[string]any{"teamInfo": map[string]any{"code": "C"}, "revenue": 100.0},
			map[string]any{"metadata": map[string]any{"team_code": "D"}, "revenue": 200.0},
		})
		require.Len(t, points, 4)
		assert.True(t, sort.SliceIsSorted(points, func(i, j int) bool { return points[i].Revenue > points[j].Revenue }))
		teams := []string{points[0].Team, points[1].Team, points[2].Team, points[3].Team}
		assert.Equal(t, []string{"B", "D", "A", "C"}, teams)
	})

	t.Run("flat name beats nested object", func(t *testing.T) {
		points := MapTeamBreakdown([]any{map[string]any{"teamCode": " T9 ", "team": map[string]any{"name": "Nested"}}})
		assert.Equal(t, "T9", points[0].Team)
	})
}

func TestMapPaymentBreakdown_KeepsSourceOrder(t *testing.T) {
	points := MapPaymentBreakdown([]any{
		map[string]any{"method": "MOMO", "orders": 2.0, "revenue": 10.0},
		map[string]any{"payment_method": "BANK_TRANSFER", "count": 5.0, "amount": 90.0},
		map[string]any{"orders": 1.0},
	})
	assert.Equal(t, []aggregate.PaymentBreakdownPoint{
		{Method: "MOMO", Orders: 2, Revenue: 10},
		{Method: "BANK_TRANSFER", Orders: 5, Revenue: 90},
		{Method: aggregate.OtherPaymentLabel, Orders: 1, Revenue: 0},
	}, points)
}
