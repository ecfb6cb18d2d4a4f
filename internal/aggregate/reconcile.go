package aggregate

import "railboard/internal/domain"

// Reconcile overlays the live today total onto a cached weekly series so
// the last point of a week chart never lags behind the more frequently
// refreshed daily counter. When no point matches today the series is
// returned unchanged; an empty series means "not yet available", not zero.
func Reconcile(series domain.DailySeries, today domain.Date, todayTotal int) domain.DailySeries {
	for i := range series {
		if series[i].Date.Equal(today) {
			out := make(domain.DailySeries, len(series))
			copy(out, series)
			out[i].Passengers = todayTotal
			return out
		}
	}
	return series
}
