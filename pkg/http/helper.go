package http

import (
	"net/http"
	apperrors "stayd/pkg/errors"
	"stayd/pkg/model"
)

// RequiredQuery returns the named query parameter or an InvalidInput error.
func RequiredQuery(r *http.Request, name string) (string, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return "", apperrors.InvalidInput("'" + name + "' query parameter is required")
	}
	return v, nil
}

// DateRangeQuery parses start_date/end_date query parameters as calendar
// dates.
func DateRangeQuery(r *http.Request) (model.DateRange, error) {
	start, err := RequiredQuery(r, "start_date")
	if err != nil {
		return model.DateRange{}, err
	}
	end, err := RequiredQuery(r, "end_date")
	if err != nil {
		return model.DateRange{}, err
	}

	rng, err := model.ParseDateRange(start, end)
	if err != nil {
		return model.DateRange{}, apperrors.InvalidInput("dates must be in YYYY-MM-DD format")
	}
	return rng, nil
}
