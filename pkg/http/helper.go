package http

import (
	"encoding/json"
	"net/http"
	"time"

	apperrors "klinik/pkg/errors"
	"klinik/pkg/model"
)

const MonthLayout = "2006-01"

// DecodeBody reads a JSON request body into target, rejecting unknown fields.
func DecodeBody(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return apperrors.InvalidInput("invalid JSON body: " + err.Error())
	}
	return nil
}

// QueryDate parses an ISO date query parameter in loc. A missing parameter
// yields fallback.
func QueryDate(r *http.Request, key string, loc *time.Location, fallback time.Time) (time.Time, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseInLocation(model.DateLayout, s, loc)
	if err != nil {
		return time.Time{}, apperrors.InvalidInput("invalid " + key + " parameter: " + s)
	}
	return d, nil
}

// QueryMonth parses a YYYY-MM query parameter.
func QueryMonth(r *http.Request, key string, loc *time.Location, fallback time.Time) (time.Time, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return fallback, nil
	}
	m, err := time.ParseInLocation(MonthLayout, s, loc)
	if err != nil {
		return time.Time{}, apperrors.InvalidInput("invalid " + key + " parameter: " + s)
	}
	return m, nil
}
