package controllers

import (
	"net/http"

	"github.com/angelmondragon/coursehub-backend/api/validators"
	"github.com/angelmondragon/coursehub-backend/internal/settlement"
	pkgerrors "github.com/angelmondragon/coursehub-backend/pkg/errors"
)

// periodFromPath reads {year}/{month} URL params.
func periodFromPath(r *http.Request) (settlement.Period, error) {
	year, err := validators.PathInt(r, "year", 1, 9999)
	if err != nil {
		return settlement.Period{}, err
	}
	month, err := validators.PathInt(r, "month", 1, 12)
	if err != nil {
		return settlement.Period{}, err
	}
	period, err := settlement.NewPeriod(year, month)
	if err != nil {
		return settlement.Period{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	return period, nil
}

func tenantFromPath(r *http.Request) (string, error) {
	return validators.PathString(r, "tenantId")
}
