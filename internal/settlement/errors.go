package settlement

import (
	"errors"
	"fmt"

	"github.com/angelmondragon/coursehub-backend/internal/fees"
	pkgerrors "github.com/angelmondragon/coursehub-backend/pkg/errors"
)

var (
	ErrMissingFeeSchedule = errors.New("no fee schedule configured")
	ErrFeeScheduleLoad    = errors.New("fee schedule load failed")
	ErrTenantLoad         = errors.New("tenant load failed")
	ErrSaleLoad           = errors.New("sale load failed")
	ErrCommit             = errors.New("invoice commit failed")
	ErrRunInProgress      = errors.New("settlement already running for period")
)

// classify maps a run failure onto an API error code and the message shown to
// the operator.
func classify(err error, period Period) *pkgerrors.Error {
	switch {
	case errors.Is(err, ErrInvalidPeriod):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	case errors.Is(err, ErrRunInProgress):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err,
			fmt.Sprintf("invoices for %s are already being generated; try again shortly", period))
	case errors.Is(err, ErrMissingFeeSchedule):
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err,
			"no fee schedule is configured; save a fee schedule before generating invoices")
	case errors.Is(err, fees.ErrInvalidFeeSchedule):
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err,
			fmt.Sprintf("the current fee schedule is invalid: %v", err))
	case errors.Is(err, fees.ErrInvalidSaleAmount),
		errors.Is(err, fees.ErrUnsupportedPaymentMethod),
		errors.Is(err, ErrUnattributedSale):
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err,
			fmt.Sprintf("invoice generation for %s failed; no invoices were written: %v", period, err))
	case errors.Is(err, ErrFeeScheduleLoad):
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "could not load the fee schedule")
	case errors.Is(err, ErrTenantLoad):
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "could not load active tenants")
	case errors.Is(err, ErrSaleLoad):
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err,
			fmt.Sprintf("could not load sale records for %s", period))
	case errors.Is(err, ErrCommit):
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err,
			fmt.Sprintf("could not save invoices for %s; no invoices were written and the run can be retried", period))
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err,
			fmt.Sprintf("invoice generation for %s failed unexpectedly", period))
	}
}
