package risk

import (
	"github.com/shopspring/decimal"

	"vulcan/pkg/errors"
)

// DivisionPrecision is the number of decimal places kept by every division
// in this package. All quotients are truncated (round toward zero) at this
// precision rather than rounded, so the engine never overstates solvency.
// Multiplication and subtraction are exact in shopspring/decimal.
const DivisionPrecision int32 = 40

// divTrunc divides a by b truncating at DivisionPrecision decimal places.
func divTrunc(a, b decimal.Decimal) decimal.Decimal {
	q, _ := a.QuoRem(b, DivisionPrecision)
	return q
}

// HealthFactor computes the ratio of risk-adjusted collateral value to debt
// value. A result below 1.0 means the position is eligible for liquidation.
//
// Returns infinite=true when the position has no debt; the decimal result is
// meaningless in that case and callers must not use it.
func HealthFactor(collateralAmount, debtAmount, collateralPrice, debtPrice, liquidationThreshold decimal.Decimal) (hf decimal.Decimal, infinite bool, err error) {
	if collateralAmount.IsNegative() || debtAmount.IsNegative() {
		return decimal.Zero, false, errors.Wrap(errors.ErrInvalidInput, "negative amount")
	}
	if !collateralPrice.IsPositive() || !debtPrice.IsPositive() {
		return decimal.Zero, false, errors.Wrap(errors.ErrInvalidInput, "price must be positive")
	}
	if !liquidationThreshold.IsPositive() || liquidationThreshold.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, false, errors.Wrap(errors.ErrInvalidInput, "liquidation threshold must be in (0,1]")
	}

	if debtAmount.IsZero() {
		return decimal.Zero, true, nil
	}

	riskAdjustedCollateral := collateralAmount.Mul(collateralPrice).Mul(liquidationThreshold)
	debtValue := debtAmount.Mul(debtPrice)

	return divTrunc(riskAdjustedCollateral, debtValue), false, nil
}

// LoanToValue computes debt value over raw collateral value, with no
// threshold applied. Returns zero when there is no collateral.
func LoanToValue(collateralAmount, debtAmount, collateralPrice, debtPrice decimal.Decimal) (decimal.Decimal, error) {
	if collateralAmount.IsNegative() || debtAmount.IsNegative() {
		return decimal.Zero, errors.Wrap(errors.ErrInvalidInput, "negative amount")
	}
	if !collateralPrice.IsPositive() || !debtPrice.IsPositive() {
		return decimal.Zero, errors.Wrap(errors.ErrInvalidInput, "price must be positive")
	}

	if collateralAmount.IsZero() {
		return decimal.Zero, nil
	}

	debtValue := debtAmount.Mul(debtPrice)
	collateralValue := collateralAmount.Mul(collateralPrice)

	return divTrunc(debtValue, collateralValue), nil
}

// MaxBorrowable computes the maximum debt-asset amount that can be borrowed
// against the given collateral at the pool's maximum loan-to-value ratio.
func MaxBorrowable(collateralAmount, collateralPrice, debtPrice, maxLTV decimal.Decimal) (decimal.Decimal, error) {
	if collateralAmount.IsNegative() {
		return decimal.Zero, errors.Wrap(errors.ErrInvalidInput, "negative amount")
	}
	if !collateralPrice.IsPositive() || !debtPrice.IsPositive() {
		return decimal.Zero, errors.Wrap(errors.ErrInvalidInput, "price must be positive")
	}
	if maxLTV.IsNegative() {
		return decimal.Zero, errors.Wrap(errors.ErrInvalidInput, "negative max LTV")
	}

	borrowableValue := collateralAmount.Mul(collateralPrice).Mul(maxLTV)
	return divTrunc(borrowableValue, debtPrice), nil
}

// MaxWithdrawable computes how much collateral can be withdrawn while
// keeping the position solvent at the given liquidation threshold.
// The result is never negative; with no debt the full collateral amount
// is withdrawable.
func MaxWithdrawable(collateralAmount, debtAmount, collateralPrice, debtPrice, liquidationThreshold decimal.Decimal) (decimal.Decimal, error) {
	if collateralAmount.IsNegative() || debtAmount.IsNegative() {
		return decimal.Zero, errors.Wrap(errors.ErrInvalidInput, "negative amount")
	}
	if !collateralPrice.IsPositive() || !debtPrice.IsPositive() {
		return decimal.Zero, errors.Wrap(errors.ErrInvalidInput, "price must be positive")
	}
	if !liquidationThreshold.IsPositive() || liquidationThreshold.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, errors.Wrap(errors.ErrInvalidInput, "liquidation threshold must be in (0,1]")
	}

	if debtAmount.IsZero() {
		return collateralAmount, nil
	}

	debtValue := debtAmount.Mul(debtPrice)
	minCollateralValue := divTrunc(debtValue, liquidationThreshold)
	minCollateralAmount := divTrunc(minCollateralValue, collateralPrice)

	withdrawable := collateralAmount.Sub(minCollateralAmount)
	if withdrawable.IsNegative() {
		return decimal.Zero, nil
	}
	return withdrawable, nil
}

// SeizureResult holds the collateral amounts computed for one liquidation.
type SeizureResult struct {
	// CollateralToSeize is the total collateral transferred to the
	// liquidator: the debt's equivalent value plus the bonus.
	CollateralToSeize decimal.Decimal

	// Bonus is the incentive portion of the seizure.
	Bonus decimal.Decimal
}

// Seizure computes the collateral to seize for repaying debtToCover.
// It only computes: the caller enforces that CollateralToSeize does not
// exceed the position's available collateral.
func Seizure(debtToCover, debtPrice, collateralPrice, liquidationBonus decimal.Decimal) (SeizureResult, error) {
	if debtToCover.IsNegative() {
		return SeizureResult{}, errors.Wrap(errors.ErrInvalidInput, "negative debt to cover")
	}
	if !debtPrice.IsPositive() || !collateralPrice.IsPositive() {
		return SeizureResult{}, errors.Wrap(errors.ErrInvalidInput, "price must be positive")
	}
	if liquidationBonus.IsNegative() {
		return SeizureResult{}, errors.Wrap(errors.ErrInvalidInput, "negative liquidation bonus")
	}

	debtValueInCollateral := divTrunc(debtToCover.Mul(debtPrice), collateralPrice)
	bonus := debtValueInCollateral.Mul(liquidationBonus)

	return SeizureResult{
		CollateralToSeize: debtValueInCollateral.Add(bonus),
		Bonus:             bonus,
	}, nil
}
