// Package fees computes platform and gateway fee splits for campground charges.
//
// Percentages are fixed-point decimals and every percentage term is rounded half away
// from zero to whole cents. All amounts are int64 minor currency units.
package fees

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/joshuahuffman02/Camp-Everyday/internal/apperr"
)

// Mode determines who pays a fee.
type Mode string

const (
	// ModeAbsorb deducts the fee from the campground's net proceeds.
	ModeAbsorb Mode = "absorb"
	// ModePassThrough adds the fee to the amount charged to the guest.
	ModePassThrough Mode = "pass_through"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeAbsorb, ModePassThrough:
		return true
	default:
		return false
	}
}

// UnmarshalText accepts any spelling ParseMode does.
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseMode accepts "absorb", "pass_through" and "passthrough".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "absorb", "":
		return ModeAbsorb, nil
	case "pass_through", "passthrough":
		return ModePassThrough, nil
	default:
		return "", apperr.New(apperr.ErrValidation, "unknown fee mode %q", s)
	}
}

// ErrNoConvergence is returned by CalculateGrossForNet when the bounded iteration
// could not reach the requested net amount.
var ErrNoConvergence = errors.New("gross-for-net did not converge")

const maxGrossIterations = 10

var (
	hundred   = decimal.NewFromInt(100)
	maxAmount = decimal.NewFromInt(math.MaxInt64)
)

// Config is the fee configuration for one calculation.
type Config struct {
	PlatformFeeCents   int64           `json:"platform_fee_cents"`
	PlatformFeePercent decimal.Decimal `json:"platform_fee_percent"`
	PlatformFeeMode    Mode            `json:"platform_fee_mode"`
	GatewayFeeCents    int64           `json:"gateway_fee_cents"`
	GatewayFeePercent  decimal.Decimal `json:"gateway_fee_percent"`
	GatewayFeeMode     Mode            `json:"gateway_fee_mode"`
}

// DefaultConfig is $3.00 flat platform fee and 2.9% + 30c gateway fee, both absorbed.
func DefaultConfig() Config {
	return Config{
		PlatformFeeCents:   300,
		PlatformFeePercent: decimal.Zero,
		PlatformFeeMode:    ModeAbsorb,
		GatewayFeeCents:    30,
		GatewayFeePercent:  decimal.RequireFromString("2.9"),
		GatewayFeeMode:     ModeAbsorb,
	}
}

// Validate checks flat fees are non-negative, percentages lie in [0, 100] and modes are known.
func (c Config) Validate() error {
	if c.PlatformFeeCents < 0 || c.GatewayFeeCents < 0 {
		return apperr.New(apperr.ErrValidation, "flat fees must not be negative")
	}
	for _, p := range []decimal.Decimal{c.PlatformFeePercent, c.GatewayFeePercent} {
		if p.IsNegative() || p.GreaterThan(hundred) {
			return apperr.New(apperr.ErrValidation, "fee percent %s must be between 0 and 100", p)
		}
	}
	if !c.PlatformFeeMode.Valid() || !c.GatewayFeeMode.Valid() {
		return apperr.New(apperr.ErrValidation, "invalid fee mode (platform=%q gateway=%q)", c.PlatformFeeMode, c.GatewayFeeMode)
	}
	return nil
}

// Overlay returns base with the fields present in raw replaced. An empty or null raw
// returns base unchanged. The result is validated.
func Overlay(base Config, raw json.RawMessage) (Config, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return base, nil
	}
	cfg := base
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, apperr.New(apperr.ErrValidation, "invalid fee config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Calculation is the fee breakdown for one base amount.
type Calculation struct {
	BaseAmountCents     int64 `json:"base_amount_cents"`
	PlatformFeeCents    int64 `json:"platform_fee_cents"`
	GatewayFeeCents     int64 `json:"gateway_fee_cents"`
	ChargeAmountCents   int64 `json:"charge_amount_cents"`
	NetAmountCents      int64 `json:"net_amount_cents"`
	ApplicationFeeCents int64 `json:"application_fee_cents"`
}

// CalculateFees computes the fee split for baseCents. It is pure and safe for concurrent use.
//
// When the platform fee is passed through, the gateway percentage applies to the base plus
// the platform fee, because the gateway takes its cut of everything the guest is charged.
func CalculateFees(baseCents int64, cfg Config) (Calculation, error) {
	if baseCents < 0 {
		return Calculation{}, apperr.New(apperr.ErrValidation, "base amount %d must not be negative", baseCents)
	}
	if err := cfg.Validate(); err != nil {
		return Calculation{}, err
	}

	platformPct, err := percentOf(baseCents, cfg.PlatformFeePercent)
	if err != nil {
		return Calculation{}, err
	}
	platformFee, err := checkedAdd(cfg.PlatformFeeCents, platformPct)
	if err != nil {
		return Calculation{}, err
	}

	gatewayBase := baseCents
	if cfg.PlatformFeeMode == ModePassThrough {
		if gatewayBase, err = checkedAdd(baseCents, platformFee); err != nil {
			return Calculation{}, err
		}
	}
	gatewayPct, err := percentOf(gatewayBase, cfg.GatewayFeePercent)
	if err != nil {
		return Calculation{}, err
	}
	gatewayFee, err := checkedAdd(cfg.GatewayFeeCents, gatewayPct)
	if err != nil {
		return Calculation{}, err
	}

	charge := baseCents
	if cfg.PlatformFeeMode == ModePassThrough {
		if charge, err = checkedAdd(charge, platformFee); err != nil {
			return Calculation{}, err
		}
	}
	if cfg.GatewayFeeMode == ModePassThrough {
		if charge, err = checkedAdd(charge, gatewayFee); err != nil {
			return Calculation{}, err
		}
	}

	totalFees, err := checkedAdd(platformFee, gatewayFee)
	if err != nil {
		return Calculation{}, err
	}
	net := charge - totalFees
	if net < 0 {
		net = 0
	}

	return Calculation{
		BaseAmountCents:     baseCents,
		PlatformFeeCents:    platformFee,
		GatewayFeeCents:     gatewayFee,
		ChargeAmountCents:   charge,
		NetAmountCents:      net,
		ApplicationFeeCents: platformFee,
	}, nil
}

// GrossResult is the outcome of CalculateGrossForNet.
type GrossResult struct {
	GrossCents int64 `json:"gross_cents"`
	// NetCents is the net CalculateFees actually yields for GrossCents.
	NetCents   int64 `json:"net_cents"`
	Iterations int   `json:"iterations"`
	// Exact is true when NetCents equals the requested net.
	Exact bool `json:"exact"`
}

// CalculateGrossForNet finds a base amount whose fees leave netCents for the campground.
//
// With both fees absorbed the fees are computed on the net figure and added back. Otherwise
// the shortfall is added back for at most 10 rounds and the first base whose net reaches the
// target is returned; it may overshoot by rounding, which Exact reports. If the target is
// still not reached the best approximation is returned with ErrNoConvergence.
func CalculateGrossForNet(netCents int64, cfg Config) (GrossResult, error) {
	if netCents < 0 {
		return GrossResult{}, apperr.New(apperr.ErrValidation, "net amount %d must not be negative", netCents)
	}
	if err := cfg.Validate(); err != nil {
		return GrossResult{}, err
	}

	if cfg.PlatformFeeMode == ModeAbsorb && cfg.GatewayFeeMode == ModeAbsorb {
		gross, err := absorbedGross(netCents, cfg)
		if err != nil {
			return GrossResult{}, err
		}
		calc, err := CalculateFees(gross, cfg)
		if err != nil {
			return GrossResult{}, err
		}
		return GrossResult{GrossCents: gross, NetCents: calc.NetAmountCents, Exact: calc.NetAmountCents == netCents}, nil
	}

	gross := netCents
	var calc Calculation
	var err error
	for i := 1; i <= maxGrossIterations; i++ {
		calc, err = CalculateFees(gross, cfg)
		if err != nil {
			return GrossResult{}, err
		}
		if calc.NetAmountCents >= netCents {
			return GrossResult{GrossCents: gross, NetCents: calc.NetAmountCents, Iterations: i, Exact: calc.NetAmountCents == netCents}, nil
		}
		if gross, err = checkedAdd(gross, netCents-calc.NetAmountCents); err != nil {
			return GrossResult{}, err
		}
	}

	calc, err = CalculateFees(gross, cfg)
	if err != nil {
		return GrossResult{}, err
	}
	res := GrossResult{GrossCents: gross, NetCents: calc.NetAmountCents, Iterations: maxGrossIterations, Exact: calc.NetAmountCents == netCents}
	if calc.NetAmountCents >= netCents {
		return res, nil
	}
	return res, apperr.Wrap(apperr.ErrValidation, ErrNoConvergence,
		fmt.Sprintf("net %d unreachable after %d iterations (best gross %d yields %d)", netCents, maxGrossIterations, gross, calc.NetAmountCents))
}

func absorbedGross(netCents int64, cfg Config) (int64, error) {
	platformPct, err := percentOf(netCents, cfg.PlatformFeePercent)
	if err != nil {
		return 0, err
	}
	gatewayPct, err := percentOf(netCents, cfg.GatewayFeePercent)
	if err != nil {
		return 0, err
	}
	total := netCents
	for _, v := range []int64{cfg.PlatformFeeCents, platformPct, cfg.GatewayFeeCents, gatewayPct} {
		if total, err = checkedAdd(total, v); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// percentOf returns amount*pct/100 rounded half away from zero. A zero percent is skipped.
func percentOf(amount int64, pct decimal.Decimal) (int64, error) {
	if pct.IsZero() {
		return 0, nil
	}
	v := decimal.NewFromInt(amount).Mul(pct).Div(hundred).Round(0)
	if v.GreaterThan(maxAmount) {
		return 0, apperr.New(apperr.ErrOverflow, "%s%% of %d exceeds the amount range", pct, amount)
	}
	return v.IntPart(), nil
}

func checkedAdd(a, b int64) (int64, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, apperr.New(apperr.ErrOverflow, "%d + %d exceeds the amount range", a, b)
	}
	return a + b, nil
}
