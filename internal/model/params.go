package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

// ScanParameters configures one scan. It is passed by value into every
// computation and never mutated after the scan starts.
type ScanParameters struct {
	Interval         string  `yaml:"interval" json:"interval" default:"D" validate:"required,oneof=1 3 5 15 30 60 120 240 360 720 D W M"`
	LookbackDays     int     `yaml:"lookback_days" json:"lookback_days" default:"7" validate:"gt=0"`
	WindowPeriod     int     `yaml:"window_period" json:"window_period" default:"21" validate:"gt=0"`
	BandLength       int     `yaml:"band_length" json:"band_length" default:"50" validate:"gt=0"`
	BandMultiplier   float64 `yaml:"band_multiplier" json:"band_multiplier" default:"6" validate:"gt=0"`
	RangeLookback    int     `yaml:"range_lookback" json:"range_lookback" default:"250" validate:"gt=0"`
	PercentileHigh   float64 `yaml:"percentile_high" json:"percentile_high" default:"0.99" validate:"gt=0"`
	PercentileLow    float64 `yaml:"percentile_low" json:"percentile_low" default:"1.01" validate:"gt=0"`
	Flip             bool    `yaml:"flip" json:"flip"`
	UseHighs         bool    `yaml:"use_highs" json:"use_highs"`
	ShortLookback    int     `yaml:"short_lookback" json:"short_lookback" default:"3" validate:"gt=0"`
	LongTermLookback int     `yaml:"long_term_lookback" json:"long_term_lookback" default:"45" validate:"gt=0"`
	MidTermLookback  int     `yaml:"mid_term_lookback" json:"mid_term_lookback" default:"20" validate:"gt=0"`
}

// MaxFetchBars caps the history one symbol may need. Sources page through
// longer requests, so this bounds the number of calls per symbol.
const MaxFetchBars = 20000

var paramsValidator = validator.New()

// DefaultScanParameters returns the stock Vix Fix settings on the daily interval.
func DefaultScanParameters() ScanParameters {
	var p ScanParameters
	if err := defaults.Set(&p); err != nil {
		panic(fmt.Sprintf("scan parameter defaults: %v", err))
	}
	return p
}

// WithDefaults fills zero-valued fields from the stock settings.
func (p ScanParameters) WithDefaults() ScanParameters {
	if err := defaults.Set(&p); err != nil {
		panic(fmt.Sprintf("scan parameter defaults: %v", err))
	}
	return p
}

// Validate rejects parameters no scan can run with.
func (p ScanParameters) Validate() error {
	err := paramsValidator.Struct(p)
	if err == nil {
		if n := p.FetchLimit(); n > MaxFetchBars {
			return &ConfigurationError{Problems: []string{fmt.Sprintf(
				"interval %s with lookback_days %d needs %d bars, more than %d", p.Interval, p.LookbackDays, n, MaxFetchBars)}}
		}
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ConfigurationError{Problems: []string{err.Error()}}
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			problems = append(problems, fmt.Sprintf("%s is required", fe.Field()))
		case "oneof":
			problems = append(problems, fmt.Sprintf("%s %q is not one of [%s]", fe.Field(), fe.Value(), fe.Param()))
		default:
			problems = append(problems, fmt.Sprintf("%s must be %s %s, got %v", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
		}
	}
	return &ConfigurationError{Problems: problems}
}

// WarmupBars is the number of bars needed before every indicator and every
// price lookback is defined on the latest bar.
func (p ScanParameters) WarmupBars() int {
	n := p.WindowPeriod - 1 + max(p.BandLength, p.RangeLookback)
	n = max(n, p.LongTermLookback+1, p.MidTermLookback+1, p.ShortLookback+1)
	return n
}

// FetchLimit is the number of bars to request so the whole lookback window
// sits on fully warmed-up indicator values.
func (p ScanParameters) FetchLimit() int {
	d, ok := IntervalDuration(p.Interval)
	if !ok {
		return MaxFetchBars
	}
	window := int((time.Duration(p.LookbackDays) * 24 * time.Hour) / d)
	return p.WarmupBars() + window + 1
}

// ConfigurationError reports invalid scan parameters. It is raised before any
// symbol is dispatched.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "invalid scan parameters: " + strings.Join(e.Problems, "; ")
}
