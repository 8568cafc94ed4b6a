package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultScanParameters(t *testing.T) {
	p := DefaultScanParameters()
	assert.Equal(t, "D", p.Interval)
	assert.Equal(t, 7, p.LookbackDays)
	assert.Equal(t, 270, p.WarmupBars())
	assert.NoError(t, p.Validate())
}

func TestFetchLimit(t *testing.T) {
	p := DefaultScanParameters()
	assert.Equal(t, 270+7+1, p.FetchLimit())

	p.Interval = "1"
	assert.Equal(t, 270+7*24*60+1, p.FetchLimit())
	assert.NoError(t, p.Validate())
}

func TestValidate_TooMuchHistory(t *testing.T) {
	p := DefaultScanParameters()
	p.Interval = "1"
	p.LookbackDays = 14

	err := p.Validate()
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Len(t, cfgErr.Problems, 1)
	assert.Contains(t, cfgErr.Problems[0], "more than 20000")

	p.Interval = "5"
	assert.NoError(t, p.Validate())
}

func TestValidate_Problems(t *testing.T) {
	p := DefaultScanParameters()
	p.Interval = "2h"
	p.WindowPeriod = 0

	err := p.Validate()
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Len(t, cfgErr.Problems, 2)
}
