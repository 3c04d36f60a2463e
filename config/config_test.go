package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gosph/sphfault"
)

func TestParseOverridesDefaults(t *testing.T) {
	data := []byte(`
DesNumNgb: 64
MaxNumNgbDeviation: 2
MinGasHsml: 0.01
`)
	p, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, 64.0, p.DesNumNgb)
	assert.Equal(t, 2.0, p.MaxNumNgbDeviation)
	assert.Equal(t, 0.01, p.MinGasHsml)
	// Untouched fields keep their defaults.
	assert.Equal(t, 150, p.MaxIter)
	assert.Equal(t, 3, p.Dim)
}

func TestValidateRejectsNonPositiveDesNumNgb(t *testing.T) {
	p := Default()
	p.DesNumNgb = 0
	err := p.Validate()
	require.Error(t, err)
	var cfgErr *sphfault.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "DesNumNgb", cfgErr.Field)
}

func TestValidateRejectsDesNumNgbBelowDeviation(t *testing.T) {
	p := Default()
	p.DesNumNgb = 1
	p.MaxNumNgbDeviation = 2
	require.Error(t, p.Validate())
}

func TestValidateAcceptsDefaults(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateRejectsBadDim(t *testing.T) {
	p := Default()
	p.Dim = 4
	require.Error(t, p.Validate())
}
