package cli

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatUnits(t *testing.T) {
	whole, _ := new(big.Int).SetString("5000000000000000000", 10)
	assert.Equal(t, "5", formatUnits(whole, 18))

	fractional, _ := new(big.Int).SetString("1500000", 10)
	assert.Equal(t, "1.5", formatUnits(fractional, 6))

	subUnit := big.NewInt(42)
	assert.Equal(t, "0.000042", formatUnits(subUnit, 6))

	assert.Equal(t, "0", formatUnits(big.NewInt(0), 18))
}
