package pkg

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ParseAddress validates the shape of an EVM address and returns its checksummed
// form. Used on every externally supplied address before any ledger call.
func ParseAddress(address string) (common.Address, error) {
	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("invalid address: %q", address)
	}
	return common.HexToAddress(address), nil
}

func Ptr[T any](v T) *T {
	return &v
}
