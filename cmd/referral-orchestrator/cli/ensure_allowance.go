package cli

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/spf13/cobra"

	"github.com/levelfi-io/referral-orchestrator/internal/allowance"
)

// EnsureAllowanceCmd prepares the operator wallet for fee-pulling ledger
// calls: it tops the token allowance toward the ledger contract up to at
// least the requested amount.
func EnsureAllowanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-allowance <amount>",
		Short: "Ensures the operator's token allowance toward the ledger covers <amount> (base units)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			required, ok := new(big.Int).SetString(args[0], 10)
			if !ok {
				return fmt.Errorf("invalid amount: %q", args[0])
			}

			stack, err := buildLedgerStack()
			if err != nil {
				return err
			}
			defer stack.Close()

			guard := allowance.NewGuard(stack.token)
			err = guard.EnsureAllowance(cmd.Context(), stack.signer.Address(), stack.cfg.Ledger.Contract(), required)
			if err != nil {
				return err
			}

			display := required.String() + " base units"
			if decimals, err := stack.token.Decimals(cmd.Context()); err == nil {
				display = fmt.Sprintf("%s tokens (%s base units)", formatUnits(required, decimals), required)
			}
			cmd.Printf("allowance of %s covers %s\n", stack.signer.Address().Hex(), display)
			return nil
		},
	}
}

// formatUnits renders a base-unit amount as a decimal token quantity.
func formatUnits(amount *big.Int, decimals uint8) string {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(amount, scale, new(big.Int))
	if frac.Sign() == 0 {
		return whole.String()
	}
	padded := fmt.Sprintf("%0*s", decimals, frac.String())
	return whole.String() + "." + strings.TrimRight(padded, "0")
}
