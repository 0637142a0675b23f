package cli

import (
	"github.com/spf13/cobra"

	"github.com/levelfi-io/referral-orchestrator/internal/eligibility"
	"github.com/levelfi-io/referral-orchestrator/pkg"
)

func AddEligibleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-eligible <address>",
		Short: "Adds an account to the pool-eligibility allow list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := buildLedgerStack()
			if err != nil {
				return err
			}
			defer stack.Close()

			account, err := pkg.ParseAddress(args[0])
			if err != nil {
				return err
			}

			admin := eligibility.New(stack.ledger, stack.cfg.Eligibility.MinDirectReferrals)
			res, err := admin.Add(cmd.Context(), account)
			if err != nil {
				return err
			}
			if res.AlreadyApplied {
				cmd.Printf("%s is already eligible\n", account.Hex())
				return nil
			}
			cmd.Printf("added %s, tx %s mined in block %d\n", account.Hex(), res.TxHash, res.Receipt.BlockNumber)
			return nil
		},
	}
}

func RemoveEligibleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-eligible <address>",
		Short: "Removes an account from the pool-eligibility allow list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := buildLedgerStack()
			if err != nil {
				return err
			}
			defer stack.Close()

			account, err := pkg.ParseAddress(args[0])
			if err != nil {
				return err
			}

			admin := eligibility.New(stack.ledger, stack.cfg.Eligibility.MinDirectReferrals)
			res, err := admin.Remove(cmd.Context(), account)
			if err != nil {
				return err
			}
			cmd.Printf("removed %s, tx %s mined in block %d\n", account.Hex(), res.TxHash, res.Receipt.BlockNumber)
			return nil
		},
	}
}
