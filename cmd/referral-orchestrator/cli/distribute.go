package cli

import (
	"github.com/spf13/cobra"

	"github.com/levelfi-io/referral-orchestrator/internal/distribution"
)

func DistributePoolCmd() *cobra.Command {
	var batch bool
	var runToEnd bool

	cmd := &cobra.Command{
		Use:   "distribute-pool",
		Short: "Distributes the global pool to eligible accounts",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := buildLedgerStack()
			if err != nil {
				return err
			}
			defer stack.Close()

			coord := distribution.New(stack.ledger)

			if !batch {
				res, err := coord.DistributeDirect(cmd.Context())
				if err != nil {
					return err
				}
				cmd.Printf("pool distributed, tx %s\n", res.TxHash)
				return nil
			}

			for {
				res, err := coord.AdvanceBatch(cmd.Context())
				if err != nil {
					return err
				}
				if res.AlreadyComplete {
					cmd.Println("distribution cycle already complete")
					return nil
				}
				cmd.Printf("batch %d-%d of %d distributed, tx %s\n",
					res.StartIndex, res.EndIndex, res.TotalEligible, res.TxHash)
				if res.IsComplete {
					cmd.Println("distribution cycle complete")
					return nil
				}
				if !runToEnd {
					return nil
				}
			}
		},
	}

	cmd.Flags().BoolVar(&batch, "batch", false, "advance the batched distribution instead of distributing all at once")
	cmd.Flags().BoolVar(&runToEnd, "run-to-end", false, "with --batch, keep advancing until the cycle completes")
	return cmd
}
