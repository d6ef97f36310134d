package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/attack-lab/internal/attack"
)

var attacksCmd = &cobra.Command{
	Use:   "attacks",
	Short: "List attack identifiers and the parameters in effect",
	Run: func(cmd *cobra.Command, args []string) {
		p := cfg.AttackParams()
		for _, k := range attack.Kinds() {
			fmt.Fprintln(cmd.OutOrStdout(), k)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "\nnoise_ratio=%g seed=%d rotate_step=%g shift_delta=%d shear_factor=%g\n",
			p.NoiseRatio, p.Seed, p.RotateStep, p.ShiftDelta, p.ShearFactor)
	},
}

func init() {
	rootCmd.AddCommand(attacksCmd)
}
