package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Brownie44l1/attack-lab/internal/attack"
)

type sweepOptions struct {
	image    string
	attackID string
	max      int
	json     bool
}

var sweepOpts sweepOptions

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Classify an image at every intensity of one attack",
	Long: `sweep applies a single attack at count 0, 1, ..., max and reports the top
prediction at each step together with the probability still assigned to the
class that ranked first on the clean image.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := attack.ParseKind(sweepOpts.attackID)
		if err != nil {
			return err
		}
		svc, art, err := openService()
		if err != nil {
			return err
		}
		defer art.Close()

		bar := progressbar.NewOptions(sweepOpts.max+1,
			progressbar.OptionSetDescription(fmt.Sprintf("sweeping %s", kind)),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		points, err := svc.Sweep(cmd.Context(), sweepOpts.image, kind, sweepOpts.max, func(int) {
			_ = bar.Add(1)
		})
		_ = bar.Finish()
		if err != nil {
			return err
		}

		if sweepOpts.json {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(points)
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "COUNT\tTOP\tPROBABILITY\tBASELINE PROBABILITY\tBASELINE RANK")
		for _, p := range points {
			rank := "-"
			if p.BaselineRank >= 0 {
				rank = fmt.Sprint(p.BaselineRank + 1)
			}
			fmt.Fprintf(tw, "%d\t%s\t%.6f\t%.6f\t%s\n", p.Count, p.Top.ClassName, p.Top.Probability, p.BaselineProbability, rank)
		}
		return tw.Flush()
	},
}

func init() {
	sweepCmd.Flags().StringVarP(&sweepOpts.image, "image", "i", "", "Image path relative to images.root")
	sweepCmd.Flags().StringVarP(&sweepOpts.attackID, "attack-id", "k", "", "Attack identifier to sweep")
	sweepCmd.Flags().IntVarP(&sweepOpts.max, "max", "m", 10, "Highest count to evaluate")
	sweepCmd.Flags().BoolVar(&sweepOpts.json, "json", false, "Print the sweep as JSON")
	sweepCmd.MarkFlagRequired("image")
	sweepCmd.MarkFlagRequired("attack-id")
	rootCmd.AddCommand(sweepCmd)
}
