package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/attack-lab/internal/ranking"
)

type classifyOptions struct {
	image   string
	attacks attackFlags
	json    bool
}

var classifyOpts classifyOptions

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Apply an attack sequence to an image and print the top predictions",
	Example: `  attack-lab classify -i n01440764/ILSVRC2012_val_00000293.JPEG -a rotation_clock=1 -a random_noise=2
  attack-lab classify -i n01440764/ILSVRC2012_val_00000293.JPEG --attacks-file attacks.yml --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		seq, err := classifyOpts.attacks.sequence()
		if err != nil {
			return err
		}
		svc, art, err := openService()
		if err != nil {
			return err
		}
		defer art.Close()

		preds, err := svc.Predict(cmd.Context(), classifyOpts.image, seq)
		if err != nil {
			return err
		}
		if classifyOpts.json {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(preds)
		}
		return printPredictions(preds)
	},
}

func init() {
	classifyCmd.Flags().StringVarP(&classifyOpts.image, "image", "i", "", "Image path relative to images.root")
	classifyOpts.attacks.register(classifyCmd)
	classifyCmd.Flags().BoolVar(&classifyOpts.json, "json", false, "Print predictions as JSON")
	classifyCmd.MarkFlagRequired("image")
	rootCmd.AddCommand(classifyCmd)
}

func printPredictions(preds []ranking.Prediction) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tCLASS ID\tNAME\tPROBABILITY")
	for i, p := range preds {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.6f\n", i+1, p.ClassID, p.ClassName, p.Probability)
	}
	return tw.Flush()
}
