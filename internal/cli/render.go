package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/attack-lab/internal/attack"
	"github.com/Brownie44l1/attack-lab/internal/imagestore"
	"github.com/Brownie44l1/attack-lab/internal/logging"
)

type renderOptions struct {
	image   string
	out     string
	maxSide int
	attacks attackFlags
}

var renderOpts renderOptions

// render only needs the image store and the pipeline, so it works without a
// model artifact.
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Write the perturbed image as PNG",
	RunE: func(cmd *cobra.Command, args []string) error {
		seq, err := renderOpts.attacks.sequence()
		if err != nil {
			return err
		}
		img, err := imagestore.New(cfg.Images.Root).Open(renderOpts.image)
		if err != nil {
			return err
		}
		attacked, err := attack.NewPipeline(cfg.AttackParams()).Apply(cmd.Context(), img, seq)
		if err != nil {
			return err
		}

		f, err := os.Create(renderOpts.out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", renderOpts.out, err)
		}
		defer f.Close()
		if err := imagestore.EncodePNG(f, attacked, renderOpts.maxSide); err != nil {
			return err
		}
		logging.L().Info("rendered",
			"image", renderOpts.image,
			"out", renderOpts.out,
			"height", attacked.H,
			"width", attacked.W,
		)
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVarP(&renderOpts.image, "image", "i", "", "Image path relative to images.root")
	renderCmd.Flags().StringVarP(&renderOpts.out, "out", "o", "attacked.png", "Output PNG path")
	renderCmd.Flags().IntVar(&renderOpts.maxSide, "max-side", 0, "Downscale so the longer side fits (0 keeps full size)")
	renderOpts.attacks.register(renderCmd)
	renderCmd.MarkFlagRequired("image")
	rootCmd.AddCommand(renderCmd)
}
