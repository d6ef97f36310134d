package cli

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/attack-lab/internal/attack"
)

func TestAttackFlagsSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attacks.yml")
	require.NoError(t, os.WriteFile(path, []byte("schema_version: v1\nattacks:\n  - {id: blur_image, count: 2}\n"), 0o644))

	f := attackFlags{specs: []string{"rotation_clock=1", "random_noise"}, file: path}
	seq, err := f.sequence()
	require.NoError(t, err)
	assert.Equal(t, attack.Sequence{
		{ID: attack.BlurImage, Count: 2},
		{ID: attack.RotationClock, Count: 1},
		{ID: attack.RandomNoise, Count: 1},
	}, seq)

	f = attackFlags{specs: []string{"spin=2"}}
	_, err = f.sequence()
	assert.ErrorIs(t, err, attack.ErrUnknownAttack)
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAttacksCommand(t *testing.T) {
	out, err := run(t, "attacks", "--config", filepath.Join(t.TempDir(), "none.yml"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "random_noise\n"))
	assert.Contains(t, out, "shear_factor=0.2")
}

// render needs no model, so it runs end to end here.
func TestRenderCommand(t *testing.T) {
	root := t.TempDir()
	src := image.NewRGBA(image.Rect(0, 0, 10, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 10; x++ {
			src.SetRGBA(x, y, color.RGBA{R: 200, G: 200, B: 200, A: 255})
		}
	}
	f, err := os.Create(filepath.Join(root, "in.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, src))
	require.NoError(t, f.Close())

	t.Setenv("ATTACKLAB_IMAGES__ROOT", root)
	out := filepath.Join(t.TempDir(), "out.png")
	_, err = run(t, "render", "--config", filepath.Join(t.TempDir(), "none.yml"),
		"-i", "in.png", "-o", out, "-a", "rotation_anti=2", "-a", "mirroring_vertical=1")
	require.NoError(t, err)

	rf, err := os.Open(out)
	require.NoError(t, err)
	defer rf.Close()
	img, err := png.Decode(rf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 6, 10), img.Bounds())
	r, g, b, a := img.At(2, 3).RGBA()
	assert.Equal(t, color.RGBA64{R: 200 * 257, G: 200 * 257, B: 200 * 257, A: 0xffff}, color.RGBA64{R: uint16(r), G: uint16(g), B: uint16(b), A: uint16(a)})
}
