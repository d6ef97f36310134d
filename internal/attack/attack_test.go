package attack

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/attack-lab/internal/tensor"
)

// ramp returns a 3-channel image whose every element is distinct, so no
// transform can accidentally look like the identity.
func ramp(h, w int) tensor.Image {
	img := tensor.New(tensor.Channels, h, w)
	for i := range img.Pix {
		img.Pix[i] = float32(i+1) / float32(len(img.Pix))
	}
	return img
}

func TestParseKindRoundTrip(t *testing.T) {
	kinds := Kinds()
	require.Len(t, kinds, 10)
	for _, k := range kinds {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
}

func TestParseKindUnknown(t *testing.T) {
	_, err := ParseKind("melt_image")
	require.ErrorIs(t, err, ErrUnknownAttack)
	assert.Contains(t, err.Error(), "melt_image")
}

func TestKindJSON(t *testing.T) {
	var seq Sequence
	err := json.Unmarshal([]byte(`[{"id":"rotation_clock","count":1},{"id":"random_noise","count":2}]`), &seq)
	require.NoError(t, err)
	assert.Equal(t, Sequence{{ID: RotationClock, Count: 1}, {ID: RandomNoise, Count: 2}}, seq)

	out, err := json.Marshal(seq[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"rotation_clock","count":1}`, string(out))

	err = json.Unmarshal([]byte(`[{"id":"bogus","count":1}]`), &seq)
	require.ErrorIs(t, err, ErrUnknownAttack)
	assert.Contains(t, err.Error(), "bogus")
}

func TestParseSpec(t *testing.T) {
	tests := []struct {
		in      string
		want    Spec
		wantErr bool
	}{
		{"blur_image=3", Spec{ID: BlurImage, Count: 3}, false},
		{"shifting_left", Spec{ID: ShiftingLeft, Count: 1}, false},
		{" mirroring_vertical = 0 ", Spec{ID: MirroringVertical, Count: 0}, false},
		{"blur_image=x", Spec{}, true},
		{"blur_image=-1", Spec{}, true},
		{"unknown=1", Spec{}, true},
	}
	for _, tt := range tests {
		got, err := ParseSpec(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestLoadSequence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "attacks.yml")
	body := []byte(`schema_version: v1
attacks:
  - {id: rotation_anti, count: 2}
  - {id: blur_image, count: 0}
  - {id: shearing_horizontal, count: 1}
`)
	require.NoError(t, os.WriteFile(path, body, 0o644))

	seq, err := LoadSequence(path)
	require.NoError(t, err)
	assert.Equal(t, Sequence{
		{ID: RotationAnti, Count: 2},
		{ID: BlurImage, Count: 0},
		{ID: ShearingHorizontal, Count: 1},
	}, seq)
	assert.Len(t, seq.Active(), 2)
}

func TestLoadSequenceRejects(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("attacks:\n  - {id: bogus, count: 1}\n"), 0o644))
	_, err := LoadSequence(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")

	schema := filepath.Join(dir, "schema.yml")
	require.NoError(t, os.WriteFile(schema, []byte("schema_version: v9\nattacks: []\n"), 0o644))
	_, err = LoadSequence(schema)
	assert.Error(t, err)
}

func TestTransformsDoNotMutateInput(t *testing.T) {
	img := ramp(9, 11)
	orig := img.Clone()
	for _, k := range Kinds() {
		_, err := Apply(k, img, 1, DefaultParams())
		require.NoError(t, err, k.String())
		assert.Equal(t, orig.Pix, img.Pix, k.String())
	}
}

func TestApplyInvalidKind(t *testing.T) {
	_, err := Apply(Kind(42), ramp(2, 2), 1, DefaultParams())
	assert.ErrorIs(t, err, ErrUnknownAttack)
}
