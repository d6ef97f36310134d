package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/Brownie44l1/attack-lab/internal/attack"
	"github.com/Brownie44l1/attack-lab/internal/logging"
	"github.com/Brownie44l1/attack-lab/internal/preprocess"
	"github.com/Brownie44l1/attack-lab/internal/ranking"
)

// EnvPrefix marks environment overrides. Nested keys use "__", e.g.
// ATTACKLAB_SERVER__PORT=9000 or ATTACKLAB_ATTACK__NOISE_RATIO=0.1.
const EnvPrefix = "ATTACKLAB_"

// Config holds all service configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	Model     ModelConfig     `koanf:"model"`
	Images    ImagesConfig    `koanf:"images"`
	Attack    AttackConfig    `koanf:"attack"`
	Normalize NormalizeConfig `koanf:"normalize"`
	Ranking   RankingConfig   `koanf:"ranking"`
}

type ServerConfig struct {
	Port       int    `koanf:"port"`
	CORSOrigin string `koanf:"cors_origin"`
	// MaxUploadMB bounds multipart uploads on /predict/image.
	MaxUploadMB int `koanf:"max_upload_mb"`
	// PreviewMaxSide downsizes /render output; 0 keeps full size.
	PreviewMaxSide int `koanf:"preview_max_side"`
}

type LogConfig struct {
	Level string `koanf:"level"`
	JSON  bool   `koanf:"json"`
}

type ModelConfig struct {
	Manifest string `koanf:"manifest"`
}

type ImagesConfig struct {
	Root string `koanf:"root"`
}

type AttackConfig struct {
	NoiseRatio  float64 `koanf:"noise_ratio"`
	Seed        uint64  `koanf:"seed"`
	RotateStep  float64 `koanf:"rotate_step"`
	ShiftDelta  int     `koanf:"shift_delta"`
	ShearFactor float64 `koanf:"shear_factor"`
}

type NormalizeConfig struct {
	Resize int       `koanf:"resize"`
	Crop   int       `koanf:"crop"`
	Mean   []float64 `koanf:"mean"`
	Std    []float64 `koanf:"std"`
}

type RankingConfig struct {
	TopK int `koanf:"top_k"`
}

// Load merges the YAML file at path (optional; a missing file is ignored)
// with ATTACKLAB_ environment variables, then fills defaults.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("config: env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	applyDefaults(&cfg, k.Exists)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// applyDefaults fills unset values. Attack parameters are zero-valid, so they
// are defaulted only when the key is absent rather than when they are 0.
func applyDefaults(c *Config, isSet func(key string) bool) {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.CORSOrigin == "" {
		c.Server.CORSOrigin = "*"
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = 10
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Model.Manifest == "" {
		c.Model.Manifest = "models/manifest.yml"
	}
	if c.Images.Root == "" {
		c.Images.Root = "images"
	}

	def := attack.DefaultParams()
	if !isSet("attack.noise_ratio") {
		c.Attack.NoiseRatio = def.NoiseRatio
	}
	if !isSet("attack.seed") {
		c.Attack.Seed = def.Seed
	}
	if !isSet("attack.rotate_step") {
		c.Attack.RotateStep = def.RotateStep
	}
	if !isSet("attack.shift_delta") {
		c.Attack.ShiftDelta = def.ShiftDelta
	}
	if !isSet("attack.shear_factor") {
		c.Attack.ShearFactor = def.ShearFactor
	}

	norm := preprocess.DefaultNormalizer()
	if c.Normalize.Resize == 0 {
		c.Normalize.Resize = norm.ResizeTo
	}
	if c.Normalize.Crop == 0 {
		c.Normalize.Crop = norm.CropSize
	}
	if len(c.Normalize.Mean) == 0 {
		c.Normalize.Mean = widen(norm.Mean)
	}
	if len(c.Normalize.Std) == 0 {
		c.Normalize.Std = widen(norm.Std)
	}

	if c.Ranking.TopK == 0 {
		c.Ranking.TopK = ranking.DefaultK
	}
}

func widen(v [3]float32) []float64 {
	return []float64{float64(v[0]), float64(v[1]), float64(v[2])}
}

// Validate rejects values no component could run with.
func (c Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if len(c.Normalize.Mean) != 3 || len(c.Normalize.Std) != 3 {
		return fmt.Errorf("config: normalize.mean and normalize.std need 3 values, got %d and %d",
			len(c.Normalize.Mean), len(c.Normalize.Std))
	}
	if err := c.Normalizer().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Ranking.TopK < 0 {
		return fmt.Errorf("config: ranking.top_k %d is negative", c.Ranking.TopK)
	}
	if c.Attack.NoiseRatio < 0 {
		return fmt.Errorf("config: attack.noise_ratio %v is negative", c.Attack.NoiseRatio)
	}
	return nil
}

func (c Config) AttackParams() attack.Params {
	return attack.Params{
		NoiseRatio:  c.Attack.NoiseRatio,
		Seed:        c.Attack.Seed,
		RotateStep:  c.Attack.RotateStep,
		ShiftDelta:  c.Attack.ShiftDelta,
		ShearFactor: c.Attack.ShearFactor,
	}
}

func (c Config) Normalizer() preprocess.Normalizer {
	n := preprocess.Normalizer{ResizeTo: c.Normalize.Resize, CropSize: c.Normalize.Crop}
	for i := 0; i < 3 && i < len(c.Normalize.Mean); i++ {
		n.Mean[i] = float32(c.Normalize.Mean[i])
	}
	for i := 0; i < 3 && i < len(c.Normalize.Std); i++ {
		n.Std[i] = float32(c.Normalize.Std[i])
	}
	return n
}

func (c Config) LogOptions() logging.Options {
	return logging.Options{Level: c.Log.Level, JSON: c.Log.JSON}
}
