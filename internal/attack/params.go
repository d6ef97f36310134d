package attack

// Params holds the constants every transform is parameterised by. A Params
// value is built once and passed by value; nothing reads global state.
type Params struct {
	// NoiseRatio is the noise mix weight added per unit of count.
	NoiseRatio float64
	// Seed feeds the Gaussian noise generator. Every noise application
	// reseeds, so repeated applications reuse the same field.
	Seed uint64
	// RotateStep is the rotation in degrees per unit of count.
	RotateStep float64
	// ShiftDelta is the horizontal shift in pixels per unit of count.
	ShiftDelta int
	// ShearFactor is the fixed shear coefficient. Count only widens the canvas.
	ShearFactor float64
}

func DefaultParams() Params {
	return Params{
		NoiseRatio:  0.05,
		Seed:        66,
		RotateStep:  45,
		ShiftDelta:  30,
		ShearFactor: 0.2,
	}
}
