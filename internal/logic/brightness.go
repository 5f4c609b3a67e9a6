package logic

// Edges bounds the random duty draw: targets fall in [Low, High).
type Edges struct {
	Low  uint8
	High uint8
}

// Span returns the width of the draw range, never less than 1.
func (e Edges) Span() uint8 {
	if e.High <= e.Low {
		return 1
	}
	return e.High - e.Low
}

// EdgesFor derives the duty edges for brightness b.
// low = 0.1953125*b and high = 0.8828125*b + 30, truncated; both factors are
// exact in 1/128ths, so integer shifts reproduce the float results.
func EdgesFor(b uint8) Edges {
	return Edges{
		Low:  uint8((uint16(b) * 25) >> 7),
		High: uint8((uint16(b)*113)>>7 + 30),
	}
}

// Brightness is a level in [0,255] with its derived edges kept in sync.
type Brightness struct {
	level uint8
	edges Edges
}

// NewBrightness returns a controller at level b.
func NewBrightness(b uint8) Brightness {
	return Brightness{level: b, edges: EdgesFor(b)}
}

// Level returns the current brightness.
func (b *Brightness) Level() uint8 { return b.level }

// Edges returns the duty edges for the current brightness.
func (b *Brightness) Edges() Edges { return b.edges }

// Increment raises the level by one. It reports false at the ceiling.
func (b *Brightness) Increment() bool {
	if b.level == MaxBrightness {
		return false
	}
	b.level++
	b.edges = EdgesFor(b.level)
	return true
}

// Decrement lowers the level by one. It reports false at the floor.
func (b *Brightness) Decrement() bool {
	if b.level == 0 {
		return false
	}
	b.level--
	b.edges = EdgesFor(b.level)
	return true
}
