package director

// Scenario is the slideshow script derived from a marker timeline: which
// frame is shown for how long, in order.
type Scenario struct {
	Version string  `yaml:"version"`
	Total   float64 `yaml:"total"` // seconds
	Slides  []Slide `yaml:"slides"`
}

// Slide is one playlist entry. ID is the 1-based slide number, 0 for the
// blank terminator frame.
type Slide struct {
	ID       int     `yaml:"id"`
	Input    string  `yaml:"input"`
	Start    float64 `yaml:"start"`
	Duration float64 `yaml:"duration"`
}
