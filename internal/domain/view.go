package domain

// MethodologyView marks one methodology/level pair as enabled for a use
// case. Each enabled view yields one rendered artifact.
type MethodologyView struct {
	Methodology string `toml:"methodology" json:"methodology"`
	Level       string `toml:"level" json:"level"`
	Enabled     bool   `toml:"enabled" json:"enabled"`
}

func NewView(methodology, level string) MethodologyView {
	return MethodologyView{Methodology: methodology, Level: level, Enabled: true}
}

// Key uniquely identifies the view within its use case.
func (v MethodologyView) Key() string {
	return v.Methodology + "-" + v.Level
}
