package config

// Fields enumerates every optional output column. Core columns are always written;
// these are resolved once into the output schema at startup.
type Fields struct {
	Region      bool
	Nat         bool
	RawBeaten   bool
	Weight      bool
	Headgear    bool
	WinningTime bool
	Pedigree    bool
	Owner       bool
	Comment     bool
	IDs         bool
	SilkURL     bool
}

// DefaultFields matches the column set downstream loaders expect.
func DefaultFields() Fields {
	return Fields{
		Region:      false,
		Nat:         true,
		RawBeaten:   false,
		Weight:      true,
		Headgear:    true,
		WinningTime: false,
		Pedigree:    true,
		Owner:       true,
		Comment:     true,
		IDs:         false,
		SilkURL:     false,
	}
}
