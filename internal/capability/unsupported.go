package capability

// unsupported is a provider for a subsystem absent from this build or
// guest. Its probe always comes back empty.
type unsupported struct {
	meta Metadata
}

// Unsupported returns a provider that reports no actions.
func Unsupported(meta Metadata) Provider {
	return &unsupported{meta: meta}
}

func (u *unsupported) Metadata() Metadata { return u.meta }
func (u *unsupported) Load() ActionSet    { return NewActionSet() }
func (u *unsupported) Available() bool    { return false }

var (
	_ Location = (*unsupportedLocation)(nil)
	_ DevMode  = (*unsupportedDevMode)(nil)
)

type unsupportedLocation struct{ unsupported }

// UnsupportedLocation returns a Location provider that refuses every call.
func UnsupportedLocation(meta Metadata) Location {
	return &unsupportedLocation{unsupported{meta: meta}}
}

func (u *unsupportedLocation) Simulate(Fix) error { return ErrUnavailable }
func (u *unsupportedLocation) Clear() error       { return ErrUnavailable }

type unsupportedDevMode struct{ unsupported }

// UnsupportedDevMode returns a DevMode provider that refuses every call.
func UnsupportedDevMode(meta Metadata) DevMode {
	return &unsupportedDevMode{unsupported{meta: meta}}
}

func (u *unsupportedDevMode) Status() (bool, error)   { return false, ErrUnavailable }
func (u *unsupportedDevMode) Arm() (ArmResult, error) { return ArmResult{}, ErrUnavailable }
