package capability

// Fix is one simulated location fix.
type Fix struct {
	Lat    float64
	Lon    float64
	Alt    float64
	HAcc   float64
	VAcc   float64
	Speed  float64
	Course float64
}

// Location drives the guest location-simulation subsystem.
type Location interface {
	Provider
	Simulate(Fix) error
	Clear() error
}

// ArmResult reports a developer-mode arming attempt. AlreadyEnabled
// distinguishes a no-op arm from one that required a toggle.
type ArmResult struct {
	Enabled        bool
	AlreadyEnabled bool
}

// DevMode drives the guest developer-mode subsystem.
type DevMode interface {
	Provider
	Status() (bool, error)
	Arm() (ArmResult, error)
}
