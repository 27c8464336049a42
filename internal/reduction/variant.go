package reduction

// Variant identifies which kernel the engine compiles. Both variants share
// one contract: a pass folds count elements down to one partial maximum per
// work-group, so the orchestrator never cares which one is running.
type Variant int

const (
	// VariantPortable is the shared-scratch halving tree. It runs on any
	// device but requires a power-of-two local size.
	VariantPortable Variant = iota
	// VariantFast leans on the device's native group-reduce primitive,
	// available from kernel language 2.0 on.
	VariantFast
)

func (v Variant) String() string {
	switch v {
	case VariantFast:
		return "fast"
	case VariantPortable:
		return "portable"
	default:
		return "unknown"
	}
}
