package reduction

import "fmt"

// Tuned launch defaults.
const (
	DefaultLocalSize      = 256
	DefaultGroupsMax      = 1024
	DefaultItemsPerThread = 8
)

// Params fixes the launch geometry shared by every pass of a reduction.
type Params struct {
	// LocalSize is the work-group size. The portable kernel additionally
	// requires it to be a power of two.
	LocalSize int
	// GroupsMax caps the number of work-groups launched per pass.
	GroupsMax int
	// ItemsPerThread is how many elements each thread folds on its own
	// before the group combines partials.
	ItemsPerThread int
}

// DefaultParams returns the tuned defaults: 256 threads per group, at most
// 1024 groups per pass, 8 items per thread.
func DefaultParams() Params {
	return Params{
		LocalSize:      DefaultLocalSize,
		GroupsMax:      DefaultGroupsMax,
		ItemsPerThread: DefaultItemsPerThread,
	}
}

// Validate rejects geometry no device can launch.
func (p Params) Validate() error {
	if p.LocalSize <= 0 {
		return fmt.Errorf("reduction: local size must be positive, got %d", p.LocalSize)
	}
	if p.GroupsMax <= 0 {
		return fmt.Errorf("reduction: groups max must be positive, got %d", p.GroupsMax)
	}
	if p.ItemsPerThread <= 0 {
		return fmt.Errorf("reduction: items per thread must be positive, got %d", p.ItemsPerThread)
	}
	// Each pass emits one element per group, so a group must cover at
	// least two elements or the pass sequence stops shrinking.
	if p.LocalSize*p.ItemsPerThread < 2 {
		return fmt.Errorf("reduction: a group must cover at least 2 elements, got localSize %d * itemsPerThread %d", p.LocalSize, p.ItemsPerThread)
	}
	return nil
}

// passGeometry sizes one pass over count elements. Each group covers
// LocalSize*ItemsPerThread elements, the group count is clamped to
// [1, GroupsMax], and any leftover elements are absorbed by the kernel's
// grid-stride loop.
func (p Params) passGeometry(count int) (groups, global int) {
	chunk := p.LocalSize * p.ItemsPerThread
	groups = (count + chunk - 1) / chunk
	if groups < 1 {
		groups = 1
	}
	if groups > p.GroupsMax {
		groups = p.GroupsMax
	}
	return groups, groups * p.LocalSize
}

// Plan returns the sequence of output sizes a reduction over count elements
// walks through, one entry per pass. The final entry is always 1; a count of
// zero or one needs no passes and yields nil.
func (p Params) Plan(count int) []int {
	if count <= 1 {
		return nil
	}
	var sizes []int
	for count > 1 {
		groups, _ := p.passGeometry(count)
		sizes = append(sizes, groups)
		count = groups
	}
	return sizes
}
