package challengers

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fxnlabs/reduction-bench/internal/bench"
	"github.com/fxnlabs/reduction-bench/internal/dataset"
	"github.com/fxnlabs/reduction-bench/internal/device"
	"github.com/fxnlabs/reduction-bench/internal/reduction"
)

// Challenge payload limits. A scheduler must not be able to allocate
// unbounded device memory through a single request.
const (
	defaultChallengeSize = 1 << 20
	maxChallengeSize     = 1 << 27
)

// MaxReductionChallenger runs a seeded reduction on the managed device and
// returns the full benchmark record for the scheduler to check.
type MaxReductionChallenger struct {
	manager *device.Manager
}

func NewMaxReductionChallenger(manager *device.Manager) *MaxReductionChallenger {
	return &MaxReductionChallenger{manager: manager}
}

// Execute runs the reduction described by the payload. A verification
// mismatch is not an execution error: the record travels back with
// verified=false and the scheduler draws its own conclusion.
func (c *MaxReductionChallenger) Execute(payload interface{}, log *zap.Logger) (interface{}, error) {
	log.Info("Performing max reduction challenge...")

	data, err := json.Marshal(payload)
	if err != nil {
		log.Error("Failed to marshal payload", zap.Error(err))
		return nil, err
	}

	req := struct {
		Size           int    `json:"size"`
		Seed           uint64 `json:"seed"`
		LocalSize      int    `json:"wg"`
		GroupsMax      int    `json:"groups_max"`
		ItemsPerThread int    `json:"items"`
	}{
		Size: defaultChallengeSize,
		Seed: dataset.DefaultSeed,
	}
	if err := json.Unmarshal(data, &req); err != nil {
		log.Error("Failed to unmarshal reduction request from payload", zap.Error(err))
		return nil, err
	}

	if req.Size <= 0 {
		return nil, fmt.Errorf("reduction size must be positive, got %d", req.Size)
	}
	if req.Size > maxChallengeSize {
		return nil, fmt.Errorf("reduction size %d exceeds challenge limit %d", req.Size, maxChallengeSize)
	}

	params := reduction.DefaultParams()
	if req.LocalSize > 0 {
		params.LocalSize = req.LocalSize
	}
	if req.GroupsMax > 0 {
		params.GroupsMax = req.GroupsMax
	}
	if req.ItemsPerThread > 0 {
		params.ItemsPerThread = req.ItemsPerThread
	}

	runner := bench.NewRunner(c.manager, log)
	rec, err := runner.Run(bench.Options{Size: req.Size, Seed: req.Seed, Params: params})
	if err != nil && !errors.Is(err, reduction.ErrMismatch) {
		log.Error("Reduction challenge failed", zap.Error(err))
		return nil, err
	}

	log.Info("Max reduction challenge complete",
		zap.Int("size", req.Size),
		zap.Bool("verified", rec.Verified))
	return rec, nil
}
