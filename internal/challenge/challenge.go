package challenge

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/fxnlabs/reduction-bench/internal/challenge/challengers"
	"github.com/fxnlabs/reduction-bench/internal/device"
)

// Challenger defines the interface for a challenge.
type Challenger interface {
	Execute(payload interface{}, log *zap.Logger) (interface{}, error)
}

// Challenge represents a challenge from the scheduler.
type Challenge struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// NewChallenger creates a new challenger based on the challenge type.
func NewChallenger(challengeType string, manager *device.Manager) (Challenger, error) {
	switch challengeType {
	case "MAX_REDUCTION":
		return challengers.NewMaxReductionChallenger(manager), nil
	case "DEVICE_INFO":
		return challengers.NewDeviceInfoChallenger(manager), nil
	default:
		return nil, fmt.Errorf("unknown challenge type: %s", challengeType)
	}
}

// ChallengeHandler handles challenge requests.
func ChallengeHandler(log *zap.Logger, manager *device.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var challenge Challenge
		if err := json.NewDecoder(r.Body).Decode(&challenge); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		challenger, err := NewChallenger(challenge.Type, manager)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		result, err := challenger.Execute(challenge.Payload, log)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}
