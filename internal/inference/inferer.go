// Package inference hides the three heterogeneous model artifacts (a
// tabular regime classifier, and two sequence classifiers for momentum and
// volatility) behind one small capability interface exposing predict_single
// and predict_sequence. The funnel composes three Inferer instances and a
// single StandardScaler, applied to the two sequence models' rows only; the
// regime model's features are not scaled. No training or autodiff lives here — artifacts are pre-trained
// weight vectors loaded from a JSON sidecar and evaluated with a plain
// logistic/soft-max pass.
package inference

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Inferer is the capability every model artifact exposes.
type Inferer interface {
	// PredictSingle scores one feature row (tabular classifiers).
	PredictSingle(features map[string]float64) (label string, err error)
	// PredictSequence scores a sequence of scaled feature rows (sequence
	// classifiers), returning the sigmoid output in [0,1].
	PredictSequence(rows [][]float64) (float64, error)
}

// Artifact is the on-disk JSON shape for a model's trained weights. Not
// every field is used by every model kind.
type Artifact struct {
	Kind string `json:"kind"` // "tabular" or "sequence"

	// Tabular: multinomial logistic regression, one weight row per label.
	Labels  []string    `json:"labels,omitempty"`
	Weights [][]float64 `json:"weights,omitempty"`
	Bias    []float64   `json:"bias,omitempty"`

	// Sequence: a single logistic unit over the flattened, scaled window.
	SeqWeights []float64 `json:"seq_weights,omitempty"`
	SeqBias    float64   `json:"seq_bias,omitempty"`

	// FeatureOrder names the features each weight column corresponds to;
	// PredictSingle looks features up by this order.
	FeatureOrder []string `json:"feature_order,omitempty"`
}

// LoadArtifact reads a JSON artifact sidecar from disk.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", path, err)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse artifact %s: %w", path, err)
	}
	return &a, nil
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func softmax(scores []float64) []float64 {
	maxV := scores[0]
	for _, s := range scores {
		if s > maxV {
			maxV = s
		}
	}
	sum := 0.0
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = math.Exp(s - maxV)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
