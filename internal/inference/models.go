package inference

import (
	"encoding/json"
	"fmt"
	"os"
)

// RegimeModel is the tabular regime classifier: single-row features in,
// one of a trained label set out (e.g. Bull_Market_2021, Bear_Market_2022).
type RegimeModel struct {
	artifact *Artifact
}

// NewRegimeModel wraps a loaded tabular artifact.
func NewRegimeModel(a *Artifact) *RegimeModel {
	return &RegimeModel{artifact: a}
}

func (m *RegimeModel) PredictSingle(features map[string]float64) (string, error) {
	if len(m.artifact.Labels) == 0 || len(m.artifact.Weights) != len(m.artifact.Labels) {
		return "", fmt.Errorf("regime artifact malformed: %d labels, %d weight rows", len(m.artifact.Labels), len(m.artifact.Weights))
	}

	x := make([]float64, len(m.artifact.FeatureOrder))
	for i, name := range m.artifact.FeatureOrder {
		x[i] = features[name]
	}

	scores := make([]float64, len(m.artifact.Labels))
	for li, w := range m.artifact.Weights {
		score := 0.0
		for i := 0; i < len(w) && i < len(x); i++ {
			score += w[i] * x[i]
		}
		if li < len(m.artifact.Bias) {
			score += m.artifact.Bias[li]
		}
		scores[li] = score
	}

	probs := softmax(scores)
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return m.artifact.Labels[best], nil
}

func (m *RegimeModel) PredictSequence(rows [][]float64) (float64, error) {
	return 0, fmt.Errorf("regime model does not support sequence prediction")
}

// SequenceModel is a single logistic unit over a flattened, scaled window,
// used for both the momentum (120-row) and volatility (48-row) classifiers.
type SequenceModel struct {
	artifact *Artifact
}

// NewSequenceModel wraps a loaded sequence artifact.
func NewSequenceModel(a *Artifact) *SequenceModel {
	return &SequenceModel{artifact: a}
}

func (m *SequenceModel) PredictSingle(features map[string]float64) (string, error) {
	return "", fmt.Errorf("sequence model does not support single-row prediction")
}

func (m *SequenceModel) PredictSequence(rows [][]float64) (float64, error) {
	flat := make([]float64, 0, len(rows)*len(m.artifact.FeatureOrder))
	for _, row := range rows {
		flat = append(flat, row...)
	}
	if len(flat) != len(m.artifact.SeqWeights) {
		return 0, fmt.Errorf("sequence artifact expects %d inputs, got %d", len(m.artifact.SeqWeights), len(flat))
	}

	score := m.artifact.SeqBias
	for i, w := range m.artifact.SeqWeights {
		score += w * flat[i]
	}
	return sigmoid(score), nil
}

// StandardScaler normalizes features with a per-feature mean/scale,
// matching a scikit-learn-trained StandardScaler sidecar.
type StandardScaler struct {
	Mean  map[string]float64 `json:"mean"`
	Scale map[string]float64 `json:"scale"`
}

// LoadScaler reads a scaler sidecar from disk.
func LoadScaler(path string) (*StandardScaler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scaler %s: %w", path, err)
	}
	var s StandardScaler
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scaler %s: %w", path, err)
	}
	return &s, nil
}

// Transform scales one feature row, returning a new map; the input map is
// left unchanged.
func (s *StandardScaler) Transform(features map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(features))
	for k, v := range features {
		mean := s.Mean[k]
		scale := s.Scale[k]
		if scale == 0 {
			scale = 1
		}
		out[k] = (v - mean) / scale
	}
	return out
}

// TransformRow scales a feature vector using the feature order, returning
// a plain slice ready to feed into PredictSequence.
func (s *StandardScaler) TransformRow(order []string, values []float64) []float64 {
	out := make([]float64, len(values))
	for i, name := range order {
		mean := s.Mean[name]
		scale := s.Scale[name]
		if scale == 0 {
			scale = 1
		}
		out[i] = (values[i] - mean) / scale
	}
	return out
}
