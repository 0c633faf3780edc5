// Package forest evaluates tree-ensemble regression models exported as JSON.
//
// An artifact looks like:
//
//	{"feature_names": ["temp_c", ...],
//	 "trees": [{"nodes": [{"feature": 0, "threshold": 24.5, "left": 1, "right": 2},
//	                      {"left": -1, "right": -1, "value": 1.8}, ...]}]}
//
// Node 0 is the root. A node whose left child is -1 is a leaf. Samples with
// x[feature] <= threshold descend left. The ensemble prediction is the mean
// of the tree outputs, matching a random forest regressor.
package forest

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/goccy/go-json"
)

var (
	ErrInvalidModel = errors.New("invalid model artifact")
	ErrFeatureCount = errors.New("feature count mismatch")
)

const leaf = -1

type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

type Forest struct {
	FeatureNames []string `json:"feature_names"`
	Trees        []Tree   `json:"trees"`
}

// Decode reads and validates a forest artifact.
func Decode(r io.Reader) (*Forest, error) {
	f := &Forest{}
	if err := json.NewDecoder(r).Decode(f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks that every child index and feature index is in range.
func (f *Forest) Validate() error {
	if len(f.FeatureNames) == 0 {
		return fmt.Errorf("%w: no feature names", ErrInvalidModel)
	}
	if len(f.Trees) == 0 {
		return fmt.Errorf("%w: no trees", ErrInvalidModel)
	}
	for ti, t := range f.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("%w: tree %d is empty", ErrInvalidModel, ti)
		}
		for ni, n := range t.Nodes {
			if n.Left == leaf {
				continue
			}
			if n.Feature < 0 || n.Feature >= len(f.FeatureNames) {
				return fmt.Errorf("%w: tree %d node %d feature %d", ErrInvalidModel, ti, ni, n.Feature)
			}
			// Children always follow their parent, which also rules out cycles.
			if n.Left <= ni || n.Left >= len(t.Nodes) || n.Right <= ni || n.Right >= len(t.Nodes) {
				return fmt.Errorf("%w: tree %d node %d children", ErrInvalidModel, ti, ni)
			}
		}
	}
	return nil
}

// NumFeatures is the expected length of a feature vector.
func (f *Forest) NumFeatures() int {
	return len(f.FeatureNames)
}

func (t *Tree) eval(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Left == leaf {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// TreePredictions returns every tree's output for x.
func (f *Forest) TreePredictions(x []float64) ([]float64, error) {
	if len(x) != len(f.FeatureNames) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrFeatureCount, len(x), len(f.FeatureNames))
	}
	out := make([]float64, len(f.Trees))
	for i := range f.Trees {
		out[i] = f.Trees[i].eval(x)
	}
	return out, nil
}

// Predict returns the mean tree output for x.
func (f *Forest) Predict(x []float64) (float64, error) {
	preds, err := f.TreePredictions(x)
	if err != nil {
		return 0, err
	}
	mean, _ := MeanStd(preds)
	return mean, nil
}

// MeanStd returns the mean and population standard deviation of v.
func MeanStd(v []float64) (mean, std float64) {
	if len(v) == 0 {
		return 0, 0
	}
	for _, x := range v {
		mean += x
	}
	mean /= float64(len(v))
	for _, x := range v {
		std += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(std / float64(len(v)))
}
