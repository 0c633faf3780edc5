package forest

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// Metrics are held-out evaluation scores recorded at training time.
type Metrics struct {
	TestR2   float64 `json:"test_r2"`
	TestRMSE float64 `json:"test_rmse"`
}

// Metadata accompanies the geographic model artifact.
type Metadata struct {
	Version            string             `json:"version"`
	PerformanceMetrics map[string]Metrics `json:"performance_metrics"`
	SoilClasses        []string           `json:"soil_classes"`
}

const geographicKey = "model_b_geographic"

var (
	defaultGeographicMetrics = Metrics{TestR2: 0.621, TestRMSE: 0.772}
	defaultSoilClasses       = []string{"Red", "Black", "Alluvial", "Laterite", "Mixed"}
)

// DefaultMetadata is used when no metadata artifact is available.
func DefaultMetadata() *Metadata {
	return &Metadata{
		Version:            "unknown",
		PerformanceMetrics: map[string]Metrics{geographicKey: defaultGeographicMetrics},
		SoilClasses:        append([]string(nil), defaultSoilClasses...),
	}
}

func DecodeMetadata(r io.Reader) (*Metadata, error) {
	m := &Metadata{}
	if err := json.NewDecoder(r).Decode(m); err != nil {
		return nil, fmt.Errorf("%w: metadata: %v", ErrInvalidModel, err)
	}
	if len(m.SoilClasses) == 0 {
		m.SoilClasses = append([]string(nil), defaultSoilClasses...)
	}
	return m, nil
}

// GeographicMetrics returns the geographic model scores, falling back to the
// published defaults when a value is missing.
func (m *Metadata) GeographicMetrics() Metrics {
	got, ok := m.PerformanceMetrics[geographicKey]
	if !ok {
		return defaultGeographicMetrics
	}
	if got.TestR2 == 0 {
		got.TestR2 = defaultGeographicMetrics.TestR2
	}
	if got.TestRMSE == 0 {
		got.TestRMSE = defaultGeographicMetrics.TestRMSE
	}
	return got
}

// SoilIndex label-encodes a soil type by its position in SoilClasses.
func (m *Metadata) SoilIndex(soil string) (int, bool) {
	for i, s := range m.SoilClasses {
		if s == soil {
			return i, true
		}
	}
	return 0, false
}
