// Package agronomy turns field and climate inputs into cotton yield
// estimates and planting advice. Nothing here touches storage or transport;
// callers persist the results.
package agronomy

import (
	"math"
	"strconv"
	"strings"
)

// Advice is one recommendation line shown next to a prediction.
// Kind is one of "success", "info" or "warning".
type Advice struct {
	Kind string `json:"kind"`
	Icon string `json:"icon"`
	Text string `json:"text"`
}

func success(icon, text string) Advice { return Advice{Kind: "success", Icon: icon, Text: text} }
func info(icon, text string) Advice    { return Advice{Kind: "info", Icon: icon, Text: text} }
func warning(icon, text string) Advice { return Advice{Kind: "warning", Icon: icon, Text: text} }

// FormatNumber prints v with the fewest digits that round-trip while keeping
// one decimal place, so 1.80 reads "1.8" and 2 reads "2.0".
func FormatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func num(v float64) string { return FormatNumber(v) }
