package catalog

import (
	"time"

	"github.com/iwvelando/procurement-planner/internal/models"
	"go.uber.org/zap/zapcore"
)

// BucketStats summarizes a synthesized bucket sequence.
type BucketStats struct {
	Total  int `json:"total"`
	Unique int `json:"unique"`
	Min    int `json:"min"`
	Max    int `json:"max"`
}

// NewBucketStats counts values, distinct values and the extremes.
func NewBucketStats(values []int) BucketStats {
	if len(values) == 0 {
		return BucketStats{}
	}
	seen := make(map[int]struct{}, len(values))
	s := BucketStats{Total: len(values), Min: values[0], Max: values[0]}
	for _, v := range values {
		seen[v] = struct{}{}
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	s.Unique = len(seen)
	return s
}

// MarshalLogObject lets bucket summaries be logged with zap.Object.
func (s BucketStats) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("total", s.Total)
	enc.AddInt("unique", s.Unique)
	enc.AddInt("min", s.Min)
	enc.AddInt("max", s.Max)
	return nil
}

// Stats are diagnostic histograms of a generation run. They never influence
// the generated candidates.
type Stats struct {
	PriceBuckets   BucketStats                `json:"priceBuckets"`
	SizeBuckets    BucketStats                `json:"sizeBuckets"`
	Combinations   int                        `json:"combinations"`
	TransitCounts  map[models.TransitMode]int `json:"transitCounts"`
	UnboundedStock int                        `json:"unboundedStock"`
	Elapsed        time.Duration              `json:"elapsed"`
}

func (s *Stats) accumulate(candidates []Candidate) {
	s.TransitCounts = make(map[models.TransitMode]int, len(models.TransitModes))
	for _, mode := range models.TransitModes {
		s.TransitCounts[mode] = 0
	}
	for i := range candidates {
		s.TransitCounts[candidates[i].Transit]++
		if candidates[i].Stock.IsUnbounded() {
			s.UnboundedStock++
		}
	}
}
