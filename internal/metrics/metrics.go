// Package metrics fabricates per-machine host metrics. Values are a pure
// function of (machine id, time bucket), so every caller polling within the
// same bucket sees the same numbers.
package metrics

import (
	"hash/fnv"
	"math"
	"math/rand/v2"
	"time"

	"wincvex/internal/model"
)

const DefaultBucket = 5 * time.Second

var memSizesGB = []float64{8, 16, 32, 64}

type Generator struct {
	bucket time.Duration
	now    func() time.Time
}

func NewGenerator(bucket time.Duration) *Generator {
	if bucket <= 0 {
		bucket = DefaultBucket
	}
	return &Generator{bucket: bucket, now: time.Now}
}

func (g *Generator) Get(machineID string) model.Metrics {
	return g.At(machineID, g.now())
}

// At computes the metrics for the bucket containing t.
func (g *Generator) At(machineID string, t time.Time) model.Metrics {
	machineSeed := seedOf(machineID)
	bucket := uint64(t.UnixNano() / int64(g.bucket))

	// Memory size is a property of the machine, not of the moment.
	total := memSizesGB[machineSeed%uint64(len(memSizesGB))]

	r := rand.New(rand.NewPCG(machineSeed, bucket))
	return model.Metrics{
		CPUPct:     round(r.Float64()*100, 1),
		MemUsedGB:  round(total*(0.1+0.8*r.Float64()), 2),
		MemTotalGB: total,
		NetKbps:    round(r.Float64()*5000, 1),
	}
}

func seedOf(machineID string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(machineID))
	return h.Sum64()
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
