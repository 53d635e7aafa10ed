package service

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"telemetrygen/internal/models"

	"github.com/jonboulle/clockwork"
)

const (
	MinVoltage = 3.2
	MaxVoltage = 12.6
	MinTemp    = -50.0
	MaxTemp    = 80.0

	MaxBatchSize = 10

	filenameLayout = "20060102_150405"
)

// Rand is the source of randomness for record generation. *rand.Rand
// from math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// NewRand returns a deterministic generator for the given seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// RecordGenerator fabricates synthetic telemetry records.
type RecordGenerator struct {
	rnd   Rand
	clock clockwork.Clock
}

func NewRecordGenerator(rnd Rand, clock clockwork.Clock) *RecordGenerator {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RecordGenerator{rnd: rnd, clock: clock}
}

// GenerateRecord produces one record stamped with the current time. Its
// source file is provisional until the batch assigns the shared name.
func (g *RecordGenerator) GenerateRecord() models.TelemetryRecord {
	now := g.clock.Now().UTC()

	return models.TelemetryRecord{
		RecordedAt:  now,
		Voltage:     g.randFloat(MinVoltage, MaxVoltage),
		Temp:        g.randFloat(MinTemp, MaxTemp),
		Operational: g.rnd.IntN(2) == 1,
		SourceFile:  BatchFilename(now),
		Status:      models.AllStatuses[g.rnd.IntN(len(models.AllStatuses))],
	}
}

// GenerateBatch produces between 1 and MaxBatchSize records that all carry
// the filename derived from the first record's timestamp.
func (g *RecordGenerator) GenerateBatch() ([]models.TelemetryRecord, string) {
	count := g.rnd.IntN(MaxBatchSize) + 1

	records := make([]models.TelemetryRecord, 0, count)
	for i := 0; i < count; i++ {
		records = append(records, g.GenerateRecord())
	}

	filename := BatchFilename(records[0].RecordedAt)
	for i := range records {
		records[i].SourceFile = filename
	}

	return records, filename
}

func (g *RecordGenerator) randFloat(min, max float64) float64 {
	return round2(min + g.rnd.Float64()*(max-min))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// BatchFilename returns telemetry_<YYYYMMDD_HHMMSS>.csv for t.
func BatchFilename(t time.Time) string {
	return fmt.Sprintf("telemetry_%s.csv", t.Format(filenameLayout))
}

// ExcelFilename swaps the .csv extension of a batch filename for .xlsx.
func ExcelFilename(csvName string) string {
	return strings.TrimSuffix(csvName, ".csv") + ".xlsx"
}
