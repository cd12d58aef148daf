// Package datasets ships small deterministic example datasets for demos
// and tests. The series are synthetic: a smooth multi-decadal oscillation
// with reproducible noise, shaped like typical annual-mean sea surface
// temperature diagnostics. No network access is involved.
package datasets

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/driftcast/driftcast/pkg/cube"
)

// ErrUnknownDataset marks a dataset name absent from the catalog.
var ErrUnknownDataset = errors.New("unknown dataset")

const (
	// PMEnsemble is a perfect-model initialized ensemble (init × lead ×
	// member) with a numeric year init axis.
	PMEnsemble = "pm-tos-1d"
	// PMControl is the control run the perfect-model ensemble was drawn
	// from (annual time axis).
	PMControl = "control-tos-1d"
	// HindcastEnsemble is a hindcast ensemble (calendar init × lead ×
	// member).
	HindcastEnsemble = "hindcast-sst"
	// HindcastReference is the observational reference for the hindcast
	// ensemble (annual time axis).
	HindcastReference = "reference-sst"
)

var builders = map[string]func() *cube.Cube{
	PMEnsemble:        pmEnsemble,
	PMControl:         pmControl,
	HindcastEnsemble:  hindcastEnsemble,
	HindcastReference: hindcastReference,
}

// Load returns the named example dataset. The same name always returns
// the same data.
func Load(name string) (*cube.Cube, error) {
	b, ok := builders[name]
	if !ok {
		return nil, fmt.Errorf("%w %q: available datasets are %s",
			ErrUnknownDataset, name, strings.Join(Names(), ", "))
	}
	return b(), nil
}

// Names lists the available dataset names, sorted.
func Names() []string {
	out := make([]string, 0, len(builders))
	for name := range builders {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

const (
	controlFirstYear = 1950
	controlYears     = 60
	pmFirstInit      = 1955
	pmInits          = 12
	pmLeads          = 10
	pmMembers        = 10
)

// signal is the shared low-frequency oscillation all series are built
// around: period 20 years, amplitude 3.
func signal(year int) float64 {
	t := float64(year - controlFirstYear)
	return 3 * math.Sin(2*math.Pi*t/20)
}

func annualTimes(first, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = time.Date(first+i, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return out
}

// controlValues is the control run sampled once per year: signal plus
// unit-variance weather noise from a fixed seed.
func controlValues() []float64 {
	rng := rand.New(rand.NewSource(1))
	out := make([]float64, controlYears)
	for i := range out {
		out[i] = signal(controlFirstYear+i) + rng.NormFloat64()
	}
	return out
}

func pmControl() *cube.Cube {
	c := cube.MustNew(controlValues(), cube.TimeAxis("time", annualTimes(controlFirstYear, controlYears)))
	c.SetAttr("units", "C")
	return c
}

// pmEnsemble drifts members off the control's future state with small
// perturbations, so the ensemble carries real predictability out to long
// leads. The init axis is numeric years on purpose: it exercises the
// annual-resolution normalization most archived decadal experiments need.
func pmEnsemble() *cube.Cube {
	ctrl := controlValues()
	rng := rand.New(rand.NewSource(2))

	data := make([]float64, 0, pmInits*pmLeads*pmMembers)
	initYears := make([]float64, pmInits)
	for i := 0; i < pmInits; i++ {
		initYears[i] = float64(pmFirstInit + i)
		for l := 1; l <= pmLeads; l++ {
			truth := ctrl[pmFirstInit-controlFirstYear+i+l]
			for m := 0; m < pmMembers; m++ {
				data = append(data, truth+0.05*rng.NormFloat64())
			}
		}
	}

	leadAx := cube.NumAxis("lead", leadValues(pmLeads))
	leadAx.Units = "years"
	c := cube.MustNew(data,
		cube.NumAxis("init", initYears),
		leadAx,
		cube.NumAxis("member", leadValues(pmMembers)),
	)
	c.SetAttr("units", "C")
	return c
}

// hindcastReference is the observational series: the shared signal with a
// weak warming trend and its own noise.
func hindcastReference() *cube.Cube {
	rng := rand.New(rand.NewSource(3))
	data := make([]float64, controlYears)
	for i := range data {
		data[i] = signal(controlFirstYear+i) + 0.02*float64(i) + 0.5*rng.NormFloat64()
	}
	c := cube.MustNew(data, cube.TimeAxis("time", annualTimes(controlFirstYear, controlYears)))
	c.SetAttr("units", "C")
	return c
}

// hindcastEnsemble tracks the reference with skill that decays with lead:
// member spread grows from 0.2 at lead 1 toward the reference's own
// variability at lead 10.
func hindcastEnsemble() *cube.Cube {
	ref := hindcastReference()
	refData := ref.Data()
	rng := rand.New(rand.NewSource(4))

	data := make([]float64, 0, pmInits*pmLeads*pmMembers)
	for i := 0; i < pmInits; i++ {
		for l := 1; l <= pmLeads; l++ {
			truth := refData[pmFirstInit-controlFirstYear+i+l]
			spread := 0.2 + 0.1*float64(l-1)
			for m := 0; m < pmMembers; m++ {
				data = append(data, truth+spread*rng.NormFloat64())
			}
		}
	}

	leadAx := cube.NumAxis("lead", leadValues(pmLeads))
	leadAx.Units = "years"
	c := cube.MustNew(data,
		cube.TimeAxis("init", annualTimes(pmFirstInit, pmInits)),
		leadAx,
		cube.NumAxis("member", leadValues(pmMembers)),
	)
	c.SetAttr("units", "C")
	return c
}

// leadValues returns [1, 2, ..., n].
func leadValues(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}
