package verify

import (
	"fmt"
	"strconv"
	"time"

	"github.com/driftcast/driftcast/pkg/cube"
	"github.com/driftcast/driftcast/pkg/metrics"
)

// assignAttrs stamps a skill cube with the provenance of the computation:
// the source attributes, the metric and comparison used, the reduced
// dimension, the ensemble shape, and a creation timestamp. The units
// attribute is rewritten by the metric's unit power: power 0 clears the
// units (skill scores are dimensionless), power 1 keeps them, higher
// powers wrap them as (units)^p.
func assignAttrs(skill, src *cube.Cube, fn string, m *metrics.Metric, comparison, dim string) *cube.Cube {
	skill.SetAttrs(src.Attrs())

	skill.SetAttr("skill_calculated_by_function", fn)
	skill.SetAttr("metric", m.Name)
	skill.SetAttr("comparison", comparison)
	skill.SetAttr("dim", dim)
	skill.SetAttr("created", time.Now().UTC().Format(time.RFC3339))

	if src.HasDim(InitDim) {
		skill.SetAttr("number_of_initializations", strconv.Itoa(src.Len(InitDim)))
	}
	if src.HasDim("member") {
		skill.SetAttr("number_of_members", strconv.Itoa(src.Len("member")))
	}

	units, _ := src.Attr("units")
	switch {
	case m.UnitPower == 0:
		skill.SetAttr("units", "None")
	case m.UnitPower >= 2 && units != "":
		skill.SetAttr("units", fmt.Sprintf("(%s)^%d", units, m.UnitPower))
	case units != "":
		skill.SetAttr("units", units)
	}
	return skill
}
