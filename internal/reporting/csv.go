package reporting

import (
	"fmt"
	"math"
	"strings"

	"cyber-risk-lab/internal/domain"
)

// RenderLossVectorCSV renders a loss vector as CSV string.
func RenderLossVectorCSV(losses domain.LossVector) string {
	var sb strings.Builder

	sb.WriteString("iteration,loss\n")
	for i, loss := range losses {
		sb.WriteString(fmt.Sprintf("%d,%.6f\n", i, loss))
	}

	return sb.String()
}

// RenderExceedanceCSV renders an exceedance curve as CSV string. Infinite
// return periods are written as "inf".
func RenderExceedanceCSV(curve domain.ExceedanceCurve) string {
	var sb strings.Builder

	sb.WriteString("loss_level,exceedance_probability,return_period\n")
	for i := range curve.LossLevels {
		period := "inf"
		if !math.IsInf(curve.ReturnPeriods[i], 1) {
			period = fmt.Sprintf("%.6f", curve.ReturnPeriods[i])
		}
		sb.WriteString(fmt.Sprintf("%.6f,%.6f,%s\n",
			curve.LossLevels[i], curve.ExceedanceProbabilities[i], period))
	}

	return sb.String()
}
