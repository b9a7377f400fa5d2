package reporting

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

// WritePDF renders the monthly report as a single-page PDF mirroring the
// xlsx layout. The core PDF fonts are cp1252, so every string goes through
// the unicode translator to keep the Spanish labels intact.
func WritePDF(w io.Writer, rep *REMReport) error {
	pdf := fpdf.New("P", "mm", "Letter", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, tr(fmt.Sprintf("Reporte REM Consolidado - Periodo %s", rep.Period)),
		"", 1, "L", false, 0, "")
	pdf.Ln(2)

	title := func(label string) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, tr(label), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
	}
	line := func(label string, value int) {
		pdf.CellFormat(120, 6, tr(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, fmt.Sprintf("%d", value), "", 1, "R", false, 0, "")
	}
	indented := func(label string, value int) {
		pdf.CellFormat(8, 6, "", "", 0, "L", false, 0, "")
		pdf.CellFormat(112, 6, tr(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, fmt.Sprintf("%d", value), "", 1, "R", false, 0, "")
	}

	title("REM A11 - Tamizajes Madre")
	line("Tamizajes VIH Positivos", rep.A11.HIVPositive)
	line("Tamizajes VDRL Positivos", rep.A11.VDRLPositive)
	line("VDRL Positivos con Tratamiento", rep.A11.VDRLPositiveTreated)
	line("Tamizajes Hepatitis B Positivos", rep.A11.HepBPositive)
	pdf.Ln(3)

	title("REM A21 - Modelo Atención Parto")
	line("Total Partos Registrados", rep.A21.TotalBirths)
	pdf.CellFormat(0, 6, tr("Desglose por Tipo de Parto:"), "", 1, "L", false, 0, "")
	for _, d := range rep.A21.ByDeliveryType {
		indented(d.Label, d.Count)
	}
	pdf.CellFormat(0, 6, tr("Desglose por Grupo Robson:"), "", 1, "L", false, 0, "")
	for _, d := range rep.A21.ByRobsonGroup {
		indented(d.Label, d.Count)
	}
	line("Partos con Acompañamiento", rep.A21.WithCompanion)
	pdf.Ln(3)

	title("REM A24 - Atención Recién Nacido")
	line("Total Recién Nacidos", rep.A24.TotalNewborns)
	line("RN con Lactancia (60 min)", rep.A24.BreastfedWithin60)
	line("RN con Bajo Peso (<2500g)", rep.A24.LowWeight)
	line("RN con Apgar < 7 (5 min)", rep.A24.LowApgar5)
	line("RN con Reanimación", rep.A24.Resuscitated)
	line("Profilaxis Vitamina K", rep.A24.VitaminK)
	line("Profilaxis Oftálmica", rep.A24.OcularProphylaxis)
	pdf.Ln(3)

	title("Indicadores H")
	line("Partos Verticales", rep.Indicators.VerticalDeliveries)
	line("Cesáreas Electivas", rep.Indicators.ElectiveCesareans)
	line("Cesáreas de Urgencia", rep.Indicators.EmergencyCesareans)

	return pdf.Output(w)
}
