package reporting

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const remSheet = "REM Consolidado"

// WriteExcel renders the monthly report as an xlsx workbook. Layout follows
// the paper REM form: one label column, one value column, a bold header per
// section.
func WriteExcel(w io.Writer, rep *REMReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", remSheet); err != nil {
		return err
	}
	if err := f.SetColWidth(remSheet, "B", "B", 48); err != nil {
		return err
	}

	title, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return err
	}
	section, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	italic, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Italic: true}})
	if err != nil {
		return err
	}

	row := 2
	cell := func(col string, r int) string { return fmt.Sprintf("%s%d", col, r) }
	line := func(label string, value interface{}) {
		f.SetCellValue(remSheet, cell("B", row), label)
		f.SetCellValue(remSheet, cell("C", row), value)
		row++
	}
	header := func(style int, label string) {
		f.SetCellValue(remSheet, cell("B", row), label)
		f.SetCellStyle(remSheet, cell("B", row), cell("B", row), style)
		row++
	}

	header(title, fmt.Sprintf("Reporte REM Consolidado - Periodo %s", rep.Period))
	row++

	header(section, "REM A11 - Tamizajes Madre")
	line("Tamizajes VIH Positivos", rep.A11.HIVPositive)
	line("Tamizajes VDRL Positivos", rep.A11.VDRLPositive)
	line("VDRL Positivos con Tratamiento", rep.A11.VDRLPositiveTreated)
	line("Tamizajes Hepatitis B Positivos", rep.A11.HepBPositive)
	row++

	header(section, "REM A21 - Modelo Atención Parto")
	line("Total Partos Registrados", rep.A21.TotalBirths)
	header(italic, "Desglose por Tipo de Parto:")
	for _, d := range rep.A21.ByDeliveryType {
		line("  "+d.Label, d.Count)
	}
	header(italic, "Desglose por Grupo Robson:")
	for _, d := range rep.A21.ByRobsonGroup {
		line("  "+d.Label, d.Count)
	}
	line("Partos con Acompañamiento", rep.A21.WithCompanion)
	row++

	header(section, "REM A24 - Atención Recién Nacido")
	line("Total Recién Nacidos", rep.A24.TotalNewborns)
	line("RN con Lactancia (60 min)", rep.A24.BreastfedWithin60)
	line("RN con Bajo Peso (<2500g)", rep.A24.LowWeight)
	line("RN con Apgar < 7 (5 min)", rep.A24.LowApgar5)
	line("RN con Reanimación", rep.A24.Resuscitated)
	line("Profilaxis Vitamina K", rep.A24.VitaminK)
	line("Profilaxis Oftálmica", rep.A24.OcularProphylaxis)
	row++

	header(section, "Indicadores H")
	line("Partos Verticales", rep.Indicators.VerticalDeliveries)
	line("Cesáreas Electivas", rep.Indicators.ElectiveCesareans)
	line("Cesáreas de Urgencia", rep.Indicators.EmergencyCesareans)

	_, err = f.WriteTo(w)
	return err
}
