package reporting

// Prophylaxis catalog codes counted by the statistical reports. Catalog
// values carry the code as a prefix ("VITK (Vitamina K)"), so lookups match
// on the prefix rather than the full value.
const (
	ProphylaxisHepB     = "VHB"
	ProphylaxisVitaminK = "VITK"
	ProphylaxisOcular   = "POF"
)

// CountByLabel is one row of a dynamic breakdown, e.g. births per delivery
// type or per Robson group.
type CountByLabel struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// REMA11 covers the maternal screening section of the monthly REM.
type REMA11 struct {
	HIVPositive         int `json:"hiv_positive"`
	VDRLPositive        int `json:"vdrl_positive"`
	VDRLPositiveTreated int `json:"vdrl_positive_treated"`
	HepBPositive        int `json:"hepb_positive"`
}

// REMA21 covers the delivery section of the monthly REM.
type REMA21 struct {
	TotalBirths    int            `json:"total_births"`
	ByDeliveryType []CountByLabel `json:"by_delivery_type"`
	ByRobsonGroup  []CountByLabel `json:"by_robson_group"`
	WithCompanion  int            `json:"with_companion"`
}

// REMA24 covers the newborn section of the monthly REM.
type REMA24 struct {
	TotalNewborns     int `json:"total_newborns"`
	BreastfedWithin60 int `json:"breastfed_within_60min"`
	LowWeight         int `json:"low_weight"`
	LowApgar5         int `json:"low_apgar5"`
	Resuscitated      int `json:"resuscitated"`
	VitaminK          int `json:"vitamin_k"`
	OcularProphylaxis int `json:"ocular_prophylaxis"`
}

// Indicators are the H-series quality indicators appended to the REM.
type Indicators struct {
	VerticalDeliveries int `json:"vertical_deliveries"`
	ElectiveCesareans  int `json:"elective_cesareans"`
	EmergencyCesareans int `json:"emergency_cesareans"`
}

// REMReport is the consolidated monthly statistical report. It is recomputed
// from scratch on every request.
type REMReport struct {
	Period     string     `json:"period"`
	Year       int        `json:"year"`
	Month      int        `json:"month"`
	A11        REMA11     `json:"rem_a11"`
	A21        REMA21     `json:"rem_a21"`
	A24        REMA24     `json:"rem_a24"`
	Indicators Indicators `json:"indicators"`
}

// AgeBands groups births of a period by the mother's age at delivery.
type AgeBands struct {
	Under15    int `json:"under_15"`
	From15To19 int `json:"from_15_to_19"`
	From20To34 int `json:"from_20_to_34"`
	Over35     int `json:"over_35"`
}

// MonthCount is one bar of the quarterly births chart.
type MonthCount struct {
	Month int    `json:"month"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// QuarterlyReport is the health-service quarterly summary.
type QuarterlyReport struct {
	Period            string       `json:"period"`
	Year              int          `json:"year"`
	Quarter           int          `json:"quarter"`
	TotalBirths       int          `json:"total_births"`
	HepBCompliancePct float64      `json:"hepb_compliance_pct"`
	BirthsPerMonth    []MonthCount `json:"births_per_month"`
	MaternalAgeBands  AgeBands     `json:"maternal_age_bands"`
}

// Check severities, worst first.
const (
	SeverityCritical = "critico"
	SeverityError    = "error"
	SeverityWarning  = "advertencia"
)

// Check is one consistency rule evaluated over the whole dataset.
type Check struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Count       int    `json:"count"`
	Severity    string `json:"severity"`
}

// QualityReport is the consistency-check battery. Checks with a zero count
// are omitted; the totals aggregate by severity.
type QualityReport struct {
	TotalErrors   int     `json:"total_errors"`
	TotalWarnings int     `json:"total_warnings"`
	Checks        []Check `json:"checks"`
}
