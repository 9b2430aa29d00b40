package mvk

// Annex I Article 3 thresholds, in percent of voting rights (capital when
// votes are not recorded).
const (
	linkedThreshold  = 50.0
	partnerThreshold = 25.0
)

// linkedControl reports whether a holding confers majority control.
func linkedControl(percent float64) bool {
	return percent > linkedThreshold
}

// partnerHolding reports whether a holding is a partner stake: at least a
// quarter and at most half. Anything below 25% is ignored entirely.
func partnerHolding(percent float64) bool {
	return percent >= partnerThreshold && percent <= linkedThreshold
}

// Annex I Article 2 ceilings, EUR.
const (
	microStaffCeiling  = 10
	microFinanceCap    = 2_000_000
	smallStaffCeiling  = 50
	smallFinanceCap    = 10_000_000
	mediumStaffCeiling = 250
	mediumTurnoverCap  = 50_000_000
	mediumBalanceCap   = 43_000_000
)

// categoryFor determines the size category from aggregated figures. The
// staff ceiling is decisive; of the two financial ceilings meeting either
// one suffices.
func categoryFor(f Figures) string {
	switch {
	case f.Employees < microStaffCeiling && (f.Turnover <= microFinanceCap || f.Balance <= microFinanceCap):
		return CategoryMicro
	case f.Employees < smallStaffCeiling && (f.Turnover <= smallFinanceCap || f.Balance <= smallFinanceCap):
		return CategorySmall
	case f.Employees < mediumStaffCeiling && (f.Turnover <= mediumTurnoverCap || f.Balance <= mediumBalanceCap):
		return CategoryMedium
	default:
		return CategoryLarge
	}
}

// effectiveCategory applies the Article 4(2) two-period rule: a change of
// category only takes effect when confirmed over two consecutive closed
// years. Without a previous year the raw category stands.
func effectiveCategory(raw string, previous *string) string {
	if previous == nil || *previous == raw {
		return raw
	}
	return *previous
}
