package models

// UsageSummary holds aggregate call totals for a customer.
type UsageSummary struct {
	TotalCalls   float64 `json:"total_calls"`
	TotalMinutes float64 `json:"total_minutes"`
}

// UnmarshalJSON accepts snake_case, camelCase and short key spellings.
func (u *UsageSummary) UnmarshalJSON(data []byte) error {
	*u = UsageSummary{}
	f, ok := decodeFields(data)
	if !ok {
		return nil
	}
	u.TotalCalls = f.number("total_calls", "totalCalls", "calls").Or(0)
	u.TotalMinutes = f.number("total_minutes", "totalMinutes", "minutes").Or(0)
	return nil
}

// LanguageUsage is one row of the per-language usage report.
type LanguageUsage struct {
	Language     string  `json:"language"`
	TotalCalls   float64 `json:"total_calls"`
	TotalMinutes float64 `json:"total_minutes"`
}

// UnmarshalJSON accepts the same key spellings as UsageSummary.
func (l *LanguageUsage) UnmarshalJSON(data []byte) error {
	*l = LanguageUsage{}
	f, ok := decodeFields(data)
	if !ok {
		return nil
	}
	l.Language = f.text("language").String()
	l.TotalCalls = f.number("total_calls", "totalCalls", "calls").Or(0)
	l.TotalMinutes = f.number("total_minutes", "totalMinutes", "minutes").Or(0)
	return nil
}
