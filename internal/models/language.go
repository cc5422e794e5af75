package models

// LanguageAvailability reports whether interpreters are currently available for a language.
type LanguageAvailability struct {
	Language  string  `json:"language"`
	Available float64 `json:"available_interpreters"`
	Status    string  `json:"status,omitempty"`
}

// UnmarshalJSON tolerates the different spellings used by availability endpoints.
func (l *LanguageAvailability) UnmarshalJSON(data []byte) error {
	*l = LanguageAvailability{}
	f, ok := decodeFields(data)
	if !ok {
		return nil
	}
	l.Language = f.text("language", "language_name", "name").String()
	l.Available = f.number("available_interpreters", "availableInterpreters", "available", "count").Or(0)
	l.Status = f.text("status", "availability").String()
	return nil
}

// IsAvailable reports whether at least one interpreter can take a call.
func (l LanguageAvailability) IsAvailable() bool {
	if l.Status != "" {
		switch l.Status {
		case "available", "online", "true", "1":
			return true
		default:
			return l.Available > 0
		}
	}
	return l.Available > 0
}
