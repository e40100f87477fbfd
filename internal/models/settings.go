package models

// Settings holds app-wide preferences. It is a singleton.
type Settings struct {
	// Currency is the symbol prefixed to amounts (e.g., "$").
	Currency string `json:"currency"`

	// Category is the instruction category (e.g., "music", "languages").
	Category string `json:"category"`

	// Language is the UI language code.
	Language string `json:"language"`

	// BlockedSlots are calendar slots the tutor is unavailable.
	BlockedSlots []CalendarSlot `json:"blockedSlots"`

	// Availability is the recurring weekly availability.
	Availability []ScheduleSlot `json:"availability"`

	// DefaultMeetingLink is used when a student has no link of their own.
	DefaultMeetingLink string `json:"defaultMeetingLink"`
}

// CalendarSlot is a single dated time slot.
type CalendarSlot struct {
	// Date is a calendar day in "YYYY-MM-DD" form.
	Date string `json:"date"`
	// Time is "HH:MM".
	Time string `json:"time"`
}

// DefaultSettings returns the settings used before the tutor changes anything.
func DefaultSettings() Settings {
	return Settings{
		Currency:     "$",
		Category:     "general",
		Language:     "en",
		BlockedSlots: []CalendarSlot{},
		Availability: []ScheduleSlot{},
	}
}

// SettingsPatch is a partial settings update. Nil fields are left unchanged.
type SettingsPatch struct {
	Currency           *string         `json:"currency,omitempty"`
	Category           *string         `json:"category,omitempty"`
	Language           *string         `json:"language,omitempty"`
	BlockedSlots       *[]CalendarSlot `json:"blockedSlots,omitempty"`
	Availability       *[]ScheduleSlot `json:"availability,omitempty"`
	DefaultMeetingLink *string         `json:"defaultMeetingLink,omitempty"`
}

// Apply merges the patch into s.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.Currency != nil {
		s.Currency = *p.Currency
	}
	if p.Category != nil {
		s.Category = *p.Category
	}
	if p.Language != nil {
		s.Language = *p.Language
	}
	if p.BlockedSlots != nil {
		s.BlockedSlots = append([]CalendarSlot(nil), (*p.BlockedSlots)...)
	}
	if p.Availability != nil {
		s.Availability = append([]ScheduleSlot(nil), (*p.Availability)...)
	}
	if p.DefaultMeetingLink != nil {
		s.DefaultMeetingLink = *p.DefaultMeetingLink
	}
	return s
}
