package models

// Teacher is the singleton profile of the tutor.
// It is created on onboarding and overwritten on every profile save.
type Teacher struct {
	// Name is the tutor's full name.
	Name string `json:"name" validate:"required"`

	// Subject is the tutor's subject or specialty.
	Subject string `json:"subject"`

	// ThemeColor is an optional UI accent color (e.g., "#4F46E5").
	ThemeColor string `json:"themeColor,omitempty"`
}
