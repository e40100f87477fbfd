package models

// Dataset is the full portable data set: everything except settings.
type Dataset struct {
	Teacher  *Teacher  `json:"teacher"`
	Students []Student `json:"students"`
	Lessons  []Lesson  `json:"lessons"`
	Payments []Payment `json:"payments"`
	Groups   []Group   `json:"groups"`
}
