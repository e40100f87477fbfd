package persistence

// Storage keys, one per collection.
const (
	KeyTeacher  = "tutorledger/teacher"
	KeyStudents = "tutorledger/students"
	KeyLessons  = "tutorledger/lessons"
	KeyPayments = "tutorledger/payments"
	KeyGroups   = "tutorledger/groups"
	KeySettings = "tutorledger/settings"

	// KeyMigrated is set once the eager plaintext migration has run.
	KeyMigrated = "tutorledger/migration-v1"

	// QuarantinePrefix holds corrupt values moved aside by Get.
	QuarantinePrefix = "quarantine/"
)

// CollectionKeys lists every collection key in a stable order.
var CollectionKeys = []string{
	KeyTeacher,
	KeyStudents,
	KeyLessons,
	KeyPayments,
	KeyGroups,
	KeySettings,
}

// collectionLabel is the metric label for a key.
func collectionLabel(key string) string {
	switch key {
	case KeyTeacher:
		return "teacher"
	case KeyStudents:
		return "students"
	case KeyLessons:
		return "lessons"
	case KeyPayments:
		return "payments"
	case KeyGroups:
		return "groups"
	case KeySettings:
		return "settings"
	default:
		return "other"
	}
}
