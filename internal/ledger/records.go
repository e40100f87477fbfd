package ledger

import (
	"context"
	"fmt"
	"slices"

	"github.com/mmynk/tutorledger/internal/calculator"
	"github.com/mmynk/tutorledger/internal/models"
	"github.com/mmynk/tutorledger/internal/persistence"
)

// SaveTeacher stores the teacher profile, replacing the previous one.
func (l *Ledger) SaveTeacher(ctx context.Context, teacher models.Teacher) error {
	teacher, err := sanitize(teacher)
	if err != nil {
		return err
	}
	if err := l.check(teacher); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.state
	next.Teacher = &teacher
	if err := l.commit(ctx, next, persistence.KeyTeacher); err != nil {
		return fmt.Errorf("failed to save teacher: %w", err)
	}
	return nil
}

// AddStudent adds a student with a zero balance and no package credits.
func (l *Ledger) AddStudent(ctx context.Context, student models.Student) (models.Student, error) {
	student, err := sanitize(student)
	if err != nil {
		return models.Student{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if student.ID == "" {
		student.ID = l.newID()
	}
	if l.studentIndex(l.state.Students, student.ID) >= 0 {
		return models.Student{}, fmt.Errorf("%w: student %s", ErrDuplicateID, student.ID)
	}
	// A deleted student's lessons and payments stay as history. Reusing the
	// ID would attach that history to a student whose balance starts at zero.
	if l.hasHistory(student.ID) {
		return models.Student{}, fmt.Errorf("%w: student %s has lesson or payment history", ErrDuplicateID, student.ID)
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = l.now()
	}
	student.Balance = 0
	student.RemainingLessons = 0
	student.LessonFee = calculator.RoundMoney(student.LessonFee)

	if err := l.check(student); err != nil {
		return models.Student{}, err
	}

	next := l.state
	next.Students = append(slices.Clip(l.state.Students), student)
	if err := l.commit(ctx, next, persistence.KeyStudents); err != nil {
		return models.Student{}, fmt.Errorf("failed to save student: %w", err)
	}

	l.logger.Info("Student added", "student_id", student.ID)
	return student, nil
}

// UpdateStudent replaces a student's profile. Balance, package credits and
// creation time are owned by the ledger and keep their current values.
func (l *Ledger) UpdateStudent(ctx context.Context, student models.Student) (models.Student, error) {
	student, err := sanitize(student)
	if err != nil {
		return models.Student{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.studentIndex(l.state.Students, student.ID)
	if i < 0 {
		return models.Student{}, fmt.Errorf("%w: %s", ErrStudentNotFound, student.ID)
	}
	current := l.state.Students[i]
	student.Balance = current.Balance
	student.RemainingLessons = current.RemainingLessons
	student.CreatedAt = current.CreatedAt
	student.LessonFee = calculator.RoundMoney(student.LessonFee)

	if err := l.check(student); err != nil {
		return models.Student{}, err
	}

	next := l.state
	next.Students = slices.Clone(l.state.Students)
	next.Students[i] = student
	if err := l.commit(ctx, next, persistence.KeyStudents); err != nil {
		return models.Student{}, fmt.Errorf("failed to save student: %w", err)
	}

	l.logger.Info("Student updated", "student_id", student.ID)
	return student, nil
}

// DeleteStudent removes a student and drops its ID from every group. Lessons
// and payments stay as history.
func (l *Ledger) DeleteStudent(ctx context.Context, studentID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.studentIndex(l.state.Students, studentID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrStudentNotFound, studentID)
	}

	next := l.state
	next.Students = slices.Delete(slices.Clone(l.state.Students), i, i+1)
	next.Groups = slices.Clone(l.state.Groups)

	affected := 0
	for gi := range next.Groups {
		g := &next.Groups[gi]
		if !g.HasMember(studentID) {
			continue
		}
		g.StudentIDs = slices.DeleteFunc(slices.Clone(g.StudentIDs), func(id string) bool { return id == studentID })
		affected++
	}

	if err := l.commit(ctx, next, persistence.KeyStudents, persistence.KeyGroups); err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}

	l.logger.Info("Student deleted", "student_id", studentID, "groups_updated", affected)
	return nil
}

// AddGroup creates a group. Duplicate member IDs are dropped.
func (l *Ledger) AddGroup(ctx context.Context, group models.Group) (models.Group, error) {
	group, err := sanitize(group)
	if err != nil {
		return models.Group{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if group.ID == "" {
		group.ID = l.newID()
	}
	if l.groupIndex(l.state.Groups, group.ID) >= 0 {
		return models.Group{}, fmt.Errorf("%w: group %s", ErrDuplicateID, group.ID)
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = l.now()
	}
	group.StudentIDs = dedupe(group.StudentIDs)

	if err := l.check(group); err != nil {
		return models.Group{}, err
	}

	next := l.state
	next.Groups = append(slices.Clip(l.state.Groups), group)
	if err := l.commit(ctx, next, persistence.KeyGroups); err != nil {
		return models.Group{}, fmt.Errorf("failed to save group: %w", err)
	}

	l.logger.Info("Group created", "group_id", group.ID, "members_count", len(group.StudentIDs))
	return group, nil
}

// UpdateGroup replaces a group's name, members and schedule.
func (l *Ledger) UpdateGroup(ctx context.Context, group models.Group) (models.Group, error) {
	group, err := sanitize(group)
	if err != nil {
		return models.Group{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.groupIndex(l.state.Groups, group.ID)
	if i < 0 {
		return models.Group{}, fmt.Errorf("%w: %s", ErrGroupNotFound, group.ID)
	}
	group.CreatedAt = l.state.Groups[i].CreatedAt
	group.StudentIDs = dedupe(group.StudentIDs)

	if err := l.check(group); err != nil {
		return models.Group{}, err
	}

	next := l.state
	next.Groups = slices.Clone(l.state.Groups)
	next.Groups[i] = group
	if err := l.commit(ctx, next, persistence.KeyGroups); err != nil {
		return models.Group{}, fmt.Errorf("failed to save group: %w", err)
	}

	l.logger.Info("Group updated", "group_id", group.ID)
	return group, nil
}

// DeleteGroup removes a group. Its students are untouched.
func (l *Ledger) DeleteGroup(ctx context.Context, groupID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.groupIndex(l.state.Groups, groupID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
	}

	next := l.state
	next.Groups = slices.Delete(slices.Clone(l.state.Groups), i, i+1)
	if err := l.commit(ctx, next, persistence.KeyGroups); err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}

	l.logger.Info("Group deleted", "group_id", groupID)
	return nil
}

// UpdateSettings merges patch into the current settings.
func (l *Ledger) UpdateSettings(ctx context.Context, patch models.SettingsPatch) (models.Settings, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	settings, err := sanitize(patch.Apply(l.state.Settings))
	if err != nil {
		return models.Settings{}, err
	}

	next := l.state
	next.Settings = settings
	for _, slot := range next.Settings.Availability {
		if err := l.check(slot); err != nil {
			return models.Settings{}, err
		}
	}

	if err := l.commit(ctx, next, persistence.KeySettings); err != nil {
		return models.Settings{}, fmt.Errorf("failed to save settings: %w", err)
	}
	return next.Settings, nil
}

// hasHistory reports whether any lesson or payment belongs to studentID.
func (l *Ledger) hasHistory(studentID string) bool {
	return slices.ContainsFunc(l.state.Lessons, func(x models.Lesson) bool { return x.StudentID == studentID }) ||
		slices.ContainsFunc(l.state.Payments, func(p models.Payment) bool { return p.StudentID == studentID })
}

// dedupe drops repeated IDs, keeping first occurrences in order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
