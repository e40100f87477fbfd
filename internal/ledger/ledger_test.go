package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mmynk/tutorledger/internal/codec"
	"github.com/mmynk/tutorledger/internal/models"
	"github.com/mmynk/tutorledger/internal/persistence"
	"github.com/mmynk/tutorledger/internal/storage/sqlite"
)

// recordingRepo counts saves and can be told to fail them.
type recordingRepo struct {
	Repository
	mu    sync.Mutex
	saves [][]string
	fail  bool
}

func (r *recordingRepo) SaveMany(ctx context.Context, values map[string]any) error {
	r.mu.Lock()
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	r.saves = append(r.saves, keys)
	fail := r.fail
	r.mu.Unlock()

	if fail {
		return errors.New("disk full")
	}
	return r.Repository.SaveMany(ctx, values)
}

type testEnv struct {
	ledger *Ledger
	repo   *recordingRepo
	svc    *persistence.Service
}

func setup(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()

	store, err := sqlite.New(filepath.Join(dir, "ledger.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cipher := codec.New(codec.NewFileVault(filepath.Join(dir, "ledger.key")), codec.Options{})
	svc := persistence.New(store, cipher, persistence.Options{})
	repo := &recordingRepo{Repository: svc}

	n := 0
	clock := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	l := New(repo, Options{
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%03d", n)
		},
		Now: func() time.Time {
			clock = clock.Add(time.Hour)
			return clock
		},
	})
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return testEnv{ledger: l, repo: repo, svc: svc}
}

func mustStudent(t *testing.T, l *Ledger, name string, fee float64) models.Student {
	t.Helper()
	s, err := l.AddStudent(context.Background(), models.Student{Name: name, LessonFee: fee})
	if err != nil {
		t.Fatalf("AddStudent failed: %v", err)
	}
	return s
}

func balanceOf(t *testing.T, l *Ledger, id string) float64 {
	t.Helper()
	s, err := l.Student(id)
	if err != nil {
		t.Fatalf("Student(%s) failed: %v", id, err)
	}
	return s.Balance
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 0.001
}

func TestEndToEndScenario(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	l := env.ledger

	s := mustStudent(t, l, "Sofia", 100)

	lesson, err := l.AddLesson(ctx, models.Lesson{StudentID: s.ID, Fee: 100, Topic: "Intervals"})
	if err != nil {
		t.Fatalf("AddLesson failed: %v", err)
	}
	if got := balanceOf(t, l, s.ID); !approx(got, 100) {
		t.Errorf("balance after lesson = %v, want 100", got)
	}
	if lesson.StudentName != "Sofia" || lesson.Type != models.LessonIndividual {
		t.Errorf("lesson defaults not applied: %+v", lesson)
	}

	if _, err := l.AddPayment(ctx, models.Payment{StudentID: s.ID, Amount: 60, Method: models.MethodCash}); err != nil {
		t.Fatalf("AddPayment failed: %v", err)
	}
	if got := balanceOf(t, l, s.ID); !approx(got, 40) {
		t.Errorf("balance after first payment = %v, want 40", got)
	}

	statuses, err := l.PaidStatus(s.ID)
	if err != nil {
		t.Fatalf("PaidStatus failed: %v", err)
	}
	if len(statuses) != 1 || statuses[0].Paid {
		t.Errorf("lesson should be unpaid at 60 of 100: %+v", statuses)
	}

	if _, err := l.AddPayment(ctx, models.Payment{StudentID: s.ID, Amount: 40}); err != nil {
		t.Fatalf("AddPayment failed: %v", err)
	}
	if got := balanceOf(t, l, s.ID); !approx(got, 0) {
		t.Errorf("balance after second payment = %v, want 0", got)
	}

	statuses, _ = l.PaidStatus(s.ID)
	if len(statuses) != 1 || !statuses[0].Paid || statuses[0].Lesson.ID != lesson.ID {
		t.Errorf("lesson should be paid: %+v", statuses)
	}

	// Everything survives a restart.
	reloaded := New(env.svc, Options{})
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := balanceOf(t, reloaded, s.ID); !approx(got, 0) {
		t.Errorf("reloaded balance = %v, want 0", got)
	}
	if n := len(reloaded.Payments()); n != 2 {
		t.Errorf("reloaded payments = %d, want 2", n)
	}
}

func TestBalanceInvariant(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	l := env.ledger

	a := mustStudent(t, l, "Ana", 30)
	b := mustStudent(t, l, "Ben", 45)

	steps := []func() error{
		func() error { _, err := l.AddLesson(ctx, models.Lesson{StudentID: a.ID, Fee: 30}); return err },
		func() error { _, err := l.AddPayment(ctx, models.Payment{StudentID: a.ID, Amount: 12.5}); return err },
		func() error { _, err := l.AddPackage(ctx, a.ID, 2, 50, models.MethodCard); return err },
		func() error {
			_, err := l.AddBatchLessons(ctx, []models.Lesson{
				{StudentID: a.ID, Fee: 30, GroupID: "g"},
				{StudentID: b.ID, Fee: 45, GroupID: "g"},
				{StudentID: a.ID, Fee: 30},
				{StudentID: a.ID, Fee: 30.1},
			})
			return err
		},
		func() error { _, err := l.AddPayment(ctx, models.Payment{StudentID: b.ID, Amount: 0.1}); return err },
		func() error { _, err := l.AddPackage(ctx, b.ID, 1, 0, ""); return err },
		func() error { _, err := l.AddLesson(ctx, models.Lesson{StudentID: b.ID, Fee: 45}); return err },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d failed: %v", i, err)
		}
	}

	check := func(t *testing.T, l *Ledger) {
		t.Helper()
		for _, s := range l.Students() {
			want := 0.0
			for _, lesson := range l.Lessons() {
				if lesson.StudentID == s.ID && !lesson.PackageCredit {
					want += lesson.Fee
				}
			}
			for _, p := range l.PaymentsFor(s.ID) {
				want -= p.Amount
			}
			if !approx(s.Balance, want) {
				t.Errorf("%s balance = %v, want %v", s.Name, s.Balance, want)
			}
		}
	}
	check(t, l)

	// Ana: fees 30 + (30 package, 30 package) + 30.1 = 60.1, paid 12.5 + 50
	if got := balanceOf(t, l, a.ID); !approx(got, -2.4) {
		t.Errorf("Ana balance = %v, want -2.4", got)
	}
	// Ben: fees 45 + (45 package) = 45, paid 0.1
	if got := balanceOf(t, l, b.ID); !approx(got, 44.9) {
		t.Errorf("Ben balance = %v, want 44.9", got)
	}

	reloaded := New(env.svc, Options{})
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	check(t, reloaded)
}

func TestAddBatchLessonsSingleWrite(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	l := env.ledger

	a := mustStudent(t, l, "Ana", 30)
	b := mustStudent(t, l, "Ben", 70)
	env.repo.saves = nil

	added, err := l.AddBatchLessons(ctx, []models.Lesson{
		{StudentID: a.ID, Fee: 30, GroupID: "g1"},
		{StudentID: b.ID, Fee: 70, GroupID: "g1"},
	})
	if err != nil {
		t.Fatalf("AddBatchLessons failed: %v", err)
	}
	if len(added) != 2 || added[0].Type != models.LessonGroup {
		t.Errorf("unexpected lessons: %+v", added)
	}

	if got := balanceOf(t, l, a.ID); !approx(got, 30) {
		t.Errorf("Ana balance = %v, want 30", got)
	}
	if got := balanceOf(t, l, b.ID); !approx(got, 70) {
		t.Errorf("Ben balance = %v, want 70", got)
	}

	if len(env.repo.saves) != 1 {
		t.Fatalf("expected 1 save, got %d: %v", len(env.repo.saves), env.repo.saves)
	}
	want := []string{persistence.KeyLessons, persistence.KeyStudents}
	if fmt.Sprint(env.repo.saves[0]) != fmt.Sprint(want) {
		t.Errorf("saved keys = %v, want %v", env.repo.saves[0], want)
	}
}

func TestAddBatchLessonsIsAllOrNothing(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	l := env.ledger

	a := mustStudent(t, l, "Ana", 30)

	_, err := l.AddBatchLessons(ctx, []models.Lesson{
		{StudentID: a.ID, Fee: 30},
		{StudentID: "ghost", Fee: 30},
	})
	if !errors.Is(err, ErrStudentNotFound) {
		t.Fatalf("expected ErrStudentNotFound, got %v", err)
	}
	if len(l.Lessons()) != 0 || balanceOf(t, l, a.ID) != 0 {
		t.Error("partial batch was applied")
	}
}

func TestFailedSaveKeepsState(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	l := env.ledger

	a := mustStudent(t, l, "Ana", 30)
	env.repo.fail = true

	if _, err := l.AddLesson(ctx, models.Lesson{StudentID: a.ID, Fee: 30}); err == nil {
		t.Fatal("expected AddLesson to fail")
	}
	if _, err := l.AddPayment(ctx, models.Payment{StudentID: a.ID, Amount: 10}); err == nil {
		t.Fatal("expected AddPayment to fail")
	}
	if err := l.DeleteStudent(ctx, a.ID); err == nil {
		t.Fatal("expected DeleteStudent to fail")
	}

	if len(l.Lessons()) != 0 || len(l.Payments()) != 0 {
		t.Error("in-memory state changed despite failed save")
	}
	if got := balanceOf(t, l, a.ID); got != 0 {
		t.Errorf("balance = %v, want 0", got)
	}
}

func TestPackageCredits(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	l := env.ledger

	s := mustStudent(t, l, "Ana", 40)

	updated, err := l.AddPackage(ctx, s.ID, 2, 70, models.MethodBankTransfer)
	if err != nil {
		t.Fatalf("AddPackage failed: %v", err)
	}
	if updated.RemainingLessons != 2 || !approx(updated.Balance, -70) {
		t.Errorf("after package: %+v", updated)
	}
	payments := l.PaymentsFor(s.ID)
	if len(payments) != 1 || payments[0].Method != models.MethodBankTransfer || !approx(payments[0].Amount, 70) {
		t.Errorf("package payment not recorded: %+v", payments)
	}

	for i := 0; i < 3; i++ {
		if _, err := l.AddLesson(ctx, models.Lesson{StudentID: s.ID, Fee: 40}); err != nil {
			t.Fatalf("AddLesson failed: %v", err)
		}
	}

	lessons := l.Lessons()
	if !lessons[0].PackageCredit || !lessons[1].PackageCredit || lessons[2].PackageCredit {
		t.Errorf("credits consumed incorrectly: %+v", lessons)
	}
	if lessons[0].Fee != 0 || lessons[2].Fee != 40 {
		t.Errorf("fees: %v %v", lessons[0].Fee, lessons[2].Fee)
	}

	got, _ := l.Student(s.ID)
	if got.RemainingLessons != 0 || !approx(got.Balance, -30) {
		t.Errorf("after lessons: remaining=%d balance=%v", got.RemainingLessons, got.Balance)
	}

	t.Run("free package records no payment", func(t *testing.T) {
		if _, err := l.AddPackage(ctx, s.ID, 1, 0, ""); err != nil {
			t.Fatalf("AddPackage failed: %v", err)
		}
		if n := len(l.PaymentsFor(s.ID)); n != 1 {
			t.Errorf("payments = %d, want 1", n)
		}
	})

	t.Run("rejects bad input", func(t *testing.T) {
		if _, err := l.AddPackage(ctx, s.ID, 0, 10, ""); !errors.Is(err, ErrInvalid) {
			t.Errorf("count 0: got %v", err)
		}
		if _, err := l.AddPackage(ctx, s.ID, 1, -5, ""); !errors.Is(err, ErrInvalid) {
			t.Errorf("negative price: got %v", err)
		}
		if _, err := l.AddPackage(ctx, "ghost", 1, 5, ""); !errors.Is(err, ErrStudentNotFound) {
			t.Errorf("unknown student: got %v", err)
		}
	})
}

func TestDeleteGroupKeepsStudents(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	l := env.ledger

	a := mustStudent(t, l, "Ana", 30)
	b := mustStudent(t, l, "Ben", 30)
	l.AddLesson(ctx, models.Lesson{StudentID: a.ID, Fee: 30})

	g, err := l.AddGroup(ctx, models.Group{Name: "Duo", StudentIDs: []string{a.ID, b.ID, a.ID}})
	if err != nil {
		t.Fatalf("AddGroup failed: %v", err)
	}
	if len(g.StudentIDs) != 2 {
		t.Errorf("members not deduplicated: %v", g.StudentIDs)
	}

	before := l.Students()
	if err := l.DeleteGroup(ctx, g.ID); err != nil {
		t.Fatalf("DeleteGroup failed: %v", err)
	}

	if len(l.Groups()) != 0 {
		t.Error("group still present")
	}
	after := l.Students()
	if len(after) != len(before) {
		t.Fatalf("students changed: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if after[i].ID != before[i].ID || after[i].Balance != before[i].Balance {
			t.Errorf("student %s changed: %+v -> %+v", before[i].ID, before[i], after[i])
		}
	}

	if err := l.DeleteGroup(ctx, g.ID); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("expected ErrGroupNotFound, got %v", err)
	}
}

func TestDeleteStudentCascade(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	l := env.ledger

	a := mustStudent(t, l, "Ana", 30)
	b := mustStudent(t, l, "Ben", 30)
	c := mustStudent(t, l, "Cleo", 30)

	g1, _ := l.AddGroup(ctx, models.Group{Name: "G1", StudentIDs: []string{a.ID, b.ID}})
	g2, _ := l.AddGroup(ctx, models.Group{Name: "G2", StudentIDs: []string{c.ID, a.ID}})
	l.AddLesson(ctx, models.Lesson{StudentID: a.ID, Fee: 30})

	if err := l.DeleteStudent(ctx, a.ID); err != nil {
		t.Fatalf("DeleteStudent failed: %v", err)
	}

	if _, err := l.Student(a.ID); !errors.Is(err, ErrStudentNotFound) {
		t.Errorf("student still present: %v", err)
	}
	got1, err := l.Group(g1.ID)
	if err != nil || fmt.Sprint(got1.StudentIDs) != fmt.Sprint([]string{b.ID}) {
		t.Errorf("G1 members = %v, %v", got1.StudentIDs, err)
	}
	got2, err := l.Group(g2.ID)
	if err != nil || fmt.Sprint(got2.StudentIDs) != fmt.Sprint([]string{c.ID}) {
		t.Errorf("G2 members = %v, %v", got2.StudentIDs, err)
	}
	if len(l.Lessons()) != 1 {
		t.Error("lesson history should be kept")
	}

	// Storage agrees after restart.
	reloaded := New(env.svc, Options{})
	reloaded.Load(ctx)
	if len(reloaded.Students()) != 2 {
		t.Errorf("reloaded students = %d, want 2", len(reloaded.Students()))
	}
	for _, g := range reloaded.Groups() {
		if g.HasMember(a.ID) {
			t.Errorf("group %s still lists deleted student", g.Name)
		}
	}
}

func TestLoadCorrectsDriftedBalance(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	// Simulate a crash between the lesson write and the balance write.
	env.svc.SaveStudents(ctx, []models.Student{{ID: "s1", Name: "Ana", Balance: 0}})
	env.svc.SaveLessons(ctx, []models.Lesson{{ID: "l1", StudentID: "s1", Fee: 55, Type: models.LessonIndividual}})

	l := New(env.svc, Options{})
	if err := l.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := balanceOf(t, l, "s1"); !approx(got, 55) {
		t.Errorf("balance = %v, want 55", got)
	}

	stored := env.svc.Students(ctx)
	if len(stored) != 1 || !approx(stored[0].Balance, 55) {
		t.Errorf("corrected balance not persisted: %+v", stored)
	}
}

func TestStudentUpdates(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	l := env.ledger

	s := mustStudent(t, l, "Ana", 30)
	l.AddLesson(ctx, models.Lesson{StudentID: s.ID, Fee: 30})
	l.AddPackage(ctx, s.ID, 3, 0, "")

	edited := s
	edited.Name = "Ana Maria"
	edited.Balance = -1000
	edited.RemainingLessons = 99
	edited.Schedule = []models.ScheduleSlot{{Weekday: 1, Time: "18:00"}}

	got, err := l.UpdateStudent(ctx, edited)
	if err != nil {
		t.Fatalf("UpdateStudent failed: %v", err)
	}
	if got.Name != "Ana Maria" || !approx(got.Balance, 30) || got.RemainingLessons != 3 {
		t.Errorf("ledger-owned fields overwritten: %+v", got)
	}

	t.Run("new students start at zero", func(t *testing.T) {
		n, err := l.AddStudent(ctx, models.Student{Name: "Zed", Balance: 500, RemainingLessons: 5})
		if err != nil {
			t.Fatalf("AddStudent failed: %v", err)
		}
		if n.Balance != 0 || n.RemainingLessons != 0 || n.CreatedAt.IsZero() || n.ID == "" {
			t.Errorf("unexpected new student: %+v", n)
		}
	})
}

func TestValidation(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	l := env.ledger

	s := mustStudent(t, l, "Ana", 30)

	tests := []struct {
		name    string
		run     func() error
		wantErr error
	}{
		{"negative fee", func() error {
			_, err := l.AddLesson(ctx, models.Lesson{StudentID: s.ID, Fee: -1})
			return err
		}, ErrInvalid},
		{"bad lesson type", func() error {
			_, err := l.AddLesson(ctx, models.Lesson{StudentID: s.ID, Fee: 1, Type: "workshop"})
			return err
		}, ErrInvalid},
		{"unknown student lesson", func() error {
			_, err := l.AddLesson(ctx, models.Lesson{StudentID: "ghost", Fee: 1})
			return err
		}, ErrStudentNotFound},
		{"zero payment", func() error {
			_, err := l.AddPayment(ctx, models.Payment{StudentID: s.ID, Amount: 0})
			return err
		}, ErrInvalid},
		{"unknown method", func() error {
			_, err := l.AddPayment(ctx, models.Payment{StudentID: s.ID, Amount: 5, Method: "Crypto"})
			return err
		}, ErrInvalid},
		{"bad schedule time", func() error {
			_, err := l.AddStudent(ctx, models.Student{Name: "X", Schedule: []models.ScheduleSlot{{Weekday: 2, Time: "25:00"}}})
			return err
		}, ErrInvalid},
		{"bad weekday", func() error {
			_, err := l.AddGroup(ctx, models.Group{Name: "G", Schedule: []models.ScheduleSlot{{Weekday: 7, Time: "10:00"}}})
			return err
		}, ErrInvalid},
		{"missing name", func() error {
			_, err := l.AddStudent(ctx, models.Student{})
			return err
		}, ErrInvalid},
		{"duplicate student id", func() error {
			_, err := l.AddStudent(ctx, models.Student{ID: s.ID, Name: "Copy"})
			return err
		}, ErrDuplicateID},
		{"duplicate lesson id in batch", func() error {
			_, err := l.AddBatchLessons(ctx, []models.Lesson{
				{ID: "same", StudentID: s.ID, Fee: 1},
				{ID: "same", StudentID: s.ID, Fee: 1},
			})
			return err
		}, ErrDuplicateID},
		{"teacher without name", func() error {
			return l.SaveTeacher(ctx, models.Teacher{Subject: "Math"})
		}, ErrInvalid},
		{"name that cleans to empty", func() error {
			_, err := l.AddStudent(ctx, models.Student{Name: "<>"})
			return err
		}, ErrInvalid},
		{"group name that cleans to empty", func() error {
			_, err := l.AddGroup(ctx, models.Group{Name: " <> "})
			return err
		}, ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}

	if got := balanceOf(t, l, s.ID); got != 0 {
		t.Errorf("rejected operations changed balance to %v", got)
	}
}

func TestSettingsAndTeacher(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	l := env.ledger

	if err := l.SaveTeacher(ctx, models.Teacher{Name: "Maria", Subject: "Piano"}); err != nil {
		t.Fatalf("SaveTeacher failed: %v", err)
	}

	currency := "€"
	settings, err := l.UpdateSettings(ctx, models.SettingsPatch{Currency: &currency})
	if err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}
	if settings.Currency != "€" || settings.Language != "en" {
		t.Errorf("patch not merged: %+v", settings)
	}

	reloaded := New(env.svc, Options{})
	reloaded.Load(ctx)
	if got := reloaded.Teacher(); got == nil || got.Name != "Maria" {
		t.Errorf("teacher not persisted: %+v", got)
	}
	if got := reloaded.Settings(); got.Currency != "€" {
		t.Errorf("settings not persisted: %+v", got)
	}

	msgStudent := mustStudent(t, l, "Ana", 20)
	l.AddLesson(ctx, models.Lesson{StudentID: msgStudent.ID, Fee: 20})
	msg, err := l.Message(msgStudent.ID)
	if err != nil {
		t.Fatalf("Message failed: %v", err)
	}
	if want := "Your current balance is €20."; !strings.Contains(msg, want) {
		t.Errorf("message missing %q:\n%s", want, msg)
	}
}

func TestReplaceAllAndReset(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	l := env.ledger

	mustStudent(t, l, "Old", 10)

	err := l.ReplaceAll(ctx, models.Dataset{
		Teacher:  &models.Teacher{Name: "Imported"},
		Students: []models.Student{{ID: "s9", Name: "Nina", Balance: 999}},
		Lessons:  []models.Lesson{{ID: "l9", StudentID: "s9", Fee: 25, Type: models.LessonIndividual}},
	})
	if err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}

	students := l.Students()
	if len(students) != 1 || students[0].ID != "s9" || !approx(students[0].Balance, 25) {
		t.Errorf("unexpected students after replace: %+v", students)
	}
	if l.Payments() == nil || len(l.Payments()) != 0 {
		t.Errorf("payments should be empty, got %v", l.Payments())
	}

	if err := l.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if len(l.Students()) != 0 || l.Teacher() != nil {
		t.Error("state not cleared")
	}
	if got := env.svc.Students(ctx); len(got) != 0 {
		t.Errorf("storage not cleared: %+v", got)
	}
}

func TestConcurrentPayments(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	l := New(env.svc, Options{})
	l.Load(ctx)
	s := mustStudent(t, l, "Ana", 10)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := l.AddLesson(ctx, models.Lesson{StudentID: s.ID, Fee: 10}); err != nil {
				t.Errorf("AddLesson failed: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := l.AddPayment(ctx, models.Payment{StudentID: s.ID, Amount: 5}); err != nil {
				t.Errorf("AddPayment failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := balanceOf(t, l, s.ID); !approx(got, 100) {
		t.Errorf("balance = %v, want 100", got)
	}
	if len(l.Lessons()) != 20 || len(l.Payments()) != 20 {
		t.Errorf("lost updates: %d lessons, %d payments", len(l.Lessons()), len(l.Payments()))
	}
}

func TestDeletedStudentIDNotReused(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	l := env.ledger

	if _, err := l.AddStudent(ctx, models.Student{ID: "s1", Name: "Ana", LessonFee: 50}); err != nil {
		t.Fatalf("AddStudent failed: %v", err)
	}
	if _, err := l.AddLesson(ctx, models.Lesson{StudentID: "s1", Fee: 50}); err != nil {
		t.Fatalf("AddLesson failed: %v", err)
	}
	if err := l.DeleteStudent(ctx, "s1"); err != nil {
		t.Fatalf("DeleteStudent failed: %v", err)
	}

	_, err := l.AddStudent(ctx, models.Student{ID: "s1", Name: "Ana again"})
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("re-adding s1: got %v, want %v", err, ErrDuplicateID)
	}
	if _, err := l.Student("s1"); !errors.Is(err, ErrStudentNotFound) {
		t.Errorf("rejected student was stored: %v", err)
	}

	t.Run("payment history also blocks the ID", func(t *testing.T) {
		l.AddStudent(ctx, models.Student{ID: "s2", Name: "Ben"})
		l.AddPayment(ctx, models.Payment{StudentID: "s2", Amount: 10})
		l.DeleteStudent(ctx, "s2")
		if _, err := l.AddStudent(ctx, models.Student{ID: "s2", Name: "Ben"}); !errors.Is(err, ErrDuplicateID) {
			t.Errorf("got %v, want %v", err, ErrDuplicateID)
		}
	})

	t.Run("unused IDs are still accepted", func(t *testing.T) {
		if _, err := l.AddStudent(ctx, models.Student{ID: "s3", Name: "Cleo"}); err != nil {
			t.Errorf("AddStudent failed: %v", err)
		}
	})
}

func TestStoredValuesMatchMemory(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	l := env.ledger

	s, err := l.AddStudent(ctx, models.Student{Name: " <b>Ana</b> ", Notes: "likes <i>jazz</i>"})
	if err != nil {
		t.Fatalf("AddStudent failed: %v", err)
	}
	if s.Name != "bAna/b" || s.Notes != "likes ijazz/i" {
		t.Errorf("returned student not cleaned: %+v", s)
	}

	if _, err := l.AddLesson(ctx, models.Lesson{StudentID: s.ID, Fee: 10, Topic: "<scales>"}); err != nil {
		t.Fatalf("AddLesson failed: %v", err)
	}
	if _, err := l.AddPayment(ctx, models.Payment{StudentID: " " + s.ID + " ", Amount: 5}); err != nil {
		t.Fatalf("AddPayment with padded student ID failed: %v", err)
	}
	g, err := l.AddGroup(ctx, models.Group{Name: "<Trio>", StudentIDs: []string{s.ID}})
	if err != nil {
		t.Fatalf("AddGroup failed: %v", err)
	}

	reloaded := New(env.svc, Options{})
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	got, err := reloaded.Student(s.ID)
	if err != nil {
		t.Fatalf("Student failed: %v", err)
	}
	if got.Name != s.Name || got.Notes != s.Notes {
		t.Errorf("reloaded student = %q/%q, in memory %q/%q", got.Name, got.Notes, s.Name, s.Notes)
	}
	if lessons := l.Lessons(); lessons[0].Topic != "scales" || reloaded.Lessons()[0].Topic != "scales" {
		t.Errorf("lesson topic = %q in memory, %q after reload", lessons[0].Topic, reloaded.Lessons()[0].Topic)
	}
	if payments := l.Payments(); payments[0].StudentID != s.ID || reloaded.Payments()[0].StudentID != s.ID {
		t.Errorf("payment student = %q in memory, %q after reload", payments[0].StudentID, reloaded.Payments()[0].StudentID)
	}
	if rg, _ := reloaded.Group(g.ID); rg.Name != "Trio" {
		t.Errorf("reloaded group name = %q, want Trio", rg.Name)
	}

	// The stored record passes the same validation it passed in memory.
	got.LessonFee = 20
	if _, err := reloaded.UpdateStudent(ctx, got); err != nil {
		t.Errorf("UpdateStudent on reloaded record failed: %v", err)
	}
}

func TestPaymentsForEmptyIsNotNil(t *testing.T) {
	env := setup(t)
	s := mustStudent(t, env.ledger, "Ana", 30)

	got := env.ledger.PaymentsFor(s.ID)
	if got == nil || len(got) != 0 {
		t.Errorf("PaymentsFor = %#v, want empty non-nil slice", got)
	}
}
