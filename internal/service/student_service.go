package service

import (
	"context"

	"connectrpc.com/connect"

	"github.com/mmynk/tutorledger/internal/models"
)

// GetTeacher returns the tutor profile, nil before one is saved.
func (s *LedgerService) GetTeacher(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[TeacherResponse], error) {
	return connect.NewResponse(&TeacherResponse{Teacher: s.ledger.Teacher()}), nil
}

// SaveTeacher replaces the tutor profile.
func (s *LedgerService) SaveTeacher(ctx context.Context, req *connect.Request[models.Teacher]) (*connect.Response[TeacherResponse], error) {
	if err := s.ledger.SaveTeacher(ctx, *req.Msg); err != nil {
		return nil, s.connectError(ctx, req.Spec().Procedure, err)
	}
	return connect.NewResponse(&TeacherResponse{Teacher: s.ledger.Teacher()}), nil
}

func (s *LedgerService) ListStudents(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[StudentsResponse], error) {
	return connect.NewResponse(&StudentsResponse{Students: s.ledger.Students()}), nil
}

func (s *LedgerService) GetStudent(ctx context.Context, req *connect.Request[IDRequest]) (*connect.Response[models.Student], error) {
	student, err := s.ledger.Student(req.Msg.ID)
	if err != nil {
		return nil, s.connectError(ctx, req.Spec().Procedure, err)
	}
	return connect.NewResponse(&student), nil
}

// CreateStudent adds a student. Balance and package credits in the request
// are ignored; new students start at zero.
func (s *LedgerService) CreateStudent(ctx context.Context, req *connect.Request[models.Student]) (*connect.Response[models.Student], error) {
	created, err := s.ledger.AddStudent(ctx, *req.Msg)
	if err != nil {
		return nil, s.connectError(ctx, req.Spec().Procedure, err)
	}
	s.logger.Info("Student created", "student_id", created.ID)
	return connect.NewResponse(&created), nil
}

// UpdateStudent edits a student's profile. The ledger keeps ownership of
// balance, package credits and creation time.
func (s *LedgerService) UpdateStudent(ctx context.Context, req *connect.Request[models.Student]) (*connect.Response[models.Student], error) {
	updated, err := s.ledger.UpdateStudent(ctx, *req.Msg)
	if err != nil {
		return nil, s.connectError(ctx, req.Spec().Procedure, err)
	}
	return connect.NewResponse(&updated), nil
}

// DeleteStudent removes a student and drops them from every group. Their
// lessons and payments stay as history.
func (s *LedgerService) DeleteStudent(ctx context.Context, req *connect.Request[IDRequest]) (*connect.Response[Empty], error) {
	if err := s.ledger.DeleteStudent(ctx, req.Msg.ID); err != nil {
		return nil, s.connectError(ctx, req.Spec().Procedure, err)
	}
	s.logger.Info("Student deleted", "student_id", req.Msg.ID)
	return connect.NewResponse(&Empty{}), nil
}

func (s *LedgerService) GetPaidStatus(ctx context.Context, req *connect.Request[IDRequest]) (*connect.Response[PaidStatusResponse], error) {
	statuses, err := s.ledger.PaidStatus(req.Msg.ID)
	if err != nil {
		return nil, s.connectError(ctx, req.Spec().Procedure, err)
	}
	return connect.NewResponse(&PaidStatusResponse{Lessons: statuses}), nil
}

// GetMessage renders the balance reminder for a student.
func (s *LedgerService) GetMessage(ctx context.Context, req *connect.Request[IDRequest]) (*connect.Response[MessageResponse], error) {
	text, err := s.ledger.Message(req.Msg.ID)
	if err != nil {
		return nil, s.connectError(ctx, req.Spec().Procedure, err)
	}
	return connect.NewResponse(&MessageResponse{Message: text}), nil
}

// AddPackage sells prepaid lessons: the price is recorded as a payment and the
// credits are added to the student.
func (s *LedgerService) AddPackage(ctx context.Context, req *connect.Request[AddPackageRequest]) (*connect.Response[models.Student], error) {
	msg := req.Msg
	student, err := s.ledger.AddPackage(ctx, msg.StudentID, msg.Count, msg.Price, msg.Method)
	if err != nil {
		return nil, s.connectError(ctx, req.Spec().Procedure, err)
	}
	s.logger.Info("Package added", "student_id", student.ID, "count", msg.Count, "price", msg.Price)
	return connect.NewResponse(&student), nil
}
