package service

import (
	"context"

	"connectrpc.com/connect"

	"github.com/mmynk/tutorledger/internal/models"
)

// ListLessons returns all lessons, or one student's when StudentID is set.
func (s *LedgerService) ListLessons(ctx context.Context, req *connect.Request[StudentFilter]) (*connect.Response[LessonsResponse], error) {
	lessons := s.ledger.Lessons()
	if id := req.Msg.StudentID; id != "" {
		filtered := make([]models.Lesson, 0)
		for _, lesson := range lessons {
			if lesson.StudentID == id {
				filtered = append(filtered, lesson)
			}
		}
		lessons = filtered
	}
	return connect.NewResponse(&LessonsResponse{Lessons: lessons}), nil
}

func (s *LedgerService) AddLesson(ctx context.Context, req *connect.Request[models.Lesson]) (*connect.Response[models.Lesson], error) {
	added, err := s.ledger.AddLesson(ctx, *req.Msg)
	if err != nil {
		return nil, s.connectError(ctx, req.Spec().Procedure, err)
	}
	s.logger.Info("Lesson added", "lesson_id", added.ID, "student_id", added.StudentID, "fee", added.Fee)
	return connect.NewResponse(&added), nil
}

// AddBatchLessons records a group session. Either every lesson is stored or
// none is.
func (s *LedgerService) AddBatchLessons(ctx context.Context, req *connect.Request[AddBatchLessonsRequest]) (*connect.Response[LessonsResponse], error) {
	added, err := s.ledger.AddBatchLessons(ctx, req.Msg.Lessons)
	if err != nil {
		return nil, s.connectError(ctx, req.Spec().Procedure, err)
	}
	s.logger.Info("Lessons added", "count", len(added))
	return connect.NewResponse(&LessonsResponse{Lessons: added}), nil
}

// ListPayments returns all payments, or one student's when StudentID is set.
func (s *LedgerService) ListPayments(ctx context.Context, req *connect.Request[StudentFilter]) (*connect.Response[PaymentsResponse], error) {
	if id := req.Msg.StudentID; id != "" {
		return connect.NewResponse(&PaymentsResponse{Payments: s.ledger.PaymentsFor(id)}), nil
	}
	return connect.NewResponse(&PaymentsResponse{Payments: s.ledger.Payments()}), nil
}

func (s *LedgerService) AddPayment(ctx context.Context, req *connect.Request[models.Payment]) (*connect.Response[models.Payment], error) {
	added, err := s.ledger.AddPayment(ctx, *req.Msg)
	if err != nil {
		return nil, s.connectError(ctx, req.Spec().Procedure, err)
	}
	s.logger.Info("Payment added", "payment_id", added.ID, "student_id", added.StudentID, "amount", added.Amount)
	return connect.NewResponse(&added), nil
}
