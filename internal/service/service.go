// Package service exposes the ledger as a Connect service for a local UI.
// Messages are plain JSON encoded by JSONCodec.
package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/tutorledger/internal/backup"
	"github.com/mmynk/tutorledger/internal/ledger"
	"github.com/mmynk/tutorledger/internal/middleware"
)

// maxBodyBytes bounds request messages, backups included.
const maxBodyBytes = 32 << 20

// Options configures a LedgerService.
type Options struct {
	// Source is read for backup export. Required.
	Source backup.Source

	// Decrypter opens encrypted backup files. Nil rejects them.
	Decrypter backup.Decrypter

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// LedgerService implements the ledger RPCs.
type LedgerService struct {
	ledger    *ledger.Ledger
	source    backup.Source
	decrypter backup.Decrypter
	logger    *slog.Logger
	now       func() time.Time
}

// NewLedgerService creates a LedgerService over l.
func NewLedgerService(l *ledger.Ledger, opts Options) *LedgerService {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &LedgerService{
		ledger:    l,
		source:    opts.Source,
		decrypter: opts.Decrypter,
		logger:    opts.Logger,
		now:       opts.Now,
	}
}

// NewLedgerServiceHandler builds an HTTP handler serving every procedure of
// svc. It returns the path prefix to mount it on. The JSON codec and request
// size limit are always applied; opts add to them, typically interceptors.
func NewLedgerServiceHandler(svc *LedgerService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{
		connect.WithCodec(JSONCodec{}),
		connect.WithReadMaxBytes(maxBodyBytes),
	}, opts...)
	read := append(slices.Clone(opts), connect.WithIdempotency(connect.IdempotencyNoSideEffects))

	mux := http.NewServeMux()
	mux.Handle(GetTeacherProcedure, connect.NewUnaryHandler(GetTeacherProcedure, svc.GetTeacher, read...))
	mux.Handle(SaveTeacherProcedure, connect.NewUnaryHandler(SaveTeacherProcedure, svc.SaveTeacher, opts...))

	mux.Handle(ListStudentsProcedure, connect.NewUnaryHandler(ListStudentsProcedure, svc.ListStudents, read...))
	mux.Handle(GetStudentProcedure, connect.NewUnaryHandler(GetStudentProcedure, svc.GetStudent, read...))
	mux.Handle(CreateStudentProcedure, connect.NewUnaryHandler(CreateStudentProcedure, svc.CreateStudent, opts...))
	mux.Handle(UpdateStudentProcedure, connect.NewUnaryHandler(UpdateStudentProcedure, svc.UpdateStudent, opts...))
	mux.Handle(DeleteStudentProcedure, connect.NewUnaryHandler(DeleteStudentProcedure, svc.DeleteStudent, opts...))
	mux.Handle(GetPaidStatusProcedure, connect.NewUnaryHandler(GetPaidStatusProcedure, svc.GetPaidStatus, read...))
	mux.Handle(GetMessageProcedure, connect.NewUnaryHandler(GetMessageProcedure, svc.GetMessage, read...))
	mux.Handle(AddPackageProcedure, connect.NewUnaryHandler(AddPackageProcedure, svc.AddPackage, opts...))

	mux.Handle(ListLessonsProcedure, connect.NewUnaryHandler(ListLessonsProcedure, svc.ListLessons, read...))
	mux.Handle(AddLessonProcedure, connect.NewUnaryHandler(AddLessonProcedure, svc.AddLesson, opts...))
	mux.Handle(AddBatchLessonsProcedure, connect.NewUnaryHandler(AddBatchLessonsProcedure, svc.AddBatchLessons, opts...))
	mux.Handle(ListPaymentsProcedure, connect.NewUnaryHandler(ListPaymentsProcedure, svc.ListPayments, read...))
	mux.Handle(AddPaymentProcedure, connect.NewUnaryHandler(AddPaymentProcedure, svc.AddPayment, opts...))

	mux.Handle(ListGroupsProcedure, connect.NewUnaryHandler(ListGroupsProcedure, svc.ListGroups, read...))
	mux.Handle(GetGroupProcedure, connect.NewUnaryHandler(GetGroupProcedure, svc.GetGroup, read...))
	mux.Handle(CreateGroupProcedure, connect.NewUnaryHandler(CreateGroupProcedure, svc.CreateGroup, opts...))
	mux.Handle(UpdateGroupProcedure, connect.NewUnaryHandler(UpdateGroupProcedure, svc.UpdateGroup, opts...))
	mux.Handle(DeleteGroupProcedure, connect.NewUnaryHandler(DeleteGroupProcedure, svc.DeleteGroup, opts...))

	mux.Handle(GetSettingsProcedure, connect.NewUnaryHandler(GetSettingsProcedure, svc.GetSettings, read...))
	mux.Handle(UpdateSettingsProcedure, connect.NewUnaryHandler(UpdateSettingsProcedure, svc.UpdateSettings, opts...))

	mux.Handle(ExportBackupProcedure, connect.NewUnaryHandler(ExportBackupProcedure, svc.ExportBackup, read...))
	mux.Handle(ImportBackupProcedure, connect.NewUnaryHandler(ImportBackupProcedure, svc.ImportBackup, opts...))
	mux.Handle(ResetDataProcedure, connect.NewUnaryHandler(ResetDataProcedure, svc.ResetData, opts...))

	return "/" + ServiceName + "/", mux
}

// connectError maps domain errors to Connect codes. Failures the caller
// cannot fix are logged here with the procedure that hit them.
func (s *LedgerService) connectError(ctx context.Context, procedure string, err error) error {
	code := codeFor(err)
	if code == connect.CodeInternal {
		s.logger.Error("Ledger operation failed",
			"procedure", procedure,
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
	}
	return connect.NewError(code, err)
}

func codeFor(err error) connect.Code {
	switch {
	case errors.Is(err, ledger.ErrStudentNotFound), errors.Is(err, ledger.ErrGroupNotFound):
		return connect.CodeNotFound
	case errors.Is(err, ledger.ErrDuplicateID):
		return connect.CodeAlreadyExists
	case errors.Is(err, ledger.ErrInvalid), errors.Is(err, backup.ErrInvalidBackup):
		return connect.CodeInvalidArgument
	case errors.Is(err, backup.ErrCorruptBackup):
		return connect.CodeDataLoss
	default:
		return connect.CodeInternal
	}
}
