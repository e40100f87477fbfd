package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/tutorledger/internal/backup"
	"github.com/mmynk/tutorledger/internal/middleware"
	"github.com/mmynk/tutorledger/internal/models"
)

func (s *LedgerService) GetSettings(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[models.Settings], error) {
	settings := s.ledger.Settings()
	return connect.NewResponse(&settings), nil
}

// UpdateSettings merges the fields present in the patch.
func (s *LedgerService) UpdateSettings(ctx context.Context, req *connect.Request[models.SettingsPatch]) (*connect.Response[models.Settings], error) {
	settings, err := s.ledger.UpdateSettings(ctx, *req.Msg)
	if err != nil {
		return nil, s.connectError(ctx, req.Spec().Procedure, err)
	}
	return connect.NewResponse(&settings), nil
}

// ExportBackup returns a plaintext snapshot of all data.
func (s *LedgerService) ExportBackup(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[BackupFile], error) {
	now := s.now().UTC()
	snap := backup.Export(ctx, s.source, now)

	var buf bytes.Buffer
	if err := backup.Encode(&buf, snap); err != nil {
		return nil, s.connectError(ctx, req.Spec().Procedure, err)
	}

	s.logger.Info("Backup exported",
		"students", len(snap.Data.Students),
		"lessons", len(snap.Data.Lessons),
		"payments", len(snap.Data.Payments),
	)
	return connect.NewResponse(&BackupFile{
		FileName:  fmt.Sprintf("tutorledger-backup-%s.json", now.Format("20060102T150405Z")),
		Timestamp: now,
		Content:   buf.String(),
	}), nil
}

// ImportBackup replaces all data with the uploaded snapshot. The caller is
// expected to have confirmed the overwrite with the user.
func (s *LedgerService) ImportBackup(ctx context.Context, req *connect.Request[ImportBackupRequest]) (*connect.Response[ImportBackupResponse], error) {
	snap, err := backup.Decode(ctx, strings.NewReader(req.Msg.Content), s.decrypter)
	if err != nil {
		return nil, s.connectError(ctx, req.Spec().Procedure, err)
	}
	if err := backup.Import(ctx, s.ledger, snap); err != nil {
		return nil, s.connectError(ctx, req.Spec().Procedure, err)
	}

	s.logger.Info("Backup imported",
		"backup_time", snap.Timestamp,
		"students", len(snap.Data.Students),
		"subject", middleware.GetSubject(ctx),
	)
	return connect.NewResponse(&ImportBackupResponse{
		Students: len(snap.Data.Students),
		Lessons:  len(snap.Data.Lessons),
		Payments: len(snap.Data.Payments),
		Groups:   len(snap.Data.Groups),
	}), nil
}

// ResetData deletes every record.
func (s *LedgerService) ResetData(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[Empty], error) {
	if err := s.ledger.Reset(ctx); err != nil {
		return nil, s.connectError(ctx, req.Spec().Procedure, err)
	}
	s.logger.Warn("All data cleared", "subject", middleware.GetSubject(ctx))
	return connect.NewResponse(&Empty{}), nil
}
