package service

import (
	"context"

	"connectrpc.com/connect"

	"github.com/mmynk/tutorledger/internal/models"
)

func (s *LedgerService) ListGroups(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[GroupsResponse], error) {
	return connect.NewResponse(&GroupsResponse{Groups: s.ledger.Groups()}), nil
}

func (s *LedgerService) GetGroup(ctx context.Context, req *connect.Request[IDRequest]) (*connect.Response[models.Group], error) {
	group, err := s.ledger.Group(req.Msg.ID)
	if err != nil {
		return nil, s.connectError(ctx, req.Spec().Procedure, err)
	}
	return connect.NewResponse(&group), nil
}

func (s *LedgerService) CreateGroup(ctx context.Context, req *connect.Request[models.Group]) (*connect.Response[models.Group], error) {
	created, err := s.ledger.AddGroup(ctx, *req.Msg)
	if err != nil {
		return nil, s.connectError(ctx, req.Spec().Procedure, err)
	}
	s.logger.Info("Group created", "group_id", created.ID, "members_count", len(created.StudentIDs))
	return connect.NewResponse(&created), nil
}

func (s *LedgerService) UpdateGroup(ctx context.Context, req *connect.Request[models.Group]) (*connect.Response[models.Group], error) {
	updated, err := s.ledger.UpdateGroup(ctx, *req.Msg)
	if err != nil {
		return nil, s.connectError(ctx, req.Spec().Procedure, err)
	}
	return connect.NewResponse(&updated), nil
}

// DeleteGroup removes a group. Its students and lesson history are kept.
func (s *LedgerService) DeleteGroup(ctx context.Context, req *connect.Request[IDRequest]) (*connect.Response[Empty], error) {
	if err := s.ledger.DeleteGroup(ctx, req.Msg.ID); err != nil {
		return nil, s.connectError(ctx, req.Spec().Procedure, err)
	}
	s.logger.Info("Group deleted", "group_id", req.Msg.ID)
	return connect.NewResponse(&Empty{}), nil
}
