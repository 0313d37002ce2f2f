package friends

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/hoshinoya/ponghub/server/model"
	"go.uber.org/zap"
)

// Service enforces the friendship state machine against a Store.
//
// Per unordered pair the states are: none → pending(requester) → accepted,
// and either state → none via Remove. The invariant the service protects is
// at most one row per pair; every check-then-write sequence runs under one
// coarse mutex, so two opposite-direction requests can never both insert.
// The service has no transport awareness; callers dispatch notifications
// after a mutation succeeds.
type Service struct {
	mu     sync.Mutex // serializes all relationship mutations
	store  Store
	dir    Directory
	logger *zap.Logger
}

// NewService creates a friends Service.
func NewService(store Store, dir Directory, logger *zap.Logger) *Service {
	return &Service{store: store, dir: dir, logger: logger}
}

// Request inserts a pending request from requester to target. The existence
// check is order-independent: a pending or accepted row in either direction
// rejects the request with ErrAlreadyRelated.
func (s *Service) Request(ctx context.Context, requester, target int64) (string, error) {
	if err := checkIDs(requester, target); err != nil {
		return "", err
	}
	if requester == target {
		return "", ErrSelfRelation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.FindByPair(ctx, requester, target, false)
	if err != nil {
		return "", s.storeErr("find relationship", err)
	}
	if existing != nil {
		return "", fmt.Errorf("%w (status %s)", ErrAlreadyRelated, statusName(existing.Status))
	}

	row := &model.Friendship{
		RequesterID: requester,
		TargetID:    target,
		Status:      model.FriendshipPending,
	}
	if err := s.store.Insert(ctx, row); err != nil {
		return "", s.storeErr("insert relationship", err)
	}
	return fmt.Sprintf("Friend request sent to %s.", s.username(ctx, target)), nil
}

// Accept flips a pending request to accepted. The lookup is strict: only
// the original target may accept, so a requester cannot confirm their own
// request. Row identity and direction are preserved.
func (s *Service) Accept(ctx context.Context, accepter, requester int64) (string, error) {
	if err := checkIDs(accepter, requester); err != nil {
		return "", err
	}
	if accepter == requester {
		return "", ErrSelfRelation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, err := s.store.FindByPair(ctx, requester, accepter, true)
	if err != nil {
		return "", s.storeErr("find request", err)
	}
	if row == nil {
		return "", ErrNoSuchRequest
	}
	if row.Status == model.FriendshipAccepted {
		return "", ErrAlreadyAccepted
	}
	if err := s.store.UpdateStatus(ctx, row.ID, model.FriendshipAccepted); err != nil {
		return "", s.storeErr("accept request", err)
	}
	return fmt.Sprintf("You are now friends with %s.", s.username(ctx, requester)), nil
}

// Remove deletes the relationship between user and target regardless of
// direction or status. Declining a pending request and unfriending an
// accepted one are the same operation.
func (s *Service) Remove(ctx context.Context, user, target int64) (string, error) {
	if err := checkIDs(user, target); err != nil {
		return "", err
	}
	if user == target {
		return "", ErrSelfRelation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, err := s.store.FindByPair(ctx, user, target, false)
	if err != nil {
		return "", s.storeErr("find relationship", err)
	}
	if row == nil {
		return "", ErrNoSuchRelationship
	}
	if err := s.store.Delete(ctx, row.ID); err != nil {
		return "", s.storeErr("delete relationship", err)
	}
	return fmt.Sprintf("You are no longer friends with %s.", s.username(ctx, target)), nil
}

// ListPending returns the users user has sent a request to that is still
// awaiting an answer.
func (s *Service) ListPending(ctx context.Context, user int64) ([]int64, error) {
	rows, err := s.listByStatus(ctx, user, model.FriendshipPending)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for _, row := range rows {
		if row.RequesterID == user {
			ids = append(ids, row.TargetID)
		}
	}
	return ids, nil
}

// ListWaiting returns the users that have sent user a request awaiting
// user's answer.
func (s *Service) ListWaiting(ctx context.Context, user int64) ([]int64, error) {
	rows, err := s.listByStatus(ctx, user, model.FriendshipPending)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for _, row := range rows {
		if row.TargetID == user {
			ids = append(ids, row.RequesterID)
		}
	}
	return ids, nil
}

// ListFriends returns the counterpart ids of every accepted relationship
// user is part of, regardless of who requested it.
func (s *Service) ListFriends(ctx context.Context, user int64) ([]int64, error) {
	rows, err := s.listByStatus(ctx, user, model.FriendshipAccepted)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for _, row := range rows {
		if row.RequesterID == user {
			ids = append(ids, row.TargetID)
		} else {
			ids = append(ids, row.RequesterID)
		}
	}
	return ids, nil
}

func (s *Service) listByStatus(ctx context.Context, user int64, status int) ([]model.Friendship, error) {
	if user <= 0 {
		return nil, ErrValidation
	}
	rows, err := s.store.ListWherePair(ctx, user, &status)
	if err != nil {
		return nil, s.storeErr("list relationships", err)
	}
	return rows, nil
}

// username resolves an id to a display name, falling back to the numeric id
// when the directory fails. Confirmation messages never block a transition.
func (s *Service) username(ctx context.Context, id int64) string {
	name, err := s.dir.FindUsername(ctx, id)
	if err != nil || name == "" {
		return strconv.FormatInt(id, 10)
	}
	return name
}

func (s *Service) storeErr(op string, err error) error {
	s.logger.Error("friends store failure", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

func checkIDs(ids ...int64) error {
	for _, id := range ids {
		if id <= 0 {
			return ErrValidation
		}
	}
	return nil
}

func statusName(status int) string {
	switch status {
	case model.FriendshipPending:
		return "pending"
	case model.FriendshipAccepted:
		return "accepted"
	default:
		return "unknown"
	}
}
