package service

import (
	"context"

	"motoexpress/internal/apperr"
	"motoexpress/internal/models"
	"motoexpress/internal/repository"
)

type ReviewService struct {
	store *repository.Store
}

func NewReviewService(store *repository.Store) *ReviewService {
	return &ReviewService{store: store}
}

type CreateReviewInput struct {
	TargetUserID uint   `json:"target_user_id" validate:"required"`
	Rating       int    `json:"rating" validate:"required,min=1,max=5"`
	Comment      string `json:"comment" validate:"max=2000"`
}

// Create records one review per author and order. The target must be the
// order's establishment owner or a motoboy that was assigned to it.
func (s *ReviewService) Create(ctx context.Context, caller *models.User, orderID uint, in CreateReviewInput) (*models.Review, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.TargetUserID == caller.ID {
		return nil, apperr.Validation("you cannot review yourself")
	}
	var review *models.Review
	err := s.store.WithContext(ctx).Transaction(func(tx *repository.Store) error {
		order, err := tx.Orders.GetDetailed(orderID)
		if err != nil {
			return dbErr(err, "order not found")
		}
		if _, err := ensureAccess(tx, caller, order); err != nil {
			return err
		}
		if !isOrderParty(order, in.TargetUserID) {
			return apperr.Validation("target is not a participant of this order")
		}
		exists, err := tx.Reviews.Exists(order.ID, caller.ID)
		if err != nil {
			return apperr.Internal(err)
		}
		if exists {
			return apperr.Conflict("you already reviewed this order")
		}
		review = &models.Review{
			OrderID:  order.ID,
			AuthorID: caller.ID,
			TargetID: in.TargetUserID,
			Rating:   in.Rating,
			Comment:  in.Comment,
		}
		if err := tx.Reviews.Create(review); err != nil {
			if repository.IsDuplicate(err) {
				return apperr.Conflict("you already reviewed this order")
			}
			return apperr.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

func (s *ReviewService) List(ctx context.Context, caller *models.User, orderID uint) ([]models.Review, error) {
	store := s.store.WithContext(ctx)
	order, err := store.Orders.GetByID(orderID)
	if err != nil {
		return nil, dbErr(err, "order not found")
	}
	if _, err := ensureAccess(store, caller, order); err != nil {
		return nil, err
	}
	list, err := store.Reviews.ListByOrder(order.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return list, nil
}

// isOrderParty needs order loaded with Establishment and Assignments.Motoboy.
func isOrderParty(order *models.DeliveryOrder, userID uint) bool {
	if order.Establishment != nil && order.Establishment.UserID == userID {
		return true
	}
	for _, a := range order.Assignments {
		if a.Motoboy != nil && a.Motoboy.UserID == userID {
			return true
		}
	}
	return false
}
