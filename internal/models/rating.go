package models

import "time"

// SupplierRating is a review of a supplier. RaterSupplierID is nullable:
// public reviews submitted without an account carry no rater.
type SupplierRating struct {
	ID              int       `db:"id" json:"id"`
	RaterSupplierID *int      `db:"rater_supplier_id" json:"raterSupplierId,omitempty"`
	RatedSupplierID int       `db:"rated_supplier_id" json:"ratedSupplierId"`
	Score           int       `db:"score" json:"score"`
	Comment         string    `db:"comment" json:"comment"`
	IsApproved      bool      `db:"is_approved" json:"isApproved"`
	IsRead          bool      `db:"is_read" json:"isRead"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"-"`
}

func (r *SupplierRating) Resource() ResourceType { return ResourceRating }
func (r *SupplierRating) ItemID() int            { return r.ID }
func (r *SupplierRating) Read() bool             { return r.IsRead }
func (r *SupplierRating) CreatedTime() time.Time { return r.CreatedAt }

func (r *SupplierRating) Direction(supplierID int) Direction {
	if r.RaterSupplierID != nil && *r.RaterSupplierID == supplierID {
		return DirectionSent
	}
	return DirectionReceived
}

// ReviewReply is the rated supplier's single reply to a rating. The one-reply
// invariant is enforced by the inbox service rather than a DB constraint.
type ReviewReply struct {
	ID               int       `db:"id" json:"id"`
	SupplierRatingID int       `db:"supplier_rating_id" json:"supplierRatingId"`
	SupplierID       int       `db:"supplier_id" json:"supplierId"`
	Reply            string    `db:"reply" json:"reply"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time `db:"updated_at" json:"-"`
}

func (r *ReviewReply) Resource() ResourceType { return ResourceReviewReply }
func (r *ReviewReply) ItemID() int            { return r.ID }

// Replies are considered read: the author wrote them and the counterparty
// sees them attached to the rating thread.
func (r *ReviewReply) Read() bool             { return true }
func (r *ReviewReply) CreatedTime() time.Time { return r.CreatedAt }

func (r *ReviewReply) Direction(supplierID int) Direction {
	if r.SupplierID == supplierID {
		return DirectionSent
	}
	return DirectionReceived
}
