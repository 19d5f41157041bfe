package repository

import (
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/TijaraHub/tijara_api/internal/models"
)

// RatingRepository handles data access for supplier ratings and their
// review replies.
type RatingRepository struct {
	db *sqlx.DB
}

// NewRatingRepository creates a new RatingRepository.
func NewRatingRepository(db *sqlx.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Create inserts a new rating row.
func (r *RatingRepository) Create(rt *models.SupplierRating) error {
	const q = `
        INSERT INTO supplier_ratings
            (rater_supplier_id, rated_supplier_id, score, comment, is_approved, is_read, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW())
        RETURNING id, created_at`
	return r.db.QueryRow(q,
		rt.RaterSupplierID, rt.RatedSupplierID, rt.Score, rt.Comment, rt.IsApproved, rt.IsRead,
	).Scan(&rt.ID, &rt.CreatedAt)
}

// GetByID returns a rating by id.
func (r *RatingRepository) GetByID(id int) (*models.SupplierRating, error) {
	const q = `SELECT * FROM supplier_ratings WHERE id = $1 LIMIT 1`
	var rt models.SupplierRating
	if err := r.db.Get(&rt, q, id); err != nil {
		return nil, err
	}
	return &rt, nil
}

// ListInvolving returns approved ratings where the supplier is rater or
// rated, newest first. Unapproved ratings stay out of the inbox.
func (r *RatingRepository) ListInvolving(supplierID int) ([]models.SupplierRating, error) {
	const q = `
        SELECT * FROM supplier_ratings
        WHERE (rated_supplier_id = $1 OR rater_supplier_id = $1) AND is_approved = TRUE
        ORDER BY created_at DESC`
	var list []models.SupplierRating
	if err := r.db.Select(&list, q, supplierID); err != nil {
		return nil, err
	}
	return list, nil
}

// MarkRead sets is_read on a rating. Idempotent.
func (r *RatingRepository) MarkRead(id int) error {
	const q = `UPDATE supplier_ratings SET is_read = TRUE, updated_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(q, id)
	return err
}

// CountUnreadRated returns the number of unread approved ratings about the
// supplier.
func (r *RatingRepository) CountUnreadRated(supplierID int) (int, error) {
	const q = `
        SELECT COUNT(*) FROM supplier_ratings
        WHERE rated_supplier_id = $1 AND is_approved = TRUE AND is_read = FALSE`
	var n int
	if err := r.db.Get(&n, q, supplierID); err != nil {
		return 0, err
	}
	return n, nil
}

// GetReplyByRatingID returns the reply attached to a rating, or nil when the
// rating has no reply yet.
func (r *RatingRepository) GetReplyByRatingID(ratingID int) (*models.ReviewReply, error) {
	const q = `SELECT * FROM review_replies WHERE supplier_rating_id = $1 LIMIT 1`
	var rep models.ReviewReply
	if err := r.db.Get(&rep, q, ratingID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &rep, nil
}

// CreateReply inserts a review reply row.
func (r *RatingRepository) CreateReply(rep *models.ReviewReply) error {
	const q = `
        INSERT INTO review_replies (supplier_rating_id, supplier_id, reply, created_at, updated_at)
        VALUES ($1,$2,$3,NOW(),NOW())
        RETURNING id, created_at`
	return r.db.QueryRow(q, rep.SupplierRatingID, rep.SupplierID, rep.Reply).
		Scan(&rep.ID, &rep.CreatedAt)
}

// ListRepliesInvolving returns review replies the supplier wrote plus replies
// to ratings the supplier authored, newest first.
func (r *RatingRepository) ListRepliesInvolving(supplierID int) ([]models.ReviewReply, error) {
	const q = `
        SELECT rr.* FROM review_replies rr
        LEFT JOIN supplier_ratings sr ON rr.supplier_rating_id = sr.id
        WHERE rr.supplier_id = $1 OR sr.rater_supplier_id = $1
        ORDER BY rr.created_at DESC`
	var list []models.ReviewReply
	if err := r.db.Select(&list, q, supplierID); err != nil {
		return nil, err
	}
	return list, nil
}
