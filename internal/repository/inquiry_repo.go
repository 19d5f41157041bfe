package repository

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/TijaraHub/tijara_api/internal/models"
)

// InquiryRepository handles data access for supplier-to-supplier inquiries
// and their reply threads.
type InquiryRepository struct {
	db *sqlx.DB
}

// NewInquiryRepository creates a new InquiryRepository.
func NewInquiryRepository(db *sqlx.DB) *InquiryRepository {
	return &InquiryRepository{db: db}
}

// Create inserts a new inquiry or reply row.
func (r *InquiryRepository) Create(inq *models.SupplierInquiry) error {
	const q = `
        INSERT INTO supplier_inquiries
            (sender_supplier_id, receiver_supplier_id, subject, message, parent_id, type, is_read, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,NOW(),NOW())
        RETURNING id, created_at`
	return r.db.QueryRow(q,
		inq.SenderSupplierID, inq.ReceiverSupplierID, inq.Subject, inq.Message,
		inq.ParentID, inq.Type, inq.IsRead,
	).Scan(&inq.ID, &inq.CreatedAt)
}

// GetByID returns an inquiry by id.
func (r *InquiryRepository) GetByID(id int) (*models.SupplierInquiry, error) {
	const q = `SELECT * FROM supplier_inquiries WHERE id = $1 LIMIT 1`
	var inq models.SupplierInquiry
	if err := r.db.Get(&inq, q, id); err != nil {
		return nil, err
	}
	return &inq, nil
}

// ListInvolving returns every inquiry and reply where the supplier is sender
// or receiver, newest first.
func (r *InquiryRepository) ListInvolving(supplierID int) ([]models.SupplierInquiry, error) {
	const q = `
        SELECT * FROM supplier_inquiries
        WHERE sender_supplier_id = $1 OR receiver_supplier_id = $1
        ORDER BY created_at DESC`
	var list []models.SupplierInquiry
	if err := r.db.Select(&list, q, supplierID); err != nil {
		return nil, err
	}
	return list, nil
}

// ListThread returns an original inquiry followed by its replies in
// chronological order. Threading is one level deep.
func (r *InquiryRepository) ListThread(rootID int) ([]models.SupplierInquiry, error) {
	const q = `
        SELECT * FROM supplier_inquiries
        WHERE id = $1 OR parent_id = $1
        ORDER BY created_at ASC`
	var list []models.SupplierInquiry
	if err := r.db.Select(&list, q, rootID); err != nil {
		return nil, err
	}
	return list, nil
}

// MarkRead sets is_read on an inquiry. Idempotent.
func (r *InquiryRepository) MarkRead(id int) error {
	const q = `UPDATE supplier_inquiries SET is_read = TRUE, updated_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(q, id)
	return err
}

// CountSentSince returns how many inquiries (not replies) the supplier has
// sent since the given time. Used for plan quota checks.
func (r *InquiryRepository) CountSentSince(supplierID int, since time.Time) (int, error) {
	const q = `
        SELECT COUNT(*) FROM supplier_inquiries
        WHERE sender_supplier_id = $1 AND type = 'inquiry' AND created_at >= $2`
	var n int
	if err := r.db.Get(&n, q, supplierID, since); err != nil {
		return 0, err
	}
	return n, nil
}

// CountUnreadReceived returns the number of unread inquiries (including reply
// rows) addressed to the supplier.
func (r *InquiryRepository) CountUnreadReceived(supplierID int) (int, error) {
	const q = `
        SELECT COUNT(*) FROM supplier_inquiries
        WHERE receiver_supplier_id = $1 AND is_read = FALSE`
	var n int
	if err := r.db.Get(&n, q, supplierID); err != nil {
		return 0, err
	}
	return n, nil
}
