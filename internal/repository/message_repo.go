package repository

import (
	"github.com/jmoiron/sqlx"

	"github.com/TijaraHub/tijara_api/internal/models"
)

// MessageRepository handles data access for direct messages.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts a new message row.
func (r *MessageRepository) Create(m *models.Message) error {
	const q = `
        INSERT INTO messages
            (sender_supplier_id, receiver_supplier_id, subject, body, is_read, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,NOW(),NOW())
        RETURNING id, created_at`
	return r.db.QueryRow(q,
		m.SenderSupplierID, m.ReceiverSupplierID, m.Subject, m.Body, m.IsRead,
	).Scan(&m.ID, &m.CreatedAt)
}

// GetByID returns a message by id.
func (r *MessageRepository) GetByID(id int) (*models.Message, error) {
	const q = `SELECT * FROM messages WHERE id = $1 LIMIT 1`
	var m models.Message
	if err := r.db.Get(&m, q, id); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListInvolving returns every message where the supplier is sender or
// receiver, newest first.
func (r *MessageRepository) ListInvolving(supplierID int) ([]models.Message, error) {
	const q = `
        SELECT * FROM messages
        WHERE sender_supplier_id = $1 OR receiver_supplier_id = $1
        ORDER BY created_at DESC`
	var list []models.Message
	if err := r.db.Select(&list, q, supplierID); err != nil {
		return nil, err
	}
	return list, nil
}

// MarkRead sets is_read on a message. Idempotent.
func (r *MessageRepository) MarkRead(id int) error {
	const q = `UPDATE messages SET is_read = TRUE, updated_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(q, id)
	return err
}

// CountUnreadReceived returns the number of unread messages addressed to the
// supplier.
func (r *MessageRepository) CountUnreadReceived(supplierID int) (int, error) {
	const q = `
        SELECT COUNT(*) FROM messages
        WHERE receiver_supplier_id = $1 AND is_read = FALSE`
	var n int
	if err := r.db.Get(&n, q, supplierID); err != nil {
		return 0, err
	}
	return n, nil
}
