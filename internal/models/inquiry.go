package models

import "time"

type InquiryType string

const (
	InquiryTypeInquiry InquiryType = "inquiry"
	InquiryTypeReply   InquiryType = "reply"
)

// SupplierInquiry is a supplier-to-supplier inquiry. Replies are rows in the
// same table pointing at their parent; threading is exactly one level deep
// (reply-to-inquiry, never reply-to-reply).
type SupplierInquiry struct {
	ID                 int         `db:"id" json:"id"`
	SenderSupplierID   int         `db:"sender_supplier_id" json:"senderSupplierId"`
	ReceiverSupplierID int         `db:"receiver_supplier_id" json:"receiverSupplierId"`
	Subject            string      `db:"subject" json:"subject"`
	Message            string      `db:"message" json:"message"`
	ParentID           *int        `db:"parent_id" json:"parentId,omitempty"`
	Type               InquiryType `db:"type" json:"type"`
	IsRead             bool        `db:"is_read" json:"isRead"`
	CreatedAt          time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time   `db:"updated_at" json:"-"`
}

func (i *SupplierInquiry) Resource() ResourceType { return ResourceInquiry }
func (i *SupplierInquiry) ItemID() int            { return i.ID }
func (i *SupplierInquiry) Read() bool             { return i.IsRead }
func (i *SupplierInquiry) CreatedTime() time.Time { return i.CreatedAt }

func (i *SupplierInquiry) Direction(supplierID int) Direction {
	if i.SenderSupplierID == supplierID {
		return DirectionSent
	}
	return DirectionReceived
}

// OtherParty returns the counterparty supplier id relative to the given one.
func (i *SupplierInquiry) OtherParty(supplierID int) int {
	if i.SenderSupplierID == supplierID {
		return i.ReceiverSupplierID
	}
	return i.SenderSupplierID
}

// Involves reports whether the supplier is sender or receiver.
func (i *SupplierInquiry) Involves(supplierID int) bool {
	return i.SenderSupplierID == supplierID || i.ReceiverSupplierID == supplierID
}
