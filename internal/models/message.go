package models

import (
	"strings"
	"time"
)

// ReplySubjectPrefix marks a message row as a reply to another message.
const ReplySubjectPrefix = "Re: "

// Message is a direct supplier-to-supplier message. There is no threading
// table; a reply is a new row whose subject carries the "Re: " prefix.
type Message struct {
	ID                 int       `db:"id" json:"id"`
	SenderSupplierID   int       `db:"sender_supplier_id" json:"senderSupplierId"`
	ReceiverSupplierID int       `db:"receiver_supplier_id" json:"receiverSupplierId"`
	Subject            string    `db:"subject" json:"subject"`
	Body               string    `db:"body" json:"body"`
	IsRead             bool      `db:"is_read" json:"isRead"`
	SenderEmail        string    `db:"-" json:"senderEmail,omitempty"`
	ReceiverEmail      string    `db:"-" json:"receiverEmail,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time `db:"updated_at" json:"-"`
}

func (m *Message) Resource() ResourceType { return ResourceMessage }
func (m *Message) ItemID() int            { return m.ID }
func (m *Message) Read() bool             { return m.IsRead }
func (m *Message) CreatedTime() time.Time { return m.CreatedAt }

func (m *Message) Direction(supplierID int) Direction {
	if m.SenderSupplierID == supplierID {
		return DirectionSent
	}
	return DirectionReceived
}

// IsReply reports whether the message subject carries the reply prefix.
func (m *Message) IsReply() bool {
	return strings.HasPrefix(m.Subject, ReplySubjectPrefix)
}

// ReplySubject returns the subject for a reply to s, adding the prefix at
// most once.
func ReplySubject(s string) string {
	if strings.HasPrefix(s, ReplySubjectPrefix) {
		return s
	}
	return ReplySubjectPrefix + s
}
