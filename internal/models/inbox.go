package models

import "time"

// Direction classifies an inbox item relative to a supplier.
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// ResourceType tags the concrete entity behind an inbox item.
type ResourceType string

const (
	ResourceInquiry     ResourceType = "inquiry"
	ResourceMessage     ResourceType = "message"
	ResourceRating      ResourceType = "rating"
	ResourceReviewReply ResourceType = "review_reply"
)

// InboxItem is the shared surface over the four communication entity types.
// Every item involving a supplier classifies into exactly one direction.
type InboxItem interface {
	Resource() ResourceType
	ItemID() int
	Direction(supplierID int) Direction
	Read() bool
	CreatedTime() time.Time
}
