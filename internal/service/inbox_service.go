package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/TijaraHub/tijara_api/internal/cache"
	"github.com/TijaraHub/tijara_api/internal/models"
	"github.com/TijaraHub/tijara_api/internal/utils"
)

// Inbox filter values.
const (
	FilterAll      = "all"
	FilterSent     = "sent"
	FilterReceived = "received"
)

// InquiryStore is the inquiry data access surface the inbox service needs.
type InquiryStore interface {
	Create(inq *models.SupplierInquiry) error
	GetByID(id int) (*models.SupplierInquiry, error)
	ListInvolving(supplierID int) ([]models.SupplierInquiry, error)
	ListThread(rootID int) ([]models.SupplierInquiry, error)
	MarkRead(id int) error
	CountUnreadReceived(supplierID int) (int, error)
}

// MessageStore is the message data access surface the inbox service needs.
type MessageStore interface {
	Create(m *models.Message) error
	GetByID(id int) (*models.Message, error)
	ListInvolving(supplierID int) ([]models.Message, error)
	MarkRead(id int) error
	CountUnreadReceived(supplierID int) (int, error)
}

// RatingStore is the rating/reply data access surface the inbox service needs.
type RatingStore interface {
	Create(rt *models.SupplierRating) error
	GetByID(id int) (*models.SupplierRating, error)
	ListInvolving(supplierID int) ([]models.SupplierRating, error)
	MarkRead(id int) error
	CountUnreadRated(supplierID int) (int, error)
	GetReplyByRatingID(ratingID int) (*models.ReviewReply, error)
	CreateReply(rep *models.ReviewReply) error
	ListRepliesInvolving(supplierID int) ([]models.ReviewReply, error)
}

// SupplierStore resolves supplier accounts and profiles for display fields.
type SupplierStore interface {
	GetByID(id int) (*models.Supplier, error)
	GetProfile(supplierID int) (*models.SupplierProfile, error)
}

// InboxService merges the four communication entity types into one inbox
// view and handles mark-read and polymorphic replies.
type InboxService struct {
	inquiries InquiryStore
	messages  MessageStore
	ratings   RatingStore
	suppliers SupplierStore
	unread    *cache.UnreadCache
}

// NewInboxService constructs an InboxService. The unread cache may be nil,
// in which case counts always hit the store.
func NewInboxService(
	inquiries InquiryStore,
	messages MessageStore,
	ratings RatingStore,
	suppliers SupplierStore,
	unread *cache.UnreadCache,
) *InboxService {
	return &InboxService{
		inquiries: inquiries,
		messages:  messages,
		ratings:   ratings,
		suppliers: suppliers,
		unread:    unread,
	}
}

// InboxEntry is the serialized form of one inbox item.
type InboxEntry struct {
	Resource       models.ResourceType `json:"resourceType"`
	ID             int                 `json:"id"`
	Direction      models.Direction    `json:"direction"`
	Subject        string              `json:"subject,omitempty"`
	Body           string              `json:"body,omitempty"`
	Score          int                 `json:"score,omitempty"`
	ParentID       *int                `json:"parentId,omitempty"`
	CounterpartyID *int                `json:"counterpartyId,omitempty"`
	SenderEmail    string              `json:"senderEmail,omitempty"`
	ReceiverEmail  string              `json:"receiverEmail,omitempty"`
	IsRead         bool                `json:"isRead"`
	CreatedAt      time.Time           `json:"createdAt"`
}

// InboxView is the full inbox response shape. All three keyed lists are
// always present regardless of filter.
type InboxView struct {
	Inbox           []InboxEntry `json:"inbox"`
	Sent            []InboxEntry `json:"sent"`
	All             []InboxEntry `json:"all"`
	UnreadCount     int          `json:"unreadCount"`
	AvgResponseTime string       `json:"avgResponseTime"`
	ResponseRate    string       `json:"responseRate"`
}

// ListInbox returns the merged communication view for a supplier. A failed
// fetch of one entity type degrades to an empty source with a logged warning
// rather than failing the whole read.
func (s *InboxService) ListInbox(ctx context.Context, supplierID int, filter string) (*InboxView, error) {
	switch filter {
	case "", FilterAll:
		filter = FilterAll
	case FilterSent, FilterReceived:
	default:
		return nil, utils.ErrValidation
	}

	inquiries, err := s.inquiries.ListInvolving(supplierID)
	if err != nil {
		log.Warn().Err(err).Int("supplier_id", supplierID).Msg("inbox: inquiry fetch failed, treating as empty")
		inquiries = nil
	}
	messages, err := s.messages.ListInvolving(supplierID)
	if err != nil {
		log.Warn().Err(err).Int("supplier_id", supplierID).Msg("inbox: message fetch failed, treating as empty")
		messages = nil
	}
	ratings, err := s.ratings.ListInvolving(supplierID)
	if err != nil {
		log.Warn().Err(err).Int("supplier_id", supplierID).Msg("inbox: rating fetch failed, treating as empty")
		ratings = nil
	}
	replies, err := s.ratings.ListRepliesInvolving(supplierID)
	if err != nil {
		log.Warn().Err(err).Int("supplier_id", supplierID).Msg("inbox: review reply fetch failed, treating as empty")
		replies = nil
	}

	items := make([]models.InboxItem, 0, len(inquiries)+len(messages)+len(ratings)+len(replies))
	for i := range inquiries {
		items = append(items, &inquiries[i])
	}
	for i := range messages {
		items = append(items, &messages[i])
	}
	for i := range ratings {
		items = append(items, &ratings[i])
	}
	for i := range replies {
		items = append(items, &replies[i])
	}

	sort.SliceStable(items, func(a, b int) bool {
		return items[a].CreatedTime().After(items[b].CreatedTime())
	})

	var inbox, sent []InboxEntry
	unreadCount := 0
	for _, item := range items {
		entry := s.toEntry(item, supplierID)
		if entry.Direction == models.DirectionReceived {
			inbox = append(inbox, entry)
			if !item.Read() {
				unreadCount++
			}
		} else {
			sent = append(sent, entry)
		}
	}
	if inbox == nil {
		inbox = []InboxEntry{}
	}
	if sent == nil {
		sent = []InboxEntry{}
	}

	stats := computeResponseStats(supplierID, inquiries, messages, ratings, replies)

	view := &InboxView{
		UnreadCount:     unreadCount,
		AvgResponseTime: stats.FormatAverage(),
		ResponseRate:    stats.FormatRate(),
	}
	// The filter narrows which partition is populated; the response keeps the
	// full three-list shape either way.
	switch filter {
	case FilterReceived:
		view.Inbox = inbox
		view.Sent = []InboxEntry{}
		view.All = inbox
	case FilterSent:
		view.Inbox = []InboxEntry{}
		view.Sent = sent
		view.All = sent
	default:
		view.Inbox = inbox
		view.Sent = sent
		all := make([]InboxEntry, 0, len(inbox)+len(sent))
		for _, item := range items {
			all = append(all, s.toEntry(item, supplierID))
		}
		view.All = all
	}
	return view, nil
}

func (s *InboxService) toEntry(item models.InboxItem, supplierID int) InboxEntry {
	entry := InboxEntry{
		Resource:  item.Resource(),
		ID:        item.ItemID(),
		Direction: item.Direction(supplierID),
		IsRead:    item.Read(),
		CreatedAt: item.CreatedTime(),
	}
	switch v := item.(type) {
	case *models.SupplierInquiry:
		entry.Subject = v.Subject
		entry.Body = v.Message
		entry.ParentID = v.ParentID
		other := v.OtherParty(supplierID)
		entry.CounterpartyID = &other
	case *models.Message:
		entry.Subject = v.Subject
		entry.Body = v.Body
		other := v.SenderSupplierID
		if other == supplierID {
			other = v.ReceiverSupplierID
		}
		entry.CounterpartyID = &other
		entry.SenderEmail = v.SenderEmail
		entry.ReceiverEmail = v.ReceiverEmail
	case *models.SupplierRating:
		entry.Body = v.Comment
		entry.Score = v.Score
		if v.RatedSupplierID == supplierID {
			entry.CounterpartyID = v.RaterSupplierID
		} else {
			rated := v.RatedSupplierID
			entry.CounterpartyID = &rated
		}
	case *models.ReviewReply:
		entry.Body = v.Reply
		rating := v.SupplierRatingID
		entry.ParentID = &rating
	}
	return entry
}

// MarkRead flags an item as read. The caller must be the designated receiver
// (or rated party) for the item type. Marking an already-read item is a no-op.
func (s *InboxService) MarkRead(ctx context.Context, supplierID int, itemType string, id int) error {
	switch normalizeItemType(itemType) {
	case models.ResourceInquiry:
		inq, err := s.inquiries.GetByID(id)
		if err != nil {
			return mapNoRows(err)
		}
		if inq.ReceiverSupplierID != supplierID {
			return utils.ErrForbidden
		}
		if inq.IsRead {
			return nil
		}
		if err := s.inquiries.MarkRead(id); err != nil {
			return err
		}
	case models.ResourceMessage:
		m, err := s.messages.GetByID(id)
		if err != nil {
			return mapNoRows(err)
		}
		if m.ReceiverSupplierID != supplierID {
			return utils.ErrForbidden
		}
		if m.IsRead {
			return nil
		}
		if err := s.messages.MarkRead(id); err != nil {
			return err
		}
	case models.ResourceRating:
		rt, err := s.ratings.GetByID(id)
		if err != nil {
			return mapNoRows(err)
		}
		if rt.RatedSupplierID != supplierID {
			return utils.ErrForbidden
		}
		if rt.IsRead {
			return nil
		}
		if err := s.ratings.MarkRead(id); err != nil {
			return err
		}
	default:
		return utils.ErrInvalidType
	}
	s.invalidateUnread(ctx, supplierID)
	return nil
}

// Reply creates the type-appropriate reply record and marks the original
// read. Rating replies honor the one-reply invariant.
func (s *InboxService) Reply(ctx context.Context, supplierID int, itemType string, id int, text string) (*InboxEntry, error) {
	if text == "" {
		return nil, utils.ErrValidation
	}

	switch normalizeItemType(itemType) {
	case models.ResourceInquiry:
		return s.replyToInquiry(ctx, supplierID, id, text)
	case models.ResourceMessage:
		return s.replyToMessage(ctx, supplierID, id, text)
	case models.ResourceRating:
		return s.replyToRating(ctx, supplierID, id, text)
	default:
		return nil, utils.ErrInvalidType
	}
}

func (s *InboxService) replyToInquiry(ctx context.Context, supplierID, id int, text string) (*InboxEntry, error) {
	orig, err := s.inquiries.GetByID(id)
	if err != nil {
		return nil, mapNoRows(err)
	}
	if !orig.Involves(supplierID) {
		return nil, utils.ErrForbidden
	}

	// Threads are one level deep: replying to a reply attaches to the root.
	rootID := orig.ID
	if orig.ParentID != nil {
		rootID = *orig.ParentID
	}

	reply := &models.SupplierInquiry{
		SenderSupplierID:   supplierID,
		ReceiverSupplierID: orig.OtherParty(supplierID),
		Subject:            models.ReplySubject(orig.Subject),
		Message:            text,
		ParentID:           &rootID,
		Type:               models.InquiryTypeReply,
	}
	if err := s.inquiries.Create(reply); err != nil {
		return nil, err
	}
	if !orig.IsRead {
		if err := s.inquiries.MarkRead(orig.ID); err != nil {
			log.Warn().Err(err).Int("inquiry_id", orig.ID).Msg("failed to mark original inquiry read")
		}
	}
	s.invalidateUnread(ctx, supplierID, reply.ReceiverSupplierID)
	entry := s.toEntry(reply, supplierID)
	return &entry, nil
}

func (s *InboxService) replyToMessage(ctx context.Context, supplierID, id int, text string) (*InboxEntry, error) {
	orig, err := s.messages.GetByID(id)
	if err != nil {
		return nil, mapNoRows(err)
	}
	if orig.SenderSupplierID != supplierID && orig.ReceiverSupplierID != supplierID {
		return nil, utils.ErrForbidden
	}

	receiverID := orig.SenderSupplierID
	if receiverID == supplierID {
		receiverID = orig.ReceiverSupplierID
	}

	reply := &models.Message{
		SenderSupplierID:   supplierID,
		ReceiverSupplierID: receiverID,
		Subject:            models.ReplySubject(orig.Subject),
		Body:               text,
	}
	if err := s.messages.Create(reply); err != nil {
		return nil, err
	}
	reply.SenderEmail = s.displayEmail(supplierID)
	reply.ReceiverEmail = s.displayEmail(receiverID)

	if !orig.IsRead {
		if err := s.messages.MarkRead(orig.ID); err != nil {
			log.Warn().Err(err).Int("message_id", orig.ID).Msg("failed to mark original message read")
		}
	}
	s.invalidateUnread(ctx, supplierID, receiverID)
	entry := s.toEntry(reply, supplierID)
	return &entry, nil
}

func (s *InboxService) replyToRating(ctx context.Context, supplierID, id int, text string) (*InboxEntry, error) {
	rt, err := s.ratings.GetByID(id)
	if err != nil {
		return nil, mapNoRows(err)
	}
	if rt.RatedSupplierID != supplierID {
		return nil, utils.ErrForbidden
	}
	existing, err := s.ratings.GetReplyByRatingID(rt.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, utils.ErrAlreadyReplied
	}

	reply := &models.ReviewReply{
		SupplierRatingID: rt.ID,
		SupplierID:       supplierID,
		Reply:            text,
	}
	if err := s.ratings.CreateReply(reply); err != nil {
		return nil, err
	}
	if !rt.IsRead {
		if err := s.ratings.MarkRead(rt.ID); err != nil {
			log.Warn().Err(err).Int("rating_id", rt.ID).Msg("failed to mark original rating read")
		}
	}
	s.invalidateUnread(ctx, supplierID)
	entry := s.toEntry(reply, supplierID)
	return &entry, nil
}

// InquiryThread returns an inquiry's full thread, oldest first. Either party
// of the thread may view it; asking with a reply id resolves to the root.
func (s *InboxService) InquiryThread(ctx context.Context, supplierID, id int) ([]InboxEntry, error) {
	inq, err := s.inquiries.GetByID(id)
	if err != nil {
		return nil, mapNoRows(err)
	}
	if !inq.Involves(supplierID) {
		return nil, utils.ErrForbidden
	}

	rootID := inq.ID
	if inq.ParentID != nil {
		rootID = *inq.ParentID
	}
	thread, err := s.inquiries.ListThread(rootID)
	if err != nil {
		return nil, err
	}

	entries := make([]InboxEntry, 0, len(thread))
	for i := range thread {
		entries = append(entries, s.toEntry(&thread[i], supplierID))
	}
	return entries, nil
}

// SubmitRating records a supplier's rating of another supplier. Ratings enter
// unapproved (invisible in the rated supplier's inbox) until moderation.
func (s *InboxService) SubmitRating(ctx context.Context, raterID, ratedID, score int, comment string) (*models.SupplierRating, error) {
	if score < 1 || score > 5 || ratedID == raterID {
		return nil, utils.ErrValidation
	}
	if _, err := s.suppliers.GetByID(ratedID); err != nil {
		return nil, mapNoRows(err)
	}

	rt := &models.SupplierRating{
		RaterSupplierID: &raterID,
		RatedSupplierID: ratedID,
		Score:           score,
		Comment:         comment,
	}
	if err := s.ratings.Create(rt); err != nil {
		return nil, err
	}
	return rt, nil
}

// SendInquiry opens a new inquiry thread to another supplier.
func (s *InboxService) SendInquiry(ctx context.Context, senderID, receiverID int, subject, message string) (*InboxEntry, error) {
	if subject == "" || message == "" || receiverID == senderID {
		return nil, utils.ErrValidation
	}
	if _, err := s.suppliers.GetByID(receiverID); err != nil {
		return nil, mapNoRows(err)
	}

	inq := &models.SupplierInquiry{
		SenderSupplierID:   senderID,
		ReceiverSupplierID: receiverID,
		Subject:            subject,
		Message:            message,
		Type:               models.InquiryTypeInquiry,
	}
	if err := s.inquiries.Create(inq); err != nil {
		return nil, err
	}
	s.invalidateUnread(ctx, receiverID)
	entry := s.toEntry(inq, senderID)
	return &entry, nil
}

// SendMessage sends a direct message to another supplier.
func (s *InboxService) SendMessage(ctx context.Context, senderID, receiverID int, subject, body string) (*InboxEntry, error) {
	if subject == "" || body == "" || receiverID == senderID {
		return nil, utils.ErrValidation
	}
	if _, err := s.suppliers.GetByID(receiverID); err != nil {
		return nil, mapNoRows(err)
	}

	m := &models.Message{
		SenderSupplierID:   senderID,
		ReceiverSupplierID: receiverID,
		Subject:            subject,
		Body:               body,
	}
	if err := s.messages.Create(m); err != nil {
		return nil, err
	}
	m.SenderEmail = s.displayEmail(senderID)
	m.ReceiverEmail = s.displayEmail(receiverID)
	s.invalidateUnread(ctx, receiverID)
	entry := s.toEntry(m, senderID)
	return &entry, nil
}

// UnreadCount returns the total unread items addressed to the supplier
// across all entity types, served from cache when fresh.
func (s *InboxService) UnreadCount(ctx context.Context, supplierID int) (int, error) {
	if s.unread != nil {
		if n, ok := s.unread.Get(ctx, supplierID); ok {
			return n, nil
		}
	}

	inquiries, err := s.inquiries.CountUnreadReceived(supplierID)
	if err != nil {
		return 0, err
	}
	messages, err := s.messages.CountUnreadReceived(supplierID)
	if err != nil {
		return 0, err
	}
	ratings, err := s.ratings.CountUnreadRated(supplierID)
	if err != nil {
		return 0, err
	}

	total := inquiries + messages + ratings
	if s.unread != nil {
		if err := s.unread.Set(ctx, supplierID, total); err != nil {
			log.Warn().Err(err).Int("supplier_id", supplierID).Msg("failed to cache unread count")
		}
	}
	return total, nil
}

func (s *InboxService) invalidateUnread(ctx context.Context, supplierIDs ...int) {
	if s.unread == nil {
		return
	}
	if err := s.unread.Invalidate(ctx, supplierIDs...); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate unread cache")
	}
}

// displayEmail resolves the supplier's contact email for message display,
// preferring the profile contact address over the account email.
func (s *InboxService) displayEmail(supplierID int) string {
	sup, err := s.suppliers.GetByID(supplierID)
	if err != nil {
		return ""
	}
	profile, err := s.suppliers.GetProfile(supplierID)
	if err != nil {
		return sup.Email
	}
	return profile.DisplayEmail(sup.Email)
}

// normalizeItemType maps the accepted type discriminators (including the
// legacy long forms) onto resource types. Unknown values map to "".
func normalizeItemType(t string) models.ResourceType {
	switch t {
	case "inquiry", "supplier_to_supplier_inquiry":
		return models.ResourceInquiry
	case "message":
		return models.ResourceMessage
	case "rating", "supplier_rating":
		return models.ResourceRating
	default:
		return models.ResourceType("")
	}
}

func mapNoRows(err error) error {
	if err == sql.ErrNoRows {
		return utils.ErrNotFound
	}
	return err
}

// responseStats accumulates reply matching results across entity types.
type responseStats struct {
	TotalSeconds  float64
	MatchedCount  int
	TotalReceived int
	Responded     int
}

// computeResponseStats walks every received original item and looks for the
// supplier's first matching reply. The matching rule is per type: inquiries
// match on parent_id, messages on "Re: " subject back to the original sender,
// ratings on their attached review reply.
func computeResponseStats(
	supplierID int,
	inquiries []models.SupplierInquiry,
	messages []models.Message,
	ratings []models.SupplierRating,
	replies []models.ReviewReply,
) responseStats {
	var st responseStats

	for i := range inquiries {
		orig := &inquiries[i]
		if orig.Type == models.InquiryTypeReply || orig.ReceiverSupplierID != supplierID {
			continue
		}
		st.TotalReceived++
		var first *models.SupplierInquiry
		for j := range inquiries {
			rep := &inquiries[j]
			if rep.ParentID == nil || *rep.ParentID != orig.ID || rep.SenderSupplierID != supplierID {
				continue
			}
			if first == nil || rep.CreatedAt.Before(first.CreatedAt) {
				first = rep
			}
		}
		if first != nil {
			st.TotalSeconds += first.CreatedAt.Sub(orig.CreatedAt).Seconds()
			st.MatchedCount++
			st.Responded++
		}
	}

	for i := range messages {
		orig := &messages[i]
		if orig.ReceiverSupplierID != supplierID || orig.IsReply() {
			continue
		}
		st.TotalReceived++
		want := models.ReplySubject(orig.Subject)
		var first *models.Message
		for j := range messages {
			rep := &messages[j]
			if rep.SenderSupplierID != supplierID ||
				rep.ReceiverSupplierID != orig.SenderSupplierID ||
				rep.Subject != want ||
				!rep.CreatedAt.After(orig.CreatedAt) {
				continue
			}
			if first == nil || rep.CreatedAt.Before(first.CreatedAt) {
				first = rep
			}
		}
		if first != nil {
			st.TotalSeconds += first.CreatedAt.Sub(orig.CreatedAt).Seconds()
			st.MatchedCount++
			st.Responded++
		}
	}

	for i := range ratings {
		rt := &ratings[i]
		if rt.RatedSupplierID != supplierID {
			continue
		}
		st.TotalReceived++
		for j := range replies {
			rep := &replies[j]
			if rep.SupplierRatingID == rt.ID && rep.SupplierID == supplierID {
				st.TotalSeconds += rep.CreatedAt.Sub(rt.CreatedAt).Seconds()
				st.MatchedCount++
				st.Responded++
				break
			}
		}
	}

	return st
}

// FormatAverage renders the average response time in human units.
func (st responseStats) FormatAverage() string {
	if st.MatchedCount == 0 {
		return "0 seconds"
	}
	avg := st.TotalSeconds / float64(st.MatchedCount)
	switch {
	case avg < 60:
		return fmt.Sprintf("%.0f seconds", avg)
	case avg < 3600:
		return fmt.Sprintf("%.1f minutes", avg/60)
	case avg < 86400:
		return fmt.Sprintf("%.1f hours", avg/3600)
	default:
		return fmt.Sprintf("%.1f days", avg/86400)
	}
}

// FormatRate renders the response rate as a percentage string.
func (st responseStats) FormatRate() string {
	if st.TotalReceived == 0 {
		return "0%"
	}
	rate := float64(st.Responded) / float64(st.TotalReceived) * 100
	return fmt.Sprintf("%.1f%%", rate)
}
