package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TijaraHub/tijara_api/internal/models"
	"github.com/TijaraHub/tijara_api/internal/utils"
)

type fakeInquiryStore struct {
	items    []models.SupplierInquiry
	nextID   int
	listErr  error
	sentSubs int
}

func (f *fakeInquiryStore) Create(inq *models.SupplierInquiry) error {
	f.nextID++
	inq.ID = f.nextID
	if inq.CreatedAt.IsZero() {
		inq.CreatedAt = time.Now()
	}
	f.items = append(f.items, *inq)
	return nil
}

func (f *fakeInquiryStore) GetByID(id int) (*models.SupplierInquiry, error) {
	for i := range f.items {
		if f.items[i].ID == id {
			cp := f.items[i]
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeInquiryStore) ListInvolving(supplierID int) ([]models.SupplierInquiry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.SupplierInquiry
	for _, it := range f.items {
		if it.SenderSupplierID == supplierID || it.ReceiverSupplierID == supplierID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeInquiryStore) ListThread(rootID int) ([]models.SupplierInquiry, error) {
	var out []models.SupplierInquiry
	for _, it := range f.items {
		if it.ID == rootID || (it.ParentID != nil && *it.ParentID == rootID) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeInquiryStore) MarkRead(id int) error {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].IsRead = true
			return nil
		}
	}
	return nil
}

func (f *fakeInquiryStore) CountUnreadReceived(supplierID int) (int, error) {
	n := 0
	for _, it := range f.items {
		if it.ReceiverSupplierID == supplierID && !it.IsRead {
			n++
		}
	}
	return n, nil
}

type fakeMessageStore struct {
	items   []models.Message
	nextID  int
	listErr error
}

func (f *fakeMessageStore) Create(m *models.Message) error {
	f.nextID++
	m.ID = f.nextID
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	f.items = append(f.items, *m)
	return nil
}

func (f *fakeMessageStore) GetByID(id int) (*models.Message, error) {
	for i := range f.items {
		if f.items[i].ID == id {
			cp := f.items[i]
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeMessageStore) ListInvolving(supplierID int) ([]models.Message, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Message
	for _, it := range f.items {
		if it.SenderSupplierID == supplierID || it.ReceiverSupplierID == supplierID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeMessageStore) MarkRead(id int) error {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].IsRead = true
		}
	}
	return nil
}

func (f *fakeMessageStore) CountUnreadReceived(supplierID int) (int, error) {
	n := 0
	for _, it := range f.items {
		if it.ReceiverSupplierID == supplierID && !it.IsRead {
			n++
		}
	}
	return n, nil
}

type fakeRatingStore struct {
	ratings []models.SupplierRating
	replies []models.ReviewReply
	nextID  int
	listErr error
}

func (f *fakeRatingStore) Create(rt *models.SupplierRating) error {
	f.nextID++
	rt.ID = f.nextID
	if rt.CreatedAt.IsZero() {
		rt.CreatedAt = time.Now()
	}
	f.ratings = append(f.ratings, *rt)
	return nil
}

func (f *fakeRatingStore) GetByID(id int) (*models.SupplierRating, error) {
	for i := range f.ratings {
		if f.ratings[i].ID == id {
			cp := f.ratings[i]
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRatingStore) ListInvolving(supplierID int) ([]models.SupplierRating, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.SupplierRating
	for _, it := range f.ratings {
		if !it.IsApproved {
			continue
		}
		if it.RatedSupplierID == supplierID || (it.RaterSupplierID != nil && *it.RaterSupplierID == supplierID) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeRatingStore) MarkRead(id int) error {
	for i := range f.ratings {
		if f.ratings[i].ID == id {
			f.ratings[i].IsRead = true
		}
	}
	return nil
}

func (f *fakeRatingStore) CountUnreadRated(supplierID int) (int, error) {
	n := 0
	for _, it := range f.ratings {
		if it.RatedSupplierID == supplierID && it.IsApproved && !it.IsRead {
			n++
		}
	}
	return n, nil
}

func (f *fakeRatingStore) GetReplyByRatingID(ratingID int) (*models.ReviewReply, error) {
	for i := range f.replies {
		if f.replies[i].SupplierRatingID == ratingID {
			cp := f.replies[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRatingStore) CreateReply(rep *models.ReviewReply) error {
	f.nextID++
	rep.ID = f.nextID
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = time.Now()
	}
	f.replies = append(f.replies, *rep)
	return nil
}

func (f *fakeRatingStore) ListRepliesInvolving(supplierID int) ([]models.ReviewReply, error) {
	var out []models.ReviewReply
	for _, rep := range f.replies {
		if rep.SupplierID == supplierID {
			out = append(out, rep)
			continue
		}
		for _, rt := range f.ratings {
			if rt.ID == rep.SupplierRatingID && rt.RaterSupplierID != nil && *rt.RaterSupplierID == supplierID {
				out = append(out, rep)
			}
		}
	}
	return out, nil
}

type fakeSupplierStore struct {
	suppliers map[int]*models.Supplier
	profiles  map[int]*models.SupplierProfile
}

func newFakeSupplierStore() *fakeSupplierStore {
	return &fakeSupplierStore{
		suppliers: map[int]*models.Supplier{},
		profiles:  map[int]*models.SupplierProfile{},
	}
}

func (f *fakeSupplierStore) GetByID(id int) (*models.Supplier, error) {
	s, ok := f.suppliers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

func (f *fakeSupplierStore) GetProfile(supplierID int) (*models.SupplierProfile, error) {
	return f.profiles[supplierID], nil
}

func newTestInboxService() (*InboxService, *fakeInquiryStore, *fakeMessageStore, *fakeRatingStore, *fakeSupplierStore) {
	inquiries := &fakeInquiryStore{}
	messages := &fakeMessageStore{}
	ratings := &fakeRatingStore{}
	suppliers := newFakeSupplierStore()
	suppliers.suppliers[1] = &models.Supplier{ID: 1, Name: "Al Noor Trading", Email: "noor@example.sa"}
	suppliers.suppliers[2] = &models.Supplier{ID: 2, Name: "Jeddah Textiles", Email: "jeddah@example.sa"}
	svc := NewInboxService(inquiries, messages, ratings, suppliers, nil)
	return svc, inquiries, messages, ratings, suppliers
}

func TestListInboxDirectionPartition(t *testing.T) {
	svc, inquiries, messages, ratings, _ := newTestInboxService()
	base := time.Now().Add(-time.Hour)

	inquiries.items = []models.SupplierInquiry{
		{ID: 1, SenderSupplierID: 2, ReceiverSupplierID: 1, Subject: "Bulk order", Type: models.InquiryTypeInquiry, CreatedAt: base},
	}
	messages.items = []models.Message{
		{ID: 1, SenderSupplierID: 1, ReceiverSupplierID: 2, Subject: "Catalog", CreatedAt: base.Add(time.Minute)},
	}
	ratings.ratings = []models.SupplierRating{
		{ID: 1, RatedSupplierID: 1, Score: 4, IsApproved: true, CreatedAt: base.Add(2 * time.Minute)},
	}

	view, err := svc.ListInbox(context.Background(), 1, "all")
	require.NoError(t, err)

	assert.Len(t, view.Inbox, 2)
	assert.Len(t, view.Sent, 1)
	assert.Len(t, view.All, 3)
	assert.Equal(t, models.ResourceRating, view.All[0].Resource) // newest first
	assert.Equal(t, models.DirectionSent, view.Sent[0].Direction)
	assert.Equal(t, 2, view.UnreadCount)
}

func TestListInboxFilterKeepsShape(t *testing.T) {
	svc, inquiries, _, _, _ := newTestInboxService()
	inquiries.items = []models.SupplierInquiry{
		{ID: 1, SenderSupplierID: 1, ReceiverSupplierID: 2, Subject: "Quote", Type: models.InquiryTypeInquiry, CreatedAt: time.Now()},
	}

	view, err := svc.ListInbox(context.Background(), 1, "sent")
	require.NoError(t, err)

	assert.NotNil(t, view.Inbox)
	assert.Empty(t, view.Inbox)
	assert.Len(t, view.Sent, 1)
	assert.Len(t, view.All, 1)
}

func TestListInboxRejectsUnknownFilter(t *testing.T) {
	svc, _, _, _, _ := newTestInboxService()
	_, err := svc.ListInbox(context.Background(), 1, "starred")
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestListInboxDegradesOnSourceFailure(t *testing.T) {
	svc, inquiries, _, ratings, _ := newTestInboxService()
	inquiries.items = []models.SupplierInquiry{
		{ID: 1, SenderSupplierID: 2, ReceiverSupplierID: 1, Subject: "Hello", Type: models.InquiryTypeInquiry, CreatedAt: time.Now()},
	}
	ratings.listErr = errors.New("connection refused")

	view, err := svc.ListInbox(context.Background(), 1, "all")
	require.NoError(t, err)
	assert.Len(t, view.Inbox, 1)
}

func TestListInboxAverageResponseTimeMinutes(t *testing.T) {
	svc, inquiries, _, _, _ := newTestInboxService()
	base := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	parent := 1

	inquiries.items = []models.SupplierInquiry{
		{ID: 1, SenderSupplierID: 2, ReceiverSupplierID: 1, Subject: "Pricing", Type: models.InquiryTypeInquiry, CreatedAt: base},
		{ID: 2, SenderSupplierID: 1, ReceiverSupplierID: 2, Subject: "Re: Pricing", Type: models.InquiryTypeReply, ParentID: &parent, CreatedAt: base.Add(120 * time.Second)},
	}

	view, err := svc.ListInbox(context.Background(), 1, "all")
	require.NoError(t, err)
	assert.Equal(t, "2.0 minutes", view.AvgResponseTime)
	assert.Equal(t, "100.0%", view.ResponseRate)
}

func TestListInboxResponseRate(t *testing.T) {
	svc, inquiries, _, _, _ := newTestInboxService()
	base := time.Now().Add(-24 * time.Hour)

	// four originals received, three answered
	for i := 1; i <= 4; i++ {
		inquiries.items = append(inquiries.items, models.SupplierInquiry{
			ID: i, SenderSupplierID: 2, ReceiverSupplierID: 1,
			Subject: "Inquiry", Type: models.InquiryTypeInquiry, CreatedAt: base,
		})
	}
	for i := 1; i <= 3; i++ {
		parent := i
		inquiries.items = append(inquiries.items, models.SupplierInquiry{
			ID: 10 + i, SenderSupplierID: 1, ReceiverSupplierID: 2,
			Subject: "Re: Inquiry", Type: models.InquiryTypeReply, ParentID: &parent,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	view, err := svc.ListInbox(context.Background(), 1, "all")
	require.NoError(t, err)
	assert.Equal(t, "75.0%", view.ResponseRate)
}

func TestListInboxZeroActivity(t *testing.T) {
	svc, _, _, _, _ := newTestInboxService()

	view, err := svc.ListInbox(context.Background(), 1, "all")
	require.NoError(t, err)
	assert.Equal(t, "0 seconds", view.AvgResponseTime)
	assert.Equal(t, "0%", view.ResponseRate)
	assert.Equal(t, 0, view.UnreadCount)
}

func TestMarkReadOwnership(t *testing.T) {
	svc, inquiries, _, _, _ := newTestInboxService()
	inquiries.items = []models.SupplierInquiry{
		{ID: 5, SenderSupplierID: 2, ReceiverSupplierID: 1, Type: models.InquiryTypeInquiry},
	}

	// sender may not mark the receiver's copy read
	err := svc.MarkRead(context.Background(), 2, "inquiry", 5)
	assert.ErrorIs(t, err, utils.ErrForbidden)

	require.NoError(t, svc.MarkRead(context.Background(), 1, "inquiry", 5))
	assert.True(t, inquiries.items[0].IsRead)

	// idempotent
	require.NoError(t, svc.MarkRead(context.Background(), 1, "inquiry", 5))
}

func TestMarkReadUnknownType(t *testing.T) {
	svc, _, _, _, _ := newTestInboxService()
	err := svc.MarkRead(context.Background(), 1, "carrier_pigeon", 1)
	assert.ErrorIs(t, err, utils.ErrInvalidType)
}

func TestMarkReadNotFound(t *testing.T) {
	svc, _, _, _, _ := newTestInboxService()
	err := svc.MarkRead(context.Background(), 1, "message", 42)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestReplyToInquiryThreading(t *testing.T) {
	svc, inquiries, _, _, _ := newTestInboxService()
	inquiries.items = []models.SupplierInquiry{
		{ID: 1, SenderSupplierID: 2, ReceiverSupplierID: 1, Subject: "Lead times", Type: models.InquiryTypeInquiry, CreatedAt: time.Now()},
	}
	inquiries.nextID = 1

	entry, err := svc.Reply(context.Background(), 1, "inquiry", 1, "Two weeks ex-works")
	require.NoError(t, err)

	require.NotNil(t, entry.ParentID)
	assert.Equal(t, 1, *entry.ParentID)
	assert.Equal(t, "Re: Lead times", entry.Subject)
	assert.Equal(t, models.DirectionSent, entry.Direction)

	// original marked read, reply row addressed back to the sender
	assert.True(t, inquiries.items[0].IsRead)
	reply := inquiries.items[1]
	assert.Equal(t, 2, reply.ReceiverSupplierID)
	assert.Equal(t, models.InquiryTypeReply, reply.Type)
}

func TestReplyToInquiryForbiddenForThirdParty(t *testing.T) {
	svc, inquiries, _, _, _ := newTestInboxService()
	inquiries.items = []models.SupplierInquiry{
		{ID: 1, SenderSupplierID: 2, ReceiverSupplierID: 3, Type: models.InquiryTypeInquiry},
	}

	_, err := svc.Reply(context.Background(), 1, "inquiry", 1, "hello")
	assert.ErrorIs(t, err, utils.ErrForbidden)
}

func TestReplyToMessageNoDoublePrefix(t *testing.T) {
	svc, _, messages, _, suppliers := newTestInboxService()
	contact := "sales@jeddah.example.sa"
	suppliers.profiles[2] = &models.SupplierProfile{SupplierID: 2, ContactEmail: &contact}

	messages.items = []models.Message{
		{ID: 1, SenderSupplierID: 2, ReceiverSupplierID: 1, Subject: "Re: Catalog", CreatedAt: time.Now()},
	}
	messages.nextID = 1

	entry, err := svc.Reply(context.Background(), 1, "message", 1, "Attached")
	require.NoError(t, err)
	assert.Equal(t, "Re: Catalog", entry.Subject)

	// display emails resolve through profile contact email
	assert.Equal(t, "noor@example.sa", entry.SenderEmail)
	assert.Equal(t, contact, entry.ReceiverEmail)
}

func TestReplyToRatingSingleReply(t *testing.T) {
	svc, _, _, ratings, _ := newTestInboxService()
	ratings.ratings = []models.SupplierRating{
		{ID: 1, RatedSupplierID: 1, Score: 2, Comment: "Slow shipping", IsApproved: true},
	}

	entry, err := svc.Reply(context.Background(), 1, "rating", 1, "We have changed carriers")
	require.NoError(t, err)
	assert.Equal(t, models.ResourceReviewReply, entry.Resource)
	assert.True(t, ratings.ratings[0].IsRead)

	_, err = svc.Reply(context.Background(), 1, "rating", 1, "Another reply")
	assert.ErrorIs(t, err, utils.ErrAlreadyReplied)
}

func TestReplyToRatingOnlyRatedParty(t *testing.T) {
	svc, _, _, ratings, _ := newTestInboxService()
	ratings.ratings = []models.SupplierRating{
		{ID: 1, RatedSupplierID: 2, Score: 5, IsApproved: true},
	}

	_, err := svc.Reply(context.Background(), 1, "rating", 1, "thanks")
	assert.ErrorIs(t, err, utils.ErrForbidden)
}

func TestReplyEmptyText(t *testing.T) {
	svc, _, _, _, _ := newTestInboxService()
	_, err := svc.Reply(context.Background(), 1, "inquiry", 1, "")
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestUnreadCountSumsSources(t *testing.T) {
	svc, inquiries, messages, ratings, _ := newTestInboxService()
	inquiries.items = []models.SupplierInquiry{
		{ID: 1, SenderSupplierID: 2, ReceiverSupplierID: 1, Type: models.InquiryTypeInquiry},
		{ID: 2, SenderSupplierID: 2, ReceiverSupplierID: 1, Type: models.InquiryTypeInquiry, IsRead: true},
	}
	messages.items = []models.Message{
		{ID: 1, SenderSupplierID: 2, ReceiverSupplierID: 1},
	}
	ratings.ratings = []models.SupplierRating{
		{ID: 1, RatedSupplierID: 1, IsApproved: true},
		{ID: 2, RatedSupplierID: 1, IsApproved: false}, // unapproved never counted
	}

	n, err := svc.UnreadCount(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSendInquiryValidation(t *testing.T) {
	svc, _, _, _, _ := newTestInboxService()

	_, err := svc.SendInquiry(context.Background(), 1, 1, "subject", "self-inquiry")
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = svc.SendInquiry(context.Background(), 1, 99, "subject", "unknown receiver")
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestInquiryThreadResolvesRoot(t *testing.T) {
	svc, inquiries, _, _, _ := newTestInboxService()
	parent := 1
	base := time.Now().Add(-time.Hour)
	inquiries.items = []models.SupplierInquiry{
		{ID: 1, SenderSupplierID: 2, ReceiverSupplierID: 1, Subject: "MOQ", Type: models.InquiryTypeInquiry, CreatedAt: base},
		{ID: 2, SenderSupplierID: 1, ReceiverSupplierID: 2, Subject: "Re: MOQ", Type: models.InquiryTypeReply, ParentID: &parent, CreatedAt: base.Add(time.Minute)},
	}

	// asking with the reply id returns the whole thread from the root
	thread, err := svc.InquiryThread(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, thread, 2)
	assert.Equal(t, 1, thread[0].ID)
	assert.Equal(t, 2, thread[1].ID)

	_, err = svc.InquiryThread(context.Background(), 3, 1)
	assert.ErrorIs(t, err, utils.ErrForbidden)
}

func TestSubmitRating(t *testing.T) {
	svc, _, _, ratings, _ := newTestInboxService()

	rt, err := svc.SubmitRating(context.Background(), 1, 2, 5, "Reliable partner")
	require.NoError(t, err)
	require.NotNil(t, rt.RaterSupplierID)
	assert.Equal(t, 1, *rt.RaterSupplierID)
	assert.False(t, rt.IsApproved) // awaits moderation
	assert.Len(t, ratings.ratings, 1)

	_, err = svc.SubmitRating(context.Background(), 1, 2, 6, "score out of range")
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = svc.SubmitRating(context.Background(), 1, 1, 4, "self-rating")
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = svc.SubmitRating(context.Background(), 1, 99, 4, "unknown supplier")
	assert.ErrorIs(t, err, utils.ErrNotFound)
}
