package document

import (
	"context"
	defError "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"doc-tracker/internal/blob"
	"doc-tracker/internal/cache"
	"doc-tracker/internal/docid"
	"doc-tracker/internal/domain"
	"doc-tracker/internal/errors"
	"doc-tracker/internal/recognition"
	"doc-tracker/internal/thread"
	"doc-tracker/internal/utils"
	"doc-tracker/internal/worker"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	listVersionKey = "docs:version"
	listCacheTTL   = 10 * time.Minute
)

type Service interface {
	PreviewID(ctx context.Context, date string, isReply bool, parentID string) (string, error)
	Create(ctx context.Context, sess *domain.Session, in CreateInput) (*domain.Document, error)
	List(ctx context.Context, q ListQuery) (*PaginatedDocuments, error)
	Get(ctx context.Context, id string) (*domain.Document, error)
	Thread(ctx context.Context, id string) ([]thread.Node, error)
	Tracking(ctx context.Context) (*thread.Report, error)
	Preview(ctx context.Context, id string) (*PreviewFile, error)
	Delete(ctx context.Context, sess *domain.Session, id, confirmation string) error
	ListDeleted(ctx context.Context) ([]domain.DeletedDocument, error)
	Summarize(ctx context.Context, id string) (string, error)
}

// Recognizer is the optional OCR and summarization backend.
type Recognizer interface {
	CanRecognize() bool
	CanSummarize() bool
	Recognize(ctx context.Context, pdf []byte) (string, error)
	Summarize(ctx context.Context, prompt string) (string, error)
}

type TaskSubmitter interface {
	Submit(t worker.Task) bool
}

type Folders struct {
	Documents string
	Deleted   string
}

type DefaultService struct {
	repository DocumentRepository
	blobs      blob.Store
	cache      cache.Cache
	recognizer Recognizer
	pool       TaskSubmitter
	locks      *KeyLock
	folders    Folders
	log        *zap.Logger
	now        func() time.Time
}

func NewService(
	repository DocumentRepository,
	blobs blob.Store,
	cache cache.Cache,
	recognizer Recognizer,
	pool TaskSubmitter,
	folders Folders,
	log *zap.Logger,
) *DefaultService {
	return &DefaultService{
		repository: repository,
		blobs:      blobs,
		cache:      cache,
		recognizer: recognizer,
		pool:       pool,
		locks:      NewKeyLock(),
		folders:    folders,
		log:        log,
		now:        time.Now,
	}
}

func (s *DefaultService) canRecognize() bool {
	return s.recognizer != nil && s.recognizer.CanRecognize() && s.pool != nil
}

func (s *DefaultService) PreviewID(ctx context.Context, date string, isReply bool, parentID string) (string, error) {
	docs, err := s.repository.ListActive(ctx)
	if err != nil {
		return "", errors.Internal(err)
	}
	id, err := docid.Generate(docs, date, isReply, parentID)
	if err != nil {
		return "", generateError(err)
	}
	return id, nil
}

func generateError(err error) error {
	switch {
	case defError.Is(err, docid.ErrInvalidDate):
		return errors.UnprocessableEntity("Date must be YYYY-MM-DD", err)
	case defError.Is(err, docid.ErrCannotGenerate):
		return errors.UnprocessableEntity("Cannot generate document id", err)
	}
	return errors.Internal(err)
}

type CreateInput struct {
	Date     string
	Type     domain.DocumentType
	Agency   string
	Subject  string
	IsReply  bool
	ParentID string
	File     []byte
}

// Validate rejects incomplete input before anything is read or uploaded.
func (in *CreateInput) Validate() error {
	in.Agency = strings.TrimSpace(in.Agency)
	in.Subject = strings.TrimSpace(in.Subject)
	if !in.IsReply {
		in.ParentID = ""
	}

	switch {
	case in.Agency == "" || in.Subject == "":
		return errors.UnprocessableEntity("Agency and subject are required", nil)
	case !in.Type.Valid():
		return errors.UnprocessableEntity("Unknown document type", nil)
	case in.IsReply && in.ParentID == "":
		return errors.UnprocessableEntity("A reply needs the original document", nil)
	case len(in.File) == 0:
		return errors.UnprocessableEntity("A PDF file is required", nil)
	case http.DetectContentType(in.File) != "application/pdf":
		return errors.UnprocessableEntity("File must be a PDF", nil)
	}
	if _, err := time.Parse(domain.DateLayout, in.Date); err != nil {
		return errors.UnprocessableEntity("Date must be YYYY-MM-DD", err)
	}
	return nil
}

// Create assigns the next id and stores the file and the row. Creators that
// would draw from the same counter are serialized.
func (s *DefaultService) Create(ctx context.Context, sess *domain.Session, in CreateInput) (*domain.Document, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(docid.LockKey(in.Date, in.IsReply, in.ParentID))
	defer unlock()

	docs, err := s.repository.ListActive(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}
	graph := thread.NewGraph(docs)
	if in.IsReply {
		if _, ok := graph.Get(in.ParentID); !ok {
			return nil, errors.UnprocessableEntity("Original document not found", nil)
		}
	}

	id, err := docid.Generate(docs, in.Date, in.IsReply, in.ParentID)
	if err != nil {
		return nil, generateError(err)
	}
	// Counting only active rows can land on a serial that a survivor still
	// holds once an older sibling was deleted.
	if _, taken := graph.Get(id); taken {
		return nil, serialInUse(id, nil)
	}

	name := fmt.Sprintf("%s_%s_%s.pdf", id, in.Agency, in.Subject)
	blobID, err := s.blobs.Upload(ctx, in.File, name, s.folders.Documents)
	if err != nil {
		return nil, errors.ServiceUnavailable("Upload failed", err)
	}

	doc := &domain.Document{
		ID:        id,
		Date:      in.Date,
		Type:      in.Type,
		Agency:    in.Agency,
		Subject:   in.Subject,
		ParentID:  in.ParentID,
		BlobID:    blobID,
		CreatedAt: s.now().UTC(),
		CreatedBy: sess.DisplayName,
		Status:    domain.StatusActive,
		OCRStatus: domain.OCRUnavailable,
	}
	if s.canRecognize() {
		doc.OCRStatus = domain.OCRPending
	}

	if err := s.repository.Append(ctx, doc); err != nil {
		// the uploaded blob stays behind
		s.log.Warn("document row not stored, blob orphaned",
			zap.String("id", id), zap.String("blob_id", blobID), zap.Error(err))
		if defError.Is(err, gorm.ErrDuplicatedKey) {
			return nil, s.duplicateError(ctx, in, id, err)
		}
		return nil, errors.Internal(err)
	}

	s.invalidateList(ctx)
	s.log.Info("document created", zap.String("id", id), zap.String("by", sess.Username))

	if doc.OCRStatus == domain.OCRPending {
		s.enqueueOCR(doc.ID, doc.BlobID)
	}

	return doc, nil
}

func serialInUse(id string, err error) error {
	return errors.Conflict(fmt.Sprintf("Document serial %s is already in use by an active document", id), err)
}

// duplicateError tells a lost race, where a fresh read yields another id,
// from a collision that every retry would hit again.
func (s *DefaultService) duplicateError(ctx context.Context, in CreateInput, id string, cause error) error {
	docs, err := s.repository.ListActive(ctx)
	if err != nil {
		return errors.Internal(err)
	}
	next, err := docid.Generate(docs, in.Date, in.IsReply, in.ParentID)
	if err != nil || next == id {
		return serialInUse(id, cause)
	}
	return errors.Conflict("Document id already taken, please retry", cause)
}

func (s *DefaultService) enqueueOCR(id, blobID string) {
	accepted := s.pool.Submit(func(ctx context.Context) error {
		return s.runOCR(ctx, id, blobID)
	})
	if !accepted {
		ctx := context.Background()
		if err := s.repository.UpdateOCR(ctx, id, "", domain.OCRFailed, nil); err != nil {
			s.log.Error("mark ocr failed", zap.String("id", id), zap.Error(err))
			return
		}
		s.invalidateList(ctx)
	}
}

func (s *DefaultService) runOCR(ctx context.Context, id, blobID string) error {
	data, err := s.blobs.Download(ctx, blobID)
	if err == nil {
		var text string
		text, err = s.recognizer.Recognize(ctx, data)
		if err == nil {
			at := s.now().UTC()
			if err := s.repository.UpdateOCR(ctx, id, text, domain.OCRDone, &at); err != nil {
				return err
			}
			s.invalidateList(ctx)
			return nil
		}
	}

	if uerr := s.repository.UpdateOCR(ctx, id, "", domain.OCRFailed, nil); uerr != nil {
		s.log.Error("mark ocr failed", zap.String("id", id), zap.Error(uerr))
	} else {
		s.invalidateList(ctx)
	}
	return fmt.Errorf("ocr %s: %w", id, err)
}

func (s *DefaultService) invalidateList(ctx context.Context) {
	if err := s.cache.IncrementVersion(ctx, listVersionKey); err != nil {
		s.log.Warn("bump document list version", zap.Error(err))
	}
}

type ListQuery struct {
	Keyword string
	Type    string
	From    string
	To      string
	Page    int
	PerPage int
}

func (q ListQuery) matches(doc domain.Document) bool {
	if q.Type != "" && string(doc.Type) != q.Type {
		return false
	}
	// dates are YYYY-MM-DD so string order is date order
	if q.From != "" && doc.Date < q.From {
		return false
	}
	if q.To != "" && doc.Date > q.To {
		return false
	}
	if q.Keyword == "" {
		return true
	}
	kw := strings.ToLower(q.Keyword)
	for _, field := range []string{doc.ID, doc.Agency, doc.Subject} {
		if strings.Contains(strings.ToLower(field), kw) {
			return true
		}
	}
	return false
}

type ListItem struct {
	domain.Document
	NeedsTracking bool `json:"needs_tracking"`
	DaysWaited    int  `json:"days_waited"`
}

type DocumentsMeta struct {
	Total         int64 `json:"total"`
	CurrentPage   int   `json:"current_page"`
	PerPage       int   `json:"per_page"`
	TotalPage     int   `json:"total_page"`
	TrackingCount int   `json:"tracking_count"`
}

type PaginatedDocuments struct {
	Data []ListItem    `json:"data"`
	Meta DocumentsMeta `json:"meta"`
}

// List filters the active documents and pages through them in insertion
// order. Results are cached per data version and calendar day, since the
// tracking columns change at midnight.
func (s *DefaultService) List(ctx context.Context, q ListQuery) (*PaginatedDocuments, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = utils.DefaultPageSize
	}

	now := s.now().UTC()
	v := s.cache.GetVersion(ctx, listVersionKey)
	cacheKey := fmt.Sprintf("docs:v:%d:d:%s:q:%s:t:%s:f:%s:to:%s:p:%d:ps:%d",
		v, now.Format("20060102"), strings.ToLower(q.Keyword), q.Type, q.From, q.To, q.Page, q.PerPage)

	var result PaginatedDocuments
	if found, _ := s.cache.Get(ctx, cacheKey, &result); found {
		return &result, nil
	}

	docs, err := s.repository.ListActive(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}
	graph := thread.NewGraph(docs)

	items := make([]ListItem, 0, len(docs))
	tracking := 0
	for _, doc := range docs {
		if !q.matches(doc) {
			continue
		}
		item := ListItem{Document: doc, NeedsTracking: graph.NeedsTracking(doc, now)}
		if days, err := thread.DaysWaited(doc, now); err == nil {
			item.DaysWaited = days
		}
		if item.NeedsTracking {
			tracking++
		}
		items = append(items, item)
	}

	total := len(items)
	start := min((q.Page-1)*q.PerPage, total)
	end := min(start+q.PerPage, total)

	result = PaginatedDocuments{
		Data: items[start:end],
		Meta: DocumentsMeta{
			Total:         int64(total),
			CurrentPage:   q.Page,
			PerPage:       q.PerPage,
			TotalPage:     utils.TotalPages(int64(total), q.PerPage),
			TrackingCount: tracking,
		},
	}

	if err := s.cache.Set(ctx, cacheKey, result, listCacheTTL); err != nil {
		s.log.Warn("cache document list", zap.Error(err))
	}
	return &result, nil
}

func (s *DefaultService) Get(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := s.repository.FindByID(ctx, id)
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.NotFound("Document not found", err)
	}
	if err != nil {
		return nil, errors.Internal(err)
	}
	return doc, nil
}

// Thread returns the whole conversation id belongs to, starting at its root.
func (s *DefaultService) Thread(ctx context.Context, id string) ([]thread.Node, error) {
	docs, err := s.repository.ListActive(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}

	nodes, err := thread.NewGraph(docs).Conversation(id)
	if defError.Is(err, thread.ErrNotFound) {
		return nil, errors.NotFound("Document not found", err)
	}
	if err != nil {
		// a cyclic parent chain ends up here
		return nil, errors.Internal(err)
	}
	return nodes, nil
}

func (s *DefaultService) Tracking(ctx context.Context) (*thread.Report, error) {
	docs, err := s.repository.ListActive(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}
	report := thread.NewGraph(docs).Track(s.now())
	return &report, nil
}

type PreviewFile struct {
	Name    string
	Content []byte
}

func (s *DefaultService) Preview(ctx context.Context, id string) (*PreviewFile, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.BlobID == "" {
		return nil, errors.NotFound("Document has no file", nil)
	}

	data, err := s.blobs.Download(ctx, doc.BlobID)
	if defError.Is(err, blob.ErrNotFound) {
		return nil, errors.NotFound("File not found", err)
	}
	if err != nil {
		return nil, errors.ServiceUnavailable("Download failed", err)
	}

	return &PreviewFile{Name: doc.ID + ".pdf", Content: data}, nil
}

// Delete archives the document. The confirmation must repeat the id.
func (s *DefaultService) Delete(ctx context.Context, sess *domain.Session, id, confirmation string) error {
	if confirmation != id {
		return errors.UnprocessableEntity("Confirmation does not match the document id", nil)
	}

	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if doc.BlobID != "" {
		if err := s.blobs.Move(ctx, doc.BlobID, s.folders.Deleted); err != nil {
			s.log.Warn("move blob to deleted folder",
				zap.String("id", id), zap.String("blob_id", doc.BlobID), zap.Error(err))
		}
	}

	err = s.repository.SoftDelete(ctx, *doc, s.now().UTC(), sess.DisplayName)
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return errors.NotFound("Document not found", err)
	}
	if err != nil {
		return errors.Internal(err)
	}

	s.invalidateList(ctx)
	s.log.Info("document deleted", zap.String("id", id), zap.String("by", sess.Username))
	return nil
}

func (s *DefaultService) ListDeleted(ctx context.Context) ([]domain.DeletedDocument, error) {
	records, err := s.repository.ListDeleted(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return records, nil
}

func (s *DefaultService) Summarize(ctx context.Context, id string) (string, error) {
	if s.recognizer == nil || !s.recognizer.CanSummarize() {
		return "", errors.ServiceUnavailable("Summarization is not available", recognition.ErrUnavailable)
	}

	doc, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}

	summary, err := s.recognizer.Summarize(ctx, summaryPrompt(doc))
	if err != nil {
		return "", errors.ServiceUnavailable("Summarization failed", err)
	}
	return summary, nil
}

func summaryPrompt(doc *domain.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Document: %s\n", doc.ID)
	fmt.Fprintf(&b, "Date: %s\n", doc.Date)
	fmt.Fprintf(&b, "Type: %s\n", doc.Type)
	fmt.Fprintf(&b, "Agency: %s\n", doc.Agency)
	fmt.Fprintf(&b, "Subject: %s\n", doc.Subject)
	if doc.OCRText != "" {
		fmt.Fprintf(&b, "\n%s\n", doc.OCRText)
	}
	return b.String()
}
