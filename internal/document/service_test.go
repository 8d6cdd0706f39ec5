package document

import (
	"context"
	defError "errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"doc-tracker/internal/blob"
	"doc-tracker/internal/cache"
	"doc-tracker/internal/domain"
	"doc-tracker/internal/errors"
	"doc-tracker/internal/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var pdf = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")

type fakeRecognizer struct {
	ocr     bool
	summary bool
	text    string
	err     error
	prompts []string
}

func (f *fakeRecognizer) CanRecognize() bool { return f.ocr }
func (f *fakeRecognizer) CanSummarize() bool { return f.summary }

func (f *fakeRecognizer) Recognize(ctx context.Context, data []byte) (string, error) {
	return f.text, f.err
}

func (f *fakeRecognizer) Summarize(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return "summary", f.err
}

// inlinePool runs tasks on submit.
type inlinePool struct{ reject bool }

func (p inlinePool) Submit(t worker.Task) bool {
	if p.reject {
		return false
	}
	t(context.Background())
	return true
}

type fixture struct {
	svc   *DefaultService
	repo  DocumentRepository
	blobs *blob.GormStore
	rec   *fakeRecognizer
}

var (
	today = time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	alice = &domain.Session{ID: "s1", Username: "alice", DisplayName: "Alice", Role: domain.RoleUser}
)

func newFixture(t *testing.T, rec *fakeRecognizer, pool TaskSubmitter) *fixture {
	t.Helper()
	db := openTestDB(t)
	f := &fixture{
		repo:  NewRepository(db),
		blobs: blob.NewGormStore(db),
		rec:   rec,
	}
	var r Recognizer
	if rec != nil {
		r = rec
	}
	f.svc = NewService(f.repo, f.blobs, cache.NewMemoryCache(), r, pool,
		Folders{Documents: "documents", Deleted: "deleted"}, zap.NewNop())
	f.svc.now = func() time.Time { return today }
	return f
}

func (f *fixture) create(t *testing.T, date string, typ domain.DocumentType, parent string) *domain.Document {
	t.Helper()
	d, err := f.svc.Create(context.Background(), alice, CreateInput{
		Date: date, Type: typ, Agency: "Agency", Subject: "Subject",
		IsReply: parent != "", ParentID: parent, File: pdf,
	})
	require.NoError(t, err)
	return d
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var apiErr *errors.APIError
	require.True(t, defError.As(err, &apiErr), "expected APIError, got %v", err)
	return apiErr.Status
}

func TestCreate_AssignsIDs(t *testing.T) {
	f := newFixture(t, nil, nil)

	root := f.create(t, "2024-01-15", domain.TypeOutgoing, "")
	assert.Equal(t, "20240115001", root.ID)
	assert.Equal(t, "Alice", root.CreatedBy)
	assert.Equal(t, domain.OCRUnavailable, root.OCRStatus)

	second := f.create(t, "2024-01-15", domain.TypeMemo, "")
	assert.Equal(t, "20240115002", second.ID)

	reply := f.create(t, "2024-01-20", domain.TypeIncoming, root.ID)
	assert.Equal(t, "0220240115001", reply.ID)
	assert.Equal(t, root.ID, reply.ParentID)

	reply2 := f.create(t, "2024-01-21", domain.TypeIncoming, root.ID)
	assert.Equal(t, "0320240115001", reply2.ID)

	// the reply does not count toward its own date's roots
	other := f.create(t, "2024-01-20", domain.TypeMemo, "")
	assert.Equal(t, "20240120001", other.ID)

	stat, err := f.blobs.Stat(context.Background(), root.BlobID)
	require.NoError(t, err)
	assert.Equal(t, "20240115001_Agency_Subject.pdf", stat.Name)
	assert.Equal(t, "documents", stat.Folder)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		in   CreateInput
	}{
		{"missing agency", CreateInput{Date: "2024-01-15", Type: domain.TypeMemo, Subject: "S", File: pdf}},
		{"bad type", CreateInput{Date: "2024-01-15", Type: "fax", Agency: "A", Subject: "S", File: pdf}},
		{"bad date", CreateInput{Date: "15/01/2024", Type: domain.TypeMemo, Agency: "A", Subject: "S", File: pdf}},
		{"no file", CreateInput{Date: "2024-01-15", Type: domain.TypeMemo, Agency: "A", Subject: "S"}},
		{"not a pdf", CreateInput{Date: "2024-01-15", Type: domain.TypeMemo, Agency: "A", Subject: "S", File: []byte("hello")}},
		{"reply without parent", CreateInput{Date: "2024-01-15", Type: domain.TypeIncoming, Agency: "A", Subject: "S", IsReply: true, File: pdf}},
		{"reply to unknown parent", CreateInput{Date: "2024-01-15", Type: domain.TypeIncoming, Agency: "A", Subject: "S", IsReply: true, ParentID: "20990101001", File: pdf}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, alice, tt.in)
			assert.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err))
		})
	}

	// nothing reached the stores
	docs, err := f.repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestCreate_ConcurrentRootsGetDistinctIDs(t *testing.T) {
	f := newFixture(t, nil, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(context.Background(), alice, CreateInput{
				Date: "2024-01-15", Type: domain.TypeMemo, Agency: "A", Subject: "S", File: pdf,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	docs, err := f.repo.ListActive(context.Background())
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, d := range docs {
		seen[d.ID] = true
	}
	assert.Len(t, seen, 10)
	assert.True(t, seen["20240115010"])
}

func TestCreate_SerialHeldAfterOlderSiblingDeleted(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	first := f.create(t, "2024-01-15", domain.TypeMemo, "")
	f.create(t, "2024-01-15", domain.TypeMemo, "")
	f.create(t, "2024-01-15", domain.TypeMemo, "")
	require.NoError(t, f.svc.Delete(ctx, alice, first.ID, first.ID))

	in := CreateInput{Date: "2024-01-15", Type: domain.TypeMemo, Agency: "A", Subject: "S", File: pdf}
	for range 2 {
		_, err := f.svc.Create(ctx, alice, in)
		var apiErr *errors.APIError
		require.True(t, defError.As(err, &apiErr))
		assert.Equal(t, http.StatusConflict, apiErr.Status)
		assert.Equal(t, "Document serial 20240115003 is already in use by an active document", apiErr.Message)
	}

	// other dates are unaffected
	other := f.create(t, "2024-01-16", domain.TypeMemo, "")
	assert.Equal(t, "20240116001", other.ID)

	// the same dead end for replies under one parent
	root := f.create(t, "2024-01-20", domain.TypeOutgoing, "")
	r1 := f.create(t, "2024-01-21", domain.TypeIncoming, root.ID)
	f.create(t, "2024-01-22", domain.TypeIncoming, root.ID)
	require.NoError(t, f.svc.Delete(ctx, alice, r1.ID, r1.ID))

	_, err := f.svc.Create(ctx, alice, CreateInput{
		Date: "2024-01-23", Type: domain.TypeIncoming, Agency: "A", Subject: "S",
		IsReply: true, ParentID: root.ID, File: pdf,
	})
	assert.Equal(t, http.StatusConflict, statusOf(t, err))
}

func TestDuplicateError(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	f.create(t, "2024-01-15", domain.TypeMemo, "")
	in := CreateInput{Date: "2024-01-15", Type: domain.TypeMemo}
	cause := defError.New("duplicated key not allowed")

	// a fresh read yields another id: the writer lost a race
	err := f.svc.duplicateError(ctx, in, "20240115001", cause)
	var apiErr *errors.APIError
	require.True(t, defError.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Contains(t, apiErr.Message, "please retry")

	// a fresh read yields the same id: retrying cannot help
	err = f.svc.duplicateError(ctx, in, "20240115002", cause)
	require.True(t, defError.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.NotContains(t, apiErr.Message, "retry")
	assert.ErrorIs(t, err, cause)
}

func TestPreviewID(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	id, err := f.svc.PreviewID(ctx, "2024-01-15", false, "")
	require.NoError(t, err)
	assert.Equal(t, "20240115001", id)

	// a reply on an empty store cannot be numbered
	_, err = f.svc.PreviewID(ctx, "2024-01-15", true, "20240115001")
	assert.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err))

	f.create(t, "2024-01-15", domain.TypeOutgoing, "")
	id, err = f.svc.PreviewID(ctx, "2024-01-16", true, "20240115001")
	require.NoError(t, err)
	assert.Equal(t, "0220240115001", id)

	// previewing does not reserve the id
	id, err = f.svc.PreviewID(ctx, "2024-01-16", true, "20240115001")
	require.NoError(t, err)
	assert.Equal(t, "0220240115001", id)
}

func TestList_FiltersAndTracking(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	old := f.create(t, "2024-01-15", domain.TypeOutgoing, "") // 46 days, no reply
	f.create(t, "2024-02-27", domain.TypeLetter, "")          // 3 days
	answered := f.create(t, "2024-01-10", domain.TypeOutgoing, "")
	f.create(t, "2024-01-12", domain.TypeIncoming, answered.ID)

	all, err := f.svc.List(ctx, ListQuery{})
	require.NoError(t, err)
	require.Len(t, all.Data, 4)
	assert.Equal(t, old.ID, all.Data[0].ID)
	assert.True(t, all.Data[0].NeedsTracking)
	assert.Equal(t, 46, all.Data[0].DaysWaited)
	assert.False(t, all.Data[1].NeedsTracking)
	assert.False(t, all.Data[2].NeedsTracking)
	assert.Equal(t, 1, all.Meta.TrackingCount)

	byType, err := f.svc.List(ctx, ListQuery{Type: "letter"})
	require.NoError(t, err)
	require.Len(t, byType.Data, 1)
	assert.Equal(t, "20240227001", byType.Data[0].ID)

	byRange, err := f.svc.List(ctx, ListQuery{From: "2024-01-11", To: "2024-01-31"})
	require.NoError(t, err)
	assert.Len(t, byRange.Data, 2)

	byKeyword, err := f.svc.List(ctx, ListQuery{Keyword: "0220240110"})
	require.NoError(t, err)
	require.Len(t, byKeyword.Data, 1)
	assert.Equal(t, answered.ID, byKeyword.Data[0].ParentID)

	paged, err := f.svc.List(ctx, ListQuery{Page: 2, PerPage: 3})
	require.NoError(t, err)
	assert.Len(t, paged.Data, 1)
	assert.Equal(t, int64(4), paged.Meta.Total)
	assert.Equal(t, 2, paged.Meta.TotalPage)

	beyond, err := f.svc.List(ctx, ListQuery{Page: 9, PerPage: 3})
	require.NoError(t, err)
	assert.Empty(t, beyond.Data)
}

func TestList_CacheInvalidatedOnWrite(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	first, err := f.svc.List(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, first.Data)

	f.create(t, "2024-01-15", domain.TypeMemo, "")

	second, err := f.svc.List(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Len(t, second.Data, 1)

	require.NoError(t, f.svc.Delete(ctx, alice, "20240115001", "20240115001"))

	third, err := f.svc.List(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, third.Data)
}

func TestThread_FromAnyMember(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	r := f.create(t, "2024-01-15", domain.TypeOutgoing, "")
	c1 := f.create(t, "2024-01-16", domain.TypeIncoming, r.ID)
	c2 := f.create(t, "2024-01-17", domain.TypeOutgoing, r.ID)
	c3 := f.create(t, "2024-01-18", domain.TypeIncoming, c2.ID)

	nodes, err := f.svc.Thread(ctx, c3.ID)
	require.NoError(t, err)

	var ids []string
	var depths []int
	for _, n := range nodes {
		ids = append(ids, n.Document.ID)
		depths = append(depths, n.Depth)
	}
	assert.Equal(t, []string{r.ID, c1.ID, c2.ID, c3.ID}, ids)
	assert.Equal(t, []int{0, 1, 1, 2}, depths)

	_, err = f.svc.Thread(ctx, "missing")
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestTracking(t *testing.T) {
	f := newFixture(t, nil, nil)

	f.create(t, "2024-01-15", domain.TypeOutgoing, "") // 46 days
	f.create(t, "2024-02-10", domain.TypeLetter, "")   // 20 days
	f.create(t, "2024-02-28", domain.TypeOutgoing, "") // 2 days
	f.create(t, "2024-02-01", domain.TypeMemo, "")     // not outbound

	report, err := f.svc.Tracking(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Urgent, 2)
	assert.Equal(t, 46, report.Urgent[0].DaysWaited)
	assert.Equal(t, 20, report.Urgent[1].DaysWaited)
	require.Len(t, report.Normal, 1)
	assert.Equal(t, "20240228001", report.Normal[0].Document.ID)
}

func TestPreview(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	d := f.create(t, "2024-01-15", domain.TypeMemo, "")

	file, err := f.svc.Preview(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, pdf, file.Content)
	assert.Equal(t, "20240115001.pdf", file.Name)

	_, err = f.svc.Preview(ctx, "missing")
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestDelete(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	d := f.create(t, "2024-01-15", domain.TypeMemo, "")
	active, err := f.svc.Get(ctx, d.ID)
	require.NoError(t, err)

	err = f.svc.Delete(ctx, alice, d.ID, "wrong")
	assert.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err))

	err = f.svc.Delete(ctx, alice, "missing", "missing")
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	require.NoError(t, f.svc.Delete(ctx, alice, d.ID, d.ID))

	_, err = f.svc.Get(ctx, d.ID)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	stat, err := f.blobs.Stat(ctx, d.BlobID)
	require.NoError(t, err)
	assert.Equal(t, "deleted", stat.Folder)

	records, err := f.svc.ListDeleted(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, d.ID, records[0].ID)
	assert.Equal(t, "Alice", records[0].DeletedBy)
	assert.True(t, today.Equal(records[0].DeletedAt))
	assert.Equal(t, domain.NewDeletedDocument(*active, records[0].DeletedAt, "Alice"), records[0])
}

func TestDelete_BlobMoveFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	d := f.create(t, "2024-01-15", domain.TypeMemo, "")

	// point the row at a blob that does not exist
	require.NoError(t, f.repo.SoftDelete(ctx, *d, today.Add(-time.Hour), "setup"))
	d.BlobID = "gone"
	require.NoError(t, f.repo.Append(ctx, d))

	require.NoError(t, f.svc.Delete(ctx, alice, d.ID, d.ID))
}

func TestCreate_RunsOCR(t *testing.T) {
	rec := &fakeRecognizer{ocr: true, text: "scanned text"}
	f := newFixture(t, rec, inlinePool{})

	d := f.create(t, "2024-01-15", domain.TypeMemo, "")
	assert.Equal(t, domain.OCRPending, d.OCRStatus)

	got, err := f.svc.Get(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OCRDone, got.OCRStatus)
	assert.Equal(t, "scanned text", got.OCRText)
	assert.NotNil(t, got.OCRDate)
}

// queuedPool holds tasks until run is called.
type queuedPool struct{ tasks []worker.Task }

func (p *queuedPool) Submit(t worker.Task) bool {
	p.tasks = append(p.tasks, t)
	return true
}

func (p *queuedPool) run() {
	for _, t := range p.tasks {
		t(context.Background())
	}
	p.tasks = nil
}

func TestCreate_OCRResultRefreshesCachedList(t *testing.T) {
	for _, tc := range []struct {
		name string
		rec  *fakeRecognizer
		want string
	}{
		{"done", &fakeRecognizer{ocr: true, text: "scanned"}, domain.OCRDone},
		{"failed", &fakeRecognizer{ocr: true, err: defError.New("engine down")}, domain.OCRFailed},
	} {
		t.Run(tc.name, func(t *testing.T) {
			pool := &queuedPool{}
			f := newFixture(t, tc.rec, pool)
			ctx := context.Background()
			f.create(t, "2024-01-15", domain.TypeMemo, "")

			before, err := f.svc.List(ctx, ListQuery{})
			require.NoError(t, err)
			require.Len(t, before.Data, 1)
			assert.Equal(t, domain.OCRPending, before.Data[0].OCRStatus)

			pool.run()

			after, err := f.svc.List(ctx, ListQuery{})
			require.NoError(t, err)
			require.Len(t, after.Data, 1)
			assert.Equal(t, tc.want, after.Data[0].OCRStatus)
		})
	}
}

func TestCreate_OCRFailure(t *testing.T) {
	rec := &fakeRecognizer{ocr: true, err: defError.New("engine down")}
	f := newFixture(t, rec, inlinePool{})

	d := f.create(t, "2024-01-15", domain.TypeMemo, "")

	got, err := f.svc.Get(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OCRFailed, got.OCRStatus)
}

func TestCreate_OCRQueueFull(t *testing.T) {
	rec := &fakeRecognizer{ocr: true, text: "x"}
	f := newFixture(t, rec, inlinePool{reject: true})

	d := f.create(t, "2024-01-15", domain.TypeMemo, "")

	got, err := f.svc.Get(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OCRFailed, got.OCRStatus)
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, nil, nil)
	d := f.create(t, "2024-01-15", domain.TypeMemo, "")
	_, err := f.svc.Summarize(ctx, d.ID)
	assert.Equal(t, http.StatusServiceUnavailable, statusOf(t, err))

	rec := &fakeRecognizer{summary: true}
	f = newFixture(t, rec, nil)
	d = f.create(t, "2024-01-15", domain.TypeMemo, "")

	summary, err := f.svc.Summarize(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "summary", summary)
	require.Len(t, rec.prompts, 1)
	assert.Contains(t, rec.prompts[0], "Subject: Subject")

	_, err = f.svc.Summarize(ctx, "missing")
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}
