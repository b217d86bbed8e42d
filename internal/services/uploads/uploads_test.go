package uploads

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/mosaicmedia/media-service/internal/blobstore"
	"github.com/mosaicmedia/media-service/internal/config"
	"github.com/mosaicmedia/media-service/internal/policy"
	"github.com/mosaicmedia/media-service/internal/types"
	uploadtypes "github.com/mosaicmedia/media-service/internal/types/uploads"
)

// fakeStore is an in-memory ObjectStore that counts calls so tests can
// assert no store traffic happened before a rejection.
type fakeStore struct {
	objects      map[string][]byte
	presignCalls int
	headCalls    int
	putCalls     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	f.putCalls++
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStore) Head(ctx context.Context, key string) (blobstore.ObjectInfo, bool, error) {
	f.headCalls++
	data, ok := f.objects[key]
	if !ok {
		return blobstore.ObjectInfo{}, false, nil
	}
	return blobstore.ObjectInfo{Key: key, Size: int64(len(data))}, true, nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func (f *fakeStore) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (*url.URL, error) {
	f.presignCalls++
	return url.Parse("https://store.example/" + key + "?signed=1")
}

func (f *fakeStore) PresignGet(ctx context.Context, key string, expiry time.Duration) (*url.URL, error) {
	return url.Parse("https://store.example/" + key + "?signed=1")
}

// fakeStorage is an in-memory upload record store.
type fakeStorage struct {
	records    map[string]*types.UploadRecord
	dailyCount int
	createErr  error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{records: make(map[string]*types.UploadRecord)}
}

func (f *fakeStorage) CreateUpload(ctx context.Context, rec *types.UploadRecord) error {
	if f.createErr != nil {
		return f.createErr
	}
	clone := *rec
	f.records[rec.ID] = &clone
	return nil
}

func (f *fakeStorage) GetUpload(ctx context.Context, id string) (types.UploadRecord, error) {
	rec, ok := f.records[id]
	if !ok {
		return types.UploadRecord{}, errors.New("not found")
	}
	return *rec, nil
}

func (f *fakeStorage) GetUploadByObjectKey(ctx context.Context, objectKey string) (types.UploadRecord, error) {
	for _, rec := range f.records {
		if rec.ObjectKey == objectKey {
			return *rec, nil
		}
	}
	return types.UploadRecord{}, errors.New("not found")
}

func (f *fakeStorage) SetThumbnailKey(ctx context.Context, uploadID, thumbnailKey string) error {
	rec, ok := f.records[uploadID]
	if !ok {
		return errors.New("not found")
	}
	rec.ThumbnailKey = thumbnailKey
	return nil
}

func (f *fakeStorage) DeleteUpload(ctx context.Context, id string) error {
	delete(f.records, id)
	return nil
}

func (f *fakeStorage) CountUploadsByUserSince(ctx context.Context, userID string, since time.Time) (int, error) {
	return f.dailyCount, nil
}

func (f *fakeStorage) ListMissingThumbnails(ctx context.Context, limit int) ([]types.UploadRecord, error) {
	return nil, nil
}

type fakeEventDir struct {
	accepting bool
	calls     int
}

func (f *fakeEventDir) AcceptsUploads(ctx context.Context, eventID string) (bool, error) {
	f.calls++
	return f.accepting, nil
}

type fakePublisher struct {
	completed  int
	thumbnails int
}

func (f *fakePublisher) PublishUploadCompleted(userID, uploadID, objectKey, eventID string) error {
	f.completed++
	return nil
}

func (f *fakePublisher) PublishThumbnailReady(userID, uploadID, thumbnailKey string) error {
	f.thumbnails++
	return nil
}

type fakeScheduler struct {
	jobs [][3]string
	full bool
}

func (f *fakeScheduler) Submit(uploadID, objectKey, userID string) bool {
	if f.full {
		return false
	}
	f.jobs = append(f.jobs, [3]string{uploadID, objectKey, userID})
	return true
}

type fixture struct {
	store     *fakeStore
	storage   *fakeStorage
	eventDir  *fakeEventDir
	publisher *fakePublisher
	scheduler *fakeScheduler
	service   *Service
}

func newFixture() *fixture {
	cfg := &config.Policy{
		AllowedMimeTypes: []string{"image/jpeg", "image/png", "video/mp4"},
		RoleMaxSizes: map[string]int64{
			"student":  50 * 1024 * 1024,
			"verified": 100 * 1024 * 1024,
		},
		RoleDailyLimits: map[string]int{
			"student":  3,
			"verified": 20,
		},
		DefaultMaxSize:    10 * 1024 * 1024,
		DefaultDailyLimit: 5,
	}

	f := &fixture{
		store:     newFakeStore(),
		storage:   newFakeStorage(),
		eventDir:  &fakeEventDir{accepting: true},
		publisher: &fakePublisher{},
		scheduler: &fakeScheduler{},
	}

	engine := policy.NewEngine(cfg, f.storage)
	f.service = NewService(f.store, f.storage, f.eventDir, engine, f.publisher, f.scheduler, nil, 15*time.Minute)
	return f
}

func presignReq() uploadtypes.PresignRequest {
	return uploadtypes.PresignRequest{
		EventID:     "event-1",
		FileName:    "photo.jpg",
		ContentType: "image/jpeg",
		Size:        1024,
	}
}

func TestIssuePresignedUpload_Success(t *testing.T) {
	f := newFixture()

	resp, err := f.service.IssuePresignedUpload(context.Background(), presignReq(), "user-1", "student")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !strings.HasPrefix(resp.ObjectKey, "images/") {
		t.Fatalf("Expected images/ prefix, got %q", resp.ObjectKey)
	}
	if resp.Method != "PUT" {
		t.Fatalf("Expected method PUT, got %q", resp.Method)
	}
	if resp.UploadURL == "" {
		t.Fatal("Expected a signed URL")
	}
	if f.store.presignCalls != 1 {
		t.Fatalf("Expected one presign call, got %d", f.store.presignCalls)
	}
	if len(f.storage.records) != 0 {
		t.Fatal("Presign must not create an upload record")
	}
}

func TestIssuePresignedUpload_EventNotAccepting(t *testing.T) {
	f := newFixture()
	f.eventDir.accepting = false

	_, err := f.service.IssuePresignedUpload(context.Background(), presignReq(), "user-1", "student")
	if !errors.Is(err, ErrEventNotAccepting) {
		t.Fatalf("Expected ErrEventNotAccepting, got %v", err)
	}
	if f.store.presignCalls != 0 {
		t.Fatal("Rejected request must not reach the object store")
	}
}

func TestIssuePresignedUpload_QuotaExceeded(t *testing.T) {
	f := newFixture()
	f.storage.dailyCount = 3

	_, err := f.service.IssuePresignedUpload(context.Background(), presignReq(), "user-1", "student")

	var quotaErr *policy.QuotaExceededError
	if !errors.As(err, &quotaErr) {
		t.Fatalf("Expected QuotaExceededError, got %v", err)
	}
	if quotaErr.Limit != 3 || quotaErr.CurrentCount != 3 {
		t.Fatalf("Unexpected rejection detail: %+v", quotaErr)
	}
	if f.store.presignCalls != 0 {
		t.Fatal("Rejected request must not reach the object store")
	}
}

func TestIssuePresignedUpload_UnsupportedContentType(t *testing.T) {
	f := newFixture()
	req := presignReq()
	req.ContentType = "application/pdf"

	_, err := f.service.IssuePresignedUpload(context.Background(), req, "user-1", "student")
	if !errors.Is(err, policy.ErrUnsupportedContentType) {
		t.Fatalf("Expected ErrUnsupportedContentType, got %v", err)
	}
	if f.store.presignCalls != 0 {
		t.Fatal("Rejected request must not reach the object store")
	}
}

func TestIssuePresignedUpload_PayloadTooLarge(t *testing.T) {
	f := newFixture()
	req := presignReq()
	req.Size = 60 * 1024 * 1024 // student ceiling is 50MB

	_, err := f.service.IssuePresignedUpload(context.Background(), req, "user-1", "student")

	var tooLarge *policy.PayloadTooLargeError
	if !errors.As(err, &tooLarge) {
		t.Fatalf("Expected PayloadTooLargeError, got %v", err)
	}
	if tooLarge.Ceiling != 52428800 || tooLarge.Requested != 62914560 {
		t.Fatalf("Unexpected rejection detail: %+v", tooLarge)
	}
	if f.store.presignCalls != 0 {
		t.Fatal("Rejected request must not reach the object store")
	}
}

func completeReq(key string, size int64) uploadtypes.CompleteRequest {
	return uploadtypes.CompleteRequest{
		EventID:     "event-1",
		ObjectKey:   key,
		FileName:    "photo.jpg",
		ContentType: "image/jpeg",
		Size:        size,
	}
}

func TestCompleteUpload_ObjectMissing(t *testing.T) {
	f := newFixture()

	_, err := f.service.CompleteUpload(context.Background(), completeReq("images/ghost.jpg", 4), "user-1")

	var notFound *ObjectNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected ObjectNotFoundError, got %v", err)
	}
	if notFound.Key != "images/ghost.jpg" {
		t.Fatalf("Unexpected key in rejection: %q", notFound.Key)
	}
	if len(f.storage.records) != 0 {
		t.Fatal("A failed existence check must not create a record")
	}
}

func TestCompleteUpload_SizeMismatch(t *testing.T) {
	f := newFixture()
	f.store.objects["images/a.jpg"] = []byte("four")

	_, err := f.service.CompleteUpload(context.Background(), completeReq("images/a.jpg", 99), "user-1")

	var mismatch *SizeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("Expected SizeMismatchError, got %v", err)
	}
	if mismatch.Declared != 99 || mismatch.Stored != 4 {
		t.Fatalf("Unexpected rejection detail: %+v", mismatch)
	}
	if len(f.storage.records) != 0 {
		t.Fatal("A failed size check must not create a record")
	}
}

func TestCompleteUpload_Success(t *testing.T) {
	f := newFixture()
	f.store.objects["images/a.jpg"] = []byte("four")

	resp, err := f.service.CompleteUpload(context.Background(), completeReq("images/a.jpg", 4), "user-1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	rec, ok := f.storage.records[resp.UploadID]
	if !ok {
		t.Fatal("Expected a persisted upload record")
	}
	if rec.Approved || rec.Featured {
		t.Fatal("Moderation flags must be initialized to false")
	}
	if rec.Category != types.CategoryImage {
		t.Fatalf("Expected image category, got %q", rec.Category)
	}

	if len(f.scheduler.jobs) != 1 {
		t.Fatalf("Expected one thumbnail job, got %d", len(f.scheduler.jobs))
	}
	if f.scheduler.jobs[0][1] != "images/a.jpg" {
		t.Fatalf("Thumbnail job has wrong key: %q", f.scheduler.jobs[0][1])
	}
	if f.publisher.completed != 1 {
		t.Fatalf("Expected one completed event, got %d", f.publisher.completed)
	}
}

func TestCompleteUpload_VideoSkipsThumbnail(t *testing.T) {
	f := newFixture()
	f.store.objects["videos/v.mp4"] = []byte("data")

	req := completeReq("videos/v.mp4", 4)
	req.ContentType = "video/mp4"

	if _, err := f.service.CompleteUpload(context.Background(), req, "user-1"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(f.scheduler.jobs) != 0 {
		t.Fatal("Videos must not get thumbnail jobs")
	}
}

func TestCompleteUpload_FullQueueStillSucceeds(t *testing.T) {
	f := newFixture()
	f.store.objects["images/a.jpg"] = []byte("four")
	f.scheduler.full = true

	resp, err := f.service.CompleteUpload(context.Background(), completeReq("images/a.jpg", 4), "user-1")
	if err != nil {
		t.Fatalf("A dropped thumbnail job must not fail the completion: %v", err)
	}
	if _, ok := f.storage.records[resp.UploadID]; !ok {
		t.Fatal("Expected a persisted upload record")
	}
}

func TestIngestProxied_ImagePath(t *testing.T) {
	f := newFixture()

	body := strings.NewReader("image-bytes")
	resp, err := f.service.IngestProxied(context.Background(), ProxiedUploadRequest{
		EventID:     "event-1",
		FileName:    "pic.png",
		ContentType: "image/png",
		Size:        int64(body.Len()),
		Body:        body,
	}, "user-1", "student")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if f.store.putCalls != 1 {
		t.Fatalf("Expected one store put, got %d", f.store.putCalls)
	}
	if !strings.HasPrefix(resp.ObjectKey, "images/") {
		t.Fatalf("Expected images/ prefix, got %q", resp.ObjectKey)
	}
	if len(f.scheduler.jobs) != 1 {
		t.Fatalf("Expected one thumbnail job, got %d", len(f.scheduler.jobs))
	}
}

func TestIngestProxied_EmptyFile(t *testing.T) {
	f := newFixture()

	_, err := f.service.IngestProxied(context.Background(), ProxiedUploadRequest{
		EventID:     "event-1",
		FileName:    "pic.png",
		ContentType: "image/png",
		Size:        0,
		Body:        strings.NewReader(""),
	}, "user-1", "student")
	if err == nil {
		t.Fatal("Expected rejection of an empty file")
	}
	if f.eventDir.calls != 0 {
		t.Fatal("Validation must run before any collaborator call")
	}
}
