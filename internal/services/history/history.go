package history

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/cozy-creator/classify-server/internal/db/models"
	"github.com/cozy-creator/classify-server/internal/ranking"
	"github.com/cozy-creator/classify-server/internal/services/filestorage"
	"github.com/cozy-creator/classify-server/internal/utils/hashutil"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gammazero/workerpool"
	"go.uber.org/zap"
)

const uploadsFolder = "uploads"

type Store interface {
	Create(ctx context.Context, prediction *models.Prediction) (*models.Prediction, error)
}

// Entry is one classified upload waiting to be recorded.
type Entry struct {
	Filename    string
	ContentType string
	Content     []byte
	Top         ranking.Prediction
	Batch       bool
}

// Recorder persists predictions off the request path. Archive is optional;
// when set, uploads are stored under their blake3 digest.
type Recorder struct {
	wp      *workerpool.WorkerPool
	store   Store
	archive filestorage.FileStorage
	logger  *zap.Logger
	timeout time.Duration

	stopOnce sync.Once
}

func NewRecorder(store Store, archive filestorage.FileStorage, maxWorkers int, logger *zap.Logger) *Recorder {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}

	return &Recorder{
		wp:      workerpool.New(maxWorkers),
		store:   store,
		archive: archive,
		logger:  logger,
		timeout: 30 * time.Second,
	}
}

// Record queues an entry. It never blocks on the database.
func (r *Recorder) Record(entry Entry) {
	if r == nil || r.wp.Stopped() {
		return
	}

	r.wp.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if _, err := r.record(ctx, entry); err != nil {
			r.logger.Warn("failed to record prediction", zap.String("filename", entry.Filename), zap.Error(err))
		}
	})
}

func (r *Recorder) record(ctx context.Context, entry Entry) (*models.Prediction, error) {
	prediction := models.NewPrediction(entry.Filename, entry.ContentType, int64(len(entry.Content)))
	prediction.FileHash = hashutil.Blake3Hash(entry.Content)
	prediction.DetectedType = mimetype.Detect(entry.Content).String()
	prediction.ClassName = entry.Top.ClassName
	prediction.ClassID = entry.Top.ClassID
	prediction.Probability = entry.Top.Probability
	prediction.Batch = entry.Batch

	if r.archive != nil {
		url, err := r.archive.Upload(ctx, r.archiveFile(entry, prediction))
		if err != nil {
			// The row is still worth keeping without the image.
			r.logger.Warn("failed to archive upload", zap.String("filename", entry.Filename), zap.Error(err))
		} else {
			prediction.ImageUrl = url
		}
	}

	return r.store.Create(ctx, prediction)
}

func (r *Recorder) archiveFile(entry Entry, prediction *models.Prediction) filestorage.FileInfo {
	extension := filepath.Ext(entry.Filename)
	if extension == "" {
		extension = mimetype.Detect(entry.Content).Extension()
	}

	file := filestorage.NewFileInfo(prediction.FileHash, extension, entry.Content, false)
	file.Subfolder = uploadsFolder
	return file
}

// Stop drains queued entries and waits for them.
func (r *Recorder) Stop() {
	if r == nil {
		return
	}

	r.stopOnce.Do(r.wp.StopWait)
}
