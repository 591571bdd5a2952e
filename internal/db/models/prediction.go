package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Prediction is one classified upload.
type Prediction struct {
	bun.BaseModel `bun:"table:predictions"`

	ID           uuid.UUID `bun:",type:uuid,pk" json:"id"`
	Filename     string    `bun:",notnull" json:"filename"`
	FileSize     int64     `bun:",notnull" json:"file_size"`
	ContentType  string    `bun:",notnull" json:"content_type"`
	DetectedType string    `bun:",notnull,default:''" json:"detected_type"`
	FileHash     string    `bun:",notnull" json:"file_hash"`
	ImageUrl     string    `bun:",nullzero" json:"image_url,omitempty"`
	ClassName    string    `bun:",notnull" json:"class_name"`
	ClassID      int       `bun:",notnull" json:"class_id"`
	Probability  float64   `bun:",notnull" json:"probability"`
	Batch        bool      `bun:",notnull,default:false" json:"batch"`
	CreatedAt    time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
}

func NewPrediction(filename, contentType string, size int64) *Prediction {
	return &Prediction{
		ID:          uuid.Must(uuid.NewRandom()),
		Filename:    filename,
		ContentType: contentType,
		FileSize:    size,
		CreatedAt:   time.Now().UTC(),
	}
}
