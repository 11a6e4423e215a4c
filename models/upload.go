package models

import "time"

// Upload records one stored image variant. The desktop, tablet and mobile
// renditions of a single source image share a BatchID.
type Upload struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	BatchID     string    `gorm:"size:64;index;not null" json:"batch_id"`
	Variant     string    `gorm:"size:16;not null" json:"variant"`
	FileName    string    `gorm:"size:255;not null" json:"file_name"`
	StorePath   string    `gorm:"column:store_path;size:512" json:"store_path"` // relative to UPLOAD_BASE
	ContentType string    `gorm:"size:128" json:"content_type"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	UploadedBy  *string   `gorm:"type:uuid;index" json:"uploaded_by"`
}
