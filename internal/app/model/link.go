package model

import "time"

// Link describes a short code mapped to its destination, plus click statistics.
type Link struct {
	ID            uint64     `json:"id" gorm:"primaryKey"`
	OriginalURL   string     `json:"original_url" gorm:"column:original_url;size:500;not null"`
	ShortCode     string     `json:"short_code" gorm:"column:short_code;size:10;uniqueIndex;not null"`
	QRCode        string     `json:"qr_code" gorm:"column:qr_code;size:500"`
	Clicks        int64      `json:"clicks" gorm:"column:clicks;not null;default:0"`
	LastClickedAt *time.Time `json:"last_clicked" gorm:"column:last_clicked"`
	CreatedAt     time.Time  `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (Link) TableName() string {
	return "short_links"
}
