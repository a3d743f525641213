package models

import (
	"time"

	"gorm.io/datatypes"
)

// RemoteDocument is one document of the hosted document store, addressed by
// users/{uid}/{collection}/{docId}.
type RemoteDocument struct {
	UserID     string         `gorm:"type:varchar(128);primaryKey" json:"userId"`
	Collection string         `gorm:"type:varchar(64);primaryKey" json:"collection"`
	DocID      string         `gorm:"type:varchar(255);primaryKey" json:"docId"`
	Data       datatypes.JSON `gorm:"type:jsonb" json:"data"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `gorm:"index" json:"updatedAt"`
}

// TableName specifies the table name
func (RemoteDocument) TableName() string {
	return "remote_documents"
}
