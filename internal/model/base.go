package model

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel 自增主键；仪表盘数据不做软删除
type BaseModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UUIDBase 追加写入、按时间清理的记录，主键由应用生成
type UUIDBase struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

func (b *UUIDBase) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = NewID()
	}
	return nil
}

func NewID() string {
	return uuid.NewString()
}

// CertificateNumber 证书编号，如 LD-20240313-9F2C41AB
func CertificateNumber(issuedAt time.Time) string {
	id := uuid.New()
	return "LD-" + issuedAt.Format("20060102") + "-" + strings.ToUpper(hex.EncodeToString(id[:4]))
}
