package model

import "time"

type Image struct {
	ID           int64     `json:"id" gorm:"column:id;primaryKey;autoIncrement"`              // 自增 ID
	Filename     string    `json:"filename" gorm:"column:filename;size:255;not null"`         // 存储文件名
	OriginalName string    `json:"originalname" gorm:"column:originalname;size:255;not null"` // 原始文件名
	Path         string    `json:"path" gorm:"column:path;size:512;not null"`                 // 公开访问路径
	Size         int64     `json:"size" gorm:"column:size"`                                   // 字节数
	MimeType     string    `json:"mimetype" gorm:"column:mimetype;size:100"`                  // 客户端声明的类型
	UploadedAt   time.Time `json:"uploaded_at" gorm:"column:uploaded_at;index;not null"`      // 上传时间
}

func (Image) TableName() string {
	return "images"
}
