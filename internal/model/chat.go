package model

import (
	"gorm.io/datatypes"
)

type ChatSender string

const (
	ChatFromUser ChatSender = "user"
	ChatFromBot  ChatSender = "bot"
)

// ChatMessage 聊天机器人对话记录，按时间清理
type ChatMessage struct {
	UUIDBase
	UserID           uint              `gorm:"index;not null" json:"user_id"`
	Type             ChatSender        `gorm:"size:10;not null" json:"type"`
	Text             string            `gorm:"type:text" json:"text"`
	ResponseMetadata datatypes.JSONMap `json:"response_metadata,omitempty"`
}

func (ChatMessage) TableName() string {
	return "chatbot_messages"
}

// KeywordCount 关键词出现次数
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}
