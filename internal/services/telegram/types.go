package telegram

import "encoding/json"

type envelope struct {
	OK          bool               `json:"ok"`
	Result      json.RawMessage    `json:"result"`
	ErrorCode   int                `json:"error_code"`
	Description string             `json:"description"`
	Parameters  *responseParameter `json:"parameters"`
}

type responseParameter struct {
	RetryAfter int `json:"retry_after"`
}

// User is the bot identity returned by getMe.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title,omitempty"`
}

// Video is the video attachment of a message.
type Video struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	Duration     int    `json:"duration"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	FileName     string `json:"file_name,omitempty"`
	MimeType     string `json:"mime_type,omitempty"`
	FileSize     int64  `json:"file_size,omitempty"`
}

// Message carries the fields of a Bot API message the vault reads.
type Message struct {
	MessageID int64  `json:"message_id"`
	Chat      Chat   `json:"chat"`
	Date      int64  `json:"date"`
	Caption   string `json:"caption,omitempty"`
	Video     *Video `json:"video,omitempty"`
}

// Update is one entry of a getUpdates response.
type Update struct {
	UpdateID          int64    `json:"update_id"`
	Message           *Message `json:"message,omitempty"`
	ChannelPost       *Message `json:"channel_post,omitempty"`
	EditedChannelPost *Message `json:"edited_channel_post,omitempty"`
}

// File describes a downloadable file resolved from a file_id.
type File struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	FileSize     int64  `json:"file_size,omitempty"`
	FilePath     string `json:"file_path,omitempty"`
}

type messageID struct {
	MessageID int64 `json:"message_id"`
}

type copyMessageRequest struct {
	ChatID     int64  `json:"chat_id"`
	FromChatID int64  `json:"from_chat_id"`
	MessageID  int64  `json:"message_id"`
	Caption    string `json:"caption,omitempty"`
}

type sendVideoRequest struct {
	ChatID  int64  `json:"chat_id"`
	Video   string `json:"video"`
	Caption string `json:"caption,omitempty"`
}

type getChatRequest struct {
	ChatID int64 `json:"chat_id"`
}

type getFileRequest struct {
	FileID string `json:"file_id"`
}

type getUpdatesRequest struct {
	Offset         int64    `json:"offset,omitempty"`
	Timeout        int      `json:"timeout"`
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
}
