package models

import (
	"encoding/json"
	"time"
)

type CommandType string

const (
	CmdSearchNow      CommandType = "search_now"
	CmdSearchPlatform CommandType = "search_platform"
	CmdPause          CommandType = "pause"
	CmdResume         CommandType = "resume"
	CmdArchiveImages  CommandType = "archive_images"
	CmdCheckFavorites CommandType = "check_favorites"
)

type Command struct {
	ID          int64           `json:"id" db:"id"`
	Command     CommandType     `json:"command" db:"command"`
	Params      json.RawMessage `json:"params" db:"params"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at" db:"processed_at"`
}

type CommandParams struct {
	Platform string `json:"platform,omitempty"`
}
