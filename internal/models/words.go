package models

type Word struct {
	ID          int64  `json:"id"`
	Key         string `json:"key"`
	Description string `json:"desc"`
	Used        bool   `json:"is_used"`
}
