package models

// Setting is a persisted key/value configuration entry. Values marked secret
// are write-only through the API.
type Setting struct {
	ID       int    `json:"id" gorm:"primaryKey;autoIncrement"`
	Key      string `json:"key" gorm:"uniqueIndex;not null"`
	Value    string `json:"value"`
	IsSecret bool   `json:"is_secret" gorm:"default:false"`
}

// TableName specifies the table name for Setting
func (Setting) TableName() string {
	return "settings"
}
