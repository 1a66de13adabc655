// Package history records one row per processed class file.
package history

import "time"

// Run is the stripclass_runs table.
type Run struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	File      string `gorm:"column:file;type:varchar(1024);index" json:"file"`
	Mode      string `gorm:"column:mode;type:varchar(16)" json:"mode"`
	ClassName string `gorm:"column:class_name;type:varchar(512)" json:"class_name,omitempty"`

	PoolBefore int `gorm:"column:pool_before" json:"pool_before"`
	PoolAfter  int `gorm:"column:pool_after" json:"pool_after"`
	Rounds     int `gorm:"column:rounds" json:"rounds"`
	Removed    int `gorm:"column:removed" json:"removed"`

	// Output is where the result was stored. Empty when nothing was written.
	Output       string `gorm:"column:output;type:varchar(1024)" json:"output,omitempty"`
	ErrorCode    string `gorm:"column:error_code;type:varchar(32)" json:"error_code,omitempty"`
	ErrorMessage string `gorm:"column:error_message;type:text" json:"error_message,omitempty"`

	DurationMs int64     `gorm:"column:duration_ms" json:"duration_ms"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName returns the table name for Run.
func (Run) TableName() string {
	return "stripclass_runs"
}

// Failed reports whether the run ended in an error.
func (r *Run) Failed() bool {
	return r.ErrorCode != ""
}
