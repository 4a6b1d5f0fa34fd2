// Package repository records mixing-run history in a relational database.
// The driver writes one row per run and one row per checkpoint; nothing on
// the mixing hot path touches the database.
package repository

import "time"

// RunStatus tracks the lifecycle of a mixing run.
type RunStatus int

const (
	// RunStatusActive marks a run that is still mixing.
	RunStatusActive RunStatus = 0
	// RunStatusCompleted marks a run whose step budget is exhausted.
	RunStatusCompleted RunStatus = 1
	// RunStatusFailed marks a run aborted by a fatal error.
	RunStatusFailed RunStatus = 2
)

// MixRun is one obfuscation run.
type MixRun struct {
	ID             int64     `gorm:"column:id;primaryKey;autoIncrement"`
	JobPath        string    `gorm:"column:job_path;size:512;index"`
	Strategy       int       `gorm:"column:strategy"`
	WireCount      int       `gorm:"column:wire_count"`
	Status         RunStatus `gorm:"column:status;index"`
	StepsDone      int64     `gorm:"column:steps_done"`
	GateCount      int       `gorm:"column:gate_count"`
	CircuitDigest  string    `gorm:"column:circuit_digest;size:64"`
	OriginalDigest string    `gorm:"column:original_digest;size:64"`
	FailureReason  string    `gorm:"column:failure_reason;size:1024"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the table name.
func (MixRun) TableName() string {
	return "mix_runs"
}

// MixCheckpoint is one persisted checkpoint of a run.
type MixCheckpoint struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RunID         int64     `gorm:"column:run_id;index"`
	Step          int64     `gorm:"column:step"`
	Stage         string    `gorm:"column:stage;size:32"`
	GateCount     int       `gorm:"column:gate_count"`
	CircuitDigest string    `gorm:"column:circuit_digest;size:64"`
	EquivalenceOK bool      `gorm:"column:equivalence_ok"`
	ArchiveKey    string    `gorm:"column:archive_key;size:512"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides the table name.
func (MixCheckpoint) TableName() string {
	return "mix_checkpoints"
}
