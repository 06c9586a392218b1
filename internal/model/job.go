package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type JobType string

const (
	MeetingPipeline  JobType = "MEETING_PIPELINE"
	DocumentPipeline JobType = "DOCUMENT_PIPELINE"
	CodePipeline     JobType = "CODE_PIPELINE"
)

type JobStatus string

const (
	StatusPending JobStatus = "PENDING"
	StatusRunning JobStatus = "RUNNING"
	StatusSuccess JobStatus = "SUCCESS"
	StatusFailed  JobStatus = "FAILED"
)

func (s JobStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

type WorkerKind string

const (
	WorkerTranscribe WorkerKind = "TRANSCRIBE"
	WorkerMeaning    WorkerKind = "MEANING"
	WorkerDocument   WorkerKind = "DOCUMENT"
	WorkerCodegen    WorkerKind = "CODEGEN"
)

// MasterJob is one pipeline run owned by a tenant. Its status is derived
// from its TaskJobs: SUCCESS when all tasks succeed, FAILED when any task
// fails terminally, RUNNING otherwise.
type MasterJob struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	TenantID  string `gorm:"type:varchar(36);not null;index"`
	ProjectID string `gorm:"type:varchar(64);not null"`

	Type    JobType   `gorm:"type:varchar(32);not null"`
	Status  JobStatus `gorm:"type:varchar(16);not null"`
	Payload string    `gorm:"type:text"`
	Result  string    `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (m *MasterJob) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// TaskJob is one worker invocation inside a MasterJob's dependency graph.
// DependsOn holds sibling task IDs as a JSON array; Position preserves the
// order the pipeline definition listed the task in.
type TaskJob struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	MasterJobID string `gorm:"type:varchar(36);not null;index"`
	TenantID    string `gorm:"type:varchar(36);not null;index"`

	Worker    WorkerKind `gorm:"type:varchar(16);not null"`
	Status    JobStatus  `gorm:"type:varchar(16);not null"`
	Payload   string     `gorm:"type:text"`
	Result    string     `gorm:"type:text"`
	DependsOn string     `gorm:"type:text"`
	Position  int        `gorm:"not null"`

	Attempts    int `gorm:"not null;default:0"`
	MaxAttempts int `gorm:"not null;default:3"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (t *TaskJob) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

func (t *TaskJob) DependsOnIDs() []string {
	if t.DependsOn == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(t.DependsOn), &ids); err != nil {
		return nil
	}
	return ids
}

func (t *TaskJob) SetDependsOn(ids []string) {
	if len(ids) == 0 {
		t.DependsOn = ""
		return
	}
	raw, _ := json.Marshal(ids)
	t.DependsOn = string(raw)
}
