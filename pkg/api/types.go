package api

import "encoding/json"

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

// SubmitJobRequest starts one pipeline run. Payload is pipeline-specific;
// see the pipeline package inputs.
type SubmitJobRequest struct {
	Type      string          `json:"type"`
	ProjectID string          `json:"project_id"`
	Payload   json.RawMessage `json:"payload"`
}

type JobBrief struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	Result    string `json:"result,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type TaskDetail struct {
	ID        string   `json:"id"`
	Worker    string   `json:"worker"`
	Status    string   `json:"status"`
	DependsOn []string `json:"depends_on,omitempty"`
	Attempts  int      `json:"attempts"`
	Result    string   `json:"result,omitempty"`
}

type JobDetail struct {
	Job   JobBrief     `json:"job"`
	Tasks []TaskDetail `json:"tasks"`
}

type CreateTenantRequest struct {
	Name                    string `json:"name"`
	TranscriptRetentionDays *int   `json:"transcript_retention_days"`
	RepositoryRetentionDays *int   `json:"repository_retention_days"`
	JobRetentionDays        *int   `json:"job_retention_days"`
}
