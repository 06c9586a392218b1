package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/systematicfunnels/smartX-v0.1/internal/common"
	"github.com/systematicfunnels/smartX-v0.1/internal/dao"
	"github.com/systematicfunnels/smartX-v0.1/internal/dispatcher"
	"github.com/systematicfunnels/smartX-v0.1/internal/model"
	"github.com/systematicfunnels/smartX-v0.1/internal/pipeline"
	"github.com/systematicfunnels/smartX-v0.1/internal/server/middleware"
	"github.com/systematicfunnels/smartX-v0.1/pkg/api"
)

const timeLayout = "2006-01-02 15:04:05"

type JobHandler struct {
	dispatcher *dispatcher.Dispatcher
	masters    dao.MasterJobDao
	tasks      dao.TaskJobDao
}

func NewJobHandler(d *dispatcher.Dispatcher, masters dao.MasterJobDao, tasks dao.TaskJobDao) *JobHandler {
	return &JobHandler{dispatcher: d, masters: masters, tasks: tasks}
}

func (h *JobHandler) SubmitJob(c *gin.Context) {
	var req api.SubmitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, common.NewErrNo(common.RequestInvalid))
		return
	}

	job, err := h.dispatcher.Submit(c, middleware.TenantID(c), req.ProjectID,
		model.JobType(req.Type), req.Payload)
	if err != nil {
		if errors.Is(err, pipeline.ErrUnknownPipelineType) {
			common.Error(c, common.NewErrNo(common.UnknownPipeline))
			return
		}
		common.Error(c, common.NewErrNo(common.JobSubmitFail))
		return
	}

	common.Success(c, jobBrief(job))
}

func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.masters.GetByID(c, middleware.TenantID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Error(c, common.NewErrNo(common.JobNotExists))
			return
		}
		common.Error(c, err)
		return
	}
	common.Success(c, jobBrief(job))
}

func (h *JobHandler) ListTasks(c *gin.Context) {
	tenantID := middleware.TenantID(c)
	job, err := h.masters.GetByID(c, tenantID, c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Error(c, common.NewErrNo(common.JobNotExists))
			return
		}
		common.Error(c, err)
		return
	}

	tasks, err := h.tasks.ListByMaster(c, tenantID, job.ID)
	if err != nil {
		common.Error(c, common.NewErrNo(common.GetTasksFail))
		return
	}

	detail := api.JobDetail{Job: jobBrief(job)}
	for _, t := range tasks {
		detail.Tasks = append(detail.Tasks, api.TaskDetail{
			ID:        t.ID,
			Worker:    string(t.Worker),
			Status:    string(t.Status),
			DependsOn: t.DependsOnIDs(),
			Attempts:  t.Attempts,
			Result:    t.Result,
		})
	}
	common.Success(c, detail)
}

func (h *JobHandler) CancelJob(c *gin.Context) {
	tenantID := middleware.TenantID(c)
	if _, err := h.masters.GetByID(c, tenantID, c.Param("id")); err != nil {
		common.Error(c, common.NewErrNo(common.JobNotExists))
		return
	}
	if err := h.dispatcher.Cancel(c, tenantID, c.Param("id")); err != nil {
		common.Error(c, common.NewErrNo(common.JobCancelFail))
		return
	}
	common.Success(c, nil)
}

func jobBrief(job *model.MasterJob) api.JobBrief {
	return api.JobBrief{
		ID:        job.ID,
		ProjectID: job.ProjectID,
		Type:      string(job.Type),
		Status:    string(job.Status),
		Result:    job.Result,
		CreatedAt: job.CreatedAt.Format(timeLayout),
		UpdatedAt: job.UpdatedAt.Format(timeLayout),
	}
}
