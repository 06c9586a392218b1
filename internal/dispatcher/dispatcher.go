package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/systematicfunnels/smartX-v0.1/internal/dao"
	"github.com/systematicfunnels/smartX-v0.1/internal/model"
	"github.com/systematicfunnels/smartX-v0.1/internal/pipeline"
	"github.com/systematicfunnels/smartX-v0.1/internal/queue"
)

const defaultMaxAttempts = 3

// DependencyResolutionError means an upstream result a task's payload
// references is missing or corrupt. Non-retryable; the task fails and its
// dependents are short-circuited.
type DependencyResolutionError struct {
	TaskID string
	Ref    string
	Reason string
}

func (e *DependencyResolutionError) Error() string {
	return fmt.Sprintf("task %s: cannot resolve %s: %s", e.TaskID, e.Ref, e.Reason)
}

// Dispatcher materializes pipeline graphs into TaskJob rows and keeps the
// queue fed with exactly the tasks whose dependencies are satisfied.
//
// Advance and OnTaskTerminal are safe under concurrent invocation for the
// same master job: every state transition is a guarded UPDATE and the broker
// deduplicates enqueues on task ID, so re-running either call is a no-op.
type Dispatcher struct {
	masters  dao.MasterJobDao
	tasks    dao.TaskJobDao
	registry *pipeline.Registry
	broker   queue.Broker
	logger   *zap.Logger
}

func New(masters dao.MasterJobDao, tasks dao.TaskJobDao, registry *pipeline.Registry, broker queue.Broker, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		masters:  masters,
		tasks:    tasks,
		registry: registry,
		broker:   broker,
		logger:   logger,
	}
}

// Submit creates the MasterJob, materializes its TaskJob graph in PENDING
// and releases the initially-runnable tasks. Master and tasks are written in
// a single transaction, so a failed Submit persists nothing.
func (d *Dispatcher) Submit(ctx context.Context, tenantID, projectID string, jobType model.JobType, payload json.RawMessage) (*model.MasterJob, error) {
	def, err := d.registry.DefinitionFor(jobType)
	if err != nil {
		return nil, err
	}
	specs, err := def(payload)
	if err != nil {
		return nil, err
	}

	// Pre-assign every ID so index-based output references can be rewritten
	// to sibling task IDs before anything is persisted.
	master := &model.MasterJob{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		ProjectID: projectID,
		Type:      jobType,
		Status:    model.StatusPending,
		Payload:   string(payload),
	}
	ids := make([]string, len(specs))
	for i := range specs {
		ids[i] = uuid.NewString()
	}

	tasks := make([]*model.TaskJob, 0, len(specs))
	for i, spec := range specs {
		raw, err := json.Marshal(rewriteIndexRefs(spec.Payload, ids))
		if err != nil {
			return nil, err
		}
		task := &model.TaskJob{
			ID:          ids[i],
			MasterJobID: master.ID,
			TenantID:    tenantID,
			Worker:      spec.Worker,
			Status:      model.StatusPending,
			Payload:     string(raw),
			Position:    i,
			MaxAttempts: defaultMaxAttempts,
		}
		deps := make([]string, 0, len(spec.DependsOn))
		for _, idx := range spec.DependsOn {
			deps = append(deps, ids[idx])
		}
		task.SetDependsOn(deps)
		tasks = append(tasks, task)
	}

	// one transaction: a partially-created graph would leave a master no
	// terminal transition ever re-evaluates
	if err := d.masters.CreateWithTasks(ctx, master, tasks); err != nil {
		return nil, err
	}

	if err := d.Advance(ctx, tenantID, master.ID); err != nil {
		return nil, err
	}
	return d.masters.GetByID(ctx, tenantID, master.ID)
}

// Advance enqueues every PENDING task whose dependencies are all SUCCESS,
// resolving symbolic payload references first. Idempotent: tasks already
// RUNNING or enqueued are untouched, and an enqueue failure leaves the task
// PENDING for the next call.
func (d *Dispatcher) Advance(ctx context.Context, tenantID, masterJobID string) error {
	all, err := d.tasks.ListByMaster(ctx, tenantID, masterJobID)
	if err != nil {
		return err
	}

	byID := make(map[string]*model.TaskJob, len(all))
	for _, t := range all {
		byID[t.ID] = t
	}

	enqueued := false
	for _, t := range all {
		if t.Status != model.StatusPending {
			continue
		}
		if !depsSatisfied(t, byID) {
			continue
		}

		resolved, err := resolveOutputRefs(t, byID)
		if err != nil {
			d.logger.Warn("dependency resolution failed",
				zap.String("task_id", t.ID), zap.Error(err))
			if err := d.failTask(ctx, t); err != nil {
				return err
			}
			continue
		}
		if resolved != t.Payload {
			if err := d.tasks.UpdatePayload(ctx, tenantID, t.ID, resolved); err != nil {
				return err
			}
			t.Payload = resolved
		}

		if err := d.broker.Enqueue(ctx, t); err != nil {
			// stays PENDING; the next advance retries
			d.logger.Warn("enqueue failed", zap.String("task_id", t.ID), zap.Error(err))
			continue
		}
		if _, err := d.tasks.MarkRunning(ctx, tenantID, t.ID); err != nil {
			return err
		}
		d.logger.Info("task enqueued",
			zap.String("task_id", t.ID),
			zap.String("master_job_id", masterJobID),
			zap.String("worker", string(t.Worker)))
		enqueued = true
	}

	if enqueued {
		master, err := d.masters.GetByID(ctx, tenantID, masterJobID)
		if err != nil {
			return err
		}
		if master.Status == model.StatusPending {
			if err := d.masters.UpdateStatus(ctx, tenantID, masterJobID, model.StatusRunning, ""); err != nil {
				return err
			}
		}
	}
	return nil
}

// OnTaskTerminal records a task's terminal transition and re-evaluates the
// owning master job. Duplicate reports for an already-terminal task are
// no-ops.
func (d *Dispatcher) OnTaskTerminal(ctx context.Context, tenantID, taskID string, status model.JobStatus, result string) error {
	if !status.Terminal() {
		return fmt.Errorf("non-terminal status %s for task %s", status, taskID)
	}

	task, err := d.tasks.GetByID(ctx, tenantID, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// reaped while in flight
			return nil
		}
		return err
	}

	changed, err := d.tasks.MarkTerminal(ctx, tenantID, taskID, status, result)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	d.logger.Info("task terminal",
		zap.String("task_id", taskID),
		zap.String("master_job_id", task.MasterJobID),
		zap.String("status", string(status)))

	if status == model.StatusFailed {
		if err := d.shortCircuit(ctx, tenantID, task.MasterJobID); err != nil {
			return err
		}
	}
	return d.reevaluate(ctx, tenantID, task.MasterJobID)
}

// Cancel is the administrative stop: every PENDING task is failed, which
// short-circuits anything not yet dispatched. In-flight tasks finish on
// their own.
func (d *Dispatcher) Cancel(ctx context.Context, tenantID, masterJobID string) error {
	all, err := d.tasks.ListByMaster(ctx, tenantID, masterJobID)
	if err != nil {
		return err
	}
	for _, t := range all {
		if t.Status != model.StatusPending {
			continue
		}
		if _, err := d.tasks.MarkTerminal(ctx, tenantID, t.ID, model.StatusFailed, ""); err != nil {
			return err
		}
	}
	return d.reevaluate(ctx, tenantID, masterJobID)
}

// failTask marks one task FAILED and short-circuits its dependents.
func (d *Dispatcher) failTask(ctx context.Context, task *model.TaskJob) error {
	if _, err := d.tasks.MarkTerminal(ctx, task.TenantID, task.ID, model.StatusFailed, ""); err != nil {
		return err
	}
	task.Status = model.StatusFailed
	if err := d.shortCircuit(ctx, task.TenantID, task.MasterJobID); err != nil {
		return err
	}
	return d.reevaluate(ctx, task.TenantID, task.MasterJobID)
}

// shortCircuit fails every PENDING task transitively depending on a FAILED
// one, without ever enqueueing it.
func (d *Dispatcher) shortCircuit(ctx context.Context, tenantID, masterJobID string) error {
	all, err := d.tasks.ListByMaster(ctx, tenantID, masterJobID)
	if err != nil {
		return err
	}

	doomed := make(map[string]bool)
	for _, t := range all {
		if t.Status == model.StatusFailed {
			doomed[t.ID] = true
		}
	}

	for changed := true; changed; {
		changed = false
		for _, t := range all {
			if t.Status != model.StatusPending || doomed[t.ID] {
				continue
			}
			for _, dep := range t.DependsOnIDs() {
				if doomed[dep] {
					if _, err := d.tasks.MarkTerminal(ctx, tenantID, t.ID, model.StatusFailed, ""); err != nil {
						return err
					}
					d.logger.Info("task short-circuited",
						zap.String("task_id", t.ID),
						zap.String("failed_dependency", dep))
					doomed[t.ID] = true
					changed = true
					break
				}
			}
		}
	}
	return nil
}

// reevaluate derives the master status from its tasks: SUCCESS iff all
// tasks succeeded, FAILED if any task failed terminally, otherwise another
// advance to release newly-eligible tasks.
func (d *Dispatcher) reevaluate(ctx context.Context, tenantID, masterJobID string) error {
	all, err := d.tasks.ListByMaster(ctx, tenantID, masterJobID)
	if err != nil {
		return err
	}

	allSuccess := true
	anyFailed := false
	for _, t := range all {
		if t.Status != model.StatusSuccess {
			allSuccess = false
		}
		if t.Status == model.StatusFailed {
			anyFailed = true
		}
	}

	switch {
	case allSuccess && len(all) > 0:
		result, err := aggregateResult(all)
		if err != nil {
			return err
		}
		d.logger.Info("master job succeeded", zap.String("master_job_id", masterJobID))
		return d.masters.UpdateStatus(ctx, tenantID, masterJobID, model.StatusSuccess, result)
	case anyFailed:
		d.logger.Info("master job failed", zap.String("master_job_id", masterJobID))
		return d.masters.UpdateStatus(ctx, tenantID, masterJobID, model.StatusFailed, "")
	default:
		return d.Advance(ctx, tenantID, masterJobID)
	}
}

func depsSatisfied(t *model.TaskJob, byID map[string]*model.TaskJob) bool {
	for _, dep := range t.DependsOnIDs() {
		d, ok := byID[dep]
		if !ok || d.Status != model.StatusSuccess {
			return false
		}
	}
	return true
}

// resolveOutputRefs substitutes task-output:// references in the payload
// with the referenced task's result blob key.
func resolveOutputRefs(t *model.TaskJob, byID map[string]*model.TaskJob) (string, error) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(t.Payload), &payload); err != nil {
		return "", &DependencyResolutionError{TaskID: t.ID, Ref: "payload", Reason: err.Error()}
	}

	touched := false
	for key, value := range payload {
		ref, ok := value.(string)
		if !ok || !strings.HasPrefix(ref, pipeline.OutputRefScheme) {
			continue
		}
		depID := strings.TrimPrefix(ref, pipeline.OutputRefScheme)
		dep, ok := byID[depID]
		if !ok {
			return "", &DependencyResolutionError{TaskID: t.ID, Ref: ref, Reason: "dependency task not found"}
		}
		outputKey, err := resultOutputKey(dep.Result)
		if err != nil {
			return "", &DependencyResolutionError{TaskID: t.ID, Ref: ref, Reason: err.Error()}
		}
		payload[key] = outputKey
		touched = true
	}

	if !touched {
		return t.Payload, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func resultOutputKey(result string) (string, error) {
	if result == "" {
		return "", errors.New("dependency result missing")
	}
	var parsed struct {
		OutputKey string `json:"outputKey"`
	}
	if err := json.Unmarshal([]byte(result), &parsed); err != nil {
		return "", fmt.Errorf("dependency result corrupt: %v", err)
	}
	if parsed.OutputKey == "" {
		return "", errors.New("dependency result has no output key")
	}
	return parsed.OutputKey, nil
}

// aggregateResult is the master's SUCCESS result: worker kind -> result
// blob key.
func aggregateResult(tasks []*model.TaskJob) (string, error) {
	keys := make(map[string]string, len(tasks))
	for _, t := range tasks {
		outputKey, err := resultOutputKey(t.Result)
		if err != nil {
			continue
		}
		keys[string(t.Worker)] = outputKey
	}
	raw, err := json.Marshal(keys)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func rewriteIndexRefs(payload map[string]any, ids []string) map[string]any {
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		ref, ok := value.(string)
		if ok && strings.HasPrefix(ref, pipeline.OutputRefScheme+"#") {
			idx := 0
			if _, err := fmt.Sscanf(strings.TrimPrefix(ref, pipeline.OutputRefScheme+"#"), "%d", &idx); err == nil && idx >= 0 && idx < len(ids) {
				out[key] = pipeline.OutputRefScheme + ids[idx]
				continue
			}
		}
		out[key] = value
	}
	return out
}
