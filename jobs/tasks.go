package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Emran025/supermarket-system-sub001/internal/integration"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueLedger carries business events that post to the ledger.
	QueueLedger = "ledger"

	// TaskAssetsDepreciation runs the monthly depreciation batch.
	TaskAssetsDepreciation = "assets:depreciation"
	// TaskLedgerIntegrity scans the ledger for unbalanced vouchers.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskInventoryRevaluation recomputes weighted average costs.
	TaskInventoryRevaluation = "inventory:revaluation"

	// TaskSaleCompleted posts a completed sale.
	TaskSaleCompleted = "integration:sale_completed"
	// TaskPurchaseReceived posts a received purchase.
	TaskPurchaseReceived = "integration:purchase_received"
	// TaskDocumentVoided reverses the voucher of a voided document.
	TaskDocumentVoided = "integration:document_voided"
)

// DepreciationPayload carries the run parameters. A zero RunDate means "now".
type DepreciationPayload struct {
	RunDate        time.Time `json:"run_date"`
	FiscalPeriodID *int64    `json:"fiscal_period_id,omitempty"`
	ActorID        int64     `json:"actor_id"`
}

// IntegrityPayload tunes the unbalanced voucher scan.
type IntegrityPayload struct {
	Tolerance string `json:"tolerance,omitempty"`
}

// RevaluationPayload carries scheduling metadata.
type RevaluationPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewDepreciationTask constructs the depreciation task.
func NewDepreciationTask(payload DepreciationPayload) (*asynq.Task, error) {
	return newTask(TaskAssetsDepreciation, payload, asynq.Queue(QueueDefault), asynq.MaxRetry(3))
}

// NewIntegrityTask constructs the ledger integrity task.
func NewIntegrityTask(payload IntegrityPayload) (*asynq.Task, error) {
	return newTask(TaskLedgerIntegrity, payload, asynq.Queue(QueueDefault))
}

// NewRevaluationTask constructs an Asynq task for inventory revaluation.
func NewRevaluationTask(at time.Time) (*asynq.Task, error) {
	return newTask(TaskInventoryRevaluation, RevaluationPayload{ScheduledFor: at}, asynq.Queue(QueueDefault))
}

// NewSaleCompletedTask wraps a sale event.
func NewSaleCompletedTask(evt integration.SaleCompletedEvent) (*asynq.Task, error) {
	return newTask(TaskSaleCompleted, evt, asynq.Queue(QueueLedger))
}

// NewPurchaseReceivedTask wraps a purchase event.
func NewPurchaseReceivedTask(evt integration.PurchaseReceivedEvent) (*asynq.Task, error) {
	return newTask(TaskPurchaseReceived, evt, asynq.Queue(QueueLedger))
}

// NewDocumentVoidedTask wraps a void event.
func NewDocumentVoidedTask(evt integration.DocumentVoidedEvent) (*asynq.Task, error) {
	return newTask(TaskDocumentVoided, evt, asynq.Queue(QueueLedger))
}

func newTask(typ string, payload any, opts ...asynq.Option) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typ, body, opts...), nil
}
