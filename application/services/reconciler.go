package services

import (
	"context"
	stderrors "errors"

	"promptstore/application/ports"
	"promptstore/domain/core/entities"
	"promptstore/domain/core/valueobjects"
	"promptstore/domain/events"
	"promptstore/pkg/errors"
	"promptstore/pkg/observability"
	"promptstore/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// reconcileResource names the lease held by a full sweep
const reconcileResource = "reconcile-all"

// ReconcileReport describes what a repair pass changed on one lineage
type ReconcileReport struct {
	UserID   string   `json:"userId"`
	PromptID string   `json:"promptId"`
	LatestID string   `json:"latestId,omitempty"`
	Promoted []string `json:"promoted"`
	Demoted  []string `json:"demoted"`
}

// Changed reports whether any latest flag was moved
func (r *ReconcileReport) Changed() bool {
	return len(r.Promoted) > 0 || len(r.Demoted) > 0
}

// Reconciler restores the single-latest invariant on lineages left
// inconsistent by interrupted writes or by deleting a latest document.
type Reconciler struct {
	store     ports.PromptStore
	locker    ports.Locker
	publisher ports.EventPublisher
	metrics   *observability.Collector
	cfg       Config
	logger    *zap.Logger
}

// NewReconciler creates a new reconciler. publisher and metrics may be nil;
// a nil publisher must be an untyped nil, not a nil pointer of some type.
func NewReconciler(
	store ports.PromptStore,
	locker ports.Locker,
	publisher ports.EventPublisher,
	metrics *observability.Collector,
	cfg Config,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		store:     store,
		locker:    locker,
		publisher: publisher,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger,
	}
}

// ReconcileLineage promotes the highest version when no document is latest,
// and demotes all but the highest latest document when several are. Each
// flag change is guarded by the document's etag.
//
// On a store without LatestSwapper a createNewVersion in flight briefly
// leaves its lineage with no latest document, which looks the same as a
// failed saga. Run repairs against such stores only while writes are quiesced.
func (r *Reconciler) ReconcileLineage(ctx context.Context, userID, promptID string) (*ReconcileReport, error) {
	key, err := lineageKey(userID, promptID)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := r.cfg.callContext(ctx)
	docs, err := r.store.Query(callCtx, &key, ports.Predicate{Type: entities.DocumentType, OrderByVersionDesc: true})
	cancel()
	if err != nil {
		return nil, withOperation(err, "reconcileLineage", key)
	}
	return r.reconcile(ctx, key, docs)
}

// reconcile repairs one lineage given its documents, highest version first
func (r *Reconciler) reconcile(ctx context.Context, key valueobjects.PartitionKey, docs []*entities.Prompt) (*ReconcileReport, error) {
	report := &ReconcileReport{UserID: key.UserID, PromptID: key.PromptID, Promoted: []string{}, Demoted: []string{}}
	if len(docs) == 0 {
		return report, nil
	}

	var latest []*entities.Prompt
	for _, doc := range docs {
		if doc.IsLatest {
			latest = append(latest, doc)
		}
	}

	isLatest, notLatest := true, false
	now := utils.NowUTC()
	switch {
	case len(latest) == 0:
		top := docs[0]
		if _, err := r.patch(ctx, top, key, true, &ports.Precondition{ETag: top.ETag, IsLatest: &notLatest}); err != nil {
			return nil, withOperation(err, "reconcileLineage", key)
		}
		report.Promoted = append(report.Promoted, top.ID)
		report.LatestID = top.ID
	case len(latest) > 1:
		report.LatestID = latest[0].ID
		for _, doc := range latest[1:] {
			if _, err := r.patch(ctx, doc, key, false, &ports.Precondition{ETag: doc.ETag, IsLatest: &isLatest}); err != nil {
				return nil, withOperation(err, "reconcileLineage", key)
			}
			report.Demoted = append(report.Demoted, doc.ID)
		}
	default:
		report.LatestID = latest[0].ID
		return report, nil
	}

	r.record(report)
	r.logger.Info("Lineage reconciled",
		zap.String("userId", key.UserID),
		zap.String("promptId", key.PromptID),
		zap.String("latestId", report.LatestID),
		zap.Strings("promoted", report.Promoted),
		zap.Strings("demoted", report.Demoted),
	)
	if r.publisher != nil {
		event := events.NewLineageReconciled(report.LatestID, lineageOf(key), report.Promoted, report.Demoted, now)
		if err := r.publisher.Publish(ctx, event); err != nil {
			r.logger.Warn("Failed to publish event", zap.String("eventType", event.GetEventType()), zap.Error(err))
		}
	}
	return report, nil
}

func (r *Reconciler) patch(ctx context.Context, doc *entities.Prompt, key valueobjects.PartitionKey, latest bool, cond *ports.Precondition) (*entities.Prompt, error) {
	callCtx, cancel := r.cfg.callContext(ctx)
	defer cancel()
	return r.store.Patch(callCtx, doc.ID, key, []entities.PatchOperation{entities.SetIsLatest(latest)}, cond)
}

func (r *Reconciler) record(report *ReconcileReport) {
	if r.metrics == nil {
		return
	}
	if n := len(report.Promoted); n > 0 {
		r.metrics.LineagesRepaired.WithLabelValues("promoted").Add(float64(n))
	}
	if n := len(report.Demoted); n > 0 {
		r.metrics.LineagesRepaired.WithLabelValues("demoted").Add(float64(n))
	}
}

// ReconcileAll scans every prompt document and repairs the inconsistent
// lineages. Only one sweep runs at a time; a held lease is a CONFLICT. Lineage
// failures do not stop the sweep and are returned joined. The same quiescence
// rule as ReconcileLineage applies.
func (r *Reconciler) ReconcileAll(ctx context.Context) ([]*ReconcileReport, error) {
	lease, err := r.locker.Acquire(ctx, reconcileResource, uuid.New().String(), r.cfg.ReconcileLeaseTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			r.logger.Warn("Failed to release reconcile lease", zap.Error(err))
		}
	}()

	callCtx, cancel := r.cfg.callContext(ctx)
	docs, err := r.store.Query(callCtx, nil, ports.Predicate{Type: entities.DocumentType})
	cancel()
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return nil, errors.NewTimeoutError("reconcileAll").WithCause(err).WithOperation("reconcileAll", "*")
		}
		if appErr := errors.GetAppError(err); appErr != nil {
			return nil, appErr.WithOperation("reconcileAll", "*")
		}
		return nil, err
	}

	lineages := make(map[valueobjects.PartitionKey][]*entities.Prompt)
	var order []valueobjects.PartitionKey
	for _, doc := range docs {
		key := doc.Key()
		if _, seen := lineages[key]; !seen {
			order = append(order, key)
		}
		lineages[key] = append(lineages[key], doc)
	}

	reports := make([]*ReconcileReport, 0)
	var errs []error
	for _, key := range order {
		if lease.IsExpired() {
			errs = append(errs, errors.NewUnavailableError("reconcile lease").WithOperation("reconcileAll", key.String()))
			break
		}

		group := lineages[key]
		if countLatest(group) == 1 {
			continue
		}
		entities.SortByVersionDesc(group)

		report, err := r.reconcile(ctx, key, group)
		if err != nil {
			r.logger.Warn("Failed to reconcile lineage",
				zap.String("userId", key.UserID),
				zap.String("promptId", key.PromptID),
				zap.Error(err),
			)
			errs = append(errs, err)
			continue
		}
		if report.Changed() {
			reports = append(reports, report)
		}
	}

	return reports, stderrors.Join(errs...)
}

func countLatest(docs []*entities.Prompt) int {
	n := 0
	for _, doc := range docs {
		if doc.IsLatest {
			n++
		}
	}
	return n
}
