package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bridgekit/custody-schedule-api/internal/models"
	"github.com/bridgekit/custody-schedule-api/pkg/export"
	"github.com/bridgekit/custody-schedule-api/pkg/jobs"
	"github.com/bridgekit/custody-schedule-api/pkg/storage"
)

type documentRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

type documentStore interface {
	Save(filename string, data []byte) (string, error)
}

type documentMetrics interface {
	RecordDocumentGenerated()
}

// DocumentService renders approved change requests into PDF records on
// a background worker queue. It implements ApprovalSink so resolution
// never blocks on rendering.
type DocumentService struct {
	renderer documentRenderer
	store    documentStore
	metrics  documentMetrics
	logger   *zap.Logger
	queue    *jobs.Queue
}

// DocumentServiceConfig tunes the background queue.
type DocumentServiceConfig struct {
	Workers    int
	MaxRetries int
}

// NewDocumentService constructs the documentation pipeline.
func NewDocumentService(renderer documentRenderer, store documentStore, metrics documentMetrics, logger *zap.Logger, cfg DocumentServiceConfig) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &DocumentService{
		renderer: renderer,
		store:    store,
		metrics:  metrics,
		logger:   logger,
	}
	svc.queue = jobs.NewQueue("approval-documents", svc.process, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return svc
}

// Start launches the rendering workers.
func (s *DocumentService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *DocumentService) Stop() {
	s.queue.Stop()
}

// OnApproved enqueues a rendering job for the approval record.
func (s *DocumentService) OnApproved(ctx context.Context, record models.ApprovalRecord) error {
	return s.queue.Enqueue(jobs.Job{
		ID:      record.RequestID,
		Type:    "approval-pdf",
		Payload: record,
	})
}

func (s *DocumentService) process(ctx context.Context, job jobs.Job) error {
	record, ok := job.Payload.(models.ApprovalRecord)
	if !ok {
		s.logger.Error("unexpected job payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}

	data, err := s.renderer.Render(buildApprovalDocument(record))
	if err != nil {
		return fmt.Errorf("render approval document %s: %w", record.RequestID, err)
	}

	filename := fmt.Sprintf("approvals/%s.pdf", record.RequestID)
	if _, err := s.store.Save(filename, data); err != nil {
		return fmt.Errorf("store approval document %s: %w", record.RequestID, err)
	}

	if s.metrics != nil {
		s.metrics.RecordDocumentGenerated()
	}
	s.logger.Info("approval document generated",
		zap.String("request_id", record.RequestID),
		zap.String("file", filename))
	return nil
}

// buildApprovalDocument maps an approval record onto the printable
// document layout.
func buildApprovalDocument(record models.ApprovalRecord) export.Document {
	doc := export.Document{
		Title: "Schedule Change Approval Record",
		Sections: []export.Section{
			{
				Heading: "Request",
				Lines: []string{
					fmt.Sprintf("Request ID: %s", record.RequestID),
					fmt.Sprintf("Change type: %s", record.Kind),
					fmt.Sprintf("Requested by: %s on %s", record.RequestedBy, record.RequestedAt.Format(time.RFC1123)),
					fmt.Sprintf("Approved by: %s on %s", record.ApprovedBy, record.ApprovedAt.Format(time.RFC1123)),
					fmt.Sprintf("Reason: %s", record.Reason),
				},
			},
			{
				Heading: "Consequences",
				Lines:   record.Consequences,
			},
			{
				Heading: "Custody Agreement Impact",
				Lines:   []string{record.ContractImpact},
			},
		},
		Table: &export.Table{
			Headers: []string{"Event", "Before", "After"},
		},
	}

	for i, before := range record.BeforeState {
		after := ""
		if i < len(record.AfterState) {
			entry := record.AfterState[i]
			if entry.Cancelled {
				after = "Cancelled"
			} else {
				after = entry.Date.Format("2006-01-02")
			}
		}
		doc.Table.Rows = append(doc.Table.Rows, []string{
			before.Title,
			before.Date.Format("2006-01-02"),
			after,
		})
	}

	return doc
}

var _ documentStore = (*storage.LocalStorage)(nil)
