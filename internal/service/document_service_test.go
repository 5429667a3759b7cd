package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bridgekit/custody-schedule-api/internal/models"
	"github.com/bridgekit/custody-schedule-api/pkg/export"
	"github.com/bridgekit/custody-schedule-api/pkg/jobs"
)

type rendererStub struct {
	docs []export.Document
}

func (r *rendererStub) Render(doc export.Document) ([]byte, error) {
	r.docs = append(r.docs, doc)
	return []byte("%PDF"), nil
}

type storeStub struct {
	saved map[string][]byte
}

func (s *storeStub) Save(filename string, data []byte) (string, error) {
	if s.saved == nil {
		s.saved = make(map[string][]byte)
	}
	s.saved[filename] = data
	return filename, nil
}

func sampleRecord() models.ApprovalRecord {
	return models.ApprovalRecord{
		RequestID:   "req-1",
		FamilyID:    "fam-1",
		Kind:        models.ChangeKindSwap,
		RequestedBy: "parent-a",
		ApprovedBy:  "parent-b",
		RequestedAt: time.Date(2024, 9, 1, 9, 0, 0, 0, time.UTC),
		ApprovedAt:  time.Date(2024, 9, 2, 10, 0, 0, 0, time.UTC),
		Reason:      "work trip",
		BeforeState: []models.StateEntry{
			{EventID: "e1", Title: "Weekend with Dad", Date: time.Date(2024, 9, 14, 0, 0, 0, 0, time.UTC)},
			{EventID: "e2", Title: "Weekend with Mom", Date: time.Date(2024, 9, 21, 0, 0, 0, 0, time.UTC)},
		},
		AfterState: []models.StateEntry{
			{EventID: "e1", Title: "Weekend with Dad", Date: time.Date(2024, 9, 21, 0, 0, 0, 0, time.UTC)},
			{EventID: "e2", Title: "Weekend with Mom", Date: time.Date(2024, 9, 14, 0, 0, 0, 0, time.UTC)},
		},
		Consequences:   []string{"Weekend with Dad moves from 14 to 21"},
		ContractImpact: impactSwap,
	}
}

func TestDocumentServiceRendersAndStores(t *testing.T) {
	renderer := &rendererStub{}
	store := &storeStub{}
	svc := NewDocumentService(renderer, store, nil, nil, DocumentServiceConfig{})

	err := svc.process(context.Background(), jobs.Job{
		ID:      "req-1",
		Type:    "approval-pdf",
		Payload: sampleRecord(),
	})
	require.NoError(t, err)

	require.Len(t, renderer.docs, 1)
	require.Contains(t, store.saved, "approvals/req-1.pdf")
}

func TestBuildApprovalDocumentLayout(t *testing.T) {
	doc := buildApprovalDocument(sampleRecord())

	require.Equal(t, "Schedule Change Approval Record", doc.Title)
	require.Len(t, doc.Sections, 3)
	require.Equal(t, "Consequences", doc.Sections[1].Heading)
	require.NotNil(t, doc.Table)
	require.Len(t, doc.Table.Rows, 2)
	require.Equal(t, []string{"Weekend with Dad", "2024-09-14", "2024-09-21"}, doc.Table.Rows[0])
}

func TestBuildApprovalDocumentCancelledRow(t *testing.T) {
	record := sampleRecord()
	record.Kind = models.ChangeKindCancel
	record.BeforeState = record.BeforeState[:1]
	record.AfterState = []models.StateEntry{
		{EventID: "e1", Title: "Weekend with Dad", Date: record.BeforeState[0].Date, Cancelled: true},
	}

	doc := buildApprovalDocument(record)
	require.Equal(t, "Cancelled", doc.Table.Rows[0][2])
}
