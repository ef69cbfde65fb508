package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-panel/internal/models"
	"github.com/noah-isme/academic-panel/internal/view"
	"github.com/noah-isme/academic-panel/pkg/jobs"
	"github.com/noah-isme/academic-panel/pkg/mailer"
)

// flakyTransport fails the first failures sends, then delivers.
type flakyTransport struct {
	mu       sync.Mutex
	failures int
	attempts int
	sent     []mailer.Message
}

func (f *flakyTransport) Name() string { return "flaky" }

func (f *flakyTransport) Send(ctx context.Context, msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.attempts <= f.failures {
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *flakyTransport) delivered() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func approvedRow() models.EnrollmentRow {
	number := "MAT-2026-00001"
	return models.EnrollmentRow{
		Enrollment:   models.Enrollment{StudentID: studentAna, CourseName: "Excel", Status: models.EnrollmentStatusMatriculated, EnrollmentNumber: &number},
		StudentName:  "Ana Pérez",
		StudentEmail: " Ana@Example.com ",
	}
}

func TestNotifyApprovalInline(t *testing.T) {
	renderer, err := view.New("Instituto Central")
	require.NoError(t, err)
	transport := &failingTransport{}
	metrics := NewMetricsService()
	svc := NewNotificationService(transport, renderer, metrics, zap.NewNop())

	require.NoError(t, svc.NotifyApproval(context.Background(), approvedRow()))
	sent := transport.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "ana@example.com", sent[0].To[0].Email)
	assert.Contains(t, sent[0].Subject, "Excel")
	assert.Contains(t, sent[0].HTML, "MAT-2026-00001")
	assert.Equal(t, uint64(1), metrics.Snapshot().EmailsSent)
}

func TestNotifyApprovalWithoutAddress(t *testing.T) {
	renderer, err := view.New("Instituto Central")
	require.NoError(t, err)
	transport := &failingTransport{}
	svc := NewNotificationService(transport, renderer, nil, nil)

	row := approvedRow()
	row.StudentEmail = ""
	assert.ErrorIs(t, svc.NotifyApproval(context.Background(), row), ErrNoRecipient)
	assert.Empty(t, transport.messages())
}

func TestNotifyApprovalQueuedRetries(t *testing.T) {
	renderer, err := view.New("Instituto Central")
	require.NoError(t, err)
	transport := &flakyTransport{failures: 2}
	metrics := NewMetricsService()
	svc := NewNotificationService(transport, renderer, metrics, zap.NewNop())

	queue := svc.EnableQueue(jobs.QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)
	defer queue.Stop()

	require.NoError(t, svc.NotifyApproval(ctx, approvedRow()))
	require.Eventually(t, func() bool { return transport.delivered() == 1 }, time.Second, 5*time.Millisecond)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.EmailsSent)
	assert.Equal(t, uint64(2), snapshot.EmailsFailed)
}

func TestSendBulkNeverQueues(t *testing.T) {
	transport := &flakyTransport{failures: 1}
	svc := NewNotificationService(transport, nil, nil, nil)
	svc.EnableQueue(jobs.QueueConfig{})

	err := svc.SendBulk(context.Background(), mailer.Message{To: []mailer.Address{{Email: "a@example.com"}}, Subject: "x"})
	assert.Error(t, err)
	assert.Equal(t, 0, transport.delivered())
}
