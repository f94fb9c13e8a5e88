package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"bottle-tracking-backend/internal/model"
	"bottle-tracking-backend/internal/store"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func newTestPool(t *testing.T) (*WorkerPool, sqlmock.Sqlmock) {
	gormDB, mock := newTestDB(t)
	return NewWorkerPool(1, store.NewGormStore(gormDB), &webpush.Options{}, zap.NewNop()), mock
}

const subscriptionsQuery = `SELECT .* FROM "push_subscriptions" JOIN watchers w ON .*WHERE w\.bottle_index = \$1`

var subscriptionColumns = []string{"endpoint", "p256dh", "auth", "user_id", "created_at"}

func okResponse(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewBufferString(""))}
}

func TestWorkerPool_Dispatch(t *testing.T) {
	wp, _ := newTestPool(t)

	// Dispatch a job
	wp.Dispatch(context.Background(), 123)

	// Check if the job is in the channel
	select {
	case job := <-wp.Jobs():
		assert.Equal(t, int64(123), job)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestWorkerPool_DispatchGivesUpOnCancel(t *testing.T) {
	wp, _ := newTestPool(t)
	wp.Dispatch(context.Background(), 1) // fills the queue of size 1

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		wp.Dispatch(ctx, 2)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked after context cancellation")
	}
}

func TestWorkerPool_NotifiesWatchers(t *testing.T) {
	wp, mock := newTestPool(t)

	var got []string
	wp.sender = &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			got = append(got, sub.Endpoint)

			var p Payload
			require.NoError(t, json.Unmarshal(payload, &p))
			assert.Equal(t, int64(42), p.BottleIndex)
			assert.Equal(t, "0xrecy", p.Account)
			assert.Equal(t, model.OwnerTypeRecycler, p.Type)
			assert.Equal(t, "La botella #42 ahora pertenece a reciclador", p.Message)
			return okResponse(http.StatusCreated), nil
		},
	}

	mock.ExpectQuery(subscriptionsQuery).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows(subscriptionColumns).
			AddRow("https://push.example.com/a", "p1", "a1", 7, time.Now()).
			AddRow("https://push.example.com/b", "p2", "a2", 8, time.Now()))
	mock.ExpectQuery(`SELECT \* FROM "owners" WHERE bottle_index = \$1`).
		WithArgs(42, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "bottle_index", "account", "type", "created_at", "deleted_at"}).
			AddRow(3, 42, "0xrecy", model.OwnerTypeRecycler, time.Now(), nil))

	wp.notifyWatchers(context.Background(), 42)

	assert.Equal(t, []string{"https://push.example.com/a", "https://push.example.com/b"}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkerPool_NoWatchersSendsNothing(t *testing.T) {
	wp, mock := newTestPool(t)
	wp.sender = &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			t.Fatal("no notification expected")
			return nil, nil
		},
	}

	mock.ExpectQuery(subscriptionsQuery).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(subscriptionColumns))

	wp.notifyWatchers(context.Background(), 5)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkerPool_DeletesExpiredSubscription(t *testing.T) {
	wp, mock := newTestPool(t)
	wp.sender = &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			return okResponse(http.StatusGone), nil
		},
	}

	mock.ExpectQuery(subscriptionsQuery).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows(subscriptionColumns).
			AddRow("https://push.example.com/expired", "p", "a", 7, time.Now()))
	mock.ExpectQuery(`SELECT \* FROM "owners"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "bottle_index", "account", "type", "created_at", "deleted_at"}).
			AddRow(1, 9, "0xcons", model.OwnerTypeConsumer, time.Now(), nil))

	// Expect the delete operation
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "push_subscriptions" WHERE "push_subscriptions"."endpoint" = \$1`).
		WithArgs("https://push.example.com/expired").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	wp.notifyWatchers(context.Background(), 9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkerPool_SendErrorIsNotFatal(t *testing.T) {
	wp, mock := newTestPool(t)

	calls := 0
	wp.sender = &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			calls++
			if calls == 1 {
				return nil, fmt.Errorf("connection refused")
			}
			return okResponse(http.StatusCreated), nil
		},
	}

	mock.ExpectQuery(subscriptionsQuery).
		WillReturnRows(sqlmock.NewRows(subscriptionColumns).
			AddRow("https://push.example.com/down", "p", "a", 7, time.Now()).
			AddRow("https://push.example.com/up", "p", "a", 8, time.Now()))
	mock.ExpectQuery(`SELECT \* FROM "owners"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "bottle_index", "account", "type", "created_at", "deleted_at"}).
			AddRow(1, 4, "0xprod", model.OwnerTypeProducer, time.Now(), nil))

	wp.notifyWatchers(context.Background(), 4)
	assert.Equal(t, 2, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkerPool_WorkerLogic(t *testing.T) {
	wp, mock := newTestPool(t)

	var wg sync.WaitGroup
	wg.Add(1)
	wp.sender = &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			assert.Equal(t, "https://push.example.com/w", sub.Endpoint)
			assert.Equal(t, "p256", sub.Keys.P256dh)
			wg.Done()
			return okResponse(http.StatusCreated), nil
		},
	}

	mock.ExpectQuery(subscriptionsQuery).
		WithArgs(77).
		WillReturnRows(sqlmock.NewRows(subscriptionColumns).
			AddRow("https://push.example.com/w", "p256", "auth", 7, time.Now()))
	mock.ExpectQuery(`SELECT \* FROM "owners"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "bottle_index", "account", "type", "created_at", "deleted_at"}).
			AddRow(1, 77, "0xsec", model.OwnerTypeSecondaryProducer, time.Now(), nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	wp.Dispatch(ctx, 77)
	wg.Wait()
	assert.NoError(t, mock.ExpectationsWereMet())
}
