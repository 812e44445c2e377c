package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/mailbridge/mailbridge/internal/domain"
	"github.com/mailbridge/mailbridge/internal/provider"
	"github.com/mailbridge/mailbridge/internal/store"
	"github.com/mailbridge/mailbridge/internal/store/sqlite"
)

// fakeClient is an in-memory provider.Client recording every remote write.
type fakeClient struct {
	folders     []provider.RemoteFolder
	foldersErr  error
	messages    map[string][]provider.RemoteMessage
	messagesErr map[string]error
	updates     []recordedUpdate
	updateErr   error
	sent        []provider.Draft
}

type recordedUpdate struct {
	grant     string
	messageID string
	update    provider.MessageUpdate
}

func (f *fakeClient) ListFolders(ctx context.Context, grant string) ([]provider.RemoteFolder, error) {
	if f.foldersErr != nil {
		return nil, f.foldersErr
	}
	return f.folders, nil
}

func (f *fakeClient) ListMessages(ctx context.Context, grant string, opts provider.ListMessageOptions) ([]provider.RemoteMessage, error) {
	if err := f.messagesErr[opts.FolderID]; err != nil {
		return nil, err
	}
	msgs := f.messages[opts.FolderID]
	if opts.Limit > 0 && len(msgs) > opts.Limit {
		msgs = msgs[:opts.Limit]
	}
	return msgs, nil
}

func (f *fakeClient) GetMessage(ctx context.Context, grant, messageID string) (*provider.RemoteMessage, error) {
	for _, msgs := range f.messages {
		for i := range msgs {
			if msgs[i].ID == messageID {
				return &msgs[i], nil
			}
		}
	}
	return nil, provider.ErrMessageNotFound
}

func (f *fakeClient) UpdateMessage(ctx context.Context, grant, messageID string, update provider.MessageUpdate) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, recordedUpdate{grant: grant, messageID: messageID, update: update})
	return nil
}

func (f *fakeClient) SendMessage(ctx context.Context, grant string, draft provider.Draft) (*provider.SentMessage, error) {
	f.sent = append(f.sent, draft)
	return &provider.SentMessage{ID: "sent-1", ThreadID: "thread-sent-1"}, nil
}

var errRemote = errors.New("remote unavailable")

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("sqlite.New() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func testAccount(t *testing.T, s store.Store) *domain.Account {
	t.Helper()
	acct := &domain.Account{
		ID:           "acc-1",
		UserID:       "user-1",
		EmailAddress: "alice@example.com",
		GrantID:      "grant-1",
		Provider:     domain.ProviderGoogle,
		Status:       domain.AccountActive,
	}
	if err := s.UpsertAccount(context.Background(), acct); err != nil {
		t.Fatalf("UpsertAccount: %v", err)
	}
	return acct
}

func testRegistry(client provider.Client) provider.Registry {
	return provider.Registry{domain.ProviderGoogle: client}
}
