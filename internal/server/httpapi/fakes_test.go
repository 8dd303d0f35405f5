package httpapi

import (
	"context"
	"database/sql"
	"time"

	"github.com/eternalsentinel/sentinel/internal/apperrors"
	"github.com/eternalsentinel/sentinel/internal/server/queue"
	"github.com/eternalsentinel/sentinel/internal/server/store/auditlog"
	"github.com/eternalsentinel/sentinel/internal/server/store/checkins"
	"github.com/eternalsentinel/sentinel/internal/server/store/letters"
	"github.com/eternalsentinel/sentinel/internal/server/store/models"
	"github.com/eternalsentinel/sentinel/internal/server/store/pollingconfigs"
	"github.com/eternalsentinel/sentinel/internal/server/store/trustees"
	"github.com/eternalsentinel/sentinel/internal/server/store/users"
	"github.com/eternalsentinel/sentinel/internal/server/store/vault"
	"github.com/eternalsentinel/sentinel/internal/server/store/vaultitems"
)

// fakeManager is an in-memory store.Manager for handler-level tests that
// never need to exercise SQL directly; db (when set) backs Conn() for the
// handlers that drive dbx.WithTx/ConfirmCheckIn against sqlmock.
type fakeManager struct {
	db *sql.DB

	users          map[string]*models.User
	pollingConfigs map[string]*models.PollingConfig
	checkIns       map[string]*models.CheckIn
	trustees       map[string]*models.Trustee
	vaults         map[string]*models.Vault
	vaultItems     map[string][]*models.VaultItem
}

func newFakeManager() *fakeManager {
	return &fakeManager{
		users:          map[string]*models.User{},
		pollingConfigs: map[string]*models.PollingConfig{},
		checkIns:       map[string]*models.CheckIn{},
		trustees:       map[string]*models.Trustee{},
		vaults:         map[string]*models.Vault{},
		vaultItems:     map[string][]*models.VaultItem{},
	}
}

func (m *fakeManager) Conn() *sql.DB                { return m.db }
func (m *fakeManager) RunMigrations(context.Context) error { return nil }

func (m *fakeManager) Users() users.Repository                   { return usersFacade{m} }
func (m *fakeManager) PollingConfigs() pollingconfigs.Repository { return pollingFacade{m} }
func (m *fakeManager) CheckIns() checkins.Repository             { return checkinsFacade{m} }
func (m *fakeManager) Trustees() trustees.Repository             { return trusteesFacade{m} }
func (m *fakeManager) Letters() letters.Repository               { return lettersFacade{} }
func (m *fakeManager) AuditLog() auditlog.Repository             { return auditFacade{} }
func (m *fakeManager) Vaults() vault.Repository                  { return vaultFacade{m} }
func (m *fakeManager) VaultItems() vaultitems.Repository         { return vaultItemsFacade{m} }

type usersFacade struct{ m *fakeManager }

func (f usersFacade) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.m.users[u.ID] = u
	return u, nil
}
func (f usersFacade) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := f.m.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return u, nil
}
func (f usersFacade) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperrors.ErrNotFound
}
func (f usersFacade) Delete(ctx context.Context, id string) error {
	delete(f.m.users, id)
	return nil
}

type pollingFacade struct{ m *fakeManager }

func (f pollingFacade) Create(ctx context.Context, c *models.PollingConfig) (*models.PollingConfig, error) {
	f.m.pollingConfigs[c.UserID] = c
	return c, nil
}
func (f pollingFacade) GetByUserID(ctx context.Context, userID string) (*models.PollingConfig, error) {
	c, ok := f.m.pollingConfigs[userID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return c, nil
}
func (f pollingFacade) DueForCheckIn(ctx context.Context, asOf time.Time, limit int) ([]*models.PollingConfig, error) {
	return nil, nil
}
func (f pollingFacade) TimedOutGrace3(ctx context.Context, asOf time.Time, limit int) ([]*models.PollingConfig, error) {
	return nil, nil
}
func (f pollingFacade) Update(ctx context.Context, c *models.PollingConfig) error {
	f.m.pollingConfigs[c.UserID] = c
	return nil
}
func (f pollingFacade) Delete(ctx context.Context, userID string) error {
	delete(f.m.pollingConfigs, userID)
	return nil
}

type checkinsFacade struct{ m *fakeManager }

func (f checkinsFacade) Create(ctx context.Context, c *models.CheckIn) (*models.CheckIn, error) {
	f.m.checkIns[c.ID] = c
	return c, nil
}
func (f checkinsFacade) GetByToken(ctx context.Context, token string) (*models.CheckIn, error) {
	for _, c := range f.m.checkIns {
		if c.Token == token {
			return c, nil
		}
	}
	return nil, apperrors.ErrNotFound
}
func (f checkinsFacade) GetByID(ctx context.Context, id string) (*models.CheckIn, error) {
	c, ok := f.m.checkIns[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return c, nil
}
func (f checkinsFacade) ListPending(ctx context.Context, userID string) ([]*models.CheckIn, error) {
	var out []*models.CheckIn
	for _, c := range f.m.checkIns {
		if c.UserID == userID && c.Status == models.CheckInPending {
			out = append(out, c)
		}
	}
	return out, nil
}
func (f checkinsFacade) Expired(ctx context.Context, asOf time.Time, limit int) ([]*models.CheckIn, error) {
	return nil, nil
}
func (f checkinsFacade) MarkMissed(ctx context.Context, id string) error { return nil }

type trusteesFacade struct{ m *fakeManager }

func (f trusteesFacade) Create(ctx context.Context, t *models.Trustee) (*models.Trustee, error) {
	f.m.trustees[t.ID] = t
	return t, nil
}
func (f trusteesFacade) GetByID(ctx context.Context, id string) (*models.Trustee, error) {
	t, ok := f.m.trustees[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return t, nil
}
func (f trusteesFacade) GetByAccessToken(ctx context.Context, token string) (*models.Trustee, error) {
	for _, t := range f.m.trustees {
		if t.AccessToken != nil && *t.AccessToken == token {
			return t, nil
		}
	}
	return nil, apperrors.ErrNotFound
}
func (f trusteesFacade) ListByUser(ctx context.Context, userID string) ([]*models.Trustee, error) {
	var out []*models.Trustee
	for _, t := range f.m.trustees {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}
func (f trusteesFacade) Update(ctx context.Context, t *models.Trustee) error {
	f.m.trustees[t.ID] = t
	return nil
}
func (f trusteesFacade) Delete(ctx context.Context, id string) error {
	delete(f.m.trustees, id)
	return nil
}
func (f trusteesFacade) PendingNotification(ctx context.Context, limit int) ([]*models.Trustee, error) {
	return nil, nil
}

type lettersFacade struct{}

func (lettersFacade) Create(ctx context.Context, l *models.FinalLetter) (*models.FinalLetter, error) {
	return l, nil
}
func (lettersFacade) GetByID(ctx context.Context, id string) (*models.FinalLetter, error) {
	return nil, apperrors.ErrNotFound
}
func (lettersFacade) ListByUser(ctx context.Context, userID string) ([]*models.FinalLetter, error) {
	return nil, nil
}
func (lettersFacade) ListReadyForUser(ctx context.Context, userID string) ([]*models.FinalLetter, error) {
	return nil, nil
}
func (lettersFacade) MarkDelivered(ctx context.Context, id string) error { return nil }

type auditFacade struct{}

func (auditFacade) Append(ctx context.Context, e *models.AuditLog) error { return nil }
func (auditFacade) ListByUser(ctx context.Context, userID string, limit int) ([]*models.AuditLog, error) {
	return nil, nil
}

type vaultFacade struct{ m *fakeManager }

func (f vaultFacade) GetByUserID(ctx context.Context, userID string) (*models.Vault, error) {
	v, ok := f.m.vaults[userID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return v, nil
}
func (f vaultFacade) Upsert(ctx context.Context, v *models.Vault) error {
	f.m.vaults[v.UserID] = v
	return nil
}

type vaultItemsFacade struct{ m *fakeManager }

func (f vaultItemsFacade) Create(ctx context.Context, item *models.VaultItem) (*models.VaultItem, error) {
	f.m.vaultItems[item.UserID] = append(f.m.vaultItems[item.UserID], item)
	return item, nil
}
func (f vaultItemsFacade) ListByUser(ctx context.Context, userID string) ([]*models.VaultItem, error) {
	return f.m.vaultItems[userID], nil
}
func (f vaultItemsFacade) Delete(ctx context.Context, id string) error { return nil }

type fakeQueue struct {
	enqueued []fakeJob
}

type fakeJob struct {
	queue          string
	payload        []byte
	runAt          time.Time
	idempotencyKey *string
}

func (q *fakeQueue) Enqueue(ctx context.Context, queueName string, payload []byte, runAt time.Time, maxAttempts int, idempotencyKey *string) (*queue.Job, error) {
	q.enqueued = append(q.enqueued, fakeJob{queue: queueName, payload: payload, runAt: runAt, idempotencyKey: idempotencyKey})
	return &queue.Job{Queue: queueName, Payload: payload, RunAt: runAt}, nil
}
func (q *fakeQueue) Claim(ctx context.Context, queueName string, asOf time.Time, limit int) ([]*queue.Job, error) {
	return nil, nil
}
func (q *fakeQueue) Complete(ctx context.Context, jobID string) error { return nil }
func (q *fakeQueue) Retry(ctx context.Context, jobID string, asOf time.Time, backoff time.Duration, lastErr string) error {
	return nil
}
func (q *fakeQueue) DeadLetter(ctx context.Context, job *queue.Job, lastErr string) error { return nil }

// fakeVaultStore stands in for *vaultstore.Store in handler tests so they
// never touch S3.
type fakeVaultStore struct {
	putErr, getErr error
}

func (f *fakeVaultStore) PresignedPutURL(ctx context.Context, userID string) (string, string, error) {
	if f.putErr != nil {
		return "", "", f.putErr
	}
	key := "vault/" + userID + "/fake-key"
	return key, "https://example-bucket.s3.amazonaws.com/" + key + "?X-Amz-Signature=put", nil
}

func (f *fakeVaultStore) PresignedGetURL(ctx context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	return "https://example-bucket.s3.amazonaws.com/" + key + "?X-Amz-Signature=get", nil
}
