package archive

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finansmanager/internal/domain"
	"github.com/dvloznov/finansmanager/internal/store/inmemory"
)

type memObjects struct {
	mu       sync.Mutex
	objects  map[string][]byte
	writeErr error
}

func newMemObjects() *memObjects {
	return &memObjects{objects: make(map[string][]byte)}
}

func (m *memObjects) Write(ctx context.Context, bucket, object, contentType string, data []byte) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[URI(bucket, object)] = data
	return nil
}

func (m *memObjects) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[URI(bucket, object)]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{uri: "gs://bucket/ledgers/u1/a.json", wantBucket: "bucket", wantObject: "ledgers/u1/a.json"},
		{uri: "gs://bucket", wantErr: true},
		{uri: "gs://bucket/", wantErr: true},
		{uri: "s3://bucket/a.json", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseURI(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantObject, object)
		})
	}
}

func TestObjectName(t *testing.T) {
	at := time.Date(2026, 10, 16, 8, 30, 5, 0, time.FixedZone("CEST", 2*3600))
	assert.Equal(t, "ledgers/u1/20261016T063005Z.json", ObjectName("u1", at))
}

func TestExportLedger(t *testing.T) {
	ctx := context.Background()
	repo := inmemory.NewStore()
	currency := "EUR"
	_, err := repo.SaveProfile(ctx, "u1", domain.ProfileUpdate{Currency: &currency})
	require.NoError(t, err)

	amount := decimal.RequireFromString("9.99")
	require.NoError(t, repo.InsertTransaction(ctx, &domain.SimulatedTransaction{
		ID:       "t1",
		UserID:   "u1",
		Entities: domain.EntitySet{Action: domain.StringPtr("EXPENSE"), Amount: &amount},
	}))

	objects := newMemObjects()
	e, err := NewExporter(objects, "ledger-bucket", repo, zerolog.Nop())
	require.NoError(t, err)
	e.now = func() time.Time { return time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC) }

	uri, ledger, err := e.ExportLedger(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "gs://ledger-bucket/ledgers/u1/20261016T090000Z.json", uri)
	assert.Equal(t, 1, ledger.Count)
	assert.Equal(t, "EUR", ledger.Currency)

	back, err := ReadLedger(ctx, objects, uri)
	require.NoError(t, err)
	require.Len(t, back.Transactions, 1)
	assert.Equal(t, "t1", back.Transactions[0].ID)
	assert.True(t, amount.Equal(*back.Transactions[0].Entities.Amount))
}

func TestExportLedger_Failures(t *testing.T) {
	_, err := NewExporter(newMemObjects(), "", inmemory.NewStore(), zerolog.Nop())
	assert.Error(t, err)

	objects := newMemObjects()
	objects.writeErr = errors.New("403 forbidden")
	e, err := NewExporter(objects, "b", inmemory.NewStore(), zerolog.Nop())
	require.NoError(t, err)

	_, _, err = e.ExportLedger(context.Background(), "nobody")
	assert.ErrorContains(t, err, "403 forbidden")
}
