package inbox

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comigor/msghook/internal/apperr"
	"github.com/comigor/msghook/internal/signature"
	"github.com/comigor/msghook/internal/store"
)

// mockStore mirrors store.Store.
type mockStore struct {
	InsertFunc func(ctx context.Context, msg store.Message) (store.InsertResult, error)
	ListFunc   func(ctx context.Context, f store.Filter) (store.Page, error)

	inserted []store.Message
	filters  []store.Filter
}

func (m *mockStore) Insert(ctx context.Context, msg store.Message) (store.InsertResult, error) {
	m.inserted = append(m.inserted, msg)
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, msg)
	}
	return store.Inserted, nil
}

func (m *mockStore) List(ctx context.Context, f store.Filter) (store.Page, error) {
	m.filters = append(m.filters, f)
	if m.ListFunc != nil {
		return m.ListFunc(ctx, f)
	}
	return store.Page{}, nil
}

func (m *mockStore) Ping(context.Context) error { return nil }
func (m *mockStore) Close() error                { return nil }

const secret = "s3cret"

var validBody = []byte(`{"message_id":"m1","from":"+100","to":"+200","ts":"2024-01-01T00:00:00Z","text":"hi"}`)

func intPtr(i int) *int { return &i }

func TestIngest_Stores(t *testing.T) {
	st := &mockStore{}
	svc := New(st, Config{Secret: secret})

	res, err := svc.Ingest(context.Background(), validBody, signature.Sign(secret, validBody))
	require.NoError(t, err)
	require.Equal(t, IngestResult{MessageID: "m1"}, res)

	require.Len(t, st.inserted, 1)
	got := st.inserted[0]
	require.Equal(t, "m1", got.MessageID)
	require.Equal(t, "+100", got.Sender)
	require.Equal(t, "+200", got.Recipient)
	require.Equal(t, "2024-01-01T00:00:00Z", got.Timestamp)
	require.Equal(t, "hi", *got.Text)
}

func TestIngest_DuplicateIsSuccess(t *testing.T) {
	st := &mockStore{InsertFunc: func(context.Context, store.Message) (store.InsertResult, error) {
		return store.Duplicate, nil
	}}
	svc := New(st, Config{Secret: secret})

	res, err := svc.Ingest(context.Background(), validBody, signature.Sign(secret, validBody))
	require.NoError(t, err)
	require.True(t, res.Duplicate)
}

func TestIngest_AuthFailuresNeverTouchStore(t *testing.T) {
	cases := map[string]struct {
		secret string
		sig    string
		kind   apperr.Kind
	}{
		"missing header":           {secret, "", apperr.KindAuth},
		"wrong signature":          {secret, signature.Sign("other", validBody), apperr.KindAuth},
		"missing secret":           {"", signature.Sign(secret, validBody), apperr.KindConfig},
		"missing header no secret": {"", "", apperr.KindAuth},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			st := &mockStore{}
			svc := New(st, Config{Secret: tc.secret})

			_, err := svc.Ingest(context.Background(), validBody, tc.sig)
			require.Error(t, err)
			require.Equal(t, tc.kind, apperr.KindOf(err))
			require.Empty(t, st.inserted)
		})
	}
}

func TestIngest_AuthBeforeValidation(t *testing.T) {
	st := &mockStore{}
	svc := New(st, Config{Secret: secret})

	body := []byte(`{"message_id":""}`)
	_, err := svc.Ingest(context.Background(), body, "deadbeef")
	require.True(t, apperr.Is(err, apperr.KindAuth))
}

func TestIngest_InvalidPayload(t *testing.T) {
	st := &mockStore{}
	svc := New(st, Config{Secret: secret})

	body := []byte(`{"message_id":"m1","from":"","to":"+200"}`)
	_, err := svc.Ingest(context.Background(), body, signature.Sign(secret, body))
	require.True(t, apperr.Is(err, apperr.KindValidation))
	require.ElementsMatch(t, []string{"from", "ts"}, fieldNames(apperr.Fields(err)))
	require.Empty(t, st.inserted)
}

func TestIngest_StorageFailure(t *testing.T) {
	st := &mockStore{InsertFunc: func(context.Context, store.Message) (store.InsertResult, error) {
		return 0, errors.New("disk I/O error")
	}}
	svc := New(st, Config{Secret: secret})

	_, err := svc.Ingest(context.Background(), validBody, signature.Sign(secret, validBody))
	require.True(t, apperr.Is(err, apperr.KindStorage))
}

func TestList_Defaults(t *testing.T) {
	st := &mockStore{}
	svc := New(st, Config{})

	res, err := svc.List(context.Background(), Query{})
	require.NoError(t, err)
	require.Equal(t, 0, res.Total)
	require.NotNil(t, res.Items)
	require.Equal(t, []store.Filter{{Limit: 10, Offset: 0}}, st.filters)
}

func TestList_PassesThrough(t *testing.T) {
	text := "hi"
	st := &mockStore{ListFunc: func(_ context.Context, f store.Filter) (store.Page, error) {
		return store.Page{Total: 42, Items: []store.Message{{MessageID: "m1", Text: &text}}}, nil
	}}
	svc := New(st, Config{DefaultLimit: 10})

	res, err := svc.List(context.Background(), Query{Limit: intPtr(500), Offset: intPtr(20), From: "+100", To: "+200"})
	require.NoError(t, err)
	require.Equal(t, 42, res.Total)
	require.Len(t, res.Items, 1)
	require.Equal(t, store.Filter{Limit: 500, Offset: 20, Sender: "+100", Recipient: "+200"}, st.filters[0])
}

func TestList_ClampsToMaxLimit(t *testing.T) {
	st := &mockStore{}
	svc := New(st, Config{MaxLimit: 100})

	_, err := svc.List(context.Background(), Query{Limit: intPtr(1000)})
	require.NoError(t, err)
	require.Equal(t, 100, st.filters[0].Limit)
}

func TestList_StorageFailure(t *testing.T) {
	st := &mockStore{ListFunc: func(context.Context, store.Filter) (store.Page, error) {
		return store.Page{}, errors.New("connection refused")
	}}
	svc := New(st, Config{})

	_, err := svc.List(context.Background(), Query{})
	require.True(t, apperr.Is(err, apperr.KindStorage))
}

func fieldNames(fields []apperr.FieldError) []string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Field)
	}
	return names
}
