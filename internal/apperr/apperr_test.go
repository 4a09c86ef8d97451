package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		kind     Kind
		status   int
		category goerrors.Category
	}{
		{"config", Config("secret not set"), KindConfig, http.StatusServiceUnavailable, goerrors.CategoryInternal},
		{"auth", Auth("invalid signature"), KindAuth, http.StatusUnauthorized, goerrors.CategoryAuth},
		{"validation", Validation(FieldError{Field: "from", Message: "required"}), KindValidation, http.StatusUnprocessableEntity, goerrors.CategoryValidation},
		{"storage", Storage(errors.New("disk full"), "insert message"), KindStorage, http.StatusInternalServerError, goerrors.CategoryOperation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.kind, KindOf(tc.err))
			require.True(t, Is(tc.err, tc.kind))
			require.Equal(t, tc.status, Status(tc.err))

			var rich *goerrors.Error
			require.True(t, goerrors.As(tc.err, &rich))
			require.Equal(t, tc.category, rich.Category)
		})
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("ingest: %w", Auth("invalid signature"))
	require.Equal(t, KindAuth, KindOf(err))
	require.Equal(t, http.StatusUnauthorized, Status(err))
}

func TestKindOf_Foreign(t *testing.T) {
	err := errors.New("boom")
	require.Equal(t, KindUnknown, KindOf(err))
	require.Equal(t, http.StatusInternalServerError, Status(err))
	require.Nil(t, Fields(err))
	require.Equal(t, KindUnknown, KindOf(nil))
}

func TestStorage_KeepsCause(t *testing.T) {
	cause := errors.New("database is locked")
	err := Storage(cause, "insert message")
	require.ErrorIs(t, err, cause)
}

func TestFields(t *testing.T) {
	err := Validation(
		FieldError{Field: "message_id", Message: "required"},
		FieldError{Field: "to", Message: "required"},
	)
	fields := Fields(err)
	require.Len(t, fields, 2)
	require.Equal(t, "message_id", fields[0].Field)
	require.Equal(t, "to", fields[1].Field)
}
