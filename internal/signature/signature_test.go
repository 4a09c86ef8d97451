package signature

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comigor/msghook/internal/apperr"
)

func TestSign_KnownVector(t *testing.T) {
	// RFC 4231 test case 2.
	got := Sign("Jefe", []byte("what do ya want for nothing?"))
	require.Equal(t, "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843", got)
}

func TestVerify(t *testing.T) {
	secret := "s3cret"
	bodies := [][]byte{
		[]byte(`{"message_id":"m1","from":"+100","to":"+200","ts":"2024-01-01T00:00:00Z","text":"hi"}`),
		[]byte(""),
		[]byte("not json at all"),
	}
	for _, body := range bodies {
		require.NoError(t, Verify(secret, body, Sign(secret, body)))
	}
}

func TestVerify_Rejects(t *testing.T) {
	secret := "s3cret"
	body := []byte(`{"message_id":"m1"}`)
	good := Sign(secret, body)

	cases := map[string]string{
		"missing":      "",
		"other secret": Sign("other", body),
		"other body":   Sign(secret, []byte(`{"message_id":"m2"}`)),
		"uppercase":    strings.ToUpper(good),
		"truncated":    good[:len(good)-2],
		"padded":       " " + good,
		"garbage":      "zz",
	}
	for name, provided := range cases {
		t.Run(name, func(t *testing.T) {
			err := Verify(secret, body, provided)
			require.Error(t, err)
			require.True(t, apperr.Is(err, apperr.KindAuth), "got %v", apperr.KindOf(err))
		})
	}
}

func TestVerify_ReserializedBodyFails(t *testing.T) {
	secret := "s3cret"
	original := []byte(`{"to":"+200", "from":"+100"}`)
	reserialized := []byte(`{"from":"+100","to":"+200"}`)

	err := Verify(secret, reserialized, Sign(secret, original))
	require.True(t, apperr.Is(err, apperr.KindAuth))
}

func TestVerify_EmptySecret(t *testing.T) {
	body := []byte("payload")
	for _, provided := range []string{"", Sign("", body), "anything"} {
		err := Verify("", body, provided)
		require.True(t, apperr.Is(err, apperr.KindConfig), "provided %q", provided)
	}
}
