package inbox

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comigor/msghook/internal/apperr"
)

func TestParsePayload(t *testing.T) {
	p, err := ParsePayload([]byte(`{"message_id":"m1","from":"+100","to":"+200","ts":"yesterday","extra":true}`))
	require.NoError(t, err)
	require.Equal(t, "m1", p.MessageID)
	require.Nil(t, p.Text)

	m := p.Message()
	require.Equal(t, "+100", m.Sender)
	require.Equal(t, "+200", m.Recipient)
	require.Equal(t, "yesterday", m.Timestamp)
	require.Nil(t, m.Text)
}

func TestParsePayload_NullText(t *testing.T) {
	p, err := ParsePayload([]byte(`{"message_id":"m1","from":"a","to":"b","ts":"t","text":null}`))
	require.NoError(t, err)
	require.Nil(t, p.Text)
}

func TestParsePayload_EmptyTimestampIsPresent(t *testing.T) {
	_, err := ParsePayload([]byte(`{"message_id":"m1","from":"a","to":"b","ts":""}`))
	require.NoError(t, err)
}

func TestParsePayload_Invalid(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		fields []string
	}{
		{"empty body", ``, []string{"body"}},
		{"malformed", `{"message_id":`, []string{"body"}},
		{"array", `[]`, []string{"body"}},
		{"all missing", `{}`, []string{"message_id", "from", "to", "ts"}},
		{"empty strings", `{"message_id":"","from":"","to":"","ts":"t"}`, []string{"message_id", "from", "to"}},
		{"null timestamp", `{"message_id":"m","from":"a","to":"b","ts":null}`, []string{"ts"}},
		{"wrong type", `{"message_id":7,"from":"a","to":"b","ts":"t"}`, []string{"message_id"}},
		{"number body", `42`, []string{"body"}},
		{"upper case keys", `{"MESSAGE_ID":"m","FROM":"a","To":"b","Ts":"t"}`, []string{"message_id", "from", "to", "ts"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParsePayload([]byte(tc.body))
			require.True(t, apperr.Is(err, apperr.KindValidation))
			require.ElementsMatch(t, tc.fields, fieldNames(apperr.Fields(err)))
		})
	}
}

func TestParsePayload_KeysAreCaseSensitive(t *testing.T) {
	p, err := ParsePayload([]byte(`{"message_id":"m1","from":"a","to":"b","ts":"t","text":"kept","TEXT":"ignored"}`))
	require.NoError(t, err)
	require.Equal(t, "kept", *p.Text)

	p, err = ParsePayload([]byte(`{"message_id":"m1","from":"a","to":"b","ts":"t","Text":"ignored"}`))
	require.NoError(t, err)
	require.Nil(t, p.Text)
}
