package consumer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeDirectPayload(t *testing.T) {
	raw := []byte(`{"taskId":"T1","assessorEmail":"a@x.com","title":"Budget Request","taskToken":"TOK1"}`)

	msg, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, "T1", msg.TaskID)
	require.Equal(t, "a@x.com", msg.AssessorEmail)
	require.Equal(t, "Budget Request", msg.Title)
	require.Equal(t, "TOK1", msg.TaskToken)
}

func TestDecodeDoubleEncodedPayload(t *testing.T) {
	inner := `{"taskId":"T1","assessorEmail":"a@x.com","title":"Budget Request","taskToken":"TOK1"}`
	raw, err := json.Marshal(inner) // тело — JSON-строка, внутри которой JSON
	require.NoError(t, err)

	msg, err := Decode(raw)
	require.NoError(t, err)

	direct, err := Decode([]byte(inner))
	require.NoError(t, err)
	require.Equal(t, direct, msg)
}

func TestDecodeTitleDefaultsToEmpty(t *testing.T) {
	msg, err := Decode([]byte(`{"taskId":"T1","assessorEmail":"a@x.com","taskToken":"TOK1"}`))
	require.NoError(t, err)
	require.Equal(t, "", msg.Title)
}

func TestDecodeMalformed(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `hello world`},
		{"string wrapping not json", `"hello world"`},
		{"missing taskId", `{"assessorEmail":"a@x.com","taskToken":"TOK1"}`},
		{"missing taskToken", `{"taskId":"T1","assessorEmail":"a@x.com"}`},
		{"empty body", ``},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.raw))
			require.Error(t, err)

			var malformed *MalformedPayloadError
			require.ErrorAs(t, err, &malformed)
			// Сырое тело сохраняется для диагностики
			require.Equal(t, tc.raw, string(malformed.Raw))
		})
	}
}
