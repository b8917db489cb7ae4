package errhandler

import (
	"testing"

	"github.com/indigo-web/exchange/http/status"
	"github.com/indigo-web/exchange/kv"
	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	resp := Default("indigo").HandleError(status.NotFound, "Current url has no mapping", nil).Expose()
	require.Equal(t, status.NotFound, resp.Code)
	require.Equal(t,
		"server=indigo\ncode=404\ndescription=Not Found\nmessage=Current url has no mapping\n",
		string(resp.Body),
	)
	require.Equal(t, "text/plain; charset=utf-8", resp.Headers.Value("content-type"))
}

func TestJSON(t *testing.T) {
	headers := kv.New().Add("WWW-Authenticate", "Basic")
	resp := JSON().HandleError(status.Unauthorized, "who are you", headers).Expose()
	require.Equal(t, status.Unauthorized, resp.Code)
	require.Equal(t, "Basic", resp.Headers.Value("www-authenticate"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body, &body))
	require.Equal(t, float64(401), body["code"])
	require.Equal(t, "Unauthorized", body["description"])
	require.Equal(t, "who are you", body["message"])
}
