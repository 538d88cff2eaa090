package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestLoadInputReceipt(t *testing.T) {
	in, err := loadInput(writeFile(t, "order.json", `{"name": "Order 0001"}`))
	require.NoError(t, err)
	require.NotNil(t, in.receipt)
	assert.Equal(t, "Order 0001", in.receipt.Name)
}

func TestLoadInputWrappedReceipt(t *testing.T) {
	in, err := loadInput(writeFile(t, "body.JSON", `{"receipt": {"name": "Order 0002"}}`))
	require.NoError(t, err)
	require.NotNil(t, in.receipt)
	assert.Equal(t, "Order 0002", in.receipt.Name)
}

func TestLoadInputDocument(t *testing.T) {
	in, err := loadInput(writeFile(t, "ticket.xml", `<receipt>hi</receipt>`))
	require.NoError(t, err)
	assert.Nil(t, in.receipt)
	assert.Equal(t, "<receipt>hi</receipt>", in.document)
}

func TestLoadInputBadJSON(t *testing.T) {
	_, err := loadInput(writeFile(t, "broken.json", `{`))
	assert.Error(t, err)
}

func TestLoadInputMissingFile(t *testing.T) {
	_, err := loadInput(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadInputURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/order.json" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"name": "Remote"}`))
	}))
	defer srv.Close()

	in, err := loadInput(srv.URL + "/order.json")
	require.NoError(t, err)
	assert.Equal(t, "Remote", in.receipt.Name)

	_, err = loadInput(srv.URL + "/missing.json")
	assert.Error(t, err)
}
