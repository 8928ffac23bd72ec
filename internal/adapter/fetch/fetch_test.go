package fetch_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/risk-asset-explorer/internal/adapter/fetch"
	"github.com/couchcryptid/risk-asset-explorer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doc = "Asset Name,Lat,Long,Business Category,Risk Rating,Risk Factors,Year\n"

func readAll(t *testing.T, src fetch.Source) string {
	t.Helper()
	rc, err := src.Fetch(context.Background())
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	src := fetch.NewFile(path)
	assert.Equal(t, path, src.Source())
	assert.Equal(t, doc, readAll(t, src))
}

func TestFile_Missing(t *testing.T) {
	_, err := fetch.NewFile(filepath.Join(t.TempDir(), "nope.csv")).Fetch(context.Background())
	assert.ErrorIs(t, err, domain.ErrFetchFailure)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sample_data.csv" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = io.WriteString(w, doc)
	}))
	defer srv.Close()

	t.Run("ok", func(t *testing.T) {
		src := fetch.NewHTTP(srv.URL+"/sample_data.csv", srv.Client())
		assert.Equal(t, doc, readAll(t, src))
	})

	t.Run("not found", func(t *testing.T) {
		_, err := fetch.NewHTTP(srv.URL+"/other.csv", srv.Client()).Fetch(context.Background())
		require.ErrorIs(t, err, domain.ErrFetchFailure)
		assert.Contains(t, err.Error(), "status 404")
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := fetch.NewHTTP(srv.URL+"/sample_data.csv", srv.Client()).Fetch(ctx)
		require.ErrorIs(t, err, domain.ErrFetchFailure)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

type stubSource struct{ uri string }

func (s stubSource) Fetch(context.Context) (io.ReadCloser, error) { return nil, nil }
func (s stubSource) Source() string                               { return s.uri }

func TestResolver(t *testing.T) {
	r := &fetch.Resolver{
		S3: func(uri string) (fetch.Source, error) { return stubSource{uri: uri}, nil },
	}

	srcs, err := r.ResolveAll([]string{"data/a.csv", "file:///tmp/b.csv", "https://example.com/c.csv", "s3://bucket/d.csv"})
	require.NoError(t, err)
	require.Len(t, srcs, 4)

	assert.IsType(t, &fetch.File{}, srcs[0])
	assert.Equal(t, "/tmp/b.csv", srcs[1].Source())
	assert.IsType(t, &fetch.HTTP{}, srcs[2])
	assert.Equal(t, stubSource{uri: "s3://bucket/d.csv"}, srcs[3])
}

func TestResolver_S3NotConfigured(t *testing.T) {
	_, err := (&fetch.Resolver{}).Resolve("s3://bucket/d.csv")
	assert.Error(t, err)
}
