package dataset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/YuminosukeSato/winetrack/pkg/errors"
)

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(wineSample))
	}))
	defer server.Close()

	table, err := Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if table.NumRows() != 8 {
		t.Errorf("NumRows() = %d, want 8", table.NumRows())
	}
}

func TestFetchFailuresYieldDataUnavailable(t *testing.T) {
	notFound := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer notFound.Close()

	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("a;b\n1.0;oops\n"))
	}))
	defer garbage.Close()

	closed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	closed.Close()

	tests := []struct {
		name string
		url  string
	}{
		{"http 404", notFound.URL},
		{"unparseable body", garbage.URL},
		{"connection refused", closed.URL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Fetch(context.Background(), tt.url)
			if err == nil {
				t.Fatal("Fetch() expected error, got nil")
			}
			var dataErr *errors.DataUnavailableError
			if !errors.As(err, &dataErr) {
				t.Errorf("error %v is not a DataUnavailableError", err)
			}
		})
	}
}
