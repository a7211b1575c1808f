package tracking

import (
	"net/url"
	"strings"

	"github.com/YuminosukeSato/winetrack/pkg/errors"
)

// Open builds the tracking store for a tracking URI:
//
//	file://mlruns, ./mlruns  -> FileStore
//	http(s)://host:port      -> RESTStore
//	sqlite:///tracking.db    -> SQLiteStore
//
// Whether the returned store can register models is a property of the store
// itself, checked by asserting tracking.ModelRegistry, not of the URI.
func Open(uri string) (Store, error) {
	if uri == "" {
		return nil, errors.NewValueError("tracking.Open", "tracking URI is empty")
	}

	parsed, err := url.Parse(uri)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid tracking URI %q", uri)
	}

	switch parsed.Scheme {
	case "", "file":
		// file://mlruns parses the first path component as a host.
		path := parsed.Host + parsed.Path
		if path == "" {
			path = parsed.Opaque
		}
		return NewFileStore(path)
	case "http", "https":
		return NewRESTStore(uri), nil
	case "sqlite":
		// sqlite:///tracking.db is relative, sqlite:////data/tracking.db absolute.
		path := parsed.Host + strings.TrimPrefix(parsed.Path, "/")
		if path == "" {
			path = parsed.Opaque
		}
		if path == "" {
			return nil, errors.NewValueError("tracking.Open", "sqlite URI has no database path")
		}
		return NewSQLiteStore(path)
	default:
		return nil, errors.Newf("unsupported tracking URI scheme %q", parsed.Scheme)
	}
}
