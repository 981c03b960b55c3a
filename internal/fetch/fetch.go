// Package fetch downloads remote artifacts into the working area.
// It is content-agnostic: binary packages and text documents are
// retrieved identically. Retry policy belongs to the caller.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/conn-castle/pkgboot/internal/messages"
)

var httpClient = &http.Client{}

const userAgent = "pkgboot"

// Kind classifies a fetch failure.
type Kind int

const (
	// KindNetwork covers transport-level faults before a response arrives.
	KindNetwork Kind = iota
	// KindHTTPStatus covers non-200 responses; Error.Status carries the code.
	KindHTTPStatus
	// KindWrite covers filesystem faults while writing the destination.
	KindWrite
)

// Error is a typed fetch failure.
type Error struct {
	Locator     string
	Destination string
	Kind        Kind
	Status      int
	Err         error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf(messages.FetchHTTPStatusErrFmt, e.Locator, e.Status)
	case KindWrite:
		return fmt.Sprintf(messages.FetchWriteErrFmt, e.Locator, e.Destination, e.Err)
	default:
		return fmt.Sprintf(messages.FetchNetworkErrFmt, e.Locator, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Fetch downloads locator into destination, overwriting any existing file.
// The destination's parent directory must exist. Bound the call with a
// context deadline when a timeout is wanted; none is enforced here.
func Fetch(ctx context.Context, locator string, destination string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return fmt.Errorf(messages.FetchCreateRequestErrFmt, locator, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := httpClient.Do(req)
	if err != nil {
		return &Error{Locator: locator, Destination: destination, Kind: KindNetwork, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &Error{Locator: locator, Destination: destination, Kind: KindHTTPStatus, Status: resp.StatusCode}
	}

	out, err := os.Create(destination)
	if err != nil {
		return &Error{Locator: locator, Destination: destination, Kind: KindWrite, Err: err}
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		return &Error{Locator: locator, Destination: destination, Kind: KindWrite, Err: err}
	}
	if err := out.Close(); err != nil {
		return &Error{Locator: locator, Destination: destination, Kind: KindWrite, Err: err}
	}
	return nil
}
