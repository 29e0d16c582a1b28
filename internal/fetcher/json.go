package fetcher

import (
	"context"
	"encoding/json"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
)

// JSONRow is one flat object of a JSON array with its scalar values
// rendered as text. Index is the 1-based position in the array.
type JSONRow struct {
	Index  int
	Fields map[string]string
}

// JSONOptions configures StreamJSONRows.
type JSONOptions struct {
	Encoding string // source charset; empty means UTF-8
}

// StreamJSONRows reads a top-level array of flat objects and sends each one
// as a JSONRow. null becomes "" and numbers keep their source text. An
// element that is not an object, or a field holding an object or array, is
// an error naming the element. Empty input yields no rows. Both channels
// are closed when processing completes.
func StreamJSONRows(ctx context.Context, r io.Reader, opts JSONOptions) (<-chan JSONRow, <-chan error) {
	rowCh := make(chan JSONRow, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		src, err := DecodeCharset(r, opts.Encoding)
		if err != nil {
			errCh <- err
			return
		}

		dec := json.NewDecoder(src)
		dec.UseNumber()

		tok, err := dec.Token()
		if err == io.EOF {
			return
		}
		if err != nil {
			errCh <- eris.Wrap(err, "json: read opening token")
			return
		}
		if d, ok := tok.(json.Delim); !ok || d != '[' {
			errCh <- eris.Errorf("json: expected '[', got %v", tok)
			return
		}

		for idx := 1; dec.More(); idx++ {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "json: context cancelled")
				return
			}
			var elem any
			if err := dec.Decode(&elem); err != nil {
				errCh <- eris.Wrapf(err, "json: element %d", idx)
				return
			}
			obj, ok := elem.(map[string]any)
			if !ok {
				errCh <- eris.Errorf("json: element %d is not an object", idx)
				return
			}
			row := JSONRow{Index: idx, Fields: make(map[string]string, len(obj))}
			for k, v := range obj {
				text, ok := scalarText(v)
				if !ok {
					errCh <- eris.Errorf("json: element %d: field %q is not a scalar", idx, k)
					return
				}
				row.Fields[k] = text
			}

			select {
			case rowCh <- row:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "json: context cancelled")
				return
			}
		}

		if _, err := dec.Token(); err != nil {
			errCh <- eris.Wrap(err, "json: read closing token")
		}
	}()

	return rowCh, errCh
}

func scalarText(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}
