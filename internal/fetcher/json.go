package fetcher

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
)

// DecodeJSONArray decodes a top-level JSON array element by element.
// Both channels close when decoding stops.
func DecodeJSONArray[T any](ctx context.Context, r io.Reader) (<-chan T, <-chan error) {
	outCh := make(chan T, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(outCh)
		defer close(errCh)

		decoder := json.NewDecoder(r)
		tok, err := decoder.Token()
		if err != nil {
			if err == io.EOF {
				return
			}
			errCh <- eris.Wrap(err, "json: read opening token")
			return
		}
		if delim, ok := tok.(json.Delim); !ok || delim != '[' {
			errCh <- eris.Errorf("json: expected '[', got %v", tok)
			return
		}

		for decoder.More() {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "json: context cancelled")
				return
			}
			var item T
			if err := decoder.Decode(&item); err != nil {
				errCh <- eris.Wrap(err, "json: decode element")
				return
			}
			select {
			case outCh <- item:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "json: context cancelled")
				return
			}
		}

		if _, err := decoder.Token(); err != nil && err != io.EOF {
			errCh <- eris.Wrap(err, "json: read closing token")
		}
	}()

	return outCh, errCh
}

// DecodeRecords reads property records from a JSON payload. A top-level
// array is streamed; an object must hold the array under recordsKey
// (default "records").
func DecodeRecords(ctx context.Context, r io.Reader, recordsKey string) ([]map[string]any, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, eris.Wrap(err, "json: peek payload")
	}

	if first == '[' {
		outCh, errCh := DecodeJSONArray[map[string]any](ctx, br)
		var out []map[string]any
		for rec := range outCh {
			out = append(out, rec)
		}
		if err := <-errCh; err != nil {
			return nil, err
		}
		return out, nil
	}

	if recordsKey == "" {
		recordsKey = "records"
	}
	var obj map[string]json.RawMessage
	if err := json.NewDecoder(br).Decode(&obj); err != nil {
		return nil, eris.Wrap(err, "json: decode object")
	}
	raw, ok := obj[recordsKey]
	if !ok {
		return nil, eris.Errorf("json: object has no %q array", recordsKey)
	}
	var out []map[string]any
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(&out); err != nil {
		return nil, eris.Wrapf(err, "json: decode %q", recordsKey)
	}
	return out, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return 0, err
		}
		switch b[0] {
		case ' ', '\t', '\r', '\n':
			_, _ = br.ReadByte()
		default:
			return b[0], nil
		}
	}
}
