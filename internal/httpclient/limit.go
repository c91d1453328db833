package httpclient

import (
	"fmt"
	"io"
)

// BodyLimitError reports a response body larger than the caller allowed.
type BodyLimitError struct {
	Limit int64
}

func (e *BodyLimitError) Error() string {
	return fmt.Sprintf("response body larger than %d byte limit", e.Limit)
}

// ReadAllWithLimit reads r fully, failing with a BodyLimitError once more
// than limit bytes arrive. A limit of zero or less means unbounded.
func ReadAllWithLimit(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, &BodyLimitError{Limit: limit}
	}
	return data, nil
}
