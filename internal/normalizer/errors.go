package normalizer

import (
	"errors"
	"fmt"
)

// ErrRejected marks expected filtering. Callers discard the article silently.
var ErrRejected = errors.New("record rejected")

var (
	ErrNoSourceURL       = fmt.Errorf("%w: missing source url", ErrRejected)
	ErrConfidentNegative = fmt.Errorf("%w: model judged article irrelevant", ErrRejected)
	ErrNotRelevant       = fmt.Errorf("%w: no relevant candidate", ErrRejected)
)
