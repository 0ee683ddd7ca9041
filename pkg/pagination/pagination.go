package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultLimit is the page size applied when callers omit one.
	DefaultLimit = 25
	// MaxLimit caps the rows any single listing query may fetch.
	MaxLimit = 100

	cursorSep = ":"
)

// Params carries the raw pagination inputs taken off a request.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor points at the last row of a served page. Listings order by
// created_at then id descending, so resuming needs both values.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// NormalizeLimit clamps a requested limit into the allowed range.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// LimitWithBuffer adds one row past the page size so repositories can tell
// whether another page exists.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// EncodeCursor renders the cursor as an opaque URL-safe token.
func EncodeCursor(cursor Cursor) string {
	raw := strconv.FormatInt(cursor.CreatedAt.UTC().UnixNano(), 10) + cursorSep + cursor.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor rebuilds a cursor from its token form. Empty input means the
// first page and returns a nil cursor without error.
func ParseCursor(value string) (*Cursor, error) {
	token := strings.TrimSpace(value)
	if token == "" {
		return nil, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	nanos, idPart, found := strings.Cut(string(raw), cursorSep)
	if !found {
		return nil, fmt.Errorf("malformed cursor")
	}

	ts, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("cursor timestamp: %w", err)
	}
	id, err := uuid.Parse(idPart)
	if err != nil {
		return nil, fmt.Errorf("cursor id: %w", err)
	}
	return &Cursor{CreatedAt: time.Unix(0, ts).UTC(), ID: id}, nil
}
