package games

import (
	"fmt"
	"strconv"
	"strings"

	"gameshelf/internal/services"
)

// Source tags a catalog.
type Source string

const (
	// SourceA is the query-language catalog reached through the proxy.
	SourceA Source = "catalogA"
	// SourceB is the REST catalog.
	SourceB Source = "catalogB"
)

// MaxNativeID is the largest native identifier treated as plausible.
const MaxNativeID int64 = 999_999_999

// Valid reports whether s names a known catalog.
func (s Source) Valid() bool {
	return s == SourceA || s == SourceB
}

// Other returns the opposite catalog.
func (s Source) Other() Source {
	if s == SourceA {
		return SourceB
	}
	return SourceA
}

// Short returns the single-letter tag used in summaries ("A" or "B").
func (s Source) Short() string {
	switch s {
	case SourceA:
		return "A"
	case SourceB:
		return "B"
	default:
		return string(s)
	}
}

// ParseSource accepts a full source tag or its single-letter alias.
func ParseSource(value string) (Source, error) {
	switch strings.TrimSpace(value) {
	case "catalogA", "A", "a":
		return SourceA, nil
	case "catalogB", "B", "b":
		return SourceB, nil
	}
	return "", fmt.Errorf("%w: unknown source %q", services.ErrInvalidID, value)
}

// ID is a CanonicalGameId: a source tag plus that catalog's native ID.
type ID struct {
	Source Source
	Native int64
}

// NewID builds an ID without range checks.
func NewID(source Source, native int64) ID {
	return ID{Source: source, Native: native}
}

// String renders the canonical form, e.g. "catalogA:1020".
func (id ID) String() string {
	return string(id.Source) + ":" + strconv.FormatInt(id.Native, 10)
}

// IsZero reports whether id is unset.
func (id ID) IsZero() bool {
	return id.Source == "" && id.Native == 0
}

// InRange reports whether the native ID lies in 1..MaxNativeID.
func (id ID) InRange() bool {
	return id.Native >= 1 && id.Native <= MaxNativeID
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := ParseID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseID parses "catalogA:1020" or the short "A:1020" form. The native part
// must be a base-10 integer; range is checked separately by InRange.
func ParseID(value string) (ID, error) {
	value = strings.TrimSpace(value)
	prefix, native, ok := strings.Cut(value, ":")
	if !ok {
		return ID{}, services.Wrap(services.ErrInvalidID, "games", "parse id", fmt.Sprintf("missing source prefix in %q", value), nil)
	}
	source, err := ParseSource(prefix)
	if err != nil {
		return ID{}, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(native), 10, 64)
	if err != nil {
		return ID{}, services.Wrap(services.ErrInvalidID, "games", "parse id", fmt.Sprintf("native id %q", native), err)
	}
	return ID{Source: source, Native: n}, nil
}

// ParseIDs parses a comma-separated list of canonical IDs.
func ParseIDs(value string) ([]ID, error) {
	parts := strings.Split(value, ",")
	ids := make([]ID, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		id, err := ParseID(part)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
