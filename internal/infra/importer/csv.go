package importer

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"eduplatform/internal/usecase"
)

// Columns of a promo import file, in order. The header row is optional.
var columns = []string{"code", "free_days", "max_uses", "expires_at", "content_type", "level", "language", "description"}

// ParseError points at the offending line of an import file.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// Parse reads promo code rows from r, transparently decompressing gzip input.
func Parse(r io.Reader) ([]usecase.NewPromoCodeInput, error) {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		return parseCSV(gz)
	}
	return parseCSV(br)
}

func parseCSV(r io.Reader) ([]usecase.NewPromoCodeInput, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var out []usecase.NewPromoCodeInput
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			var ce *csv.ParseError
			if errors.As(err, &ce) {
				return nil, &ParseError{Line: ce.Line, Err: ce.Err}
			}
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		if len(out) == 0 && strings.EqualFold(strings.TrimSpace(rec[0]), columns[0]) {
			continue
		}
		in, err := parseRecord(rec)
		if err != nil {
			return nil, &ParseError{Line: line, Err: err}
		}
		out = append(out, in)
	}
}

func parseRecord(rec []string) (usecase.NewPromoCodeInput, error) {
	if len(rec) < 3 || len(rec) > len(columns) {
		return usecase.NewPromoCodeInput{}, fmt.Errorf("expected 3 to %d fields, got %d", len(columns), len(rec))
	}
	field := func(i int) string {
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}
	optional := func(i int) *string {
		if v := field(i); v != "" {
			return &v
		}
		return nil
	}

	freeDays, err := strconv.Atoi(field(1))
	if err != nil {
		return usecase.NewPromoCodeInput{}, fmt.Errorf("free_days: %w", err)
	}
	maxUses, err := strconv.Atoi(field(2))
	if err != nil {
		return usecase.NewPromoCodeInput{}, fmt.Errorf("max_uses: %w", err)
	}
	var expiresAt *time.Time
	if v := field(3); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return usecase.NewPromoCodeInput{}, fmt.Errorf("expires_at: %w", err)
		}
		expiresAt = &t
	}
	return usecase.NewPromoCodeInput{
		Code:        field(0),
		FreeDays:    freeDays,
		MaxUses:     maxUses,
		ExpiresAt:   expiresAt,
		ContentType: optional(4),
		Level:       optional(5),
		Language:    optional(6),
		Description: field(7),
	}, nil
}
