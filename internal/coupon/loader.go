package coupon

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// Catalog is a batch of coupon definitions read from a catalogue file.
type Catalog struct {
	Coupons []model.Coupon
}

// Size returns the number of coupons in the catalogue.
func (c *Catalog) Size() int {
	return len(c.Coupons)
}

// fileLoader implements Loader for reading gzipped catalogue files from disk.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based coupon catalogue loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "coupon-loader").Logger(),
	}
}

// Load reads a gzipped catalogue file and returns its coupons.
// The file is expected to contain one JSON coupon definition per line.
func (l *fileLoader) Load(ctx context.Context, filePath string) (*Catalog, error) {
	l.logger.Info().Str("file", filePath).Msg("loading coupon catalogue")

	file, err := os.Open(filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to open coupon catalogue")
		return nil, fmt.Errorf("failed to open coupon catalogue %s: %w", filePath, err)
	}
	defer file.Close()

	catalog, err := readCatalog(ctx, file, filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to read coupon catalogue")
		return nil, err
	}

	l.logger.Info().
		Str("file", filePath).
		Int("coupons_loaded", catalog.Size()).
		Msg("coupon catalogue loaded successfully")

	return catalog, nil
}

// readCatalog decodes a gzipped JSON-lines stream. Blank lines are skipped;
// codes are normalised and later lines win over earlier ones with the same code.
func readCatalog(ctx context.Context, r io.Reader, source string) (*Catalog, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for %s: %w", source, err)
	}
	defer gzipReader.Close()

	scanner := bufio.NewScanner(gzipReader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	index := make(map[string]int)
	catalog := &Catalog{}

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%10_000 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var c model.Coupon
		if err := json.Unmarshal([]byte(line), &c); err != nil {
			return nil, fmt.Errorf("invalid coupon on line %d of %s: %w", lineNo, source, err)
		}
		if err := validateDefinition(&c); err != nil {
			return nil, fmt.Errorf("invalid coupon on line %d of %s: %w", lineNo, source, err)
		}

		if i, ok := index[c.Code]; ok {
			catalog.Coupons[i] = c
			continue
		}
		index[c.Code] = len(catalog.Coupons)
		catalog.Coupons = append(catalog.Coupons, c)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading coupon catalogue %s: %w", source, err)
	}

	return catalog, nil
}

func validateDefinition(c *model.Coupon) error {
	c.Code = model.NormalizeCode(c.Code)
	if c.Code == "" {
		return fmt.Errorf("code is required")
	}
	if !c.Type.Valid() {
		return fmt.Errorf("unknown discount type %q", c.Type)
	}
	if c.Value.IsNegative() {
		return fmt.Errorf("value must not be negative")
	}
	if c.MaxUses != nil && *c.MaxUses < 0 {
		return fmt.Errorf("maxUses must not be negative")
	}
	if c.MaxUsesPerUser != nil && *c.MaxUsesPerUser < 0 {
		return fmt.Errorf("maxUsesPerUser must not be negative")
	}
	if c.StartsAt != nil && c.EndsAt != nil && c.EndsAt.Before(*c.StartsAt) {
		return fmt.Errorf("endsAt is before startsAt")
	}
	return nil
}

// Import loads the catalogue at path and upserts every coupon through w.
// It returns the number of coupons written.
func Import(ctx context.Context, loader Loader, path string, w Writer, logger zerolog.Logger) (int, error) {
	catalog, err := loader.Load(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("failed to load coupon catalogue: %w", err)
	}

	for i := range catalog.Coupons {
		c := &catalog.Coupons[i]
		if err := w.Upsert(ctx, c); err != nil {
			logger.Error().Err(err).Str("coupon_code", c.Code).Msg("failed to import coupon")
			return i, fmt.Errorf("failed to import coupon %s: %w", c.Code, err)
		}
	}

	logger.Info().
		Str("source", path).
		Int("imported", catalog.Size()).
		Msg("coupon catalogue imported")

	return catalog.Size(), nil
}
