package main

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"storefront/internal/model"

	"github.com/shopspring/decimal"
)

// generateSampleCoupons writes a gzipped JSON-lines coupon catalogue that
// --seed-coupons can import. It covers each kind of restriction once.
func main() {
	out := "data/coupons.jsonl.gz"
	if len(os.Args) > 1 {
		out = os.Args[1]
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	now := time.Now().UTC().Truncate(24 * time.Hour)
	nextYear := now.AddDate(1, 0, 0)
	lastMonth := now.AddDate(0, -1, 0)
	lastWeek := now.AddDate(0, 0, -7)
	nextMonth := now.AddDate(0, 1, 0)

	coupons := []model.Coupon{
		{Code: "WELCOME10", Type: model.DiscountPercent, Value: decimal.NewFromInt(10), Active: true, MaxUsesPerUser: intPtr(1)},
		{Code: "SAVE5000", Type: model.DiscountFixed, Value: decimal.NewFromInt(5000), Active: true, MinOrderAmount: int64Ptr(25000)},
		{Code: "TOPS20", Type: model.DiscountPercent, Value: decimal.NewFromInt(20), Active: true, CategoryIDs: []string{"tops"}, EndsAt: &nextYear},
		{Code: "MUGDEAL", Type: model.DiscountFixed, Value: decimal.NewFromInt(1500), Active: true, ProductIDs: []string{"mug"}},
		{Code: "FIRST100", Type: model.DiscountPercent, Value: decimal.NewFromInt(15), Active: true, MaxUses: intPtr(100)},
		{Code: "HALFPRICE", Type: model.DiscountPercent, Value: decimal.RequireFromString("50"), Active: false},
		{Code: "SPRINGSALE", Type: model.DiscountPercent, Value: decimal.RequireFromString("12.5"), Active: true, StartsAt: &lastMonth, EndsAt: &lastWeek},
		{Code: "COMINGSOON", Type: model.DiscountFixed, Value: decimal.NewFromInt(2000), Active: true, StartsAt: &nextMonth},
	}

	if err := writeCatalogue(out, coupons); err != nil {
		log.Fatalf("Failed to create %s: %v", out, err)
	}

	fmt.Printf("Created %s with %d coupons\n", out, len(coupons))
	for _, c := range coupons {
		fmt.Printf("  - %-10s %-7s %s (active=%t)\n", c.Code, c.Type, c.Value, c.Active)
	}
}

func writeCatalogue(filePath string, coupons []model.Coupon) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	enc := json.NewEncoder(gzipWriter)
	for i := range coupons {
		if err := enc.Encode(&coupons[i]); err != nil {
			return fmt.Errorf("failed to write coupon %s: %w", coupons[i].Code, err)
		}
	}

	return nil
}

func intPtr(n int) *int { return &n }

func int64Ptr(n int64) *int64 { return &n }
