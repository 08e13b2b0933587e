package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tintaria/internal/config"
	"tintaria/internal/db"
	"tintaria/models"
)

var (
	numberPattern = regexp.MustCompile(`[-+]?\d*\.?\d+`)
	spacePattern  = regexp.MustCompile(`\s+`)
	hexPattern    = regexp.MustCompile(`^#?[0-9a-fA-F]{6}$`)
	slugPattern   = regexp.MustCompile(`[^A-Z0-9]+`)
)

func main() {
	csvPath := "catalog items - master.csv"
	if len(os.Args) > 1 {
		csvPath = os.Args[1]
	}

	if err := run(csvPath); err != nil {
		fmt.Fprintf(os.Stderr, "catalog import failed: %v\n", err)
		os.Exit(1)
	}
}

func run(csvPath string) error {
	if strings.TrimSpace(csvPath) == "" {
		return errors.New("csv path is required")
	}
	if _, err := os.Stat(csvPath); err != nil {
		return fmt.Errorf("csv not readable: %w", err)
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	database, err := db.Configure(cfg.Database)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}

	records, err := readCSV(csvPath)
	if err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(csvPath), err)
	}

	imported, err := importRecords(database, records)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "catalog import complete: %d items from %s\n", imported, filepath.Base(csvPath))
	return nil
}

// importRecords upserts one item per csv record, matching by code first and
// case-insensitive name second. Measures and prices are replaced wholesale so
// a re-import converges on the sheet instead of accumulating rows.
func importRecords(database *gorm.DB, records []map[string]string) (int, error) {
	imported := 0
	for idx, record := range records {
		if err := database.Transaction(func(tx *gorm.DB) error {
			item := buildItem(record)
			if item.Name == "" {
				return errors.New("name is required")
			}
			if item.Code == "" {
				item.Code = codeFor(item.Name)
			}

			var existing models.Item
			err := tx.Where("code = ?", item.Code).First(&existing).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				err = tx.Where("lower(name) = ?", strings.ToLower(item.Name)).First(&existing).Error
			}
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("find item %q: %w", item.Code, err)
			}

			if errors.Is(err, gorm.ErrRecordNotFound) {
				if err := tx.Create(&item).Error; err != nil {
					return fmt.Errorf("create item %q: %w", item.Code, err)
				}
				return nil
			}

			updates := map[string]any{
				"name":       item.Name,
				"code":       item.Code,
				"brand":      item.Brand,
				"line":       item.Line,
				"color_hex":  item.ColorHex,
				"quantity":   item.Quantity,
				"stock_unit": item.StockUnit,
				"notes":      item.Notes,
				"active":     item.Active,
			}
			if err := tx.Model(&existing).Updates(updates).Error; err != nil {
				return fmt.Errorf("update item %q: %w", item.Code, err)
			}

			if len(item.Measures) > 0 {
				if err := tx.Where("item_id = ?", existing.ID).Delete(&models.Measure{}).Error; err != nil {
					return fmt.Errorf("clear measures for %q: %w", item.Code, err)
				}
				for i := range item.Measures {
					item.Measures[i].ItemID = existing.ID
				}
				if err := tx.Create(&item.Measures).Error; err != nil {
					return fmt.Errorf("replace measures for %q: %w", item.Code, err)
				}
			}
			if len(item.Prices) > 0 {
				if err := tx.Where("item_id = ?", existing.ID).Delete(&models.Price{}).Error; err != nil {
					return fmt.Errorf("clear prices for %q: %w", item.Code, err)
				}
				for i := range item.Prices {
					item.Prices[i].ItemID = existing.ID
				}
				if err := tx.Create(&item.Prices).Error; err != nil {
					return fmt.Errorf("replace prices for %q: %w", item.Code, err)
				}
			}

			return nil
		}); err != nil {
			return imported, fmt.Errorf("row %d (%s): %w", idx+1, record["Name"], err)
		}
		imported++
	}
	return imported, nil
}

// readCSV maps each data row onto the header row, trimming every cell.
func readCSV(path string) ([]map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("csv has no header row")
	}
	if err != nil {
		return nil, err
	}

	var records []map[string]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		record := make(map[string]string, len(header))
		for idx, key := range header {
			if idx < len(row) {
				record[key] = strings.TrimSpace(row[idx])
			}
		}
		records = append(records, record)
	}

	return records, nil
}

func buildItem(row map[string]string) models.Item {
	item := models.Item{
		Name:      collapseText(row["Name"]),
		Code:      strings.ToUpper(cleanCell(row["Code"])),
		Brand:     cleanCell(row["Brand"]),
		Line:      cleanCell(row["Line"]),
		ColorHex:  normalizeHex(row["Color"]),
		Quantity:  firstNumber(row["Quantity"]),
		StockUnit: strings.ToUpper(cleanCell(row["Stock Unit"])),
		Notes:     collapseText(row["Notes"]),
		Active:    parseActive(row["Active"]),
	}
	if item.StockUnit == "" {
		item.StockUnit = "UN"
	}

	if measure, ok := parseMeasure(row["Weight"], "weight"); ok {
		item.Measures = append(item.Measures, measure)
	}
	if measure, ok := parseMeasure(row["Volume"], "volume"); ok {
		item.Measures = append(item.Measures, measure)
	}

	if price, ok := parsePrice(row["Price"]); ok {
		currency := strings.ToUpper(cleanCell(row["Currency"]))
		if currency == "" {
			currency = "BRL"
		}
		item.Prices = append(item.Prices, models.Price{Amount: price, Currency: currency, Position: 0})
	}

	return item
}

// cleanCell trims a raw cell and drops N/A placeholders.
func cleanCell(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.EqualFold(trimmed, "N/A") {
		return ""
	}
	return trimmed
}

// collapseText additionally folds internal runs of whitespace to one space.
func collapseText(value string) string {
	cleaned := cleanCell(value)
	if cleaned == "" {
		return ""
	}
	return strings.TrimSpace(spacePattern.ReplaceAllString(cleaned, " "))
}

func normalizeHex(value string) string {
	cleaned := cleanCell(value)
	if cleaned == "" || !hexPattern.MatchString(cleaned) {
		return ""
	}
	if !strings.HasPrefix(cleaned, "#") {
		cleaned = "#" + cleaned
	}
	return strings.ToLower(cleaned)
}

func firstNumber(value string) float64 {
	token := numberPattern.FindString(cleanCell(value))
	if token == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0
	}
	return parsed
}

// parseMeasure turns cells like "5.2 kg" or "1000ml" into a measure row.
func parseMeasure(value, measureType string) (models.Measure, bool) {
	cleaned := cleanCell(value)
	if cleaned == "" {
		return models.Measure{}, false
	}

	amount := firstNumber(cleaned)
	if amount <= 0 {
		return models.Measure{}, false
	}

	unit := strings.ToLower(strings.TrimSpace(numberPattern.ReplaceAllString(cleaned, "")))
	unit = strings.Trim(unit, " .,;")
	if unit == "" {
		if measureType == "volume" {
			unit = "ml"
		} else {
			unit = "g"
		}
	}

	return models.Measure{MeasureType: measureType, Unit: unit, Value: amount}, true
}

func parsePrice(value string) (decimal.Decimal, bool) {
	cleaned := cleanCell(value)
	if cleaned == "" {
		return decimal.Zero, false
	}

	token := numberPattern.FindString(strings.ReplaceAll(cleaned, ",", "."))
	if token == "" {
		return decimal.Zero, false
	}

	parsed, err := decimal.NewFromString(token)
	if err != nil || parsed.IsNegative() {
		return decimal.Zero, false
	}
	return parsed, true
}

func parseActive(value string) bool {
	switch strings.ToLower(cleanCell(value)) {
	case "", "true", "yes", "y", "1", "active":
		return true
	default:
		return false
	}
}

func codeFor(name string) string {
	code := strings.ToUpper(strings.TrimSpace(name))
	code = slugPattern.ReplaceAllString(code, "-")
	return strings.Trim(code, "-")
}
