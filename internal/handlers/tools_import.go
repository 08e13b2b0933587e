package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/ledongthuc/pdf"
	"gorm.io/gorm"

	"tintaria/internal/formula"
	applog "tintaria/internal/log"
	"tintaria/models"
)

const (
	maxImportUploadSize  = 5 << 20 // 5 MiB
	targetImportRatioSum = 100.0
)

// decimalCommaRE matches a decimal comma between digits so that "12,5"
// survives the separator sweep as "12.5".
var decimalCommaRE = regexp.MustCompile(`(\d),(\d)`)

type importedComponent struct {
	Name    string
	AmountG float64
	Ratio   float64
}

type importResult struct {
	Formula  formulaResponse `json:"formula"`
	Warnings []string        `json:"warnings,omitempty"`
}

// ToolsImportFormula ingests a supplier datasheet, either pasted as text or
// uploaded as a file, and registers the formula it describes.
func ToolsImportFormula(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if database == nil {
		applog.Debug(r.Context(), "datasheet import without database")
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	if err := r.ParseMultipartForm(maxImportUploadSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		applog.Error(r.Context(), "failed to parse datasheet import form", "error", err)
		writeJSONError(w, http.StatusBadRequest, "upload is too large or invalid")
		return
	}

	nameHint := strings.TrimSpace(r.FormValue("formula_name_hint"))
	rawText := strings.TrimSpace(r.FormValue("formula_text"))

	fileBytes, fileType, err := readImportUpload(r)
	if err != nil {
		applog.Error(r.Context(), "datasheet upload read failed", "error", err)
		writeJSONError(w, http.StatusBadRequest, "unable to read the uploaded file")
		return
	}

	if len(fileBytes) > 0 {
		extracted, convErr := importTextFromUpload(fileBytes, fileType)
		if convErr != nil {
			applog.Error(r.Context(), "failed to extract datasheet text", "error", convErr, "mime", fileType)
			writeJSONError(w, http.StatusUnprocessableEntity, "unable to interpret the uploaded document")
			return
		}
		if strings.TrimSpace(extracted) != "" {
			if rawText != "" {
				rawText += "\n\n"
			}
			rawText += extracted
		}
	}

	if strings.TrimSpace(rawText) == "" {
		writeJSONError(w, http.StatusBadRequest, "provide datasheet text or upload a document")
		return
	}

	components, warnings := parseDatasheetComponents(rawText)
	if len(components) == 0 {
		applog.Debug(r.Context(), "datasheet yielded no component lines")
		writeJSONError(w, http.StatusUnprocessableEntity, "no component lines could be read from the datasheet")
		return
	}
	components = normalizeComponentRatios(components)

	ctx := r.Context()
	record, persistWarnings, err := persistImportedFormula(ctx, nameHint, components)
	if err != nil {
		applog.Error(ctx, "failed to persist imported formula", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to save the imported formula")
		return
	}
	warnings = append(warnings, persistWarnings...)

	var reloaded models.Formula
	if err := database.WithContext(ctx).
		Preload("Components", func(db *gorm.DB) *gorm.DB { return db.Order("position asc, id asc") }).
		Preload("Components.Item").
		First(&reloaded, record.ID).Error; err != nil {
		applog.Error(ctx, "failed to reload imported formula", "error", err, "id", record.ID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load formula")
		return
	}

	writeJSON(w, http.StatusCreated, importResult{
		Formula:  projectFormula(reloaded),
		Warnings: warnings,
	})
}

func readImportUpload(r *http.Request) ([]byte, string, error) {
	file, header, err := r.FormFile("formula_file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, "", nil
		}
		return nil, "", err
	}
	defer file.Close()

	if header.Size > maxImportUploadSize {
		return nil, "", fmt.Errorf("file exceeds %d bytes", maxImportUploadSize)
	}

	buf := bytes.NewBuffer(make([]byte, 0, header.Size))
	if _, err := io.Copy(buf, file); err != nil {
		return nil, "", err
	}

	mime := header.Header.Get("Content-Type")
	if mime == "" {
		mime = mimeTypeFromName(header.Filename)
	}

	return buf.Bytes(), mime, nil
}

func importTextFromUpload(data []byte, mime string) (string, error) {
	lower := strings.ToLower(mime)
	switch {
	case strings.Contains(lower, "pdf"):
		return extractTextFromPDF(data)
	case strings.HasPrefix(lower, "text/") || strings.Contains(lower, "json") || strings.Contains(lower, "csv"):
		return string(data), nil
	default:
		return string(data), nil
	}
}

func extractTextFromPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var builder strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", err
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

func mimeTypeFromName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".txt":
		return "text/plain"
	case ".pdf":
		return "application/pdf"
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// parseDatasheetComponents reads one component per line. Lines without any
// digit are treated as prose and skipped silently; lines that look like data
// but cannot be parsed produce a warning.
func parseDatasheetComponents(text string) ([]importedComponent, []string) {
	components := make([]importedComponent, 0, 16)
	warnings := []string{}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || !strings.ContainsAny(trimmed, "0123456789") {
			continue
		}
		component, ok := parseDatasheetLine(trimmed)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("Skipped unreadable line: %q.", trimmed))
			continue
		}
		components = append(components, component)
	}

	return components, warnings
}

// parseDatasheetLine accepts the common datasheet shapes: "Name 12.5",
// "Name: 12,5 g", "Name;0.25;kg" and "Name<TAB>40%". The amount is the last
// numeric field, normalized to grams when a known unit follows it.
func parseDatasheetLine(line string) (importedComponent, bool) {
	normalized := decimalCommaRE.ReplaceAllString(line, "$1.$2")
	normalized = strings.NewReplacer(";", " ", ",", " ", ":", " ", "\t", " ").Replace(normalized)
	fields := strings.Fields(normalized)
	if len(fields) < 2 {
		return importedComponent{}, false
	}

	unit := ""
	amountIndex := len(fields) - 1
	if isUnitToken(fields[amountIndex]) && amountIndex >= 2 {
		unit = strings.ToLower(fields[amountIndex])
		amountIndex--
	}

	value, attachedUnit, ok := splitAmount(fields[amountIndex])
	if !ok {
		return importedComponent{}, false
	}
	if unit == "" {
		unit = attachedUnit
	}

	name := strings.TrimSpace(strings.Join(fields[:amountIndex], " "))
	if name == "" || value <= 0 {
		return importedComponent{}, false
	}

	amount := value
	if unit != "" && unit != "%" && formula.UnitMeasureType(unit) != "" {
		amount = formula.Normalize(value, unit)
	}
	if amount <= 0 {
		return importedComponent{}, false
	}

	return importedComponent{Name: name, AmountG: amount}, true
}

func isUnitToken(token string) bool {
	if token == "%" {
		return true
	}
	return formula.UnitMeasureType(token) != ""
}

// splitAmount parses tokens like "12.5", "12.5g" and "40%" into a value and
// an optional attached unit.
func splitAmount(token string) (float64, string, bool) {
	cut := len(token)
	for i, r := range token {
		if unicode.IsDigit(r) || r == '.' {
			continue
		}
		cut = i
		break
	}
	if cut == 0 {
		return 0, "", false
	}

	value, err := strconv.ParseFloat(token[:cut], 64)
	if err != nil {
		return 0, "", false
	}

	unit := strings.ToLower(strings.TrimSpace(token[cut:]))
	if unit != "" && unit != "%" && formula.UnitMeasureType(unit) == "" {
		return 0, "", false
	}
	return value, unit, true
}

// normalizeComponentRatios rescales the parsed amounts so the ratios sum to
// one hundred, matching the percent convention the imported formula declares.
func normalizeComponentRatios(components []importedComponent) []importedComponent {
	total := 0.0
	for _, component := range components {
		total += component.AmountG
	}
	if total <= 0 {
		return components
	}

	factor := targetImportRatioSum / total
	for i := range components {
		ratio := math.Round(components[i].AmountG*factor*1000) / 1000
		if ratio <= 0 {
			ratio = 0.001
		}
		components[i].Ratio = ratio
	}
	return components
}

func persistImportedFormula(ctx context.Context, nameHint string, components []importedComponent) (*models.Formula, []string, error) {
	if database == nil {
		return nil, nil, gorm.ErrInvalidDB
	}

	record := models.Formula{
		Description:     strings.TrimSpace(nameHint),
		Code:            nextAvailableFormulaCode(ctx, "IMP"),
		RatioConvention: models.RatioPercent,
	}
	if record.Description == "" {
		record.Description = "Imported Formula"
	}

	warnings := []string{}
	err := database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		for i, component := range components {
			item, warning, err := resolveImportItem(ctx, tx, component.Name)
			if err != nil {
				return err
			}
			if warning != "" {
				warnings = append(warnings, warning)
			}
			link := models.FormulaComponent{
				FormulaID: record.ID,
				ItemID:    item.ID,
				Ratio:     component.Ratio,
				Position:  i,
			}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &record, warnings, nil
}

// resolveImportItem finds a catalog item by name or code, creating a minimal
// inactive-stock entry when the datasheet names something unknown.
func resolveImportItem(ctx context.Context, tx *gorm.DB, name string) (*models.Item, string, error) {
	lowered := strings.ToLower(strings.TrimSpace(name))

	var existing models.Item
	err := tx.Where("lower(name) = ? OR lower(code) = ?", lowered, lowered).First(&existing).Error
	if err == nil {
		return &existing, "", nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", err
	}

	created := models.Item{
		Name:      strings.TrimSpace(name),
		Code:      nextAvailableItemCode(ctx, tx, name),
		StockUnit: "KG",
		Active:    true,
	}
	if err := tx.Create(&created).Error; err != nil {
		return nil, "", err
	}
	warning := fmt.Sprintf("Created catalog item %q for an unknown component.", created.Name)
	return &created, warning, nil
}

func nextAvailableFormulaCode(ctx context.Context, base string) string {
	candidate := fmt.Sprintf("%s-1", base)
	suffix := 2

	for {
		var count int64
		if err := database.WithContext(ctx).Model(&models.Formula{}).Where("code = ?", candidate).Count(&count).Error; err != nil {
			applog.Error(ctx, "failed to check formula code availability", "error", err, "candidate", candidate)
			return fmt.Sprintf("%s-%d", base, time.Now().Unix())
		}
		if count == 0 {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d", base, suffix)
		suffix++
	}
}

func nextAvailableItemCode(ctx context.Context, tx *gorm.DB, name string) string {
	base := codeFromName(name)
	candidate := base
	suffix := 2

	for {
		var count int64
		if err := tx.Model(&models.Item{}).Where("code = ?", candidate).Count(&count).Error; err != nil {
			applog.Error(ctx, "failed to check item code availability", "error", err, "candidate", candidate)
			return fmt.Sprintf("%s-%d", base, time.Now().Unix())
		}
		if count == 0 {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d", base, suffix)
		suffix++
	}
}

// codeFromName derives an uppercase catalog code from a component name,
// keeping letters and digits and collapsing everything else into dashes.
func codeFromName(name string) string {
	var builder strings.Builder
	lastDash := true
	for _, r := range strings.ToUpper(strings.TrimSpace(name)) {
		switch {
		case r >= 'A' && r <= 'Z' || r >= '0' && r <= '9':
			builder.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				builder.WriteRune('-')
				lastDash = true
			}
		}
	}

	code := strings.Trim(builder.String(), "-")
	if len(code) > 12 {
		code = strings.Trim(code[:12], "-")
	}
	if code == "" {
		return "ITEM"
	}
	return code
}
