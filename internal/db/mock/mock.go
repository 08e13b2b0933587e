package mock

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	applog "tintaria/internal/log"
	"tintaria/models"
)

// New returns an in-memory sqlite database seeded with representative shop data.
func New(ctx context.Context) (*gorm.DB, error) {
	applog.Debug(ctx, "initialising mock database")

	db, err := gorm.Open(sqlite.Open("file:tintaria-mock?mode=memory&cache=shared"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		PrepareStmt:                              true,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&models.Item{},
		&models.Measure{},
		&models.Price{},
		&models.Formula{},
		&models.FormulaComponent{},
		&models.Employee{},
		&models.Production{},
		&models.InventoryMovement{},
	); err != nil {
		return nil, err
	}

	if err := seed(ctx, db); err != nil {
		return nil, err
	}

	applog.Debug(ctx, "mock database ready")
	return db, nil
}

func seed(ctx context.Context, db *gorm.DB) error {
	applog.Debug(ctx, "seeding mock database")

	whiteBase := models.Item{
		Name:       "Acrylic White Base",
		Code:       "BA-100",
		Brand:      "Tintaria",
		Line:       "Premium",
		ColorHex:   "#F5F5F0",
		Quantity:   12,
		StockUnit:  "GL",
		Attributes: datatypes.JSON([]byte(`{"finish":"matte","base":"water","interior":true}`)),
		Measures: []models.Measure{
			{MeasureType: "weight", Unit: "kg", Value: 5.2},
			{MeasureType: "volume", Unit: "l", Value: 3.6},
		},
		Prices: []models.Price{
			{Amount: decimal.NewFromFloat(189.90), Currency: "BRL", Position: 0},
		},
	}

	oxideRed := models.Item{
		Name:       "Red Oxide Pigment Paste",
		Code:       "PG-201",
		Brand:      "Tintaria",
		Line:       "Colorant",
		ColorHex:   "#8A3324",
		Quantity:   8.5,
		StockUnit:  "KG",
		Attributes: datatypes.JSON([]byte(`{"finish":"paste","lightfastness":7}`)),
		Measures: []models.Measure{
			{MeasureType: "weight", Unit: "kg", Value: 1},
		},
		Prices: []models.Price{
			{Amount: decimal.NewFromFloat(64.50), Currency: "BRL", Position: 0},
		},
	}

	yellowOchre := models.Item{
		Name:       "Yellow Ochre Pigment",
		Code:       "PG-305",
		Brand:      "Tintaria",
		Line:       "Colorant",
		ColorHex:   "#CC7722",
		Quantity:   900,
		StockUnit:  "G",
		Prices: []models.Price{
			{Amount: decimal.NewFromFloat(0.12), Currency: "BRL", Position: 0},
		},
	}

	thinner := models.Item{
		Name:       "Universal Thinner",
		Code:       "SV-410",
		Brand:      "Solvex",
		Line:       "Solvent",
		Quantity:   30,
		StockUnit:  "LT",
		Attributes: datatypes.JSON([]byte(`{"flammable":true}`)),
		Measures: []models.Measure{
			{MeasureType: "weight", Unit: "g", Value: 870},
			{MeasureType: "volume", Unit: "ml", Value: 1000},
		},
		Prices: []models.Price{
			{Amount: decimal.NewFromFloat(22.90), Currency: "BRL", Position: 0},
		},
	}

	items := []*models.Item{&whiteBase, &oxideRed, &yellowOchre, &thinner}
	for _, item := range items {
		if err := db.WithContext(ctx).Create(item).Error; err != nil {
			return err
		}
	}

	hired := time.Date(2023, time.March, 6, 0, 0, 0, 0, time.UTC)
	employees := []*models.Employee{
		{
			FirstName:  "Marina",
			LastName:   "Duarte",
			Role:       "Production Lead",
			Department: "Factory",
			Email:      "marina@tintaria.app",
			Phone:      "+55 11 98877-1020",
			HourlyRate: decimal.NewFromFloat(38.00),
			HiredAt:    &hired,
			Active:     true,
		},
		{
			FirstName:  "Otávio",
			LastName:   "Reis",
			Role:       "Color Technician",
			Department: "Lab",
			Email:      "otavio@tintaria.app",
			HourlyRate: decimal.NewFromFloat(29.50),
			Active:     true,
		},
	}
	for _, employee := range employees {
		if err := db.WithContext(ctx).Create(employee).Error; err != nil {
			return err
		}
	}

	terracotta := models.Formula{
		Description:     "Terracotta Matte 3.6L",
		Code:            "FM-terracotta-36",
		Density:         1.32,
		PricePerLiter:   decimal.NewFromFloat(52.00),
		RatioConvention: models.RatioAuto,
		Notes:           "Warm earth tone for interior walls.",
	}

	sunsetGlaze := models.Formula{
		Description:     "Sunset Glaze",
		Code:            "FM-sunset-glaze",
		Density:         0,
		RatioConvention: models.RatioFraction,
		Notes:           "Thin translucent topcoat, ratios stored as fractions.",
	}

	if err := db.WithContext(ctx).Create(&terracotta).Error; err != nil {
		return err
	}
	if err := db.WithContext(ctx).Create(&sunsetGlaze).Error; err != nil {
		return err
	}

	components := []models.FormulaComponent{
		{FormulaID: terracotta.ID, ItemID: whiteBase.ID, Ratio: 74, Position: 0},
		{FormulaID: terracotta.ID, ItemID: oxideRed.ID, Ratio: 18, Position: 1},
		{FormulaID: terracotta.ID, ItemID: yellowOchre.ID, Ratio: 8, Position: 2},
		{FormulaID: sunsetGlaze.ID, ItemID: thinner.ID, Ratio: 0.55, Position: 0},
		{FormulaID: sunsetGlaze.ID, ItemID: oxideRed.ID, Ratio: 0.3, Position: 1},
		{FormulaID: sunsetGlaze.ID, ItemID: yellowOchre.ID, Ratio: 0.15, Position: 2},
	}

	for _, component := range components {
		componentCopy := component
		if err := db.WithContext(ctx).Create(&componentCopy).Error; err != nil {
			return err
		}
	}

	applog.Debug(ctx, "mock database seeded")
	return nil
}
