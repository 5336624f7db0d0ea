package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"sitediary/config"
	"sitediary/db"
	"sitediary/logging"
	"sitediary/models"
	"sitediary/service"
)

func main() {
	userID := flag.String("user", "", "user ID whose catalog is seeded")
	syncMemory := flag.Bool("sync", true, "copy the catalog into the user's resource memory")
	flag.Parse()

	envErr := godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		panic(err)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if envErr != nil {
		logger.Info("no .env file found, using system environment variables")
	}
	if *userID == "" {
		logger.Fatal("-user is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	app, err := db.NewApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsPath)
	if err != nil {
		logger.Fatal("failed to initialize firebase", zap.Error(err))
	}
	store, err := db.NewFirestoreDB(ctx, app, logger)
	if err != nil {
		logger.Fatal("failed to initialize firestore", zap.Error(err))
	}
	defer store.Close()

	logger.Info("starting master data seeding", zap.String("user_id", *userID))

	validator := service.NewValidator()
	memSvc := service.NewMemoryService(store, cfg.Memory.Debounce, logger)
	defer memSvc.Close(ctx)
	masterSvc := service.NewMasterService(store, memSvc, validator, logger)

	for _, item := range catalog() {
		if _, err := masterSvc.Save(ctx, *userID, &item); err != nil {
			logger.Fatal("failed to seed item", zap.String("code", item.Code), zap.Error(err))
		}
		logger.Info("seeded item", zap.String("category", string(item.Category)), zap.String("code", item.Code))
	}

	if *syncMemory {
		counts, err := masterSvc.Sync(ctx, *userID)
		if err != nil {
			logger.Fatal("failed to sync resource memory", zap.Error(err))
		}
		logger.Info("resource memory synced", zap.Any("counts", counts))
	}

	logger.Info("master data seeding completed")
}

func catalog() []models.MasterDataItem {
	return []models.MasterDataItem{
		{Category: models.CategoryManpower, Code: "MAN-FOR", Name: "Foreman", Trade: "General", Unit: "hr", Cost: 55},
		{Category: models.CategoryManpower, Code: "MAN-ELE", Name: "Electrician", Trade: "Electrical", Unit: "hr", Cost: 48},
		{Category: models.CategoryManpower, Code: "MAN-CAR", Name: "Carpenter", Trade: "Carpentry", Unit: "hr", Cost: 42},
		{Category: models.CategoryManpower, Code: "MAN-LAB", Name: "Laborer", Trade: "General", Unit: "hr", Cost: 30},
		{Category: models.CategoryMaterial, Code: "MAT-CON", Name: "Ready-mix concrete C30", Unit: "m3", Cost: 120},
		{Category: models.CategoryMaterial, Code: "MAT-REB", Name: "Rebar 12mm", Unit: "kg", Cost: 1.1},
		{Category: models.CategoryMaterial, Code: "MAT-PLY", Name: "Formwork plywood 18mm", Unit: "sheet", Cost: 38},
		{Category: models.CategoryEquipment, Code: "EQ-EXC", Name: "Excavator 20t", Unit: "day", Cost: 650},
		{Category: models.CategoryEquipment, Code: "EQ-CRN", Name: "Mobile crane 50t", Unit: "day", Cost: 1400},
		{Category: models.CategorySubcontractor, Code: "SUB-WPF", Name: "Waterproofing", Company: "DryBuild Ltd", Unit: "m2", Cost: 14},
		{Category: models.CategoryRisk, Code: "RISK-WX", Name: "Weather delay"},
		{Category: models.CategoryRisk, Code: "RISK-SUP", Name: "Late material delivery"},
	}
}
