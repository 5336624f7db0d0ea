package db

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"sitediary/models"
)

const (
	usersCollection   = "users"
	reportsCollection = "reports"
	memoryCollection  = "resourceMemory"
	memoryDoc         = "main"
	masterPrefix      = "master_"
)

// reportFields are merged on save; fields written by other clients survive.
var reportFields = []firestore.FieldPath{
	{"id"}, {"user_id"}, {"date"}, {"created_at"}, {"updated_at"}, {"activities"},
}

// FirestoreDB wraps the Firestore client
type FirestoreDB struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewApp initializes the Firebase app shared by Firestore and Auth.
func NewApp(ctx context.Context, projectID, credentialsPath string) (*firebase.App, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}
	return app, nil
}

// NewFirestoreDB opens a Firestore client from the Firebase app.
func NewFirestoreDB(ctx context.Context, app *firebase.App, logger *zap.Logger) (*FirestoreDB, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firestore client: %w", err)
	}
	logger.Info("connected to firestore")
	return &FirestoreDB{client: client, logger: logger}, nil
}

// Close closes the Firestore client
func (db *FirestoreDB) Close() error {
	return db.client.Close()
}

func (db *FirestoreDB) user(userID string) *firestore.DocumentRef {
	return db.client.Collection(usersCollection).Doc(userID)
}

func (db *FirestoreDB) reports(userID string) *firestore.CollectionRef {
	return db.user(userID).Collection(reportsCollection)
}

func (db *FirestoreDB) master(userID string, c models.Category) *firestore.CollectionRef {
	return db.user(userID).Collection(masterPrefix + string(c))
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// --- User Operations ---

// GetUser retrieves a user profile by ID
func (db *FirestoreDB) GetUser(ctx context.Context, userID string) (*models.User, error) {
	doc, err := db.user(userID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	var user models.User
	if err := doc.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to parse user: %w", err)
	}
	return &user, nil
}

// UpsertUser writes the profile document
func (db *FirestoreDB) UpsertUser(ctx context.Context, user *models.User) error {
	if _, err := db.user(user.UserID).Set(ctx, user); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// --- Report Operations ---

// GetReport retrieves the report for one date
func (db *FirestoreDB) GetReport(ctx context.Context, userID, date string) (*models.DailyReport, error) {
	doc, err := db.reports(userID).Doc(date).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var report models.DailyReport
	if err := doc.DataTo(&report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// ListReports retrieves reports in a date range
func (db *FirestoreDB) ListReports(ctx context.Context, userID, from, to string) ([]models.DailyReport, error) {
	q := db.reports(userID).OrderBy("date", firestore.Asc)
	if from != "" {
		q = q.Where("date", ">=", from)
	}
	if to != "" {
		q = q.Where("date", "<=", to)
	}
	iter := q.Documents(ctx)
	defer iter.Stop()

	var reports []models.DailyReport
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate reports: %w", err)
		}

		var report models.DailyReport
		if err := doc.DataTo(&report); err != nil {
			db.logger.Warn("failed to parse report", zap.String("doc", doc.Ref.ID), zap.Error(err))
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// SaveReport merges the report into its date document
func (db *FirestoreDB) SaveReport(ctx context.Context, userID string, report *models.DailyReport) error {
	_, err := db.reports(userID).Doc(report.Date).Set(ctx, report, firestore.Merge(reportFields...))
	if err != nil {
		return fmt.Errorf("failed to save report %s: %w", report.Date, err)
	}
	return nil
}

// SaveReports writes reports through a BulkWriter. There is no cross-document
// transaction: each write succeeds or fails on its own.
func (db *FirestoreDB) SaveReports(ctx context.Context, userID string, reports []models.DailyReport) map[string]error {
	failed := map[string]error{}
	if len(reports) == 0 {
		return failed
	}
	bw := db.client.BulkWriter(ctx)
	jobs := make(map[string]*firestore.BulkWriterJob, len(reports))
	for i := range reports {
		r := &reports[i]
		job, err := bw.Set(db.reports(userID).Doc(r.Date), r, firestore.Merge(reportFields...))
		if err != nil {
			failed[r.Date] = fmt.Errorf("failed to enqueue report %s: %w", r.Date, err)
			continue
		}
		jobs[r.Date] = job
	}
	bw.End()

	for date, job := range jobs {
		if _, err := job.Results(); err != nil {
			failed[date] = fmt.Errorf("failed to save report %s: %w", date, err)
		}
	}
	return failed
}

// DeleteReport deletes the report for one date
func (db *FirestoreDB) DeleteReport(ctx context.Context, userID, date string) error {
	if _, err := db.reports(userID).Doc(date).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	return nil
}

// --- Resource Memory ---

// GetMemory retrieves the user's resource memory document
func (db *FirestoreDB) GetMemory(ctx context.Context, userID string) (*models.ResourceMemory, error) {
	doc, err := db.user(userID).Collection(memoryCollection).Doc(memoryDoc).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get resource memory: %w", err)
	}

	mem := models.NewResourceMemory()
	if err := doc.DataTo(mem); err != nil {
		return nil, fmt.Errorf("failed to parse resource memory: %w", err)
	}
	return mem.Clone(), nil
}

// SaveMemory overwrites the user's resource memory document
func (db *FirestoreDB) SaveMemory(ctx context.Context, userID string, mem *models.ResourceMemory) error {
	if mem.UpdatedAt.IsZero() {
		mem.UpdatedAt = time.Now().UTC()
	}
	if _, err := db.user(userID).Collection(memoryCollection).Doc(memoryDoc).Set(ctx, mem); err != nil {
		return fmt.Errorf("failed to save resource memory: %w", err)
	}
	return nil
}

// --- Master Data ---

// ListMaster retrieves a master-data category ordered by code
func (db *FirestoreDB) ListMaster(ctx context.Context, userID string, category models.Category) ([]models.MasterDataItem, error) {
	iter := db.master(userID, category).OrderBy("code", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var items []models.MasterDataItem
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate master data: %w", err)
		}

		var item models.MasterDataItem
		if err := doc.DataTo(&item); err != nil {
			db.logger.Warn("failed to parse master item", zap.String("doc", doc.Ref.ID), zap.Error(err))
			continue
		}
		item.Category = category
		items = append(items, item)
	}
	return items, nil
}

// SaveMaster upserts a master-data item keyed by its normalized code
func (db *FirestoreDB) SaveMaster(ctx context.Context, userID string, item *models.MasterDataItem) error {
	_, err := db.master(userID, item.Category).Doc(models.NormalizeCode(item.Code)).Set(ctx, item)
	if err != nil {
		return fmt.Errorf("failed to save master item: %w", err)
	}
	return nil
}

// DeleteMaster deletes a master-data item
func (db *FirestoreDB) DeleteMaster(ctx context.Context, userID string, category models.Category, code string) error {
	if _, err := db.master(userID, category).Doc(models.NormalizeCode(code)).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete master item: %w", err)
	}
	return nil
}
