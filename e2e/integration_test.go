//go:build e2e

// Package e2e contains end-to-end integration tests against real
// DynamoDB tables. Run with: go test -tags=e2e -v ./e2e/...
package e2e

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/wellfedcat/wellfedcat/dishstore"
	"github.com/wellfedcat/wellfedcat/dishstore/storetest"
	"github.com/wellfedcat/wellfedcat/dynamostore"
	"github.com/wellfedcat/wellfedcat/timeline"
)

const tablePrefix = "wellfedcat-e2e-test"

var (
	testID    string
	ddbClient *dynamodb.Client
	testCfg   dynamostore.Config
)

func TestMain(m *testing.M) {
	testID = uuid.New().String()[:8]
	testCfg = dynamostore.Config{
		DishTable:       fmt.Sprintf("%s-%s-dishes", tablePrefix, testID),
		ConstraintTable: fmt.Sprintf("%s-%s-constraints", tablePrefix, testID),
		RefTable:        fmt.Sprintf("%s-%s-refs", tablePrefix, testID),
		TimelineTable:   fmt.Sprintf("%s-%s-days", tablePrefix, testID),
	}

	fmt.Printf("Test ID: %s\n", testID)

	ctx := context.Background()
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		fmt.Printf("Failed to load AWS config: %v\n", err)
		os.Exit(1)
	}
	ddbClient = dynamodb.NewFromConfig(cfg)

	if err := createTables(ctx); err != nil {
		fmt.Printf("Failed to create tables: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	if err := deleteTables(ctx); err != nil {
		fmt.Printf("Failed to delete tables: %v\n", err)
	}

	os.Exit(code)
}

func createTables(ctx context.Context) error {
	fmt.Println("Creating test tables...")

	type tableSpec struct {
		name string
		keys []types.KeySchemaElement
		defs []types.AttributeDefinition
	}
	simpleKey := func(name, attr string) tableSpec {
		return tableSpec{
			name: name,
			keys: []types.KeySchemaElement{
				{AttributeName: aws.String(attr), KeyType: types.KeyTypeHash},
			},
			defs: []types.AttributeDefinition{
				{AttributeName: aws.String(attr), AttributeType: types.ScalarAttributeTypeS},
			},
		}
	}

	specs := []tableSpec{
		simpleKey(testCfg.DishTable, "id"),
		simpleKey(testCfg.RefTable, "id"),
		simpleKey(testCfg.TimelineTable, "day"),
		{
			name: testCfg.ConstraintTable,
			keys: []types.KeySchemaElement{
				{AttributeName: aws.String("pk"), KeyType: types.KeyTypeHash},
				{AttributeName: aws.String("sk"), KeyType: types.KeyTypeRange},
			},
			defs: []types.AttributeDefinition{
				{AttributeName: aws.String("pk"), AttributeType: types.ScalarAttributeTypeS},
				{AttributeName: aws.String("sk"), AttributeType: types.ScalarAttributeTypeS},
			},
		},
	}

	for _, spec := range specs {
		_, err := ddbClient.CreateTable(ctx, &dynamodb.CreateTableInput{
			TableName:            aws.String(spec.name),
			KeySchema:            spec.keys,
			AttributeDefinitions: spec.defs,
			BillingMode:          types.BillingModePayPerRequest,
		})
		if err != nil {
			return fmt.Errorf("create table %s: %w", spec.name, err)
		}
	}

	for _, spec := range specs {
		waiter := dynamodb.NewTableExistsWaiter(ddbClient)
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(spec.name),
		}, 2*time.Minute); err != nil {
			return fmt.Errorf("wait for table %s: %w", spec.name, err)
		}
	}

	fmt.Println("All tables created and active")
	return nil
}

func deleteTables(ctx context.Context) error {
	fmt.Println("Deleting test tables...")
	for _, name := range []string{testCfg.DishTable, testCfg.ConstraintTable, testCfg.RefTable, testCfg.TimelineTable} {
		_, err := ddbClient.DeleteTable(ctx, &dynamodb.DeleteTableInput{
			TableName: aws.String(name),
		})
		if err != nil {
			fmt.Printf("Warning: failed to delete table %s: %v\n", name, err)
		}
	}
	return nil
}

// wipeTables removes every item so each conformance case starts from an
// empty store. Tables are small in tests, so scanning is fine.
func wipeTables(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	wipe := func(table string, keyAttrs []string) {
		paginator := dynamodb.NewScanPaginator(ddbClient, &dynamodb.ScanInput{
			TableName: aws.String(table),
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				t.Fatalf("scan %s: %v", table, err)
			}
			for _, item := range page.Items {
				key := make(map[string]types.AttributeValue, len(keyAttrs))
				for _, attr := range keyAttrs {
					key[attr] = item[attr]
				}
				if _, err := ddbClient.DeleteItem(ctx, &dynamodb.DeleteItemInput{
					TableName: aws.String(table),
					Key:       key,
				}); err != nil {
					t.Fatalf("delete item in %s: %v", table, err)
				}
			}
		}
	}

	wipe(testCfg.DishTable, []string{"id"})
	wipe(testCfg.RefTable, []string{"id"})
	wipe(testCfg.TimelineTable, []string{"day"})
	wipe(testCfg.ConstraintTable, []string{"pk", "sk"})
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) (dishstore.EditableStore, timeline.EditableStore) {
		wipeTables(t)
		s := dynamostore.New(ddbClient, testCfg)
		return s.Dishes(), s.Timeline()
	})
}

func TestExpireDay_KeepsGuardUntilRefsReleased(t *testing.T) {
	wipeTables(t)
	ctx := context.Background()
	s := dynamostore.New(ddbClient, testCfg)

	dish, err := s.Dishes().Create(ctx, "pelmeni", "Pelmeni",
		dishstore.NewMealTimeSet(dishstore.Lunch))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	day := timeline.NewDayMenu(time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC))
	day.Add(dishstore.Lunch, dish.StrongID)
	if err := s.Timeline().PutDay(ctx, day); err != nil {
		t.Fatalf("PutDay: %v", err)
	}

	if err := s.Timeline().ExpireDay(ctx, day.Date, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("ExpireDay: %v", err)
	}

	// Until the stream handler releases the references the dish stays
	// guarded.
	status, err := s.Dishes().Delete(ctx, dish.StrongID)
	if err != nil || status != dishstore.DeleteUsedInMenuTimeline {
		t.Fatalf("Delete before release = %s, %v; want USED_IN_MENU_TIMELINE", status, err)
	}

	if err := s.Timeline().ReleaseRefs(ctx, day.Dishes()); err != nil {
		t.Fatalf("ReleaseRefs: %v", err)
	}

	status, err = s.Dishes().Delete(ctx, dish.StrongID)
	if err != nil || status != dishstore.DeleteSuccess {
		t.Fatalf("Delete after release = %s, %v; want SUCCESS", status, err)
	}
}
