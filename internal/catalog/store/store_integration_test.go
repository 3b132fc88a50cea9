package store

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	caterrors "github.com/rmartins/catalog_service/internal/catalog/errors"
	"github.com/rmartins/catalog_service/internal/pkg/bootstrap"
)

const skipIntegrationTests = "CATALOG_SVC_SKIP_INTEGRATION_TESTS"

// CatalogStoreSuite is a test suite for the PostgreSQL-backed catalog store.
type CatalogStoreSuite struct {
	suite.Suite
	pgContainer *postgres.PostgresContainer // PostgreSQL container for integration tests
	dbPool      *pgxpool.Pool               // PostgreSQL connection pool for integration tests
	store       *PgStore
	logger      *slog.Logger
	ctx         context.Context
}

// SetupSuite initializes the test suite by setting up a PostgreSQL container.
func (s *CatalogStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	dbName := "catalog_db"
	dbUser := "user"
	dbPassword := "password"

	// 1. Start a PostgreSQL container with the specified configuration. Wait for the container to be ready.
	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:17.5-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		// Wait for a specific log message indicating the database service is ready.
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
		// Ensure the container is ready to accept connections on the default PostgreSQL port.
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432/tcp"),
		),
	)
	require.NoError(s.T(), err, "Failed to run PostgreSQL container")

	// 2. Get the connection string from the container
	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "Failed to get connection string from container")

	// 3. Create the pool through bootstrap so the decimal codec is registered
	s.dbPool, err = bootstrap.NewDbPool(s.ctx, connStr, 30*time.Second)
	require.NoError(s.T(), err, "Failed to create pgxpool")

	// 4. Database migration
	// Build path to migrations directory
	wd, _ := os.Getwd()
	migrationsPath := filepath.Join(wd, "..", "..", "..", "migrations")
	sourceURL := "file://" + migrationsPath
	// Create a new migrate instance with the source URL and connection string
	m, err := migrate.New(sourceURL, connStr)
	require.NoError(s.T(), err, "Failed to create migrate instance")
	// Apply all available migrations
	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		_, _ = m.Close()
		require.NoError(s.T(), err, "Failed to apply migrations")
	}
	s.logger.Info("Migrations applied for integration tests")

	s.store = NewPgStore(s.dbPool)
	s.logger.Info("Initialization complete for CatalogStoreSuite")
}

// TearDownSuite cleans up resources after all tests in the suite have run.
func (s *CatalogStoreSuite) TearDownSuite() {
	s.logger.Info("Tearing down suite...")
	if s.dbPool != nil {
		s.dbPool.Close()
		s.logger.Info("DB pool closed.")
	}
	if s.pgContainer != nil {
		s.logger.Info("Terminating PostgreSQL container...")
		err := s.pgContainer.Terminate(s.ctx)
		if err != nil {
			s.logger.Warn("failed to terminate PostgreSQL container", "error", err)
		} else {
			s.logger.Info("PostgreSQL container terminated.")
		}
	}
}

// SetupTest prepares the database for each test by truncating the products table.
// The variations table is emptied by the cascade.
func (s *CatalogStoreSuite) SetupTest() {
	_, err := s.dbPool.Exec(s.ctx, "TRUNCATE TABLE products RESTART IDENTITY CASCADE")
	require.NoError(s.T(), err, "Failed to truncate products table")
}

// TestCatalogStoreIntegration runs the catalog store integration tests.
func TestCatalogStoreIntegration(t *testing.T) {
	// Skip integration tests if the environment variable is set
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
	// Run the test suite
	suite.Run(t, new(CatalogStoreSuite))
}

// createTestProduct is a helper to persist a product with two variations.
func (s *CatalogStoreSuite) createTestProduct() *Product {
	s.T().Helper()
	created, err := s.store.Create(s.ctx, &Product{
		Name:        "Running Shoes",
		Description: "Lightweight shoes",
		Category:    "SHOES",
		Available:   true,
		Variations: []Variation{
			{SizeName: "42", Description: "EU 42", Price: decimal.NewFromFloat(99.90), Available: true},
			{SizeName: "43", Description: "EU 43", Price: decimal.NewFromFloat(109.90), Available: false},
		},
	})
	require.NoError(s.T(), err, "createTestProduct helper failed to create product")
	return created
}

func (s *CatalogStoreSuite) TestCreate() {
	s.SetupTest()
	// when
	created := s.createTestProduct()

	// then
	assert.NotZero(s.T(), created.ID)
	require.NotNil(s.T(), created.CreatedAt)
	require.Len(s.T(), created.Variations, 2)
	for _, v := range created.Variations {
		assert.NotZero(s.T(), v.ID)
		assert.Equal(s.T(), created.ID, v.ProductID)
		assert.NotNil(s.T(), v.CreatedAt)
	}
}

func (s *CatalogStoreSuite) TestFindByID() {
	s.T().Run("Success - product with variations and exact prices", func(t *testing.T) {
		s.SetupTest()
		// given
		created := s.createTestProduct()

		// when
		found, err := s.store.FindByID(s.ctx, created.ID)

		// then
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
		assert.Equal(t, "Running Shoes", found.Name)
		assert.Equal(t, "SHOES", found.Category)
		require.Len(t, found.Variations, 2)
		assert.True(t, decimal.NewFromFloat(99.90).Equal(found.Variations[0].Price), "price must survive the round-trip exactly")
		assert.True(t, decimal.NewFromFloat(109.90).Equal(found.Variations[1].Price))
	})

	s.T().Run("Error - product not found", func(t *testing.T) {
		s.SetupTest()
		// when
		_, err := s.store.FindByID(s.ctx, 404)

		// then
		assert.ErrorIs(t, err, caterrors.ErrProductNotFound)
	})
}

func (s *CatalogStoreSuite) TestFindAll() {
	s.T().Run("Success - empty catalog yields empty slice", func(t *testing.T) {
		s.SetupTest()
		// when
		products, err := s.store.FindAll(s.ctx)

		// then
		require.NoError(t, err)
		assert.Empty(t, products)
	})

	s.T().Run("Success - variations grouped under their products", func(t *testing.T) {
		s.SetupTest()
		// given
		first := s.createTestProduct()
		second := s.createTestProduct()

		// when
		products, err := s.store.FindAll(s.ctx)

		// then
		require.NoError(t, err)
		require.Len(t, products, 2)
		assert.Equal(t, first.ID, products[0].ID)
		assert.Equal(t, second.ID, products[1].ID)
		require.Len(t, products[0].Variations, 2)
		require.Len(t, products[1].Variations, 2)
		for _, v := range products[1].Variations {
			assert.Equal(t, second.ID, v.ProductID)
		}
	})
}

func (s *CatalogStoreSuite) TestExistsByID() {
	s.SetupTest()
	// given
	created := s.createTestProduct()

	// when / then
	exists, err := s.store.ExistsByID(s.ctx, created.ID)
	require.NoError(s.T(), err)
	assert.True(s.T(), exists)

	exists, err = s.store.ExistsByID(s.ctx, 404)
	require.NoError(s.T(), err)
	assert.False(s.T(), exists)
}

func (s *CatalogStoreSuite) TestSave() {
	s.T().Run("Success - product and variation rows updated", func(t *testing.T) {
		s.SetupTest()
		// given
		created := s.createTestProduct()
		created.Name = "Trail Shoes"
		created.Available = false
		created.Variations[0].Available = false
		created.Variations[0].Price = decimal.NewFromFloat(79.90)

		// when
		_, err := s.store.Save(s.ctx, created)

		// then
		require.NoError(t, err)
		found, err := s.store.FindByID(s.ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Trail Shoes", found.Name)
		assert.False(t, found.Available)
		assert.False(t, found.Variations[0].Available)
		assert.True(t, decimal.NewFromFloat(79.90).Equal(found.Variations[0].Price))
	})

	s.T().Run("Error - product not found", func(t *testing.T) {
		s.SetupTest()
		// when
		_, err := s.store.Save(s.ctx, &Product{ID: 404, Name: "ghost", Category: "SHOES"})

		// then
		assert.ErrorIs(t, err, caterrors.ErrProductNotFound)
	})
}

func (s *CatalogStoreSuite) TestDeleteByID() {
	s.T().Run("Success - variations removed by cascade", func(t *testing.T) {
		s.SetupTest()
		// given
		created := s.createTestProduct()

		// when
		err := s.store.DeleteByID(s.ctx, created.ID)

		// then
		require.NoError(t, err)
		var count int
		err = s.dbPool.QueryRow(s.ctx, "SELECT COUNT(*) FROM product_variations WHERE product_id = $1", created.ID).Scan(&count)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	s.T().Run("Error - product not found", func(t *testing.T) {
		s.SetupTest()
		// when
		err := s.store.DeleteByID(s.ctx, 404)

		// then
		assert.ErrorIs(t, err, caterrors.ErrProductNotFound)
	})
}

func (s *CatalogStoreSuite) TestFindVariation() {
	s.T().Run("Success - resolved by the composite key", func(t *testing.T) {
		s.SetupTest()
		// given
		created := s.createTestProduct()

		// when
		found, err := s.store.FindVariation(s.ctx, created.ID, created.Variations[0].ID)

		// then
		require.NoError(t, err)
		assert.Equal(t, created.Variations[0].ID, found.ID)
		assert.Equal(t, "42", found.SizeName)
	})

	s.T().Run("Error - variation under the wrong product", func(t *testing.T) {
		s.SetupTest()
		// given
		first := s.createTestProduct()
		second := s.createTestProduct()

		// when
		_, err := s.store.FindVariation(s.ctx, first.ID, second.Variations[0].ID)

		// then
		assert.ErrorIs(t, err, caterrors.ErrVariationNotFound)
	})
}

func (s *CatalogStoreSuite) TestCreateVariation() {
	s.SetupTest()
	// given
	created := s.createTestProduct()

	// when
	variation, err := s.store.CreateVariation(s.ctx, &Variation{
		ProductID:   created.ID,
		SizeName:    "44",
		Description: "EU 44",
		Price:       decimal.NewFromFloat(119.90),
		Available:   true,
	})

	// then
	require.NoError(s.T(), err)
	assert.NotZero(s.T(), variation.ID)
	assert.NotNil(s.T(), variation.CreatedAt)

	found, err := s.store.FindByID(s.ctx, created.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), found.Variations, 3)
}

func (s *CatalogStoreSuite) TestDeleteVariationByID() {
	s.T().Run("Success - siblings untouched", func(t *testing.T) {
		s.SetupTest()
		// given
		created := s.createTestProduct()

		// when
		err := s.store.DeleteVariationByID(s.ctx, created.Variations[0].ID)

		// then
		require.NoError(t, err)
		found, err := s.store.FindByID(s.ctx, created.ID)
		require.NoError(t, err)
		require.Len(t, found.Variations, 1)
		assert.Equal(t, "43", found.Variations[0].SizeName)
	})

	s.T().Run("Error - variation not found", func(t *testing.T) {
		s.SetupTest()
		// when
		err := s.store.DeleteVariationByID(s.ctx, 404)

		// then
		assert.ErrorIs(t, err, caterrors.ErrVariationNotFound)
	})
}
