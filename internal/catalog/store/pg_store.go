package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	caterrors "github.com/rmartins/catalog_service/internal/catalog/errors"
)

// PgStore implements ProductStore and VariationStore using PostgreSQL as the data store.
type PgStore struct {
	db *pgxpool.Pool
}

var (
	_ ProductStore   = (*PgStore)(nil)
	_ VariationStore = (*PgStore)(nil)
)

// NewPgStore creates a new catalog store backed by a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

const productColumns = `id, name, description, category, available, created_at`
const variationColumns = `id, product_id, size_name, description, price, available, created_at`

// FindByID retrieves a product with its variations by its unique identifier.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) FindByID(ctx context.Context, id int64) (*Product, error) {
	var product Product

	txErr := p.withTransaction(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
		if err := scanProduct(row, &product); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return caterrors.ErrProductNotFound
			}
			return fmt.Errorf("failed to find product by ID: %w", err)
		}
		variations, err := queryVariations(ctx, tx, `SELECT `+variationColumns+` FROM product_variations WHERE product_id = $1 ORDER BY id`, id)
		if err != nil {
			return fmt.Errorf("failed to find variations for product %d: %w", id, err)
		}
		product.Variations = variations
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return &product, nil
}

// FindAll retrieves all products with their variations, ordered by product id.
func (p *PgStore) FindAll(ctx context.Context) ([]Product, error) {
	var products []Product

	txErr := p.withTransaction(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
		if err != nil {
			return fmt.Errorf("failed to find all products: %w", err)
		}
		defer rows.Close()
		index := make(map[int64]int)
		for rows.Next() {
			var product Product
			if err := scanProduct(rows, &product); err != nil {
				return fmt.Errorf("failed to scan product: %w", err)
			}
			product.Variations = []Variation{}
			index[product.ID] = len(products)
			products = append(products, product)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to iterate products: %w", err)
		}
		rows.Close()

		variations, err := queryVariations(ctx, tx, `SELECT `+variationColumns+` FROM product_variations ORDER BY product_id, id`)
		if err != nil {
			return fmt.Errorf("failed to find variations: %w", err)
		}
		for _, v := range variations {
			if i, ok := index[v.ProductID]; ok {
				products[i].Variations = append(products[i].Variations, v)
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	if products == nil {
		products = []Product{}
	}
	return products, nil
}

// ExistsByID reports whether a product exists with the given ID.
func (p *PgStore) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := p.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check product existence: %w", err)
	}
	return exists, nil
}

// Create persists a product together with its variations in a single transaction.
func (p *PgStore) Create(ctx context.Context, product *Product) (*Product, error) {
	txErr := p.withTransaction(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`INSERT INTO products (name, description, category, available)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id, created_at`,
			product.Name, product.Description, product.Category, product.Available)
		if err := row.Scan(&product.ID, &product.CreatedAt); err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		for i := range product.Variations {
			v := &product.Variations[i]
			v.ProductID = product.ID
			row := tx.QueryRow(ctx,
				`INSERT INTO product_variations (product_id, size_name, description, price, available)
				 VALUES ($1, $2, $3, $4, $5)
				 RETURNING id, created_at`,
				v.ProductID, v.SizeName, v.Description, v.Price, v.Available)
			if err := row.Scan(&v.ID, &v.CreatedAt); err != nil {
				return fmt.Errorf("failed to create product variation: %w", err)
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return product, nil
}

// Save updates a product row and all of its variation rows in a single transaction.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) Save(ctx context.Context, product *Product) (*Product, error) {
	txErr := p.withTransaction(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE products SET name = $2, description = $3, category = $4, available = $5 WHERE id = $1`,
			product.ID, product.Name, product.Description, product.Category, product.Available)
		if err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return caterrors.ErrProductNotFound
		}
		for i := range product.Variations {
			v := &product.Variations[i]
			_, err := tx.Exec(ctx,
				`UPDATE product_variations SET size_name = $2, description = $3, price = $4, available = $5
				 WHERE id = $1 AND product_id = $6`,
				v.ID, v.SizeName, v.Description, v.Price, v.Available, product.ID)
			if err != nil {
				return fmt.Errorf("failed to update product variation: %w", err)
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return product, nil
}

// DeleteByID removes a product by its ID. Variations are removed by the
// ON DELETE CASCADE constraint on product_variations.
func (p *PgStore) DeleteByID(ctx context.Context, id int64) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product by ID: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return caterrors.ErrProductNotFound
	}
	return nil
}

// FindVariation retrieves a variation by the (product id, variation id) pair.
// Returns ErrVariationNotFound if no variation with that id belongs to the product.
func (p *PgStore) FindVariation(ctx context.Context, productID, variationID int64) (*Variation, error) {
	var v Variation
	row := p.db.QueryRow(ctx,
		`SELECT `+variationColumns+` FROM product_variations WHERE product_id = $1 AND id = $2`,
		productID, variationID)
	if err := scanVariation(row, &v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, caterrors.ErrVariationNotFound
		}
		return nil, fmt.Errorf("failed to find variation by product and ID: %w", err)
	}
	return &v, nil
}

// CreateVariation persists a new variation for an existing product.
func (p *PgStore) CreateVariation(ctx context.Context, variation *Variation) (*Variation, error) {
	row := p.db.QueryRow(ctx,
		`INSERT INTO product_variations (product_id, size_name, description, price, available)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		variation.ProductID, variation.SizeName, variation.Description, variation.Price, variation.Available)
	if err := row.Scan(&variation.ID, &variation.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create product variation: %w", err)
	}
	return variation, nil
}

// DeleteVariationByID removes a variation by its ID.
// Returns ErrVariationNotFound if no variation exists with the given ID.
func (p *PgStore) DeleteVariationByID(ctx context.Context, id int64) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM product_variations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete variation by ID: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return caterrors.ErrVariationNotFound
	}
	return nil
}

func (p *PgStore) withTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("failed to rollback transaction: %w", rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func scanProduct(row pgx.Row, product *Product) error {
	return row.Scan(&product.ID, &product.Name, &product.Description, &product.Category, &product.Available, &product.CreatedAt)
}

func scanVariation(row pgx.Row, v *Variation) error {
	return row.Scan(&v.ID, &v.ProductID, &v.SizeName, &v.Description, &v.Price, &v.Available, &v.CreatedAt)
}

func queryVariations(ctx context.Context, tx pgx.Tx, sql string, args ...any) ([]Variation, error) {
	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	variations := []Variation{}
	for rows.Next() {
		var v Variation
		if err := scanVariation(rows, &v); err != nil {
			return nil, err
		}
		variations = append(variations, v)
	}
	return variations, rows.Err()
}
