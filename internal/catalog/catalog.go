package catalog

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const tableName = "ec2_instances"

// Columns compared numerically in lookups get numeric affinity; everything
// else is stored as text.
var numericColumns = map[string]bool{
	"vCPUs":           true,
	"Instance_Memory": true,
	"On_Demand":       true,
}

const (
	// DefaultCPU and DefaultRAM back lookups where the user never stated a
	// requirement.
	DefaultCPU = 2
	DefaultRAM = 8.0
)

// ImportCSV loads an instance pricing CSV into the catalog database,
// replacing any previous import. The first row is taken as the header; empty
// cells become NULL so that instances without an on-demand price never win a
// lookup.
func ImportCSV(pool *Pool, csvPath string) (int, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open catalog CSV: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read catalog CSV header: %w", err)
	}

	imported := 0
	err = pool.WithConn(func(db *sql.DB) error {
		if _, err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", tableName)); err != nil {
			return fmt.Errorf("failed to reset catalog table: %w", err)
		}
		cols := make([]string, len(header))
		for i, name := range header {
			affinity := "TEXT"
			if numericColumns[name] {
				affinity = "REAL"
			}
			cols[i] = fmt.Sprintf("%q %s", name, affinity)
		}
		create := fmt.Sprintf("CREATE TABLE %s (%s)", tableName, strings.Join(cols, ", "))
		if _, err := db.Exec(create); err != nil {
			return fmt.Errorf("failed to create catalog table: %w", err)
		}

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(header)), ",")
		insert := fmt.Sprintf("INSERT INTO %s VALUES (%s)", tableName, placeholders)
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin catalog import: %w", err)
		}
		stmt, err := tx.Prepare(insert)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to prepare catalog insert: %w", err)
		}
		defer stmt.Close()

		for {
			record, err := r.Read()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				tx.Rollback()
				return fmt.Errorf("failed to read catalog CSV row: %w", err)
			}
			args := make([]any, len(record))
			for i, cell := range record {
				if cell == "" {
					args[i] = nil
					continue
				}
				args[i] = cell
			}
			if _, err := stmt.Exec(args...); err != nil {
				tx.Rollback()
				return fmt.Errorf("failed to insert catalog row: %w", err)
			}
			imported++
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}
	return imported, nil
}

// Catalog answers instance lookups over an imported pricing table.
type Catalog struct {
	pool *Pool
}

func New(pool *Pool) *Catalog {
	return &Catalog{pool: pool}
}

func (c *Catalog) FindBestInstance(ctx context.Context, cpu *int, ram *float64) (Result, error) {
	return FindBestInstance(ctx, c.pool, cpu, ram)
}

// Result is the outcome of a catalog lookup. When no instance satisfies the
// requirements, Found is false and Message names the thresholds that were
// applied.
type Result struct {
	Found   bool
	APIName string
	Message string
}

// FindBestInstance returns the cheapest on-demand instance type with at least
// cpu vCPUs and ram GiB of memory. Nil requirements fall back to DefaultCPU
// and DefaultRAM. Query failures are reported as a not-found Result with a
// database-error message so the dialogue continues; only a failure to
// acquire a handle is returned as an error.
func FindBestInstance(ctx context.Context, pool *Pool, cpu *int, ram *float64) (Result, error) {
	wantCPU := DefaultCPU
	if cpu != nil {
		wantCPU = *cpu
	}
	wantRAM := DefaultRAM
	if ram != nil {
		wantRAM = *ram
	}

	var res Result
	err := pool.WithConn(func(db *sql.DB) error {
		query := fmt.Sprintf(
			`SELECT "API_Name" FROM %s
			 WHERE "vCPUs" >= ? AND "Instance_Memory" >= ? AND "On_Demand" IS NOT NULL
			 ORDER BY "On_Demand" ASC LIMIT 1`, tableName)
		row := db.QueryRowContext(ctx, query, wantCPU, wantRAM)
		if err := row.Scan(&res.APIName); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				res.Message = fmt.Sprintf(
					"No instance type found with at least %d vCPUs and %g GiB of memory.",
					wantCPU, wantRAM)
				return nil
			}
			res.Message = fmt.Sprintf("Database error occurred: %v", err)
			return nil
		}
		res.Found = true
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}
