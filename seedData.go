package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// SeedProduct is one line of a seed file:
//
//	category;producer;name;price;status;stock;weight_grams
//
// Everything after price is optional. Lines starting with # are skipped.
type SeedProduct struct {
	Category    string
	Producer    string
	Name        string
	Price       decimal.Decimal
	Status      string
	Stock       *int
	WeightGrams *int
}

func parseSeedLine(line string) (SeedProduct, error) {
	strs := strings.Split(line, ";")
	if len(strs) < 4 {
		return SeedProduct{}, fmt.Errorf("want at least 4 fields, got %d", len(strs))
	}
	for i := range strs {
		strs[i] = strings.TrimSpace(strs[i])
	}
	p := SeedProduct{
		Category: strs[0],
		Producer: strs[1],
		Name:     strs[2],
		Status:   ProductActive,
	}
	if p.Name == "" {
		return SeedProduct{}, fmt.Errorf("empty product name")
	}
	price, err := decimal.NewFromString(strs[3])
	if err != nil || price.IsNegative() {
		return SeedProduct{}, fmt.Errorf("bad price %q", strs[3])
	}
	p.Price = price.Round(2)

	if len(strs) > 4 && strs[4] != "" {
		switch strs[4] {
		case ProductActive, ProductInactive, ProductDraft:
			p.Status = strs[4]
		default:
			return SeedProduct{}, fmt.Errorf("bad status %q", strs[4])
		}
	}
	if p.Stock, err = optionalInt(strs, 5); err != nil {
		return SeedProduct{}, fmt.Errorf("bad stock: %w", err)
	}
	if p.WeightGrams, err = optionalInt(strs, 6); err != nil {
		return SeedProduct{}, fmt.Errorf("bad weight: %w", err)
	}
	return p, nil
}

func optionalInt(strs []string, i int) (*int, error) {
	if len(strs) <= i || strs[i] == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(strs[i])
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func readSeedFile(fileName string) ([]SeedProduct, error) {
	readFile, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer readFile.Close()

	var products []SeedProduct
	scanner := bufio.NewScanner(readFile)
	scanner.Split(bufio.ScanLines)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p, err := parseSeedLine(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", fileName, n, err)
		}
		products = append(products, p)
	}
	return products, scanner.Err()
}

// SeedWithData loads a seed file into the catalog. Categories and producers
// are created on first sight; products already present by slug are left alone.
func (s *PostgresStore) SeedWithData(ctx context.Context, fileName string) error {
	products, err := readSeedFile(fileName)
	if err != nil {
		return err
	}
	return s.InTx(ctx, func(tx Storage) error {
		ts := tx.(*PostgresStore)
		categories := map[string]int64{}
		producers := map[string]int64{}
		inserted := 0
		for _, p := range products {
			categoryID, err := ts.seedCategory(ctx, categories, p.Category)
			if err != nil {
				return err
			}
			producerID, err := ts.seedProducer(ctx, producers, p.Producer)
			if err != nil {
				return err
			}
			res, err := ts.q.ExecContext(ctx, `insert into products
				(category_id, producer_id, name, slug, price, status, stock_quantity, weight_grams)
				values ($1, $2, $3, $4, $5, $6, $7, $8)
				on conflict (slug) do nothing`,
				categoryID, producerID, p.Name, productSlug(p.Name), p.Price, p.Status, p.Stock, p.WeightGrams)
			if err != nil {
				return fmt.Errorf("insert %q: %w", p.Name, err)
			}
			if ok, _ := affected(res); !ok {
				log.Printf("seed: skipped %q, slug %q already exists", p.Name, productSlug(p.Name))
				continue
			}
			inserted++
		}
		log.Printf("seeded %d of %d products from %s", inserted, len(products), fileName)
		return nil
	})
}

func (s *PostgresStore) seedCategory(ctx context.Context, seen map[string]int64, name string) (*int64, error) {
	if name == "" {
		return nil, nil
	}
	slug := slugify(name)
	if id, ok := seen[slug]; ok {
		return &id, nil
	}
	var id int64
	err := s.q.QueryRowContext(ctx, `insert into categories (name, slug) values ($1, $2)
		on conflict (slug) do update set name = categories.name
		returning id`, name, slug).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("category %q: %w", name, err)
	}
	seen[slug] = id
	return &id, nil
}

func (s *PostgresStore) seedProducer(ctx context.Context, seen map[string]int64, name string) (*int64, error) {
	if name == "" {
		return nil, nil
	}
	if id, ok := seen[name]; ok {
		return &id, nil
	}
	var id int64
	err := s.q.QueryRowContext(ctx, `select id from producers where name = $1 order by id limit 1`, name).Scan(&id)
	if err != nil {
		if notFound(err) != ErrNotFound {
			return nil, err
		}
		if err := s.q.QueryRowContext(ctx, `insert into producers (name) values ($1) returning id`, name).Scan(&id); err != nil {
			return nil, fmt.Errorf("producer %q: %w", name, err)
		}
	}
	seen[name] = id
	return &id, nil
}

// PromoteAdmin gives an existing customer the admin role.
func (s *PostgresStore) PromoteAdmin(ctx context.Context, email string) error {
	res, err := s.q.ExecContext(ctx, `update customers set role = $1 where email = $2`, RoleAdmin, strings.TrimSpace(email))
	if err != nil {
		return err
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("customer %q: %w", email, ErrNotFound)
	}
	return nil
}
