package pg

import (
	"context"
	"database/sql"
	"errors"

	"sourzka.org/internal/marketplace"
)

const productColumns = `id, manufacturer_id, slug, name, description, base_unit, unit_price, delivery_time_days,
	tags, media_urls, spec_sheet_url, is_paused, created_at, updated_at`

func scanProduct(row rowScanner) (marketplace.Product, error) {
	var (
		p               marketplace.Product
		tags, mediaURLs []byte
		specSheet       sql.NullString
	)
	err := row.Scan(&p.ID, &p.ManufacturerID, &p.Slug, &p.Name, &p.Description, &p.BaseUnit, &p.UnitPrice,
		&p.DeliveryTimeDays, &tags, &mediaURLs, &specSheet, &p.IsPaused, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return marketplace.Product{}, marketplace.ErrNotFound
	}
	if err != nil {
		return marketplace.Product{}, err
	}
	if p.Tags, err = decodeList(tags); err != nil {
		return marketplace.Product{}, err
	}
	if p.MediaURLs, err = decodeList(mediaURLs); err != nil {
		return marketplace.Product{}, err
	}
	p.SpecSheetURL = specSheet.String
	return p, nil
}

func (s *Store) CreateProduct(ctx context.Context, p marketplace.Product) error {
	tags, err := encodeList(p.Tags)
	if err != nil {
		return err
	}
	mediaURLs, err := encodeList(p.MediaURLs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		insert into products (id, manufacturer_id, slug, name, description, base_unit, unit_price,
			delivery_time_days, tags, media_urls, spec_sheet_url, is_paused, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, p.ID, p.ManufacturerID, p.Slug, p.Name, p.Description, p.BaseUnit, p.UnitPrice,
		p.DeliveryTimeDays, tags, mediaURLs, nullIfEmpty(p.SpecSheetURL), p.IsPaused, p.CreatedAt, p.UpdatedAt)
	return mapWriteError(err)
}

func (s *Store) ProductByID(ctx context.Context, id string) (marketplace.Product, error) {
	return scanProduct(s.db.QueryRowContext(ctx, `select `+productColumns+` from products where id = $1`, id))
}

func (s *Store) UpdateProduct(ctx context.Context, p marketplace.Product) error {
	tags, err := encodeList(p.Tags)
	if err != nil {
		return err
	}
	mediaURLs, err := encodeList(p.MediaURLs)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		update products
		set slug = $2, name = $3, description = $4, base_unit = $5, unit_price = $6,
			delivery_time_days = $7, tags = $8, media_urls = $9, spec_sheet_url = $10,
			is_paused = $11, updated_at = $12
		where id = $1
	`, p.ID, p.Slug, p.Name, p.Description, p.BaseUnit, p.UnitPrice,
		p.DeliveryTimeDays, tags, mediaURLs, nullIfEmpty(p.SpecSheetURL), p.IsPaused, p.UpdatedAt)
	if err != nil {
		return mapWriteError(err)
	}
	return expectOneRow(res)
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from products where id = $1`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (s *Store) ProductsByManufacturer(ctx context.Context, manufacturerID string) ([]marketplace.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+productColumns+`
		from products
		where manufacturer_id = $1
		order by created_at desc, id desc
	`, manufacturerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]marketplace.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
