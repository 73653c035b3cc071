package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"sourzka.org/internal/audit"
	"sourzka.org/internal/marketplace"
)

const manufacturerColumns = `m.id, m.user_id, m.company_name, m.factory_details, m.keywords, m.certificates, m.gallery,
	m.intro_video, m.is_verified, m.is_viewed_by_staff, m.gstin, m.verified_gst_name, m.gstin_verified_at,
	m.created_at, m.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanManufacturer(row rowScanner) (marketplace.Manufacturer, error) {
	var (
		m                               marketplace.Manufacturer
		keywords, certificates, gallery []byte
		gstin, gstName                  sql.NullString
		gstinAt                         sql.NullTime
	)
	err := row.Scan(&m.ID, &m.UserID, &m.CompanyName, &m.FactoryDetails, &keywords, &certificates, &gallery,
		&m.IntroVideo, &m.IsVerified, &m.IsViewedByStaff, &gstin, &gstName, &gstinAt,
		&m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return marketplace.Manufacturer{}, marketplace.ErrNotFound
	}
	if err != nil {
		return marketplace.Manufacturer{}, err
	}
	if m.Keywords, err = decodeList(keywords); err != nil {
		return marketplace.Manufacturer{}, err
	}
	if m.Certificates, err = decodeList(certificates); err != nil {
		return marketplace.Manufacturer{}, err
	}
	if m.Gallery, err = decodeList(gallery); err != nil {
		return marketplace.Manufacturer{}, err
	}
	m.GSTIN = gstin.String
	m.VerifiedGSTName = gstName.String
	if gstinAt.Valid {
		at := gstinAt.Time
		m.GSTINVerifiedAt = &at
	}
	return m, nil
}

func encodeManufacturerLists(m marketplace.Manufacturer) (keywords, certificates, gallery []byte, err error) {
	if keywords, err = encodeList(m.Keywords); err != nil {
		return nil, nil, nil, err
	}
	if certificates, err = encodeList(m.Certificates); err != nil {
		return nil, nil, nil, err
	}
	if gallery, err = encodeList(m.Gallery); err != nil {
		return nil, nil, nil, err
	}
	return keywords, certificates, gallery, nil
}

func (s *Store) ManufacturerByID(ctx context.Context, id string) (marketplace.Manufacturer, error) {
	return scanManufacturer(s.db.QueryRowContext(ctx, `select `+manufacturerColumns+` from manufacturers m where m.id = $1`, id))
}

func (s *Store) ManufacturerByUserID(ctx context.Context, userID string) (marketplace.Manufacturer, error) {
	return scanManufacturer(s.db.QueryRowContext(ctx, `select `+manufacturerColumns+` from manufacturers m where m.user_id = $1`, userID))
}

func (s *Store) UpdateManufacturer(ctx context.Context, m marketplace.Manufacturer) error {
	keywords, certificates, gallery, err := encodeManufacturerLists(m)
	if err != nil {
		return err
	}
	var gstinAt sql.NullTime
	if m.GSTINVerifiedAt != nil {
		gstinAt = sql.NullTime{Time: *m.GSTINVerifiedAt, Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `
		update manufacturers
		set company_name = $2, factory_details = $3, keywords = $4, certificates = $5, gallery = $6,
			intro_video = $7, is_verified = $8, is_viewed_by_staff = $9, gstin = $10,
			verified_gst_name = $11, gstin_verified_at = $12, updated_at = $13
		where id = $1
	`, m.ID, m.CompanyName, m.FactoryDetails, keywords, certificates, gallery,
		m.IntroVideo, m.IsVerified, m.IsViewedByStaff, nullIfEmpty(m.GSTIN),
		nullIfEmpty(m.VerifiedGSTName), gstinAt, m.UpdatedAt)
	if err != nil {
		return mapWriteError(err)
	}
	return expectOneRow(res)
}

func (s *Store) SetManufacturerVerification(ctx context.Context, id string, verified bool, entry audit.Entry) (marketplace.Manufacturer, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return marketplace.Manufacturer{}, err
	}
	defer func() { _ = tx.Rollback() }()

	updatedAt := entry.OccurredAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	m, err := scanManufacturer(tx.QueryRowContext(ctx, `
		update manufacturers m
		set is_verified = $2, is_viewed_by_staff = true, updated_at = $3
		where m.id = $1
		returning `+manufacturerColumns, id, verified, updatedAt))
	if err != nil {
		return marketplace.Manufacturer{}, err
	}
	if err := insertAudit(ctx, tx, entry); err != nil {
		return marketplace.Manufacturer{}, err
	}
	if err := tx.Commit(); err != nil {
		return marketplace.Manufacturer{}, err
	}
	return m, nil
}

func (s *Store) ListManufacturers(ctx context.Context, f marketplace.ManufacturerFilter) ([]marketplace.Manufacturer, int, error) {
	where, args := manufacturerFilterClause(f)

	var total int
	if err := s.db.QueryRowContext(ctx, `
		select count(*) from manufacturers m join users u on u.id = m.user_id`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	pageArgs := append(append([]any{}, args...), limit, f.Offset())
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		select `+manufacturerColumns+`
		from manufacturers m join users u on u.id = m.user_id`+where+`
		order by u.created_at desc, m.id desc
		limit $%d offset $%d`, len(args)+1, len(args)+2), pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]marketplace.Manufacturer, 0)
	for rows.Next() {
		m, err := scanManufacturer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func manufacturerFilterClause(f marketplace.ManufacturerFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Verified != nil {
		args = append(args, *f.Verified)
		conds = append(conds, fmt.Sprintf("m.is_verified = $%d", len(args)))
	}
	if f.IsViewedByStaff != nil {
		args = append(args, *f.IsViewedByStaff)
		conds = append(conds, fmt.Sprintf("m.is_viewed_by_staff = $%d", len(args)))
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		args = append(args, "%"+search+"%", search)
		like, raw := len(args)-1, len(args)
		conds = append(conds, fmt.Sprintf(
			"(m.company_name ilike $%d or m.factory_details ilike $%d or m.keywords @> jsonb_build_array($%d::text) or u.email ilike $%d)",
			like, like, raw, like))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " where " + strings.Join(conds, " and "), args
}

func (s *Store) CreateLegalDocument(ctx context.Context, d marketplace.LegalDocument) error {
	_, err := s.db.ExecContext(ctx, `
		insert into legal_documents (id, manufacturer_id, uploader_id, title, url, created_at)
		values ($1, $2, $3, $4, $5, $6)
	`, d.ID, d.ManufacturerID, d.UploaderID, d.Title, d.URL, d.CreatedAt)
	return mapWriteError(err)
}

func (s *Store) LegalDocuments(ctx context.Context, manufacturerID string) ([]marketplace.LegalDocument, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, manufacturer_id, uploader_id, title, url, created_at
		from legal_documents
		where manufacturer_id = $1
		order by created_at asc
	`, manufacturerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]marketplace.LegalDocument, 0)
	for rows.Next() {
		var d marketplace.LegalDocument
		if err := rows.Scan(&d.ID, &d.ManufacturerID, &d.UploaderID, &d.Title, &d.URL, &d.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return marketplace.ErrNotFound
	}
	return nil
}
