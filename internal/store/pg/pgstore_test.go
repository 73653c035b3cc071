package pg

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"sourzka.org/internal/audit"
	"sourzka.org/internal/auth"
	"sourzka.org/internal/marketplace"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func expectMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

var manufacturerRowColumns = []string{
	"id", "user_id", "company_name", "factory_details", "keywords", "certificates", "gallery",
	"intro_video", "is_verified", "is_viewed_by_staff", "gstin", "verified_gst_name", "gstin_verified_at",
	"created_at", "updated_at",
}

func manufacturerRow(rows *sqlmock.Rows, id string, verified, viewed bool, now time.Time) *sqlmock.Rows {
	return rows.AddRow(id, "user-1", "Acme", "", []byte(`["cotton"]`), []byte(`[]`), []byte(`[]`),
		"", verified, viewed, nil, nil, nil, now, now)
}

func TestCreateManufacturerAccount(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	user := marketplace.User{ID: "user-1", Email: "m@example.com", Name: "Acme", PasswordHash: "hash", Role: auth.RoleManufacturer, CreatedAt: now, UpdatedAt: now}
	m := marketplace.Manufacturer{ID: "mfr-1", UserID: "user-1", CompanyName: "Acme", CreatedAt: now, UpdatedAt: now}

	mock.ExpectBegin()
	mock.ExpectExec("insert into users").
		WithArgs("user-1", "m@example.com", "Acme", "hash", "MANUFACTURER", now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("insert into manufacturers").
		WithArgs("mfr-1", "user-1", "Acme", "", []byte(`[]`), []byte(`[]`), []byte(`[]`), "", false, false, now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := store.CreateManufacturerAccount(context.Background(), user, m); err != nil {
		t.Fatalf("CreateManufacturerAccount: %v", err)
	}
	expectMet(t, mock)
}

func TestCreateBuyerAccountDuplicateEmail(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("insert into users").WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})
	mock.ExpectRollback()

	err := store.CreateBuyerAccount(context.Background(),
		marketplace.User{ID: "u", Email: "b@example.com", Role: auth.RoleBuyer, CreatedAt: now, UpdatedAt: now},
		marketplace.Buyer{ID: "b", UserID: "u", CreatedAt: now, UpdatedAt: now})
	if !errors.Is(err, marketplace.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	expectMet(t, mock)
}

func TestUserByEmail(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("select id, email, name, password_hash, role, created_at, updated_at from users where lower\\(email\\)").
		WithArgs("m@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "password_hash", "role", "created_at", "updated_at"}).
			AddRow("user-1", "m@example.com", "Acme", "hash", "MANUFACTURER", now, now))
	mock.ExpectQuery("from users where lower\\(email\\)").
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	u, err := store.UserByEmail(context.Background(), " m@example.com ")
	if err != nil {
		t.Fatalf("UserByEmail: %v", err)
	}
	if u.Role != auth.RoleManufacturer || u.PasswordHash != "hash" {
		t.Fatalf("unexpected user %+v", u)
	}
	if _, err := store.UserByEmail(context.Background(), "ghost@example.com"); !errors.Is(err, marketplace.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestCredentialLookups(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery("select role from admins where id = \\$1").
		WithArgs("admin-1").
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("STAFF"))
	mock.ExpectQuery("select role from admins where id = \\$1").
		WithArgs("admin-2").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("select exists\\(select 1 from manufacturers").
		WithArgs("mfr-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("select exists\\(select 1 from buyers").
		WithArgs("buyer-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	role, ok, err := store.AdminRole(ctx, "admin-1")
	if err != nil || !ok || role != auth.RoleStaff {
		t.Fatalf("AdminRole: %q %v %v", role, ok, err)
	}
	if _, ok, err := store.AdminRole(ctx, "admin-2"); err != nil || ok {
		t.Fatalf("expected missing admin, got %v %v", ok, err)
	}
	if ok, err := store.ManufacturerExists(ctx, "mfr-1"); err != nil || !ok {
		t.Fatalf("ManufacturerExists: %v %v", ok, err)
	}
	if ok, err := store.BuyerExists(ctx, "buyer-1"); err != nil || ok {
		t.Fatalf("BuyerExists: %v %v", ok, err)
	}
	expectMet(t, mock)
}

func TestSetManufacturerVerificationWritesAuditInSameTransaction(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	entry := audit.Entry{
		ID:         "audit-1",
		Action:     audit.ActionManufacturerVerified,
		Resource:   audit.ResourceManufacturer,
		ResourceID: "mfr-1",
		ActorID:    "staff-1",
		Metadata:   map[string]any{"companyName": "Acme"},
		OccurredAt: now,
	}

	mock.ExpectBegin()
	mock.ExpectQuery("update manufacturers m\\s+set is_verified = \\$2, is_viewed_by_staff = true").
		WithArgs("mfr-1", true, now).
		WillReturnRows(manufacturerRow(sqlmock.NewRows(manufacturerRowColumns), "mfr-1", true, true, now))
	mock.ExpectExec("insert into audit_log").
		WithArgs("audit-1", "MANUFACTURER_VERIFIED", "manufacturer", "mfr-1", sqlmock.AnyArg(), sqlmock.AnyArg(), []byte(`{"companyName":"Acme"}`), now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	m, err := store.SetManufacturerVerification(context.Background(), "mfr-1", true, entry)
	if err != nil {
		t.Fatalf("SetManufacturerVerification: %v", err)
	}
	if !m.IsVerified || !m.IsViewedByStaff || len(m.Keywords) != 1 {
		t.Fatalf("unexpected manufacturer %+v", m)
	}
	expectMet(t, mock)
}

func TestSetManufacturerVerificationRollsBackOnAuditFailure(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("update manufacturers m").
		WillReturnRows(manufacturerRow(sqlmock.NewRows(manufacturerRowColumns), "mfr-1", false, true, now))
	mock.ExpectExec("insert into audit_log").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := store.SetManufacturerVerification(context.Background(), "mfr-1", false, audit.Entry{ID: "a", Action: audit.ActionManufacturerRejected, ResourceID: "mfr-1", OccurredAt: now})
	if err == nil {
		t.Fatalf("expected error")
	}
	expectMet(t, mock)
}

func TestSetManufacturerVerificationUnknownID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("update manufacturers m").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := store.SetManufacturerVerification(context.Background(), "missing", true, audit.Entry{OccurredAt: time.Now()})
	if !errors.Is(err, marketplace.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestListManufacturersBuildsFilters(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	verified := false

	mock.ExpectQuery("select count\\(\\*\\) from manufacturers m join users u on u.id = m.user_id where m.is_verified = \\$1 and \\(m.company_name ilike \\$2").
		WithArgs(false, "%acme%", "acme").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("order by u.created_at desc, m.id desc\\s+limit \\$4 offset \\$5").
		WithArgs(false, "%acme%", "acme", 2, 2).
		WillReturnRows(manufacturerRow(sqlmock.NewRows(manufacturerRowColumns), "mfr-3", false, false, now))

	rows, total, err := store.ListManufacturers(context.Background(), marketplace.ManufacturerFilter{
		Verified: &verified,
		Search:   "acme",
		Page:     2,
		Limit:    2,
	})
	if err != nil {
		t.Fatalf("ListManufacturers: %v", err)
	}
	if total != 3 || len(rows) != 1 || rows[0].ID != "mfr-3" {
		t.Fatalf("unexpected page total=%d rows=%+v", total, rows)
	}
	expectMet(t, mock)
}

func TestProductRoundTrip(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	ctx := context.Background()

	mock.ExpectExec("insert into products").WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})
	if err := store.CreateProduct(ctx, marketplace.Product{ID: "p1", ManufacturerID: "mfr-1", Slug: "yarn"}); !errors.Is(err, marketplace.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	cols := []string{"id", "manufacturer_id", "slug", "name", "description", "base_unit", "unit_price", "delivery_time_days",
		"tags", "media_urls", "spec_sheet_url", "is_paused", "created_at", "updated_at"}
	mock.ExpectQuery("from products where id = \\$1").
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("p1", "mfr-1", "yarn", "Yarn", "Combed cotton yarn", "kg", 3.5, 14,
			[]byte(`["cotton"]`), []byte(`["https://cdn.example.com/y.jpg"]`), nil, true, now, now))

	p, err := store.ProductByID(ctx, "p1")
	if err != nil {
		t.Fatalf("ProductByID: %v", err)
	}
	if p.UnitPrice != 3.5 || !p.IsPaused || len(p.MediaURLs) != 1 || p.SpecSheetURL != "" {
		t.Fatalf("unexpected product %+v", p)
	}

	mock.ExpectExec("delete from products where id = \\$1").WithArgs("gone").WillReturnResult(sqlmock.NewResult(0, 0))
	if err := store.DeleteProduct(ctx, "gone"); !errors.Is(err, marketplace.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	mock.ExpectExec("update products").WillReturnResult(sqlmock.NewResult(0, 1))
	if err := store.UpdateProduct(ctx, p); err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	expectMet(t, mock)
}

func TestListAudit(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("from audit_log where resource_id = \\$1 order by occurred_at desc, id desc limit \\$2").
		WithArgs("mfr-1", 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "action", "resource", "resource_id", "actor_id", "request_id", "metadata", "occurred_at"}).
			AddRow("a2", "MANUFACTURER_REJECTED", "manufacturer", "mfr-1", "staff-1", nil, []byte(`{"userEmail":"m@example.com"}`), now).
			AddRow("a1", "MANUFACTURER_VERIFIED", "manufacturer", "mfr-1", nil, "req-1", []byte(`{}`), now.Add(-time.Minute)))

	entries, err := store.ListAudit(context.Background(), audit.Query{ResourceID: "mfr-1", Limit: 10})
	if err != nil {
		t.Fatalf("ListAudit: %v", err)
	}
	if len(entries) != 2 || entries[0].Action != audit.ActionManufacturerRejected || entries[0].Metadata["userEmail"] != "m@example.com" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if entries[1].ActorID != "" || entries[1].RequestID != "req-1" {
		t.Fatalf("nullable columns not decoded: %+v", entries[1])
	}
	expectMet(t, mock)
}
